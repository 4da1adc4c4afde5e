// Package table implements the payload stored in the content of table
// blocks: a grid of markup cells with rectangular merges.
package table

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

type Style string

const (
	StyleNormal    Style = "normal"
	StyleThreeLine Style = "three-line"
)

const (
	DefaultRows = 2
	DefaultCols = 2

	// MaxRows and MaxCols bound grids decoded from stored documents.
	MaxRows = 500
	MaxCols = 100
)

// Cell is one grid position. A merged region has one anchor cell with a
// span larger than one; the other cells it covers are hidden.
type Cell struct {
	Content string `json:"content"`
	Rowspan int    `json:"rowspan"`
	Colspan int    `json:"colspan"`
	Hidden  bool   `json:"hidden"`
}

// UnmarshalJSON accepts either an object or a bare content string.
func (c *Cell) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*c = Cell{}
		return nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return errors.WithStack(err)
		}
		*c = Cell{Content: s, Rowspan: 1, Colspan: 1}
		return nil
	}

	type plain Cell
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return errors.WithStack(err)
	}
	*c = Cell(p)
	return nil
}

func (c Cell) isAnchor() bool {
	return !c.Hidden && (c.Rowspan > 1 || c.Colspan > 1)
}

// Payload is the table stored JSON-encoded in a block's content.
type Payload struct {
	Rows    int      `json:"rows"`
	Cols    int      `json:"cols"`
	Caption string   `json:"caption"`
	Style   Style    `json:"style"`
	Cells   [][]Cell `json:"cells"`
}

// New returns an empty rows×cols table.
func New(rows, cols int) Payload {
	rows = clamp(rows, 1, MaxRows)
	cols = clamp(cols, 1, MaxCols)
	return Payload{
		Rows:  rows,
		Cols:  cols,
		Style: StyleNormal,
		Cells: emptyGrid(rows, cols),
	}
}

// Default returns the table installed when a block becomes a table.
func Default() Payload {
	return New(DefaultRows, DefaultCols)
}

// Parse decodes a block's content. It never fails: malformed content
// yields the default table.
func Parse(content string) Payload {
	if content == "" {
		return Default()
	}
	var raw Payload
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Default()
	}
	return Normalize(raw)
}

// Marshal encodes p for storage in a block's content.
func Marshal(p Payload) string {
	data, err := json.Marshal(Normalize(p))
	if err != nil {
		// Payload holds only strings, ints and bools.
		panic(errors.Wrap(err, "failed to marshal table"))
	}
	return string(data)
}

// Cell returns the cell at (r, c).
func (p Payload) Cell(r, c int) (Cell, bool) {
	if r < 0 || r >= len(p.Cells) || c < 0 || c >= len(p.Cells[r]) {
		return Cell{}, false
	}
	return p.Cells[r][c], true
}

// Clone returns a deep copy of p.
func (p Payload) Clone() Payload {
	clone := p
	clone.Cells = make([][]Cell, len(p.Cells))
	for r, row := range p.Cells {
		clone.Cells[r] = append([]Cell(nil), row...)
	}
	return clone
}

// Normalize returns a payload whose grid matches Rows×Cols, whose spans
// stay inside the grid and do not overlap, and where a cell is hidden iff
// it is covered by another cell's span.
func Normalize(raw Payload) Payload {
	rows := raw.Rows
	if rows <= 0 {
		rows = len(raw.Cells)
	}
	if rows <= 0 {
		rows = DefaultRows
	}
	cols := raw.Cols
	if cols <= 0 {
		for _, row := range raw.Cells {
			cols = max(cols, len(row))
		}
	}
	if cols <= 0 {
		cols = DefaultCols
	}
	rows = clamp(rows, 1, MaxRows)
	cols = clamp(cols, 1, MaxCols)

	p := Payload{
		Rows:    rows,
		Cols:    cols,
		Caption: raw.Caption,
		Style:   raw.Style,
		Cells:   emptyGrid(rows, cols),
	}
	if p.Style != StyleThreeLine {
		p.Style = StyleNormal
	}

	for r := 0; r < rows && r < len(raw.Cells); r++ {
		for c := 0; c < cols && c < len(raw.Cells[r]); c++ {
			src := raw.Cells[r][c]
			p.Cells[r][c] = Cell{
				Content: src.Content,
				Rowspan: max(src.Rowspan, 1),
				Colspan: max(src.Colspan, 1),
			}
		}
	}

	covered := make([][]bool, rows)
	for r := range covered {
		covered[r] = make([]bool, cols)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cell := &p.Cells[r][c]
			if covered[r][c] {
				*cell = Cell{Rowspan: 1, Colspan: 1, Hidden: true}
				continue
			}
			rs := min(cell.Rowspan, rows-r)
			cs := min(cell.Colspan, cols-c)
			// Shrink the span until it covers no cell claimed by an
			// earlier anchor.
			for cs > 1 && anyCovered(covered, r, c, 1, cs) {
				cs--
			}
			for rs > 1 && anyCovered(covered, r, c, rs, cs) {
				rs--
			}
			cell.Rowspan, cell.Colspan = rs, cs
			for rr := r; rr < r+rs; rr++ {
				for cc := c; cc < c+cs; cc++ {
					if rr != r || cc != c {
						covered[rr][cc] = true
					}
				}
			}
		}
	}
	return p
}

func anyCovered(covered [][]bool, r, c, rs, cs int) bool {
	for rr := r; rr < r+rs; rr++ {
		for cc := c; cc < c+cs; cc++ {
			if (rr != r || cc != c) && covered[rr][cc] {
				return true
			}
		}
	}
	return false
}

// FlattenMerges returns p with every span reset to 1×1. Anchors keep their
// content and formerly hidden cells are empty.
func FlattenMerges(p Payload) Payload {
	p = Normalize(p)
	for r := range p.Cells {
		for c := range p.Cells[r] {
			cell := p.Cells[r][c]
			if cell.Hidden {
				cell.Content = ""
			}
			p.Cells[r][c] = Cell{Content: cell.Content, Rowspan: 1, Colspan: 1}
		}
	}
	return p
}

// MergeRect merges the inclusive rectangle into its top-left cell. Merges
// intersecting the rectangle are absorbed by growing the rectangle to
// cover them. Content of every cell but the anchor is discarded. Merging a
// single cell is a no-op.
func MergeRect(p Payload, r1, c1, r2, c2 int) Payload {
	p = Normalize(p)
	sel, ok := Selection{R1: r1, C1: c1, R2: r2, C2: c2}.Clamp(p.Rows, p.Cols)
	if !ok {
		return p
	}
	sel = expandToMerges(p, sel)
	if sel.IsSingleCell() {
		return p
	}

	content := p.Cells[sel.R1][sel.C1].Content
	for r := sel.R1; r <= sel.R2; r++ {
		for c := sel.C1; c <= sel.C2; c++ {
			p.Cells[r][c] = Cell{Rowspan: 1, Colspan: 1, Hidden: true}
		}
	}
	p.Cells[sel.R1][sel.C1] = Cell{
		Content: content,
		Rowspan: sel.Rows(),
		Colspan: sel.Cols(),
	}
	return p
}

func expandToMerges(p Payload, sel Selection) Selection {
	for changed := true; changed; {
		changed = false
		for r := 0; r < p.Rows; r++ {
			for c := 0; c < p.Cols; c++ {
				cell := p.Cells[r][c]
				if !cell.isAnchor() {
					continue
				}
				region := Selection{R1: r, C1: c, R2: r + cell.Rowspan - 1, C2: c + cell.Colspan - 1}
				if !region.Intersects(sel) || sel.ContainsRect(region) {
					continue
				}
				sel = sel.Union(region)
				changed = true
			}
		}
	}
	return sel
}

// Unmerge resets the anchor at (r, c) to a single cell. The cells it
// covered become visible and empty. Anything else is a no-op.
func Unmerge(p Payload, r, c int) Payload {
	p = Normalize(p)
	cell, ok := p.Cell(r, c)
	if !ok || !cell.isAnchor() {
		return p
	}
	for rr := r; rr < r+cell.Rowspan; rr++ {
		for cc := c; cc < c+cell.Colspan; cc++ {
			p.Cells[rr][cc] = Cell{Rowspan: 1, Colspan: 1}
		}
	}
	p.Cells[r][c].Content = cell.Content
	return p
}

// Resize returns a rows×cols table keeping the content that fits. Merges
// are flattened first.
func Resize(p Payload, rows, cols int) Payload {
	flat := FlattenMerges(p)
	out := New(rows, cols)
	out.Caption = flat.Caption
	out.Style = flat.Style
	for r := 0; r < min(flat.Rows, out.Rows); r++ {
		for c := 0; c < min(flat.Cols, out.Cols); c++ {
			out.Cells[r][c].Content = flat.Cells[r][c].Content
		}
	}
	return out
}

// SetContent returns p with the content of a visible cell replaced.
func SetContent(p Payload, r, c int, content string) Payload {
	p = Normalize(p)
	cell, ok := p.Cell(r, c)
	if !ok || cell.Hidden {
		return p
	}
	p.Cells[r][c].Content = content
	return p
}

// AnchorOf returns the cell whose span covers (r, c).
func AnchorOf(p Payload, r, c int) (int, int) {
	for rr := r; rr >= 0; rr-- {
		for cc := c; cc >= 0; cc-- {
			cell, ok := p.Cell(rr, cc)
			if !ok || cell.Hidden {
				continue
			}
			if rr+cell.Rowspan > r && cc+cell.Colspan > c {
				return rr, cc
			}
		}
	}
	return r, c
}

func emptyGrid(rows, cols int) [][]Cell {
	cells := make([][]Cell, rows)
	for r := range cells {
		cells[r] = make([]Cell, cols)
		for c := range cells[r] {
			cells[r][c] = Cell{Rowspan: 1, Colspan: 1}
		}
	}
	return cells
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
