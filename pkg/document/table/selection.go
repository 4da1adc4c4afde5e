package table

import (
	"strings"

	"github.com/stateful/labdoc/pkg/document/markup"
)

// Selection is a rectangle inside the table of block BlockID. Corners are
// inclusive and not required to be ordered.
type Selection struct {
	BlockID string `json:"blockId"`
	R1      int    `json:"r1"`
	C1      int    `json:"c1"`
	R2      int    `json:"r2"`
	C2      int    `json:"c2"`
}

// Normalize orders the corners so R1<=R2 and C1<=C2.
func (s Selection) Normalize() Selection {
	return Selection{
		BlockID: s.BlockID,
		R1:      min(s.R1, s.R2),
		C1:      min(s.C1, s.C2),
		R2:      max(s.R1, s.R2),
		C2:      max(s.C1, s.C2),
	}
}

func (s Selection) Rows() int {
	n := s.Normalize()
	return n.R2 - n.R1 + 1
}

func (s Selection) Cols() int {
	n := s.Normalize()
	return n.C2 - n.C1 + 1
}

func (s Selection) IsSingleCell() bool {
	return s.Rows() == 1 && s.Cols() == 1
}

func (s Selection) Contains(r, c int) bool {
	n := s.Normalize()
	return r >= n.R1 && r <= n.R2 && c >= n.C1 && c <= n.C2
}

func (s Selection) ContainsRect(o Selection) bool {
	o = o.Normalize()
	return s.Contains(o.R1, o.C1) && s.Contains(o.R2, o.C2)
}

func (s Selection) Intersects(o Selection) bool {
	a, b := s.Normalize(), o.Normalize()
	return a.R1 <= b.R2 && b.R1 <= a.R2 && a.C1 <= b.C2 && b.C1 <= a.C2
}

// Union returns the smallest rectangle containing both.
func (s Selection) Union(o Selection) Selection {
	a, b := s.Normalize(), o.Normalize()
	return Selection{
		BlockID: a.BlockID,
		R1:      min(a.R1, b.R1),
		C1:      min(a.C1, b.C1),
		R2:      max(a.R2, b.R2),
		C2:      max(a.C2, b.C2),
	}
}

// Clamp normalizes s and cuts it to a rows×cols grid. It reports false if
// nothing of s lies inside the grid.
func (s Selection) Clamp(rows, cols int) (Selection, bool) {
	n := s.Normalize()
	if n.R2 < 0 || n.C2 < 0 || n.R1 >= rows || n.C1 >= cols {
		return n, false
	}
	n.R1 = max(n.R1, 0)
	n.C1 = max(n.C1, 0)
	n.R2 = min(n.R2, rows-1)
	n.C2 = min(n.C2, cols-1)
	return n, true
}

// Values returns the plain text of the selected cells, row by row. Hidden
// cells read as empty.
func Values(p Payload, sel Selection) [][]string {
	p = Normalize(p)
	n, ok := sel.Clamp(p.Rows, p.Cols)
	if !ok {
		return nil
	}
	values := make([][]string, 0, n.Rows())
	for r := n.R1; r <= n.R2; r++ {
		row := make([]string, 0, n.Cols())
		for c := n.C1; c <= n.C2; c++ {
			cell := p.Cells[r][c]
			if cell.Hidden {
				row = append(row, "")
				continue
			}
			row = append(row, strings.TrimSpace(markup.PlainText(cell.Content)))
		}
		values = append(values, row)
	}
	return values
}
