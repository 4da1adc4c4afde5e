// Package typst generates Typst source for a document. Every block is
// preceded by an invisible marker rectangle filled with MarkerFill, which
// lets the geometry engine find the block's region in the rendered pages.
package typst

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stateful/labdoc/pkg/document"
	"github.com/stateful/labdoc/pkg/document/chart"
	"github.com/stateful/labdoc/pkg/document/table"
)

// MarkerFill is the fill color of block markers.
const MarkerFill = "#010203"

// Marker is the Typst source of a block marker.
var Marker = `#place(top + left, rect(width: 0.5pt, height: 0.5pt, fill: rgb("` + MarkerFill + `"), stroke: none))`

const mitexImport = `#import "@preview/mitex:0.2.5": mi, mitex`

const defaultPreamble = `#set page(paper: "a4", margin: 2cm)
#set text(size: 11pt, lang: "zh")
#set par(justify: true)
#set heading(numbering: "1.1")`

// defaultLeading is Typst's default paragraph leading in em.
const defaultLeading = 0.65

type Generator struct {
	preamble string
	markers  bool
}

type Option func(*Generator)

func WithPreamble(preamble string) Option {
	return func(g *Generator) {
		g.preamble = preamble
	}
}

// WithoutMarkers omits block markers, for exports that are not hit-tested.
func WithoutMarkers() Option {
	return func(g *Generator) {
		g.markers = false
	}
}

func New(opts ...Option) *Generator {
	g := &Generator{preamble: defaultPreamble, markers: true}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the Typst source of doc. The i-th marker in the output
// belongs to doc.Blocks[i].
func (g *Generator) Generate(doc *document.Document) string {
	var body strings.Builder
	w := &writer{b: &body}

	if doc.Title != "" {
		fmt.Fprintf(&body, "#align(center, text(size: 17pt, weight: \"bold\")[%s])\n\n", escapeText(doc.Title))
	}
	for _, b := range doc.Blocks {
		if g.markers {
			body.WriteString(Marker)
			body.WriteByte('\n')
		}
		w.block(b)
		body.WriteString("\n\n")
	}

	var out strings.Builder
	if w.latex {
		out.WriteString(mitexImport)
		out.WriteByte('\n')
	}
	if g.preamble != "" {
		out.WriteString(g.preamble)
		out.WriteString("\n\n")
	}
	out.WriteString(strings.TrimRight(body.String(), "\n"))
	out.WriteByte('\n')
	return out.String()
}

// Generate uses the default generator.
func Generate(doc *document.Document) string {
	return New().Generate(doc)
}

type writer struct {
	b     *strings.Builder
	latex bool
}

func (w *writer) block(b document.Block) {
	switch b.Type {
	case document.TypeHeading:
		level := min(max(b.Level, 1), 6)
		w.b.WriteString(strings.Repeat("=", level) + " ")
		w.b.WriteString(strings.ReplaceAll(w.markup(b.Content), "\n", " "))
	case document.TypeParagraph:
		content := w.markup(b.Content)
		if b.LineSpacing != nil && *b.LineSpacing > 0 {
			leading := strconv.FormatFloat(defaultLeading**b.LineSpacing, 'f', 2, 64)
			fmt.Fprintf(w.b, "#block[\n#set par(leading: %sem)\n%s\n]", leading, content)
			return
		}
		w.b.WriteString(content)
	case document.TypeCode:
		fence := rawFence(b.Content)
		fmt.Fprintf(w.b, "%s%s\n%s\n%s", fence, b.Language, b.Content, fence)
	case document.TypeMath:
		w.mathBlock(b)
	case document.TypeImage:
		w.figure(imageCall(b.Content, b.Width), b.Caption)
	case document.TypeTable:
		p, _ := b.TablePayload()
		w.table(p)
	case document.TypeChart:
		d, _ := b.ChartData()
		w.chart(d)
	}
}

func (w *writer) figure(content, caption string) {
	if caption == "" {
		fmt.Fprintf(w.b, "#figure(%s)", content)
		return
	}
	fmt.Fprintf(w.b, "#figure(%s, caption: [%s])", content, escapeText(caption))
}

func imageCall(url, width string) string {
	if l, ok := length(width); ok {
		return fmt.Sprintf("image(%s, width: %s)", quote(url), l)
	}
	return fmt.Sprintf("image(%s)", quote(url))
}

func (w *writer) chart(d chart.Data) {
	if d.ImageURL == "" {
		title := d.Title
		if title == "" {
			title = string(d.ChartType)
		}
		fmt.Fprintf(w.b, "#align(center, text(fill: gray)[%s])", escapeText("["+title+"]"))
		return
	}
	w.figure(imageCall(d.ImageURL, "80%"), d.Title)
}

func (w *writer) table(p table.Payload) {
	p = table.Normalize(p)
	var cells []string
	for r := 0; r < p.Rows; r++ {
		for c := 0; c < p.Cols; c++ {
			cell := p.Cells[r][c]
			if cell.Hidden {
				continue
			}
			content := "[" + w.markup(cell.Content) + "]"
			if cell.Rowspan > 1 || cell.Colspan > 1 {
				content = fmt.Sprintf("table.cell(rowspan: %d, colspan: %d)%s", max(cell.Rowspan, 1), max(cell.Colspan, 1), content)
			}
			cells = append(cells, content)
		}
	}

	var t strings.Builder
	fmt.Fprintf(&t, "table(\n  columns: %d,\n", p.Cols)
	if p.Style == table.StyleThreeLine {
		t.WriteString("  stroke: none,\n  table.hline(stroke: 1pt),\n")
	}
	perRow := rowCells(p)
	i := 0
	for r := 0; r < p.Rows; r++ {
		t.WriteString("  ")
		t.WriteString(strings.Join(cells[i:i+perRow[r]], ", "))
		t.WriteString(",\n")
		i += perRow[r]
		if p.Style == table.StyleThreeLine && r == 0 && p.Rows > 1 {
			t.WriteString("  table.hline(stroke: 0.5pt),\n")
		}
	}
	if p.Style == table.StyleThreeLine {
		t.WriteString("  table.hline(stroke: 1pt),\n")
	}
	t.WriteString(")")
	w.figure(t.String(), p.Caption)
}

func rowCells(p table.Payload) []int {
	counts := make([]int, p.Rows)
	for r := 0; r < p.Rows; r++ {
		for c := 0; c < p.Cols; c++ {
			if !p.Cells[r][c].Hidden {
				counts[r]++
			}
		}
	}
	return counts
}
