package importer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"

	"github.com/stateful/labdoc/pkg/document"
	"github.com/stateful/labdoc/pkg/document/markup"
	"github.com/stateful/labdoc/pkg/document/table"
)

var mathPattern = regexp.MustCompile(`\$\$(.+?)\$\$|\$([^$\n]+?)\$`)

// inlineWriter collects the markup lines of one block. Adjacent text
// segments of the same style are buffered so math delimiters split across
// segments are still found.
type inlineWriter struct {
	source  []byte
	lines   []markup.Line
	cur     markup.Line
	pending strings.Builder
	style   markup.Style
}

func (w *inlineWriter) text(s string, style markup.Style) {
	if style != w.style {
		w.flush()
		w.style = style
	}
	w.pending.WriteString(s)
}

func (w *inlineWriter) inline(in markup.Inline) {
	w.flush()
	w.cur.Inlines = append(w.cur.Inlines, in)
}

func (w *inlineWriter) flush() {
	s := w.pending.String()
	w.pending.Reset()
	if s == "" {
		return
	}
	last := 0
	for _, m := range mathPattern.FindAllStringSubmatchIndex(s, -1) {
		if m[0] > last {
			w.cur.Inlines = append(w.cur.Inlines, markup.Text{Value: s[last:m[0]], Style: w.style})
		}
		if m[2] >= 0 {
			w.cur.Inlines = append(w.cur.Inlines, markup.Math{Format: markup.LaTeX, Source: s[m[2]:m[3]], Display: true})
		} else {
			w.cur.Inlines = append(w.cur.Inlines, markup.Math{Format: markup.LaTeX, Source: s[m[4]:m[5]]})
		}
		last = m[1]
	}
	if last < len(s) {
		w.cur.Inlines = append(w.cur.Inlines, markup.Text{Value: s[last:], Style: w.style})
	}
}

func (w *inlineWriter) newline() {
	w.flush()
	w.lines = append(w.lines, w.cur)
	w.cur = markup.Line{}
}

func (w *inlineWriter) markup() string {
	w.flush()
	lines := append(w.lines, w.cur)
	for len(lines) > 1 && lines[len(lines)-1].IsBlank() {
		lines = lines[:len(lines)-1]
	}
	return markup.Format(markup.Doc{Lines: lines})
}

func (w *inlineWriter) walk(parent ast.Node, style markup.Style) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *ast.Text:
			w.text(string(n.Segment.Value(w.source)), style)
			switch {
			case n.HardLineBreak():
				w.newline()
			case n.SoftLineBreak():
				w.text(" ", style)
			}
		case *ast.String:
			w.text(string(n.Value), style)
		case *ast.Emphasis:
			s := style
			if n.Level >= 2 {
				s.Bold = true
			} else {
				s.Italic = true
			}
			w.walk(n, s)
		case *east.Strikethrough:
			s := style
			s.Strike = true
			w.walk(n, s)
		case *ast.CodeSpan:
			w.inline(markup.Text{Value: plainText(n, w.source), Style: style})
		case *ast.AutoLink:
			w.inline(markup.Text{Value: string(n.URL(w.source)), Style: style})
		case *ast.RawHTML:
			continue
		default:
			w.walk(n, style)
		}
	}
}

// inlineMarkup converts the inline children of n to a markup string.
func (b *builder) inlineMarkup(n ast.Node) string {
	w := &inlineWriter{source: b.source}
	w.walk(n, markup.Style{})
	return w.markup()
}

// listLines flattens a list into marker lines. Nested lists continue with
// their own markers; markup has no indentation.
func (b *builder) listLines(list *ast.List) []string {
	var lines []string
	number := list.Start
	if number == 0 {
		number = 1
	}
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "- "
		if list.IsOrdered() {
			marker = strconv.Itoa(number) + ". "
			number++
		}
		first := true
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				lines = append(lines, b.listLines(sub)...)
				continue
			}
			content := b.inlineMarkup(c)
			for _, line := range strings.Split(content, "\n") {
				if first {
					lines = append(lines, marker+stripMarkerEscape(line))
					first = false
					continue
				}
				lines = append(lines, line)
			}
		}
		if first {
			lines = append(lines, marker)
		}
	}
	return lines
}

// stripMarkerEscape undoes the escaping Format applies to text that looks
// like a list marker, which is not needed once a real marker precedes it.
func stripMarkerEscape(line string) string {
	if strings.HasPrefix(line, `\- `) || strings.HasPrefix(line, `\* `) {
		return line[1:]
	}
	return line
}

func (b *builder) table(n *east.Table) {
	var rows [][]string
	for r := n.FirstChild(); r != nil; r = r.NextSibling() {
		var row []string
		for c := r.FirstChild(); c != nil; c = c.NextSibling() {
			row = append(row, b.inlineMarkup(c))
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return
	}
	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	p := table.New(min(len(rows), table.MaxRows), min(max(cols, 1), table.MaxCols))
	for i, row := range rows {
		for j, content := range row {
			p = table.SetContent(p, i, j, content)
		}
	}
	b.add(document.Block{Type: document.TypeTable, Content: table.Marshal(p)})
}

// plainText concatenates the text below n.
func plainText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			sb.Write(c.Segment.Value(source))
			if c.SoftLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(c.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}
