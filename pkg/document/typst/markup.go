package typst

import (
	"strings"

	"github.com/stateful/labdoc/pkg/document"
	"github.com/stateful/labdoc/pkg/document/markup"
)

// markup converts inline markup to Typst markup. Plain lines are joined
// with forced line breaks; list lines become Typst list items.
func (w *writer) markup(s string) string {
	doc := markup.Parse(s)
	lines := make([]string, 0, len(doc.Lines))
	for i, line := range doc.Lines {
		var b strings.Builder
		switch line.Marker.Kind {
		case markup.BulletMarker:
			b.WriteString("- ")
		case markup.OrderedMarker:
			b.WriteString(line.Marker.String())
		}
		for _, in := range line.Inlines {
			switch v := in.(type) {
			case markup.Text:
				b.WriteString(styled(escapeText(v.Value), v.Style))
			case markup.Math:
				b.WriteString(w.math(v))
			}
		}
		text := b.String()
		next := i + 1
		if line.Marker.Kind == markup.NoMarker && next < len(doc.Lines) && doc.Lines[next].Marker.Kind == markup.NoMarker {
			text += ` \`
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}

func styled(s string, st markup.Style) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	if st.Bold {
		s = "#strong[" + s + "]"
	}
	if st.Italic {
		s = "#emph[" + s + "]"
	}
	if st.Underline {
		s = "#underline[" + s + "]"
	}
	if st.Strike {
		s = "#strike[" + s + "]"
	}
	if c, ok := color(st.Color); ok {
		s = "#text(fill: " + c + ")[" + s + "]"
	}
	return s
}

func (w *writer) math(m markup.Math) string {
	if m.Format == markup.Typst {
		if m.Display {
			return "$ " + m.Source + " $"
		}
		return "$" + m.Source + "$"
	}
	w.latex = true
	if m.Display {
		return "#mitex(" + quote(m.Source) + ")"
	}
	return "#mi(" + quote(m.Source) + ")"
}

// mathBlock writes a display formula. Multi-line formulas are aligned, and
// wrapped in a left brace when MathBrace is set.
func (w *writer) mathBlock(b document.Block) {
	format := markup.ParseMathFormat(b.MathFormat)
	src := b.Content
	switch format {
	case markup.Typst:
		if b.MathTypst != "" {
			src = b.MathTypst
		}
	default:
		if b.MathLatex != "" {
			src = b.MathLatex
		}
	}

	lines := nonEmpty(b.MathLines)
	if len(lines) > 1 {
		if format == markup.Typst {
			joined := strings.Join(lines, ` \ `)
			if b.MathBrace {
				joined = "cases(" + strings.Join(lines, ", ") + ")"
			}
			src = joined
		} else {
			env := "aligned"
			if b.MathBrace {
				env = "cases"
			}
			src = `\begin{` + env + `}` + strings.Join(lines, ` \\ `) + `\end{` + env + `}`
		}
	}
	if strings.TrimSpace(src) == "" {
		return
	}
	w.b.WriteString(w.math(markup.Math{Format: format, Source: src, Display: true}))
}

func nonEmpty(lines []string) []string {
	var result []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			result = append(result, l)
		}
	}
	return result
}
