package markup

import (
	"strings"
)

// Format renders a document back into a markup string.
func Format(d Doc) string {
	lines := make([]string, 0, len(d.Lines))
	for _, line := range d.Lines {
		lines = append(lines, FormatLine(line))
	}
	return strings.Join(lines, "\n")
}

// FormatLine renders a single line.
func FormatLine(l Line) string {
	var b strings.Builder

	var cur Style
	for _, in := range l.Inlines {
		switch v := in.(type) {
		case Text:
			if v.Value == "" {
				continue
			}
			writeTransition(&b, cur, v.Style)
			cur = v.Style
			b.WriteString(escapeText(v.Value))
		case Math:
			b.WriteString(formatMath(v))
		}
	}
	writeTransition(&b, cur, Style{})

	body := b.String()
	if l.Marker.Kind == NoMarker {
		body = escapeMarker(body)
	}
	return l.Marker.String() + body
}

// writeTransition writes the markers switching from one style to the next.
// A color opens before the toggles and closes after them so a colored run
// reads as {c|**x**}.
func writeTransition(b *strings.Builder, from, to Style) {
	colorChanged := from.Color != to.Color
	if colorChanged && from.Color == "" {
		b.WriteString("{" + to.Color + "|")
	}
	if from.Bold != to.Bold {
		b.WriteString("**")
	}
	if from.Italic != to.Italic {
		b.WriteString("__")
	}
	if from.Strike != to.Strike {
		b.WriteString("~~")
	}
	if from.Underline != to.Underline {
		b.WriteString("++")
	}
	if colorChanged && from.Color != "" {
		b.WriteByte('}')
		if to.Color != "" {
			b.WriteString("{" + to.Color + "|")
		}
	}
}

func escapeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' || c == '{' || c == '}' || c == '$':
			b.WriteByte('\\')
		case isToggle(c):
			// A toggle character is only ambiguous next to another one of
			// its kind, including the markers written around the run.
			if i == 0 || i == len(s)-1 || s[i-1] == c || s[i+1] == c {
				b.WriteByte('\\')
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// escapeMarker keeps a plain line from being read back as a list line.
func escapeMarker(body string) string {
	if !markerRe.MatchString(body) {
		return body
	}
	if body[0] == '-' {
		return `\` + body
	}
	dot := strings.IndexByte(body, '.')
	return body[:dot] + `\` + body[dot:]
}

func formatMath(m Math) string {
	src := escapeMathSource(m.Source)
	if m.Format == Typst {
		src = typstPrefix + src
	}
	if m.Display {
		return "$$" + src + "$$"
	}
	return "$" + src + "$"
}

// escapeMathSource escapes every '$' of a math source. A backslash run in
// front of a '$' is doubled so unescapeMathSource can tell it apart from the
// escape.
func escapeMathSource(s string) string {
	var (
		b        strings.Builder
		trailing bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			j := i
			for j < len(s) && s[j] == '\\' {
				j++
			}
			run := j - i
			if j < len(s) && s[j] == '$' {
				run *= 2
			} else if j == len(s) && run%2 == 1 {
				// A trailing odd run would escape the closing delimiter.
				trailing = true
			}
			b.WriteString(strings.Repeat(`\`, run))
			i = j - 1
		case '$':
			b.WriteString(`\$`)
		default:
			b.WriteByte(c)
		}
	}
	if trailing {
		b.WriteByte(' ')
	}
	return b.String()
}
