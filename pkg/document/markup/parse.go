package markup

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	markerRe    = regexp.MustCompile(`^(?:([-*])|(\d{1,9})\.) `)
	colorOpenRe = regexp.MustCompile(`^\{(#[0-9a-fA-F]{3,8}|[a-zA-Z]{1,20})\|`)
)

const (
	typstPrefix = "[typst]"
	latexPrefix = "[latex]"
)

// Parse parses a markup string. It never fails: anything that is not
// recognized as markup is kept as literal text.
func Parse(s string) Doc {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if s == "" {
		return Doc{}
	}
	raw := strings.Split(s, "\n")
	lines := make([]Line, 0, len(raw))
	for _, r := range raw {
		lines = append(lines, ParseLine(r))
	}
	return Doc{Lines: lines}
}

// ParseLine parses a single line of markup.
func ParseLine(s string) Line {
	marker, rest := SplitMarker(s)
	return Line{Marker: marker, Inlines: parseInlines(rest)}
}

// SplitMarker separates a leading list marker from the rest of the line.
func SplitMarker(s string) (Marker, string) {
	m := markerRe.FindStringSubmatch(s)
	if m == nil {
		return Marker{}, s
	}
	rest := s[len(m[0]):]
	if m[1] != "" {
		return Marker{Kind: BulletMarker, Symbol: m[1]}, rest
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return Marker{}, s
	}
	return Marker{Kind: OrderedMarker, Number: n}, rest
}

func isToggle(c byte) bool {
	return c == '*' || c == '_' || c == '~' || c == '+'
}

func isEscapable(c byte) bool {
	switch c {
	case '\\', '*', '_', '~', '+', '{', '}', '$', '-', '.':
		return true
	}
	return false
}

type inlineParser struct {
	src    string
	pos    int
	style  Style
	colors []string
	buf    strings.Builder
	out    []Inline
}

func parseInlines(s string) []Inline {
	p := &inlineParser{src: s}
	p.run()
	return mergeTexts(p.out)
}

func (p *inlineParser) run() {
	s := p.src
	for p.pos < len(s) {
		c := s[p.pos]
		switch {
		case c == '\\' && p.pos+1 < len(s) && isEscapable(s[p.pos+1]):
			p.buf.WriteByte(s[p.pos+1])
			p.pos += 2
		case c == '$':
			m, n, ok := scanMath(s[p.pos:])
			if !ok {
				p.buf.WriteByte(c)
				p.pos++
				continue
			}
			p.flush()
			p.out = append(p.out, m)
			p.pos += n
		case isToggle(c) && p.pos+1 < len(s) && s[p.pos+1] == c:
			p.flush()
			p.toggle(c)
			p.pos += 2
		case c == '{':
			m := colorOpenRe.FindStringSubmatch(s[p.pos:])
			if m == nil {
				p.buf.WriteByte(c)
				p.pos++
				continue
			}
			p.flush()
			p.colors = append(p.colors, m[1])
			p.style.Color = m[1]
			p.pos += len(m[0])
		case c == '}' && len(p.colors) > 0:
			p.flush()
			p.colors = p.colors[:len(p.colors)-1]
			p.style.Color = ""
			if n := len(p.colors); n > 0 {
				p.style.Color = p.colors[n-1]
			}
			p.pos++
		default:
			p.buf.WriteByte(c)
			p.pos++
		}
	}
	p.flush()
}

func (p *inlineParser) toggle(c byte) {
	switch c {
	case '*':
		p.style.Bold = !p.style.Bold
	case '_':
		p.style.Italic = !p.style.Italic
	case '~':
		p.style.Strike = !p.style.Strike
	case '+':
		p.style.Underline = !p.style.Underline
	}
}

func (p *inlineParser) flush() {
	if p.buf.Len() == 0 {
		return
	}
	p.out = append(p.out, Text{Value: p.buf.String(), Style: p.style})
	p.buf.Reset()
}

// scanMath reads a math atom at the start of s, which begins with '$'.
// It returns the atom and the number of bytes consumed.
func scanMath(s string) (Math, int, bool) {
	if strings.HasPrefix(s, "$$") {
		end := findUnescaped(s, 2, "$$")
		if end < 0 {
			return Math{}, 0, false
		}
		m, ok := newMath(s[2:end], true)
		return m, end + 2, ok
	}
	end := findUnescaped(s, 1, "$")
	if end < 0 {
		return Math{}, 0, false
	}
	m, ok := newMath(s[1:end], false)
	return m, end + 1, ok
}

func findUnescaped(s string, from int, delim string) int {
	for i := from; i+len(delim) <= len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if strings.HasPrefix(s[i:], delim) {
			return i
		}
	}
	return -1
}

func newMath(body string, display bool) (Math, bool) {
	format := LaTeX
	switch {
	case strings.HasPrefix(body, typstPrefix):
		format = Typst
		body = body[len(typstPrefix):]
	case strings.HasPrefix(body, latexPrefix):
		body = body[len(latexPrefix):]
	}
	if strings.TrimSpace(body) == "" {
		return Math{}, false
	}
	return Math{Format: format, Source: unescapeMathSource(body), Display: display}, true
}

// unescapeMathSource reverses escapeMathSource: a backslash run ending in
// "\$" stands for half its preceding backslashes and a '$'.
func unescapeMathSource(s string) string {
	if !strings.Contains(s, `\$`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		j := i
		for j < len(s) && s[j] == '\\' {
			j++
		}
		run := j - i
		if j < len(s) && s[j] == '$' {
			b.WriteString(strings.Repeat(`\`, run/2))
			b.WriteByte('$')
			i = j
			continue
		}
		b.WriteString(s[i:j])
		i = j - 1
	}
	return b.String()
}

// PlainText returns the text of a markup string without styling. Math atoms
// are replaced by their source.
func PlainText(s string) string {
	doc := Parse(s)
	lines := make([]string, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		var b strings.Builder
		b.WriteString(line.Marker.String())
		for _, in := range line.Inlines {
			switch v := in.(type) {
			case Text:
				b.WriteString(v.Value)
			case Math:
				b.WriteString(v.Source)
			}
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}
