// Package markup implements the compact inline markup stored in heading,
// paragraph and table cell content, and its conversion to and from the
// editable HTML fragment shown in a contenteditable surface.
//
// A markup string is a sequence of lines separated by "\n". Each line may
// start with a list marker ("- ", "* " or "N. ") followed by inline content:
//
//	**bold**  __italic__  ~~strike~~  ++underline++
//	{#ff0000|colored}  $x^2$  $$\sum_i x_i$$  $[typst]x^2$
//
// Style markers toggle a flag until the end of the line. A backslash escapes
// any character that would otherwise be read as markup.
package markup

import (
	"fmt"
	"strings"
)

// Style is the set of character styles applied to a text run.
type Style struct {
	Bold      bool
	Italic    bool
	Strike    bool
	Underline bool
	Color     string
}

// IsZero reports whether no style is set.
func (s Style) IsZero() bool { return s == Style{} }

type MathFormat string

const (
	LaTeX MathFormat = "latex"
	Typst MathFormat = "typst"
)

// ParseMathFormat returns the format named by s, defaulting to LaTeX.
func ParseMathFormat(s string) MathFormat {
	if strings.EqualFold(s, string(Typst)) {
		return Typst
	}
	return LaTeX
}

// Inline is a Text run or a Math atom.
type Inline interface {
	isInline()
}

type Text struct {
	Value string
	Style Style
}

func (Text) isInline() {}

// Math is an inline formula. It is an atom: it carries no character style
// and is edited as a whole.
type Math struct {
	Format  MathFormat
	Source  string
	Display bool
}

func (Math) isInline() {}

type MarkerKind int

const (
	NoMarker MarkerKind = iota
	BulletMarker
	OrderedMarker
)

// Marker is the list marker a line starts with.
type Marker struct {
	Kind   MarkerKind
	Symbol string // "-" or "*" for bullets
	Number int    // for ordered markers
}

func (m Marker) String() string {
	switch m.Kind {
	case BulletMarker:
		sym := m.Symbol
		if sym == "" {
			sym = "-"
		}
		return sym + " "
	case OrderedMarker:
		return fmt.Sprintf("%d. ", m.Number)
	default:
		return ""
	}
}

// Next returns the marker continuing m on the following line.
func (m Marker) Next() Marker {
	if m.Kind == OrderedMarker {
		m.Number++
	}
	return m
}

// Line is one line of markup.
type Line struct {
	Marker  Marker
	Inlines []Inline
}

// IsBlank reports whether the line carries no content besides whitespace
// and an optional marker.
func (l Line) IsBlank() bool {
	for _, in := range l.Inlines {
		switch v := in.(type) {
		case Text:
			if strings.TrimSpace(v.Value) != "" {
				return false
			}
		case Math:
			return false
		}
	}
	return true
}

// Doc is a parsed markup string.
type Doc struct {
	Lines []Line
}

// mergeTexts joins adjacent text runs sharing a style and drops empty ones.
func mergeTexts(inlines []Inline) []Inline {
	result := make([]Inline, 0, len(inlines))
	for _, in := range inlines {
		t, ok := in.(Text)
		if !ok {
			result = append(result, in)
			continue
		}
		if t.Value == "" {
			continue
		}
		if n := len(result); n > 0 {
			if prev, ok := result[n-1].(Text); ok && prev.Style == t.Style {
				prev.Value += t.Value
				result[n-1] = prev
				continue
			}
		}
		result = append(result, t)
	}
	return result
}
