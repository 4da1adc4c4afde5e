package markup

import (
	"strconv"
	"sync/atomic"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attributes of an inline math pill.
const (
	PillClass     = "math-pill"
	PillGlyph     = "∑"
	AttrFormat    = "data-math-format"
	AttrLatex     = "data-math-latex"
	AttrTypst     = "data-math-typst"
	AttrDisplay   = "data-math-display"
	AttrID        = "data-math-id"
	attrEditable  = "contenteditable"
	attrClass     = "class"
	attrStyle     = "style"
	displayTrue   = "true"
	displayFalse  = "false"
	pillIDPrefix  = "m"
	editableFalse = "false"
)

// PillState is the state of a pill as carried by its attributes. Both
// sources are kept so switching the format back and forth does not lose
// what was typed in the other one.
type PillState struct {
	ID      string
	Format  MathFormat
	Latex   string
	Typst   string
	Display bool
}

// Source returns the source in the active format.
func (s PillState) Source() string {
	if s.Format == Typst {
		return s.Typst
	}
	return s.Latex
}

// Math returns the inline atom for the pill.
func (s PillState) Math() Math {
	return Math{Format: s.Format, Source: s.Source(), Display: s.Display}
}

// NewPill creates a pill element for m.
func NewPill(m Math, id string) *html.Node {
	state := PillState{ID: id, Format: m.Format, Display: m.Display}
	if m.Format == Typst {
		state.Typst = m.Source
	} else {
		state.Format = LaTeX
		state.Latex = m.Source
	}
	n := NewElement(atom.Span,
		html.Attribute{Key: attrClass, Val: PillClass},
		html.Attribute{Key: attrEditable, Val: editableFalse},
	)
	WritePill(n, state)
	n.AppendChild(NewText(PillGlyph))
	return n
}

// IsPill reports whether n is an inline math pill.
func IsPill(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	return HasClass(n, PillClass) || HasAttr(n, AttrFormat)
}

// ReadPill returns the state stored on a pill.
func ReadPill(n *html.Node) PillState {
	return PillState{
		ID:      Attr(n, AttrID),
		Format:  ParseMathFormat(Attr(n, AttrFormat)),
		Latex:   Attr(n, AttrLatex),
		Typst:   Attr(n, AttrTypst),
		Display: Attr(n, AttrDisplay) == displayTrue,
	}
}

// WritePill stores state on a pill's attributes.
func WritePill(n *html.Node, state PillState) {
	if state.Format == "" {
		state.Format = LaTeX
	}
	display := displayFalse
	if state.Display {
		display = displayTrue
	}
	SetAttr(n, AttrFormat, string(state.Format))
	SetAttr(n, AttrLatex, state.Latex)
	SetAttr(n, AttrTypst, state.Typst)
	SetAttr(n, AttrDisplay, display)
	if state.ID != "" {
		SetAttr(n, AttrID, state.ID)
	}
}

// FindPill returns the pill with the given id under root.
func FindPill(root *html.Node, id string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if IsPill(n) && Attr(n, AttrID) == id {
			found = n
			return false
		}
		return true
	})
	return found
}

var pillSeq atomic.Int64

// NextPillID returns a pill id unique within the process.
func NextPillID() string {
	return pillIDPrefix + strconv.FormatInt(pillSeq.Add(1), 10)
}

// walk visits n and its descendants depth first. Returning false from fn
// skips the children of the visited node.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}
