package markup

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	nbsp      = "\u00a0"
	zeroWidth = "\u200b"
)

// ToEditableFragment renders markup as the children of a contenteditable
// container: one <div> per line, styles as inline elements and math as
// non-editable pills. An empty string yields no nodes.
func ToEditableFragment(markup string) []*html.Node {
	doc := Parse(markup)
	nodes := make([]*html.Node, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		div := NewElement(atom.Div)
		renderLine(div, line)
		if div.FirstChild == nil {
			div.AppendChild(NewElement(atom.Br))
		}
		nodes = append(nodes, div)
	}
	return nodes
}

// InlineNodes renders a single line's inline content without a wrapper.
func InlineNodes(line Line) []*html.Node {
	div := NewElement(atom.Div)
	renderLine(div, line)
	var nodes []*html.Node
	for c := div.FirstChild; c != nil; {
		next := c.NextSibling
		div.RemoveChild(c)
		nodes = append(nodes, c)
		c = next
	}
	return nodes
}

func renderLine(parent *html.Node, line Line) {
	if marker := line.Marker.String(); marker != "" {
		parent.AppendChild(NewText(marker))
	} else if looksLikeMarker(line) {
		// A zero-width space keeps the text from being lifted into a marker.
		parent.AppendChild(NewText(zeroWidth))
	}
	for _, in := range line.Inlines {
		switch v := in.(type) {
		case Text:
			parent.AppendChild(styledText(v))
		case Math:
			parent.AppendChild(NewPill(v, NextPillID()))
		}
	}
}

func styledText(t Text) *html.Node {
	n := NewText(t.Value)
	wrap := func(a atom.Atom) {
		el := NewElement(a)
		el.AppendChild(n)
		n = el
	}
	if t.Style.Strike {
		wrap(atom.S)
	}
	if t.Style.Underline {
		wrap(atom.U)
	}
	if t.Style.Italic {
		wrap(atom.I)
	}
	if t.Style.Bold {
		wrap(atom.B)
	}
	if t.Style.Color != "" {
		el := NewElement(atom.Span, html.Attribute{Key: attrStyle, Val: "color: " + t.Style.Color})
		el.AppendChild(n)
		n = el
	}
	return n
}

// FromEditableFragment decodes the children of a contenteditable container
// back into markup.
func FromEditableFragment(root *html.Node) string {
	if root == nil {
		return ""
	}
	d := &decoder{}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		d.node(c, Style{})
	}
	return Format(Doc{Lines: d.finish()})
}

// FromNodes decodes a list of sibling nodes.
func FromNodes(nodes []*html.Node) string {
	d := &decoder{}
	for _, n := range nodes {
		d.node(n, Style{})
	}
	return Format(Doc{Lines: d.finish()})
}

type decoder struct {
	lines []Line
	cur   Line
	open  bool
}

func (d *decoder) appendInline(in Inline) {
	d.cur.Inlines = append(d.cur.Inlines, in)
	d.open = true
}

func (d *decoder) flush() {
	line := d.cur
	line.Inlines = mergeTexts(line.Inlines)
	literal := false
	if len(line.Inlines) > 0 {
		if t, ok := line.Inlines[0].(Text); ok {
			literal = strings.HasPrefix(t.Value, zeroWidth)
		}
	}
	line.Inlines = stripZeroWidth(line.Inlines)
	if line.Marker.Kind == NoMarker && !literal {
		line = liftMarker(line)
	}
	d.lines = append(d.lines, line)
	d.cur = Line{}
	d.open = false
}

func (d *decoder) finish() []Line {
	if d.open {
		d.flush()
	}
	lines := d.lines
	for len(lines) > 0 {
		last := lines[len(lines)-1]
		if last.Marker.Kind != NoMarker || !last.IsBlank() {
			break
		}
		lines = lines[:len(lines)-1]
	}
	return lines
}

func (d *decoder) node(n *html.Node, style Style) {
	switch n.Type {
	case html.TextNode:
		d.text(n.Data, style)
	case html.ElementNode:
		d.element(n, style)
	case html.DocumentNode:
		d.children(n, style)
	}
}

func (d *decoder) children(n *html.Node, style Style) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.node(c, style)
	}
}

func (d *decoder) text(s string, style Style) {
	s = strings.ReplaceAll(s, nbsp, " ")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if strings.Contains(s, "\n") && strings.TrimSpace(s) == "" {
		// Source formatting between block elements.
		return
	}
	parts := strings.Split(s, "\n")
	for i, part := range parts {
		if i > 0 {
			d.flush()
		}
		if part != "" {
			d.appendInline(Text{Value: part, Style: style})
		}
	}
}

func (d *decoder) element(n *html.Node, style Style) {
	if IsPill(n) {
		d.appendInline(ReadPill(n).Math())
		return
	}

	switch n.DataAtom {
	case atom.Br:
		d.flush()
	case atom.Script, atom.Style, atom.Head, atom.Template:
	case atom.Ul, atom.Ol:
		d.list(n, style)
	case atom.Li:
		d.block(n, style, &Marker{Kind: BulletMarker, Symbol: "-"})
	case atom.Div, atom.P, atom.Section, atom.Article, atom.Blockquote, atom.Pre,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		d.block(n, elementStyle(n, style), nil)
	default:
		d.children(n, elementStyle(n, style))
	}
}

// block decodes a block-level element. Content before it ends the open
// line and the block's own content always ends in a line of its own.
func (d *decoder) block(n *html.Node, style Style, marker *Marker) {
	if d.open {
		d.flush()
	}
	before := len(d.lines)
	if marker != nil {
		d.cur.Marker = *marker
	}
	d.children(n, style)
	switch {
	case d.open:
		d.flush()
	case len(d.lines) == before:
		d.flush()
	}
}

func (d *decoder) list(n *html.Node, style Style) {
	ordered := n.DataAtom == atom.Ol
	num := 1
	if start, err := strconv.Atoi(Attr(n, "start")); ordered && err == nil {
		num = start
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			d.node(c, style)
			continue
		}
		marker := Marker{Kind: BulletMarker, Symbol: "-"}
		if ordered {
			marker = Marker{Kind: OrderedMarker, Number: num}
			num++
		}
		d.block(c, style, &marker)
	}
}

// looksLikeMarker reports whether a line without a marker starts with text
// that would be read as one.
func looksLikeMarker(line Line) bool {
	if line.Marker.Kind != NoMarker || len(line.Inlines) == 0 {
		return false
	}
	first, ok := line.Inlines[0].(Text)
	if !ok {
		return false
	}
	marker, _ := SplitMarker(first.Value)
	return marker.Kind != NoMarker
}

func stripZeroWidth(inlines []Inline) []Inline {
	for i, in := range inlines {
		if t, ok := in.(Text); ok && strings.Contains(t.Value, zeroWidth) {
			t.Value = strings.ReplaceAll(t.Value, zeroWidth, "")
			inlines[i] = t
		}
	}
	return mergeTexts(inlines)
}

// liftMarker turns a marker typed as text into the line's list marker.
func liftMarker(line Line) Line {
	if len(line.Inlines) == 0 {
		return line
	}
	first, ok := line.Inlines[0].(Text)
	if !ok {
		return line
	}
	marker, rest := SplitMarker(first.Value)
	if marker.Kind == NoMarker {
		return line
	}
	line.Marker = marker
	inlines := make([]Inline, 0, len(line.Inlines))
	if rest != "" {
		inlines = append(inlines, Text{Value: rest, Style: first.Style})
	}
	line.Inlines = append(inlines, line.Inlines[1:]...)
	return line
}

func elementStyle(n *html.Node, style Style) Style {
	switch n.DataAtom {
	case atom.B, atom.Strong:
		style.Bold = true
	case atom.I, atom.Em:
		style.Italic = true
	case atom.U, atom.Ins:
		style.Underline = true
	case atom.S, atom.Strike, atom.Del:
		style.Strike = true
	case atom.Font:
		if c := normalizeColor(Attr(n, "color")); c != "" {
			style.Color = c
		}
	}
	if css := Attr(n, attrStyle); css != "" {
		style = applyCSS(css, style)
	}
	return style
}

func applyCSS(css string, style Style) Style {
	for _, decl := range strings.Split(css, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(val))
		switch prop {
		case "font-weight":
			if val == "bold" || val == "bolder" {
				style.Bold = true
			} else if w, err := strconv.Atoi(val); err == nil && w >= 600 {
				style.Bold = true
			} else if val == "normal" {
				style.Bold = false
			}
		case "font-style":
			style.Italic = val == "italic" || val == "oblique"
		case "text-decoration", "text-decoration-line":
			if strings.Contains(val, "underline") {
				style.Underline = true
			}
			if strings.Contains(val, "line-through") {
				style.Strike = true
			}
		case "color":
			if c := normalizeColor(val); c != "" {
				style.Color = c
			}
		}
	}
	return style
}

var (
	hexColorRe  = regexp.MustCompile(`^#[0-9a-fA-F]{3,8}$`)
	nameColorRe = regexp.MustCompile(`^[a-zA-Z]{1,20}$`)
	rgbColorRe  = regexp.MustCompile(`^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*(?:,\s*[\d.]+\s*)?\)$`)
)

// normalizeColor returns a color usable in markup, or "" if the value
// cannot be expressed.
func normalizeColor(v string) string {
	v = strings.TrimSpace(v)
	switch {
	case hexColorRe.MatchString(v):
		return strings.ToLower(v)
	case nameColorRe.MatchString(v):
		if strings.EqualFold(v, "inherit") || strings.EqualFold(v, "initial") || strings.EqualFold(v, "currentcolor") {
			return ""
		}
		return strings.ToLower(v)
	}
	m := rgbColorRe.FindStringSubmatch(strings.ToLower(v))
	if m == nil {
		return ""
	}
	var rgb [3]int
	for i := range rgb {
		n, _ := strconv.Atoi(m[i+1])
		rgb[i] = min(n, 255)
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}
