// Package svg reads rendered SVG pages into a tree whose elements report
// their bounds in page coordinates, for use with geometry.Compute.
package svg

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/stateful/labdoc/pkg/geometry"
)

const (
	defaultFontSize = 16
	// glyphAdvance approximates the advance of a glyph as a share of the
	// font size.
	glyphAdvance = 0.6
)

// Node is an element of a parsed SVG page.
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string
	children []*Node
	parent   *Node
	doc      *Document

	// ctm maps the element's own coordinates, after its transform, to
	// layout coordinates.
	ctm Matrix
}

// Document is one parsed SVG page.
type Document struct {
	Root   *Node
	Width  float64
	Height float64
	ids    map[string]*Node
}

// Parse reads an SVG page.
func Parse(data []byte) (*Document, error) {
	doc := &Document{ids: make(map[string]*Node)}
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	var stack []*Node
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse svg")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local, Attrs: make(map[string]string, len(t.Attr)), doc: doc}
			for _, a := range t.Attr {
				n.Attrs[a.Name.Local] = a.Value
			}
			if id := n.Attrs["id"]; id != "" {
				doc.ids[id] = n
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				n.parent = parent
				parent.children = append(parent.children, n)
			} else if doc.Root == nil {
				doc.Root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if doc.Root == nil || doc.Root.Name != "svg" {
		return nil, errors.New("document has no svg root")
	}

	doc.Width, doc.Height = doc.Root.size()
	doc.Root.layout(Identity)
	return doc, nil
}

// size returns the page size from width/height, falling back to the view
// box.
func (n *Node) size() (float64, float64) {
	vb, hasVB := n.viewBox()
	w, okW := length(n.Attrs["width"])
	h, okH := length(n.Attrs["height"])
	if !okW && hasVB {
		w = vb.Width()
	}
	if !okH && hasVB {
		h = vb.Height()
	}
	return w, h
}

func (n *Node) viewBox() (geometry.Rect, bool) {
	nums, err := parseNumbers(n.Attrs["viewBox"])
	if err != nil || len(nums) != 4 || nums[2] <= 0 || nums[3] <= 0 {
		return geometry.Rect{}, false
	}
	return geometry.Rect{L: nums[0], T: nums[1], R: nums[0] + nums[2], B: nums[1] + nums[3]}, true
}

// viewport maps the coordinates inside an svg element to its parent.
func (n *Node) viewport() Matrix {
	m := Translate(n.num("x"), n.num("y"))
	vb, ok := n.viewBox()
	if !ok {
		return m
	}
	w, h := n.size()
	if w <= 0 || h <= 0 {
		return m.Mul(Translate(-vb.L, -vb.T))
	}
	return m.Mul(Scale(w/vb.Width(), h/vb.Height())).Mul(Translate(-vb.L, -vb.T))
}

func (n *Node) layout(parent Matrix) {
	m := parent
	if n.Name == "svg" {
		m = m.Mul(n.viewport())
	}
	if t, ok := n.Attrs["transform"]; ok {
		if tm, err := ParseTransform(t); err == nil {
			m = m.Mul(tm)
		}
	}
	n.ctm = m
	for _, c := range n.children {
		c.layout(m)
	}
}

// length parses an SVG length. Units other than px and pt are ignored.
func length(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "%") {
		return 0, false
	}
	s = strings.TrimSuffix(strings.TrimSuffix(s, "px"), "pt")
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func (n *Node) num(key string) float64 {
	v, _ := length(n.Attrs[key])
	return v
}

func (n *Node) Tag() string { return n.Name }

func (n *Node) Attr(key string) (string, bool) {
	v, ok := n.Attrs[key]
	return v, ok
}

func (n *Node) Children() []geometry.Element {
	out := make([]geometry.Element, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	return out
}

func (n *Node) Parent() geometry.Element {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// Bounds returns the box of the element in layout coordinates.
func (n *Node) Bounds() (geometry.Rect, bool) {
	local, ok := n.localBounds(0)
	if !ok {
		return geometry.Rect{}, false
	}
	return n.ctm.ApplyRect(local), true
}

// Walk calls fn for n and every element below it in document order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.Walk(fn)
	}
}

const maxUseDepth = 8

// localBounds returns the box in the element's own coordinates, after its
// transform.
func (n *Node) localBounds(depth int) (geometry.Rect, bool) {
	switch n.Name {
	case "rect", "image", "foreignObject":
		w, h := n.num("width"), n.num("height")
		if w <= 0 && h <= 0 {
			return geometry.Rect{}, false
		}
		x, y := n.num("x"), n.num("y")
		return geometry.Rect{L: x, T: y, R: x + w, B: y + h}, true
	case "circle":
		cx, cy, r := n.num("cx"), n.num("cy"), n.num("r")
		return geometry.Rect{L: cx - r, T: cy - r, R: cx + r, B: cy + r}, r > 0
	case "ellipse":
		cx, cy, rx, ry := n.num("cx"), n.num("cy"), n.num("rx"), n.num("ry")
		return geometry.Rect{L: cx - rx, T: cy - ry, R: cx + rx, B: cy + ry}, rx > 0 || ry > 0
	case "line":
		var b bounds
		b.add(n.num("x1"), n.num("y1"))
		b.add(n.num("x2"), n.num("y2"))
		return b.rect, true
	case "polyline", "polygon":
		nums, err := parseNumbers(n.Attrs["points"])
		if err != nil || len(nums) < 2 {
			return geometry.Rect{}, false
		}
		var b bounds
		for i := 0; i+1 < len(nums); i += 2 {
			b.add(nums[i], nums[i+1])
		}
		return b.rect, b.ok
	case "path":
		r, ok, err := PathExtents(n.Attrs["d"])
		if err != nil {
			return geometry.Rect{}, false
		}
		return r, ok
	case "use":
		return n.useBounds(depth)
	case "text", "tspan":
		return n.textBounds()
	}
	return n.childBounds(depth)
}

func (n *Node) childBounds(depth int) (geometry.Rect, bool) {
	var b bounds
	for _, c := range n.children {
		if c.Name == "defs" || c.Name == "clipPath" || c.Name == "mask" || c.Name == "symbol" {
			continue
		}
		r, ok := c.localBounds(depth)
		if !ok {
			continue
		}
		b.addRect(c.ownTransform().ApplyRect(r))
	}
	return b.rect, b.ok
}

func (n *Node) ownTransform() Matrix {
	m := Identity
	if n.Name == "svg" && n.parent != nil {
		m = n.viewport()
	}
	if t, ok := n.Attrs["transform"]; ok {
		if tm, err := ParseTransform(t); err == nil {
			m = m.Mul(tm)
		}
	}
	return m
}

func (n *Node) href() string {
	href := n.Attrs["href"]
	return strings.TrimPrefix(href, "#")
}

// useBounds resolves the referenced element and places it at (x, y).
func (n *Node) useBounds(depth int) (geometry.Rect, bool) {
	if depth >= maxUseDepth {
		return geometry.Rect{}, false
	}
	ref, ok := n.doc.ids[n.href()]
	if !ok {
		return geometry.Rect{}, false
	}
	var (
		r   geometry.Rect
		ok2 bool
	)
	if ref.Name == "symbol" {
		r, ok2 = ref.childBounds(depth + 1)
	} else {
		r, ok2 = ref.localBounds(depth + 1)
		if ok2 {
			r = ref.ownTransform().ApplyRect(r)
		}
	}
	if !ok2 {
		return geometry.Rect{}, false
	}
	return r.Translate(n.num("x"), n.num("y")), true
}

func (n *Node) fontSize() float64 {
	for p := n; p != nil; p = p.parent {
		if v, ok := length(p.Attrs["font-size"]); ok && v > 0 {
			return v
		}
	}
	return defaultFontSize
}

// textBounds estimates a text run from its anchor, font size and length.
func (n *Node) textBounds() (geometry.Rect, bool) {
	text := strings.TrimSpace(n.Text)
	if text == "" {
		return n.childBounds(0)
	}
	size := n.fontSize()
	x, y := n.num("x"), n.num("y")
	w := float64(utf8.RuneCountInString(text)) * size * glyphAdvance
	return geometry.Rect{L: x, T: y - size, R: x + w, B: y + size*0.25}, true
}
