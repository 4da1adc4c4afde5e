package geometry

import (
	"fmt"
	"strconv"
	"strings"
)

// Element is a node of the rendered tree. Implementations must be
// comparable; the same node must always yield an equal Element.
type Element interface {
	Tag() string
	Attr(key string) (string, bool)
	Children() []Element
	Parent() Element
	// Bounds returns the box of the element in screen coordinates.
	Bounds() (Rect, bool)
}

const (
	// MarkerFill is the fill color identifying block markers.
	MarkerFill = "#010203"

	DefaultHitThreshold   = 50
	DefaultWideRatio      = 0.8
	DefaultGlyphPathLen   = 100
	DefaultMinSize        = 10
	DefaultMinHeight      = 20
	DefaultFallbackHeight = 80
)

type Options struct {
	// MarkerFill overrides the marker fill color.
	MarkerFill string
	// WideRatio is the share of the container width above which a leaf box
	// is treated as a background fill unless it looks like a glyph.
	WideRatio float64
	// GlyphPathLen is the length of a path "d" attribute from which the
	// path is taken for a glyph outline.
	GlyphPathLen int
	// MinSize is the width or height below which a block box is expanded.
	MinSize float64
	// MinHeight is the height of an expanded block box.
	MinHeight float64
	// FallbackHeight is the height of a box synthesized for the last block
	// when it has no visible content.
	FallbackHeight float64
}

func (o Options) withDefaults() Options {
	if o.MarkerFill == "" {
		o.MarkerFill = MarkerFill
	}
	if o.WideRatio <= 0 {
		o.WideRatio = DefaultWideRatio
	}
	if o.GlyphPathLen <= 0 {
		o.GlyphPathLen = DefaultGlyphPathLen
	}
	if o.MinSize <= 0 {
		o.MinSize = DefaultMinSize
	}
	if o.MinHeight <= 0 {
		o.MinHeight = DefaultMinHeight
	}
	if o.FallbackHeight <= 0 {
		o.FallbackHeight = DefaultFallbackHeight
	}
	return o
}

var nonVisual = map[string]bool{
	"defs":     true,
	"clippath": true,
	"mask":     true,
	"style":    true,
	"metadata": true,
	"title":    true,
	"desc":     true,
	"symbol":   true,
}

// Markers returns the marker elements below root in document order.
func Markers(root Element, opts Options) []Element {
	opts = opts.withDefaults()
	var markers []Element
	var walk func(Element)
	walk = func(el Element) {
		if nonVisual[strings.ToLower(el.Tag())] {
			return
		}
		if isMarker(el, opts.MarkerFill) {
			markers = append(markers, el)
			return
		}
		for _, c := range el.Children() {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return markers
}

func isMarker(el Element, fill string) bool {
	if v, ok := el.Attr("fill"); ok && sameColor(v, fill) {
		return true
	}
	style, ok := el.Attr("style")
	if !ok {
		return false
	}
	for _, decl := range strings.Split(style, ";") {
		key, val, found := strings.Cut(decl, ":")
		if found && strings.TrimSpace(key) == "fill" && sameColor(val, fill) {
			return true
		}
	}
	return false
}

func sameColor(v, fill string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	fill = strings.ToLower(fill)
	if v == fill {
		return true
	}
	// Browsers report computed colors as rgb().
	return strings.ReplaceAll(v, " ", "") == hexToRGB(fill)
}

func hexToRGB(hex string) string {
	v, err := strconv.ParseUint(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil || len(hex) != 7 {
		return ""
	}
	return fmt.Sprintf("rgb(%d,%d,%d)", v>>16&0xff, v>>8&0xff, v&0xff)
}

// Compute returns one rectangle per marker below root. Block i covers the
// leaf elements between marker i and marker i+1, except ancestors of
// marker i+1 and boxes wider than the configured share of container that
// do not look like glyphs. Blocks without visible content get a box
// spanning the container width from their marker down to the next marker.
func Compute(root Element, container Rect, opts Options) []Rect {
	if root == nil || !container.Valid() {
		return nil
	}
	opts = opts.withDefaults()
	markers := Markers(root, opts)
	if len(markers) == 0 {
		return nil
	}

	index := make(map[Element]int, len(markers))
	for i, m := range markers {
		index[m] = i
	}

	c := &computation{
		opts:      opts,
		container: container,
		markers:   markers,
		index:     index,
		rects:     make([]Rect, len(markers)),
		found:     make([]bool, len(markers)),
		current:   -1,
	}
	c.walk(root)
	c.fill()
	return c.rects
}

type computation struct {
	opts      Options
	container Rect
	markers   []Element
	index     map[Element]int
	rects     []Rect
	found     []bool
	current   int
	excluded  map[Element]bool
}

func (c *computation) walk(el Element) {
	if nonVisual[strings.ToLower(el.Tag())] {
		return
	}
	if i, ok := c.index[el]; ok {
		c.current = i
		c.excluded = nil
		if i+1 < len(c.markers) {
			c.excluded = ancestors(c.markers[i+1])
		}
		return
	}

	children := el.Children()
	if c.current < 0 || c.excluded[el] || len(children) > 0 {
		for _, child := range children {
			c.walk(child)
		}
		return
	}
	c.leaf(el)
}

func (c *computation) leaf(el Element) {
	box, ok := el.Bounds()
	if !ok || !box.Valid() || (box.Width() == 0 && box.Height() == 0) {
		return
	}
	if box.Width() > c.opts.WideRatio*c.container.Width() && !c.glyphLike(el) {
		return
	}
	i := c.current
	if c.found[i] {
		c.rects[i] = c.rects[i].Union(box)
	} else {
		c.rects[i] = box
		c.found[i] = true
	}
}

func (c *computation) glyphLike(el Element) bool {
	switch strings.ToLower(el.Tag()) {
	case "use":
		return true
	case "path":
		d, _ := el.Attr("d")
		return len(d) >= c.opts.GlyphPathLen
	}
	return false
}

func ancestors(el Element) map[Element]bool {
	set := make(map[Element]bool)
	for p := el.Parent(); p != nil; p = p.Parent() {
		set[p] = true
	}
	return set
}

func (c *computation) markerTop(i int) (float64, bool) {
	box, ok := c.markers[i].Bounds()
	if !ok || !box.Valid() {
		return 0, false
	}
	return box.T, true
}

func (c *computation) fill() {
	for i := range c.rects {
		top, hasTop := c.markerTop(i)
		if !hasTop {
			switch {
			case c.found[i]:
				top = c.rects[i].T
			case i > 0:
				top = c.rects[i-1].B
			default:
				top = c.container.T
			}
		}

		if !c.found[i] {
			bottom := top + c.opts.FallbackHeight
			if i+1 < len(c.markers) {
				if next, ok := c.markerTop(i + 1); ok && next > top {
					bottom = next
				}
			}
			c.rects[i] = Rect{L: c.container.L, T: top, R: c.container.R, B: bottom}
			continue
		}

		r := c.rects[i]
		if r.Width() < c.opts.MinSize || r.Height() < c.opts.MinSize {
			c.rects[i] = Rect{
				L: c.container.L,
				T: top,
				R: c.container.R,
				B: max(top+c.opts.MinHeight, r.B),
			}
		}
	}
}

// HitTest returns the index of the rectangle strictly containing (x, y).
// Without one it returns the nearest rectangle within threshold, and -1 when
// none is close enough. A point on an edge is at distance zero, so on an
// edge shared by two rectangles the lower index wins.
func HitTest(rects []Rect, x, y, threshold float64) int {
	for i, r := range rects {
		if r.Valid() && r.Inside(x, y) {
			return i
		}
	}
	best, bestDist := -1, 0.0
	for i, r := range rects {
		if !r.Valid() {
			continue
		}
		d := r.Distance(x, y)
		if d <= threshold && (best < 0 || d < bestDist) {
			best, bestDist = i, d
		}
	}
	return best
}
