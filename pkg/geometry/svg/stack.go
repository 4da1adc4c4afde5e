package svg

import (
	"github.com/pkg/errors"

	"github.com/stateful/labdoc/pkg/geometry"
)

// DefaultGap separates stacked pages.
const DefaultGap = 16

// StackOptions control the vertical layout of pages.
type StackOptions struct {
	// Width scales every page to this width. Zero keeps the page size.
	Width float64
	Gap   float64
}

// Layout is a set of pages stacked top to bottom below one root.
type Layout struct {
	Root      *Node
	Pages     []*Document
	Container geometry.Rect
}

// Stack parses pages and places them below each other, the way the
// preview shows them. Bounds of all elements are reported in layout
// coordinates.
func Stack(pages []string, opts StackOptions) (*Layout, error) {
	if opts.Gap < 0 {
		opts.Gap = 0
	}
	root := &Node{Name: "g", Attrs: map[string]string{"class": "pages"}, ctm: Identity}
	layout := &Layout{Root: root}

	var y, width float64
	for i, src := range pages {
		doc, err := Parse([]byte(src))
		if err != nil {
			return nil, errors.Wrapf(err, "page %d", i+1)
		}
		scale := 1.0
		if opts.Width > 0 && doc.Width > 0 {
			scale = opts.Width / doc.Width
		}
		if i > 0 {
			y += opts.Gap
		}

		doc.Root.parent = root
		root.children = append(root.children, doc.Root)
		doc.Root.layout(Translate(0, y).Mul(Scale(scale, scale)))

		y += doc.Height * scale
		width = max(width, doc.Width*scale)
		layout.Pages = append(layout.Pages, doc)
	}
	layout.Container = geometry.Rect{L: 0, T: 0, R: width, B: y}
	return layout, nil
}

// Compute runs geometry.Compute over the stacked pages.
func (l *Layout) Compute(opts geometry.Options) []geometry.Rect {
	if len(l.Pages) == 0 {
		return nil
	}
	return geometry.Compute(l.Root, l.Container, opts)
}
