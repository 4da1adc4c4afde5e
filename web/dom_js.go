package main

import (
	"encoding/json"
	"strings"
	"syscall/js"

	"github.com/pkg/errors"

	"github.com/stateful/labdoc/pkg/geometry"
)

var errArgument = errors.New("invalid argument")

// domNode is a copy of a DOM element taken once per measurement. js.Value
// cannot be compared, so the tree is copied into pointers before it is
// handed to geometry.Compute.
type domNode struct {
	tag      string
	attrs    map[string]string
	bounds   geometry.Rect
	hasBox   bool
	parent   *domNode
	children []*domNode
}

func (n *domNode) Tag() string { return n.tag }

func (n *domNode) Attr(key string) (string, bool) {
	v, ok := n.attrs[key]
	return v, ok
}

func (n *domNode) Children() []geometry.Element {
	result := make([]geometry.Element, 0, len(n.children))
	for _, c := range n.children {
		result = append(result, c)
	}
	return result
}

func (n *domNode) Parent() geometry.Element {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *domNode) Bounds() (geometry.Rect, bool) { return n.bounds, n.hasBox }

func snapshot(el js.Value) (*domNode, geometry.Rect) {
	root := copyElement(el, nil)
	return root, root.bounds
}

func copyElement(el js.Value, parent *domNode) *domNode {
	n := &domNode{
		tag:    strings.ToLower(el.Get("tagName").String()),
		attrs:  map[string]string{},
		parent: parent,
	}

	attrs := el.Get("attributes")
	for i := 0; i < attrs.Length(); i++ {
		a := attrs.Index(i)
		n.attrs[a.Get("name").String()] = a.Get("value").String()
	}

	r := el.Call("getBoundingClientRect")
	n.bounds = geometry.Rect{
		L: r.Get("left").Float(),
		T: r.Get("top").Float(),
		R: r.Get("right").Float(),
		B: r.Get("bottom").Float(),
	}
	n.hasBox = n.bounds.Valid() && (n.bounds.Width() > 0 || n.bounds.Height() > 0)

	children := el.Get("children")
	for i := 0; i < children.Length(); i++ {
		n.children = append(n.children, copyElement(children.Index(i), n))
	}
	return n
}

func marshalRects(rects []geometry.Rect) (string, error) {
	if rects == nil {
		rects = []geometry.Rect{}
	}
	data, err := json.Marshal(rects)
	return string(data), errors.WithStack(err)
}

func arg(args []js.Value, i int) js.Value {
	if i < len(args) {
		return args[i]
	}
	return js.Undefined()
}

func number(v js.Value, fallback float64) float64 {
	if v.Type() != js.TypeNumber {
		return fallback
	}
	return v.Float()
}

func result(s string, err error) any {
	if err != nil {
		return toJSError(err)
	}
	return s
}

func toJSError(err error) js.Value {
	if err == nil {
		return js.Null()
	}
	return js.Global().Get("Error").New(err.Error())
}
