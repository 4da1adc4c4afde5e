package main

import (
	"strings"
	"syscall/js"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/stateful/labdoc/pkg/document/markup"
	"github.com/stateful/labdoc/pkg/editor"
)

// domSurface is an editor.Surface over a contenteditable element.
type domSurface struct {
	el js.Value
}

var _ editor.Surface = domSurface{}

func (s domSurface) Fragment() (*html.Node, error) {
	return markup.ParseFragment(s.el.Get("innerHTML").String())
}

func (s domSurface) SetFragment(nodes []*html.Node) error {
	out, err := markup.RenderNodes(nodes)
	if err != nil {
		return err
	}
	s.el.Set("innerHTML", out)
	return nil
}

func (s domSurface) InsertAtCaret(nodes []*html.Node) error {
	out, err := markup.RenderNodes(nodes)
	if err != nil {
		return err
	}

	sel := js.Global().Get("document").Call("getSelection")
	if sel.IsNull() || sel.Get("rangeCount").Int() == 0 {
		s.el.Call("insertAdjacentHTML", "beforeend", out)
		return nil
	}
	r := sel.Call("getRangeAt", 0)
	if !s.el.Call("contains", r.Get("commonAncestorContainer")).Bool() {
		s.el.Call("insertAdjacentHTML", "beforeend", out)
		return nil
	}

	r.Call("deleteContents")
	frag := r.Call("createContextualFragment", out)
	last := frag.Get("lastChild")
	r.Call("insertNode", frag)
	if !last.IsNull() {
		r.Call("setStartAfter", last)
		r.Call("collapse", true)
		sel.Call("removeAllRanges")
		sel.Call("addRange", r)
	}
	return nil
}

func (s domSurface) SetPill(state markup.PillState) error {
	id := js.Global().Get("CSS").Call("escape", state.ID).String()
	el := s.el.Call("querySelector", "["+markup.AttrID+`="`+id+`"]`)
	if el.IsNull() {
		return errors.Wrap(editor.ErrPillNotFound, state.ID)
	}
	n := markup.NewElement(atom.Span)
	markup.WritePill(n, state)
	for _, a := range n.Attr {
		el.Call("setAttribute", a.Key, a.Val)
	}
	return nil
}

func (s domSurface) Focused() bool {
	active := js.Global().Get("document").Get("activeElement")
	return !active.IsNull() && s.el.Call("contains", active).Bool()
}

// domTarget is an editor.Target over the element of a pointer event.
type domTarget struct {
	el js.Value
}

func newDOMTarget(v js.Value) editor.Target {
	// Text nodes are reported through their parent element.
	if v.Type() == js.TypeObject && v.Get("nodeType").Int() != 1 {
		v = v.Get("parentElement")
	}
	if v.Type() != js.TypeObject {
		return nil
	}
	return domTarget{el: v}
}

func (t domTarget) Tag() string {
	return strings.ToLower(t.el.Get("tagName").String())
}

func (t domTarget) Attr(key string) (string, bool) {
	if !t.el.Call("hasAttribute", key).Bool() {
		return "", false
	}
	return t.el.Call("getAttribute", key).String(), true
}

func (t domTarget) Parent() editor.Target {
	p := t.el.Get("parentElement")
	if p.IsNull() {
		return nil
	}
	return domTarget{el: p}
}
