package editor

import (
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Target is the element a pointer event happened on.
type Target interface {
	Tag() string
	Attr(key string) (string, bool)
	Parent() Target
}

// HTMLTarget adapts an html node.
type HTMLTarget struct {
	Node *html.Node
}

func (t HTMLTarget) Tag() string {
	return strings.ToLower(t.Node.Data)
}

func (t HTMLTarget) Attr(key string) (string, bool) {
	for _, a := range t.Node.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func (t HTMLTarget) Parent() Target {
	p := t.Node.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return HTMLTarget{Node: p}
}

// IsEditable reports whether t lies inside a form field or an editable
// region.
func IsEditable(t Target) bool {
	for ; t != nil; t = t.Parent() {
		switch t.Tag() {
		case "input", "textarea", "select":
			return true
		}
		if v, ok := t.Attr("contenteditable"); ok {
			switch strings.ToLower(v) {
			case "", "true", "plaintext-only":
				return true
			}
		}
	}
	return false
}

// DragGuard drives block reordering by drag and drop. A drag is refused
// when the pointer went down inside an editable region, so selecting text
// in a block does not move it.
type DragGuard struct {
	mu         sync.Mutex
	suppressed bool
	dragging   string
	reorder    func(fromID, toID string)
}

func NewDragGuard(reorder func(fromID, toID string)) *DragGuard {
	return &DragGuard{reorder: reorder}
}

func (g *DragGuard) PointerDown(t Target) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.suppressed = IsEditable(t)
}

// DragStart reports whether blockID may be dragged.
func (g *DragGuard) DragStart(blockID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.suppressed {
		return false
	}
	g.dragging = blockID
	return true
}

func (g *DragGuard) Dragging() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dragging, g.dragging != ""
}

// Drop reorders the dragged block with targetID.
func (g *DragGuard) Drop(targetID string) bool {
	g.mu.Lock()
	from := g.dragging
	g.dragging = ""
	g.suppressed = false
	g.mu.Unlock()

	if from == "" || from == targetID {
		return false
	}
	g.reorder(from, targetID)
	return true
}

func (g *DragGuard) DragEnd() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dragging = ""
	g.suppressed = false
}
