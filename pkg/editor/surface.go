// Package editor binds document blocks to editable surfaces. Editors hold
// only transient UI state; every change goes to the document through an
// update callback and the block content stays the source of truth.
package editor

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/stateful/labdoc/pkg/document/markup"
)

// Surface is the editable region of a block as implemented by the UI.
type Surface interface {
	// Fragment returns a detached copy of the current content below a
	// synthetic root element.
	Fragment() (*html.Node, error)
	// SetFragment replaces the content. Implementations lose the caret.
	SetFragment(nodes []*html.Node) error
	// InsertAtCaret inserts nodes at the caret, replacing the selection.
	InsertAtCaret(nodes []*html.Node) error
	// SetPill updates the attributes of the pill with state.ID in place.
	SetPill(state markup.PillState) error
	Focused() bool
}

var ErrPillNotFound = errors.New("math pill not found")

// NodeSurface is a Surface backed by an in-memory html tree. The caret is
// always at the end of the content.
type NodeSurface struct {
	mu      sync.Mutex
	root    *html.Node
	focused bool
	writes  int
}

func NewNodeSurface() *NodeSurface {
	return &NodeSurface{root: markup.NewElement(atom.Div)}
}

func (s *NodeSurface) Fragment() (*html.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	root := markup.NewElement(atom.Div)
	for _, c := range markup.CloneNodes(children(s.root)) {
		root.AppendChild(c)
	}
	return root, nil
}

func (s *NodeSurface) SetFragment(nodes []*html.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = markup.NewElement(atom.Div)
	for _, n := range nodes {
		markup.Detach(n)
		s.root.AppendChild(n)
	}
	s.writes++
	return nil
}

func (s *NodeSurface) InsertAtCaret(nodes []*html.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	parent := s.root
	if last := s.root.LastChild; last != nil && last.Type == html.ElementNode && last.DataAtom == atom.Div {
		parent = last
		if br := last.LastChild; br != nil && br.DataAtom == atom.Br && br.PrevSibling == nil {
			last.RemoveChild(br)
		}
	}
	for _, n := range nodes {
		markup.Detach(n)
		parent.AppendChild(n)
	}
	return nil
}

func (s *NodeSurface) SetPill(state markup.PillState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pill := markup.FindPill(s.root, state.ID)
	if pill == nil {
		return errors.Wrap(ErrPillNotFound, state.ID)
	}
	markup.WritePill(pill, state)
	return nil
}

func (s *NodeSurface) Focused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

// SetFocused simulates focus changes.
func (s *NodeSurface) SetFocused(focused bool) {
	s.mu.Lock()
	s.focused = focused
	s.mu.Unlock()
}

// SetHTML simulates the user editing the content.
func (s *NodeSurface) SetHTML(fragment string) error {
	root, err := markup.ParseFragment(fragment)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.root = root
	s.mu.Unlock()
	return nil
}

// HTML returns the rendered content.
func (s *NodeSurface) HTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, _ := markup.RenderChildren(s.root)
	return out
}

// Writes counts calls to SetFragment.
func (s *NodeSurface) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func children(n *html.Node) []*html.Node {
	var result []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		result = append(result, c)
	}
	return result
}
