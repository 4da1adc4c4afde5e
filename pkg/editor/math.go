package editor

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/stateful/labdoc/pkg/document/markup"
)

// Scope names the container a math editor was opened in.
type Scope string

const (
	ScopeMain  Scope = "main"
	ScopeTable Scope = "table"
)

// State is the transient state of the open math editor. It is never
// persisted; the pill attributes carry the formula into the markup.
type State struct {
	Scope       Scope
	ID          string
	Format      markup.MathFormat
	Latex       string
	Typst       string
	DisplayMode bool
}

func (s State) pill() markup.PillState {
	return markup.PillState{
		ID:      s.ID,
		Format:  s.Format,
		Latex:   s.Latex,
		Typst:   s.Typst,
		Display: s.DisplayMode,
	}
}

// ErrNoMathOpen is returned by edits made while no pill is open.
var ErrNoMathOpen = errors.New("no math editor open")

// MathEditor edits one pill at a time. Every edit is written to the pill
// and flushed into the block content at once, without the debounce.
type MathEditor struct {
	mu      sync.Mutex
	binding *TextBinding
	state   *State
}

func NewMathEditor() *MathEditor {
	return &MathEditor{}
}

// State returns the open editor state.
func (m *MathEditor) State() (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return State{}, false
	}
	return *m.state, true
}

// Open opens the pill id inside the surface of b. A pill that is already
// open elsewhere is closed first.
func (m *MathEditor) Open(scope Scope, b *TextBinding, id string) (State, error) {
	if err := m.Close(); err != nil {
		return State{}, err
	}

	root, err := b.surface.Fragment()
	if err != nil {
		return State{}, errors.Wrap(err, "failed to read surface")
	}
	n := markup.FindPill(root, id)
	if n == nil {
		return State{}, errors.Wrapf(ErrPillNotFound, "pill %s", id)
	}
	ps := markup.ReadPill(n)
	state := State{
		Scope:       scope,
		ID:          ps.ID,
		Format:      ps.Format,
		Latex:       ps.Latex,
		Typst:       ps.Typst,
		DisplayMode: ps.Display,
	}

	if err := b.setMathOpen(true); err != nil {
		return State{}, err
	}

	m.mu.Lock()
	m.binding = b
	m.state = &state
	m.mu.Unlock()
	return state, nil
}

// Insert adds an empty pill at the caret of b and opens it.
func (m *MathEditor) Insert(scope Scope, b *TextBinding, format markup.MathFormat, display bool) (State, error) {
	id, err := b.InsertMath(format, display)
	if err != nil {
		return State{}, err
	}
	return m.Open(scope, b, id)
}

// SetSource replaces the source of the active format.
func (m *MathEditor) SetSource(src string) error {
	return m.edit(func(s *State) {
		if s.Format == markup.Typst {
			s.Typst = src
		} else {
			s.Latex = src
		}
	})
}

// SetFormat switches the active format. The source typed in the other
// format is kept.
func (m *MathEditor) SetFormat(f markup.MathFormat) error {
	return m.edit(func(s *State) {
		s.Format = f
	})
}

func (m *MathEditor) SetDisplayMode(display bool) error {
	return m.edit(func(s *State) {
		s.DisplayMode = display
	})
}

func (m *MathEditor) edit(fn func(*State)) error {
	m.mu.Lock()
	if m.state == nil {
		m.mu.Unlock()
		return ErrNoMathOpen
	}
	fn(m.state)
	state := *m.state
	b := m.binding
	m.mu.Unlock()

	if err := b.surface.SetPill(state.pill()); err != nil {
		return errors.Wrap(err, "failed to write pill")
	}
	return b.Flush()
}

// Close flushes the binding and lets it accept refreshes again. Closing
// with nothing open is a no-op.
func (m *MathEditor) Close() error {
	m.mu.Lock()
	b := m.binding
	m.binding = nil
	m.state = nil
	m.mu.Unlock()

	if b == nil {
		return nil
	}
	if err := b.Flush(); err != nil {
		return err
	}
	return b.setMathOpen(false)
}
