package editor

import (
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/stateful/labdoc/internal/debounce"
	"github.com/stateful/labdoc/pkg/document/markup"
)

// DefaultDebounce is the delay between the last keystroke and the write
// back to the document.
const DefaultDebounce = 150 * time.Millisecond

type options struct {
	clock  clockwork.Clock
	delay  time.Duration
	logger *zap.Logger
}

type Option func(*options)

// WithClock sets the clock driving debounced writes.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		o.delay = d
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) options {
	o := options{delay: DefaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clockwork.NewRealClock()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.delay <= 0 {
		o.delay = DefaultDebounce
	}
	return o
}

// TextBinding keeps a markup string and an editable surface in sync.
//
// Keystrokes are written back after a debounce delay and immediately on
// blur. The surface is rewritten from the content only when the content
// differs from what the binding itself last wrote or read; its own writes
// coming back never touch the surface, so the caret survives. While a math
// editor is open on the binding, rewrites wait until it closes.
type TextBinding struct {
	mu         sync.Mutex
	surface    Surface
	onChange   func(string)
	debouncer  *debounce.Debouncer
	lastSynced string
	mathOpen   bool
	deferred   *string
	logger     *zap.Logger
}

// NewTextBinding renders content into surface. onChange receives every
// markup string the binding writes back.
func NewTextBinding(surface Surface, content string, onChange func(string), opts ...Option) (*TextBinding, error) {
	o := newOptions(opts)
	b := &TextBinding{
		surface:    surface,
		onChange:   onChange,
		lastSynced: content,
		logger:     o.logger,
	}
	b.debouncer = debounce.New(o.clock, o.delay, func() {
		if err := b.Flush(); err != nil {
			b.logger.Info("failed to flush text binding", zap.Error(err))
		}
	})
	if err := surface.SetFragment(markup.ToEditableFragment(content)); err != nil {
		return nil, errors.Wrap(err, "failed to render content")
	}
	return b, nil
}

// LastSynced returns the markup last exchanged with the document.
func (b *TextBinding) LastSynced() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSynced
}

// Input records a keystroke.
func (b *TextBinding) Input() {
	b.debouncer.Trigger()
}

// Blur writes pending changes immediately.
func (b *TextBinding) Blur() error {
	b.debouncer.Cancel()
	return b.Flush()
}

// Pending reports whether a debounced write is scheduled.
func (b *TextBinding) Pending() bool {
	return b.debouncer.Pending()
}

// Flush reads the surface and writes its markup back if it changed.
func (b *TextBinding) Flush() error {
	root, err := b.surface.Fragment()
	if err != nil {
		return errors.Wrap(err, "failed to read surface")
	}
	content := markup.FromEditableFragment(root)

	b.mu.Lock()
	if content == b.lastSynced {
		b.mu.Unlock()
		return nil
	}
	b.lastSynced = content
	b.mu.Unlock()

	b.onChange(content)
	return nil
}

// Refresh is called with the block content whenever the document changes.
// It reports whether the surface was rewritten.
func (b *TextBinding) Refresh(content string) (bool, error) {
	b.mu.Lock()
	if content == b.lastSynced {
		b.mu.Unlock()
		return false, nil
	}
	if b.mathOpen {
		b.deferred = &content
		b.mu.Unlock()
		return false, nil
	}
	b.lastSynced = content
	b.mu.Unlock()

	// The document changed under us, for example through undo. Typing that
	// has not been written yet is dropped in favor of the new content.
	b.debouncer.Cancel()
	if err := b.surface.SetFragment(markup.ToEditableFragment(content)); err != nil {
		return false, errors.Wrap(err, "failed to render content")
	}
	b.logger.Debug("surface refreshed from document", zap.Bool("focused", b.surface.Focused()))
	return true, nil
}

// setMathOpen marks a math editor as open on the binding. Closing it
// applies a refresh that arrived meanwhile.
func (b *TextBinding) setMathOpen(open bool) error {
	b.mu.Lock()
	b.mathOpen = open
	deferred := b.deferred
	b.deferred = nil
	b.mu.Unlock()

	if !open && deferred != nil {
		_, err := b.Refresh(*deferred)
		return err
	}
	return nil
}

func (b *TextBinding) lines() ([]string, error) {
	root, err := b.surface.Fragment()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read surface")
	}
	return strings.Split(markup.FromEditableFragment(root), "\n"), nil
}

func (b *TextBinding) rewrite(lines []string) error {
	content := strings.Join(lines, "\n")
	b.debouncer.Cancel()
	if err := b.surface.SetFragment(markup.ToEditableFragment(content)); err != nil {
		return errors.Wrap(err, "failed to render content")
	}
	return b.Flush()
}

// Enter handles the Enter key with the caret at the end of line idx. List
// lines continue with the next marker and an empty list line leaves the
// list. It returns the line the caret moves to and false when the key is
// left to the surface.
func (b *TextBinding) Enter(idx int) (int, bool, error) {
	lines, err := b.lines()
	if err != nil {
		return idx, false, err
	}
	next, caret, handled := markup.Enter(lines, idx)
	if !handled {
		return idx, false, nil
	}
	return caret, true, b.rewrite(next)
}

// Backspace handles Backspace at the start of line idx. Only an empty list
// line is handled: it becomes a plain empty line.
func (b *TextBinding) Backspace(idx int) (int, bool, error) {
	lines, err := b.lines()
	if err != nil {
		return idx, false, err
	}
	next, caret, handled := markup.Backspace(lines, idx)
	if !handled {
		return idx, false, nil
	}
	return caret, true, b.rewrite(next)
}

// Paste intercepts pasted text containing "$$...$$", inserting math pills
// instead of literal dollars. Other text is left to the surface.
func (b *TextBinding) Paste(text string) (bool, error) {
	if !markup.ContainsDisplayMath(text) {
		return false, nil
	}
	if err := b.surface.InsertAtCaret(markup.PasteFragment(text)); err != nil {
		return false, errors.Wrap(err, "failed to insert pasted content")
	}
	return true, b.Flush()
}

// InsertMath inserts a new empty pill at the caret and returns its id.
func (b *TextBinding) InsertMath(format markup.MathFormat, display bool) (string, error) {
	id := markup.NextPillID()
	pill := markup.NewPill(markup.Math{Format: format, Display: display}, id)
	if err := b.surface.InsertAtCaret([]*html.Node{pill}); err != nil {
		return "", errors.Wrap(err, "failed to insert math")
	}
	return id, nil
}
