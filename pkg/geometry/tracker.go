package geometry

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/stateful/labdoc/internal/debounce"
)

// DefaultSettle is the delay between a trigger and the recomputation.
const DefaultSettle = 150 * time.Millisecond

// Source reads the current rendered tree and its container box. It reports
// false while nothing is rendered.
type Source func() (Element, Rect, bool)

type TrackerOption func(*Tracker)

func WithClock(c clockwork.Clock) TrackerOption {
	return func(t *Tracker) {
		t.clock = c
	}
}

func WithSettle(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		t.settle = d
	}
}

func WithOptions(opts Options) TrackerOption {
	return func(t *Tracker) {
		t.opts = opts
	}
}

func WithThreshold(px float64) TrackerOption {
	return func(t *Tracker) {
		t.threshold = px
	}
}

func WithLogger(logger *zap.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithListener registers fn to receive every recomputed set of rectangles.
func WithListener(fn func([]Rect)) TrackerOption {
	return func(t *Tracker) {
		t.listener = fn
	}
}

// Tracker keeps block rectangles up to date. Nothing is computed until the
// container becomes visible; afterwards resizes and content replacement
// schedule a recomputation after the settle delay. Each recomputation reads
// the tree afresh, so overlapping triggers are harmless.
type Tracker struct {
	source    Source
	clock     clockwork.Clock
	settle    time.Duration
	opts      Options
	threshold float64
	listener  func([]Rect)
	logger    *zap.Logger
	debouncer *debounce.Debouncer

	mu      sync.Mutex
	visible bool
	dirty   bool
	content string
	rects   []Rect
	closed  bool
}

func NewTracker(source Source, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		source:    source,
		settle:    DefaultSettle,
		threshold: DefaultHitThreshold,
		dirty:     true,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.clock == nil {
		t.clock = clockwork.NewRealClock()
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}
	t.debouncer = debounce.New(t.clock, t.settle, t.recompute)
	return t
}

// SetVisible records visibility changes of the container.
func (t *Tracker) SetVisible(visible bool) {
	t.mu.Lock()
	t.visible = visible
	schedule := visible && t.dirty && !t.closed
	t.mu.Unlock()
	if schedule {
		t.debouncer.Trigger()
	}
}

// Resize records a change of the container size.
func (t *Tracker) Resize() {
	t.invalidate()
}

// SetContent records new rendered markup. Unchanged markup is ignored.
func (t *Tracker) SetContent(content string) {
	t.mu.Lock()
	if content == t.content {
		t.mu.Unlock()
		return
	}
	t.content = content
	t.mu.Unlock()
	t.invalidate()
}

func (t *Tracker) invalidate() {
	t.mu.Lock()
	t.dirty = true
	schedule := t.visible && !t.closed
	t.mu.Unlock()
	if schedule {
		t.debouncer.Trigger()
	}
}

func (t *Tracker) recompute() {
	root, container, ok := t.source()
	var rects []Rect
	if ok {
		rects = Compute(root, container, t.opts)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.rects = rects
	t.dirty = false
	listener := t.listener
	t.mu.Unlock()

	t.logger.Debug("block geometry recomputed", zap.Int("blocks", len(rects)))
	if listener != nil {
		listener(cloneRects(rects))
	}
}

// Rects returns the last computed rectangles.
func (t *Tracker) Rects() []Rect {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneRects(t.rects)
}

// HitTest maps a pointer position to a block index or -1.
func (t *Tracker) HitTest(x, y float64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return HitTest(t.rects, x, y, t.threshold)
}

// Close drops pending work and the computed rectangles.
func (t *Tracker) Close() {
	t.debouncer.Cancel()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.rects = nil
}

func cloneRects(rects []Rect) []Rect {
	if rects == nil {
		return nil
	}
	return append([]Rect(nil), rects...)
}
