package document

import (
	"sync"

	"go.uber.org/zap"

	"github.com/stateful/labdoc/pkg/document/identity"
	"github.com/stateful/labdoc/pkg/document/table"
)

// Listener is called with the new block array after every change.
type Listener func(Blocks)

// Controller owns a document's block array. Every mutation replaces the
// whole array; listeners never observe a partial update.
type Controller struct {
	mu        sync.Mutex
	blocks    Blocks
	ids       *identity.Generator
	listeners map[int]Listener
	nextSub   int
	logger    *zap.Logger
}

type ControllerOption func(*Controller)

func WithLogger(logger *zap.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithGenerator(g *identity.Generator) ControllerOption {
	return func(c *Controller) {
		c.ids = g
	}
}

func NewController(blocks Blocks, opts ...ControllerOption) *Controller {
	c := &Controller{
		blocks:    blocks.Clone(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.ids == nil {
		c.ids = identity.NewGenerator("")
	}
	if c.blocks == nil {
		c.blocks = Blocks{}
	}
	c.ids.Observe(c.blocks.IDs())
	return c
}

// Blocks returns a copy of the current array.
func (c *Controller) Blocks() Blocks {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks.Clone()
}

func (c *Controller) Block(id string) (Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks.Find(id)
}

// Table resolves table payloads against the current array.
func (c *Controller) Table(id string) (table.Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks.Table(id)
}

// Replace swaps in a new array, for example after loading or undo.
func (c *Controller) Replace(blocks Blocks) {
	c.apply("replace", func(Blocks) Blocks {
		c.ids.Observe(blocks.IDs())
		return blocks.Clone()
	})
}

// Insert creates a block of type t after afterID and returns it.
func (c *Controller) Insert(afterID string, t Type) Block {
	var b Block
	c.apply("insert", func(bs Blocks) Blocks {
		b = NewBlock(c.ids.Next(bs.IDs()), t)
		return bs.Insert(afterID, b)
	})
	return b
}

func (c *Controller) Append(t Type) Block {
	return c.Insert("", t)
}

// InsertBlock inserts a prepared block. Its id is replaced when empty or
// already in use.
func (c *Controller) InsertBlock(afterID string, b Block) Block {
	c.apply("insert", func(bs Blocks) Blocks {
		if b.ID == "" || bs.Index(b.ID) >= 0 {
			b.ID = c.ids.Next(bs.IDs())
		} else {
			c.ids.Observe([]string{b.ID})
		}
		return bs.Insert(afterID, b)
	})
	return b
}

func (c *Controller) Update(id string, p Patch) {
	c.apply("update", func(bs Blocks) Blocks { return bs.Update(id, p) })
}

func (c *Controller) Delete(id string) {
	c.apply("delete", func(bs Blocks) Blocks { return bs.Delete(id) })
}

func (c *Controller) Move(id string, dir Direction) {
	c.apply("move", func(bs Blocks) Blocks { return bs.Move(id, dir) })
}

func (c *Controller) Reorder(fromID, toID string) {
	c.apply("reorder", func(bs Blocks) Blocks { return bs.Reorder(fromID, toID) })
}

// OnUpdate returns the update callback handed to the editor of block id.
func (c *Controller) OnUpdate(id string) func(Patch) {
	return func(p Patch) {
		c.Update(id, p)
	}
}

// Subscribe registers l and returns a function removing it.
func (c *Controller) Subscribe(l Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = l
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Controller) apply(op string, fn func(Blocks) Blocks) {
	c.mu.Lock()
	next := fn(c.blocks)
	c.blocks = next
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	c.logger.Debug("blocks changed", zap.String("op", op), zap.Int("count", len(next)))

	for _, l := range listeners {
		l(next.Clone())
	}
}
