package editor

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stateful/labdoc/pkg/document"
)

// Page connects the editors of a document to its controller. Editor
// writes go through the controller, and every change of the block array is
// pushed back into the bound editors.
type Page struct {
	ctrl        *document.Controller
	opts        []Option
	logger      *zap.Logger
	math        *MathEditor
	drag        *DragGuard
	unsubscribe func()

	mu     sync.Mutex
	texts  map[string]*TextBinding
	tables map[string]*TableEditor
	charts map[string]*ChartEditor
}

func NewPage(ctrl *document.Controller, opts ...Option) *Page {
	o := newOptions(opts)
	p := &Page{
		ctrl:   ctrl,
		opts:   opts,
		logger: o.logger,
		math:   NewMathEditor(),
		drag:   NewDragGuard(ctrl.Reorder),
		texts:  make(map[string]*TextBinding),
		tables: make(map[string]*TableEditor),
		charts: make(map[string]*ChartEditor),
	}
	p.unsubscribe = ctrl.Subscribe(p.sync)
	return p
}

func (p *Page) Math() *MathEditor { return p.math }

func (p *Page) Drag() *DragGuard { return p.drag }

func (p *Page) block(id string, types ...document.Type) (document.Block, error) {
	b, ok := p.ctrl.Block(id)
	if !ok {
		return b, errors.Errorf("block %s not found", id)
	}
	for _, t := range types {
		if b.Type == t {
			return b, nil
		}
	}
	return b, errors.Errorf("block %s has type %s", id, b.Type)
}

// BindText binds a heading or paragraph block to surface.
func (p *Page) BindText(id string, surface Surface) (*TextBinding, error) {
	b, err := p.block(id, document.TypeHeading, document.TypeParagraph)
	if err != nil {
		return nil, err
	}
	tb, err := NewTextBinding(surface, b.Content, p.contentWriter(id), p.opts...)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.texts[id] = tb
	p.mu.Unlock()
	return tb, nil
}

func (p *Page) BindTable(id string) (*TableEditor, error) {
	b, err := p.block(id, document.TypeTable)
	if err != nil {
		return nil, err
	}
	te := NewTableEditor(id, b.Content, p.contentWriter(id), p.opts...)
	p.mu.Lock()
	p.tables[id] = te
	p.mu.Unlock()
	return te, nil
}

func (p *Page) BindChart(id string, renderer Renderer) (*ChartEditor, error) {
	b, err := p.block(id, document.TypeChart)
	if err != nil {
		return nil, err
	}
	ce := NewChartEditor(id, b.Content, p.contentWriter(id), p.ctrl.Table, renderer, p.opts...)
	p.mu.Lock()
	p.charts[id] = ce
	p.mu.Unlock()
	return ce, nil
}

// Unbind drops every editor of block id.
func (p *Page) Unbind(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.texts, id)
	delete(p.tables, id)
	delete(p.charts, id)
}

// Close stops listening to the controller.
func (p *Page) Close() error {
	p.unsubscribe()
	return p.math.Close()
}

func (p *Page) contentWriter(id string) func(string) {
	update := p.ctrl.OnUpdate(id)
	return func(content string) {
		update(document.ContentPatch(content))
	}
}

func (p *Page) sync(bs document.Blocks) {
	p.mu.Lock()
	texts := make(map[string]*TextBinding, len(p.texts))
	for id, b := range p.texts {
		texts[id] = b
	}
	tables := make(map[string]*TableEditor, len(p.tables))
	for id, e := range p.tables {
		tables[id] = e
	}
	charts := make(map[string]*ChartEditor, len(p.charts))
	for id, e := range p.charts {
		charts[id] = e
	}
	p.mu.Unlock()

	for id, tb := range texts {
		b, ok := bs.Find(id)
		if !ok || !b.Type.HasMarkup() {
			p.Unbind(id)
			continue
		}
		if _, err := tb.Refresh(b.Content); err != nil {
			p.logger.Info("failed to refresh text block", zap.String("block", id), zap.Error(err))
		}
	}
	for id, te := range tables {
		b, ok := bs.Find(id)
		if !ok || b.Type != document.TypeTable {
			p.Unbind(id)
			continue
		}
		if err := te.Sync(b.Content); err != nil {
			p.logger.Info("failed to sync table block", zap.String("block", id), zap.Error(err))
		}
	}
	for id, ce := range charts {
		b, ok := bs.Find(id)
		if !ok || b.Type != document.TypeChart {
			p.Unbind(id)
			continue
		}
		ce.Sync(b.Content)
	}
}
