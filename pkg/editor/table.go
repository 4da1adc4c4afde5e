package editor

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stateful/labdoc/pkg/document/table"
)

// CellRef addresses a table cell.
type CellRef struct {
	R, C int
}

// TableEditor edits the payload of a table block. At most one cell is
// active; the rectangular selection used for merging is tracked
// separately and may be larger than the active cell.
//
// Every action parses the current payload, normalizes the result and
// writes it back serialized.
type TableEditor struct {
	mu            sync.Mutex
	blockID       string
	lastSynced    string
	onChange      func(string)
	active        *CellRef
	selection     *table.Selection
	selectionMode bool
	corner        *CellRef
	cell          *TextBinding
	opts          []Option
	logger        *zap.Logger
}

func NewTableEditor(blockID, content string, onChange func(string), opts ...Option) *TableEditor {
	o := newOptions(opts)
	return &TableEditor{
		blockID:    blockID,
		lastSynced: content,
		onChange:   onChange,
		opts:       opts,
		logger:     o.logger,
	}
}

// Payload returns the normalized payload of the last synced content.
func (e *TableEditor) Payload() table.Payload {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.payloadLocked()
}

func (e *TableEditor) payloadLocked() table.Payload {
	return table.Normalize(table.Parse(e.lastSynced))
}

// Active returns the active cell.
func (e *TableEditor) Active() (CellRef, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return CellRef{}, false
	}
	return *e.active, true
}

// Selection returns the normalized selection.
func (e *TableEditor) Selection() (table.Selection, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selection == nil {
		return table.Selection{}, false
	}
	return e.selection.Normalize(), true
}

// SetSelectionMode switches click semantics. In selection mode clicks
// alternate between starting and completing a rectangle; otherwise a click
// activates a cell and shift-click extends the selection from it.
func (e *TableEditor) SetSelectionMode(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selectionMode = on
	e.corner = nil
}

func (e *TableEditor) SelectionMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectionMode
}

// Click handles a click on cell (r, c).
func (e *TableEditor) Click(r, c int, shift bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.payloadLocked()
	if _, ok := p.Cell(r, c); !ok {
		return
	}
	r, c = table.AnchorOf(p, r, c)

	if e.selectionMode {
		if e.corner == nil {
			e.corner = &CellRef{R: r, C: c}
			e.setSelectionLocked(r, c, r, c)
			return
		}
		e.setSelectionLocked(e.corner.R, e.corner.C, r, c)
		e.corner = nil
		return
	}

	if shift && e.active != nil {
		e.setSelectionLocked(e.active.R, e.active.C, r, c)
		return
	}
	e.active = &CellRef{R: r, C: c}
	e.setSelectionLocked(r, c, r, c)
}

func (e *TableEditor) setSelectionLocked(r1, c1, r2, c2 int) {
	e.selection = &table.Selection{BlockID: e.blockID, R1: r1, C1: c1, R2: r2, C2: c2}
}

// ClearSelection drops the selection and the active cell.
func (e *TableEditor) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selection = nil
	e.active = nil
	e.corner = nil
}

// ActivateCell binds surface to the content of cell (r, c). The previous
// cell binding is flushed first.
func (e *TableEditor) ActivateCell(r, c int, surface Surface) (*TextBinding, error) {
	if err := e.DeactivateCell(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	p := e.payloadLocked()
	cell, ok := p.Cell(r, c)
	if !ok || cell.Hidden {
		e.mu.Unlock()
		return nil, errors.Errorf("cell %d,%d is not editable", r, c)
	}
	e.active = &CellRef{R: r, C: c}
	e.mu.Unlock()

	b, err := NewTextBinding(surface, cell.Content, func(content string) {
		e.EditCell(r, c, content)
	}, e.opts...)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cell = b
	e.mu.Unlock()
	return b, nil
}

// DeactivateCell flushes and drops the cell binding.
func (e *TableEditor) DeactivateCell() error {
	e.mu.Lock()
	b := e.cell
	e.cell = nil
	e.mu.Unlock()
	if b == nil {
		return nil
	}
	return b.Blur()
}

// CellBinding returns the binding of the active cell.
func (e *TableEditor) CellBinding() (*TextBinding, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cell, e.cell != nil
}

func (e *TableEditor) EditCell(r, c int, content string) {
	e.update(func(p table.Payload) table.Payload {
		return table.SetContent(p, r, c, content)
	})
}

// Merge merges the selection. A selection of a single cell is ignored.
func (e *TableEditor) Merge() {
	e.mu.Lock()
	sel := e.selection
	e.mu.Unlock()
	if sel == nil || sel.IsSingleCell() {
		return
	}
	n := sel.Normalize()
	e.update(func(p table.Payload) table.Payload {
		return table.MergeRect(p, n.R1, n.C1, n.R2, n.C2)
	})

	e.mu.Lock()
	e.active = &CellRef{R: n.R1, C: n.C1}
	e.setSelectionLocked(n.R1, n.C1, n.R1, n.C1)
	e.mu.Unlock()
}

// Unmerge splits the merged cell that is active.
func (e *TableEditor) Unmerge() {
	e.mu.Lock()
	active := e.active
	e.mu.Unlock()
	if active == nil {
		return
	}
	e.update(func(p table.Payload) table.Payload {
		return table.Unmerge(p, active.R, active.C)
	})
}

func (e *TableEditor) Resize(rows, cols int) {
	if rows < 1 || cols < 1 {
		return
	}
	e.update(func(p table.Payload) table.Payload {
		return table.Resize(p, rows, cols)
	})
	e.mu.Lock()
	e.clampLocked(rows, cols)
	e.mu.Unlock()
}

func (e *TableEditor) SetCaption(caption string) {
	e.update(func(p table.Payload) table.Payload {
		p.Caption = caption
		return p
	})
}

func (e *TableEditor) SetStyle(style table.Style) {
	e.update(func(p table.Payload) table.Payload {
		p.Style = style
		return p
	})
}

// Sync is called with the block content whenever the document changes.
// The active cell binding is refreshed with its new cell content.
func (e *TableEditor) Sync(content string) error {
	e.mu.Lock()
	if content == e.lastSynced {
		e.mu.Unlock()
		return nil
	}
	e.lastSynced = content
	p := e.payloadLocked()
	e.clampLocked(p.Rows, p.Cols)
	b, active := e.cell, e.active
	e.mu.Unlock()

	if b == nil || active == nil {
		return nil
	}
	cell, ok := p.Cell(active.R, active.C)
	if !ok || cell.Hidden {
		return e.DeactivateCell()
	}
	_, err := b.Refresh(cell.Content)
	return err
}

func (e *TableEditor) clampLocked(rows, cols int) {
	if e.active != nil && (e.active.R >= rows || e.active.C >= cols) {
		e.active = nil
	}
	if e.selection != nil {
		sel, ok := e.selection.Clamp(rows, cols)
		if ok {
			e.selection = &sel
		} else {
			e.selection = nil
		}
	}
	e.corner = nil
}

func (e *TableEditor) update(fn func(table.Payload) table.Payload) {
	e.mu.Lock()
	p := table.Normalize(fn(e.payloadLocked()))
	content := table.Marshal(p)
	if content == e.lastSynced {
		e.mu.Unlock()
		return
	}
	e.lastSynced = content
	e.mu.Unlock()

	e.logger.Debug("table changed", zap.String("block", e.blockID), zap.Int("rows", p.Rows), zap.Int("cols", p.Cols))
	e.onChange(content)
}
