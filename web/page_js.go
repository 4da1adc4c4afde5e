package main

import (
	"context"
	"sync"
	"syscall/js"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stateful/labdoc/pkg/document"
	"github.com/stateful/labdoc/pkg/document/chart"
	"github.com/stateful/labdoc/pkg/document/markup"
	"github.com/stateful/labdoc/pkg/editor"
	"github.com/stateful/labdoc/pkg/render"
)

// pageHandle is the JS side of an editor.Page. It owns the DOM listeners it
// registers and releases them on close.
type pageHandle struct {
	title    string
	ctrl     *document.Controller
	page     *editor.Page
	renderer editor.Renderer
	logger   *zap.Logger

	mu       sync.Mutex
	texts    map[string]*editor.TextBinding
	tables   map[string]*editor.TableEditor
	charts   map[string]*editor.ChartEditor
	cleanups map[string][]func()
	funcs    []js.Func
}

// openPage(document: string, options?: {renderURL?: string, onChange?: (doc: string) => void})
func openPage(this js.Value, args []js.Value) any {
	doc, _, err := document.Load([]byte(arg(args, 0).String()))
	if err != nil {
		return toJSError(err)
	}
	options := arg(args, 1)

	h := &pageHandle{
		title:    doc.Title,
		ctrl:     document.NewController(doc.Blocks),
		logger:   zap.NewNop(),
		texts:    make(map[string]*editor.TextBinding),
		tables:   make(map[string]*editor.TableEditor),
		charts:   make(map[string]*editor.ChartEditor),
		cleanups: make(map[string][]func()),
	}
	if url := option(options, "renderURL"); url.Type() == js.TypeString && url.String() != "" {
		client, err := render.NewClient(url.String())
		if err != nil {
			return toJSError(err)
		}
		h.renderer = client
	}
	h.page = editor.NewPage(h.ctrl)

	if onChange := option(options, "onChange"); onChange.Type() == js.TypeFunction {
		unsubscribe := h.ctrl.Subscribe(func(document.Blocks) {
			data, err := h.document()
			if err != nil {
				h.logger.Info("failed to encode document", zap.Error(err))
				return
			}
			onChange.Invoke(data)
		})
		h.cleanups[""] = append(h.cleanups[""], unsubscribe)
	}

	return h.object()
}

func (h *pageHandle) object() js.Value {
	return js.ValueOf(map[string]any{
		"document":    h.fn(func(args []js.Value) any { return result(h.document()) }),
		"bindText":    h.fn(h.bindText),
		"bindTable":   h.fn(h.bindTable),
		"bindChart":   h.fn(h.bindChart),
		"unbind":      h.fn(h.unbind),
		"insertMath":  h.fn(h.insertMath),
		"openMath":    h.fn(h.openMath),
		"setMath":     h.fn(h.setMath),
		"closeMath":   h.fn(func([]js.Value) any { return toJSError(h.page.Math().Close()) }),
		"pointerDown": h.fn(func(args []js.Value) any { h.page.Drag().PointerDown(newDOMTarget(arg(args, 0))); return nil }),
		"dragStart":   h.fn(func(args []js.Value) any { return h.page.Drag().DragStart(arg(args, 0).String()) }),
		"drop":        h.fn(func(args []js.Value) any { return h.page.Drag().Drop(arg(args, 0).String()) }),
		"dragEnd":     h.fn(func([]js.Value) any { h.page.Drag().DragEnd(); return nil }),
		"close":       h.fn(h.close),
	})
}

// fn wraps f as a JS function released on close.
func (h *pageHandle) fn(f func(args []js.Value) any) js.Func {
	jf := js.FuncOf(func(_ js.Value, args []js.Value) any { return f(args) })
	h.mu.Lock()
	h.funcs = append(h.funcs, jf)
	h.mu.Unlock()
	return jf
}

func (h *pageHandle) document() (string, error) {
	doc := document.Document{Version: document.Version, Title: h.title, Blocks: h.ctrl.Blocks()}
	data, err := doc.Marshal()
	return string(data), err
}

// listen adds a DOM event listener removed when block id is unbound.
func (h *pageHandle) listen(id string, el js.Value, event string, f func(e js.Value)) {
	jf := js.FuncOf(func(_ js.Value, args []js.Value) any {
		f(arg(args, 0))
		return nil
	})
	el.Call("addEventListener", event, jf)
	h.mu.Lock()
	h.cleanups[id] = append(h.cleanups[id], func() {
		el.Call("removeEventListener", event, jf)
		jf.Release()
	})
	h.mu.Unlock()
}

// bindText(id: string, element: HTMLElement)
func (h *pageHandle) bindText(args []js.Value) any {
	id, el := arg(args, 0).String(), arg(args, 1)
	if el.Type() != js.TypeObject {
		return toJSError(errArgument)
	}
	tb, err := h.page.BindText(id, domSurface{el: el})
	if err != nil {
		return toJSError(err)
	}
	h.mu.Lock()
	h.texts[id] = tb
	h.mu.Unlock()

	h.listen(id, el, "input", func(js.Value) { tb.Input() })
	h.listen(id, el, "blur", func(js.Value) {
		if err := tb.Blur(); err != nil {
			h.logger.Info("failed to write text block", zap.String("block", id), zap.Error(err))
		}
	})
	h.listen(id, el, "paste", func(e js.Value) {
		text := e.Get("clipboardData").Call("getData", "text/plain").String()
		handled, err := tb.Paste(text)
		if err != nil {
			h.logger.Info("failed to paste", zap.String("block", id), zap.Error(err))
		}
		if handled {
			e.Call("preventDefault")
		}
	})
	return nil
}

// bindTable(id: string) returns the table operations of block id.
func (h *pageHandle) bindTable(args []js.Value) any {
	id := arg(args, 0).String()
	te, err := h.page.BindTable(id)
	if err != nil {
		return toJSError(err)
	}
	h.mu.Lock()
	h.tables[id] = te
	h.mu.Unlock()

	return js.ValueOf(map[string]any{
		"editCell": h.fn(func(args []js.Value) any {
			te.EditCell(arg(args, 0).Int(), arg(args, 1).Int(), arg(args, 2).String())
			return nil
		}),
		"click": h.fn(func(args []js.Value) any {
			te.Click(arg(args, 0).Int(), arg(args, 1).Int(), arg(args, 2).Truthy())
			return nil
		}),
		"setSelectionMode": h.fn(func(args []js.Value) any { te.SetSelectionMode(arg(args, 0).Truthy()); return nil }),
		"merge":            h.fn(func([]js.Value) any { te.Merge(); return nil }),
		"unmerge":          h.fn(func([]js.Value) any { te.Unmerge(); return nil }),
		"resize": h.fn(func(args []js.Value) any {
			te.Resize(arg(args, 0).Int(), arg(args, 1).Int())
			return nil
		}),
		"setCaption": h.fn(func(args []js.Value) any { te.SetCaption(arg(args, 0).String()); return nil }),
	})
}

// bindChart(id: string) returns the chart operations of block id.
func (h *pageHandle) bindChart(args []js.Value) any {
	if h.renderer == nil {
		return toJSError(errors.New("renderURL is not configured"))
	}
	id := arg(args, 0).String()
	ce, err := h.page.BindChart(id, h.renderer)
	if err != nil {
		return toJSError(err)
	}
	h.mu.Lock()
	h.charts[id] = ce
	h.mu.Unlock()

	return js.ValueOf(map[string]any{
		"setType":      h.fn(func(args []js.Value) any { ce.SetType(chart.Type(arg(args, 0).String())); return nil }),
		"addSeries":    h.fn(func([]js.Value) any { ce.AddSeries(); return nil }),
		"removeSeries": h.fn(func(args []js.Value) any { ce.RemoveSeries(arg(args, 0).Int()); return nil }),
		"render": h.fn(func([]js.Value) any {
			return promise(func() (any, error) {
				url, err := ce.Render(context.Background())
				return url, err
			})
		}),
	})
}

func (h *pageHandle) unbind(args []js.Value) any {
	id := arg(args, 0).String()
	h.page.Unbind(id)

	h.mu.Lock()
	delete(h.texts, id)
	delete(h.tables, id)
	delete(h.charts, id)
	cleanups := h.cleanups[id]
	delete(h.cleanups, id)
	h.mu.Unlock()

	for _, fn := range cleanups {
		fn()
	}
	return nil
}

func (h *pageHandle) textBinding(id string) (*editor.TextBinding, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	tb, ok := h.texts[id]
	if !ok {
		return nil, errors.Errorf("block %s is not bound", id)
	}
	return tb, nil
}

// insertMath(id: string, format?: "latex"|"typst", display?: boolean) opens
// a new pill at the caret.
func (h *pageHandle) insertMath(args []js.Value) any {
	tb, err := h.textBinding(arg(args, 0).String())
	if err != nil {
		return toJSError(err)
	}
	format := markup.LaTeX
	if v := arg(args, 1); v.Type() == js.TypeString {
		format = markup.ParseMathFormat(v.String())
	}
	state, err := h.page.Math().Insert(editor.ScopeMain, tb, format, arg(args, 2).Truthy())
	if err != nil {
		return toJSError(err)
	}
	return state.ID
}

// openMath(id: string, pillID: string)
func (h *pageHandle) openMath(args []js.Value) any {
	tb, err := h.textBinding(arg(args, 0).String())
	if err != nil {
		return toJSError(err)
	}
	state, err := h.page.Math().Open(editor.ScopeMain, tb, arg(args, 1).String())
	if err != nil {
		return toJSError(err)
	}
	return map[string]any{
		"id":      state.ID,
		"format":  string(state.Format),
		"latex":   state.Latex,
		"typst":   state.Typst,
		"display": state.DisplayMode,
	}
}

// setMath(change: {source?: string, format?: string, display?: boolean})
func (h *pageHandle) setMath(args []js.Value) any {
	change := arg(args, 0)
	m := h.page.Math()
	if v := option(change, "format"); v.Type() == js.TypeString {
		if err := m.SetFormat(markup.ParseMathFormat(v.String())); err != nil {
			return toJSError(err)
		}
	}
	if v := option(change, "source"); v.Type() == js.TypeString {
		if err := m.SetSource(v.String()); err != nil {
			return toJSError(err)
		}
	}
	if v := option(change, "display"); v.Type() == js.TypeBoolean {
		if err := m.SetDisplayMode(v.Bool()); err != nil {
			return toJSError(err)
		}
	}
	return nil
}

func (h *pageHandle) close([]js.Value) any {
	err := h.page.Close()

	h.mu.Lock()
	var cleanups []func()
	for _, fns := range h.cleanups {
		cleanups = append(cleanups, fns...)
	}
	h.cleanups = make(map[string][]func())
	funcs := h.funcs
	h.funcs = nil
	h.mu.Unlock()

	for _, fn := range cleanups {
		fn()
	}
	// The close function itself is still running, so releasing is deferred
	// to the next tick.
	var release js.Func
	release = js.FuncOf(func(js.Value, []js.Value) any {
		for _, f := range funcs {
			f.Release()
		}
		release.Release()
		return nil
	})
	js.Global().Call("setTimeout", release, 0)
	return toJSError(err)
}

// promise runs fn on a goroutine and settles a JS Promise with its result.
func promise(fn func() (any, error)) js.Value {
	var executor js.Func
	executor = js.FuncOf(func(_ js.Value, args []js.Value) any {
		resolve, reject := args[0], args[1]
		go func() {
			defer executor.Release()
			v, err := fn()
			if err != nil {
				reject.Invoke(toJSError(err))
				return
			}
			resolve.Invoke(v)
		}()
		return nil
	})
	return js.Global().Get("Promise").New(executor)
}

func option(options js.Value, key string) js.Value {
	if options.Type() != js.TypeObject {
		return js.Undefined()
	}
	return options.Get(key)
}
