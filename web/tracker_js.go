package main

import (
	"syscall/js"

	"go.uber.org/zap"

	"github.com/stateful/labdoc/pkg/geometry"
)

// visibilityMargin extends the viewport so geometry is ready slightly
// before the preview scrolls in.
const visibilityMargin = "200px"

// trackPreview(container: HTMLElement, onRects?: (rects: string) => void)
// keeps the block rectangles of the preview rendered in container up to
// date. Rectangles are computed once the container becomes visible and
// again after resizes and content replacement.
func trackPreview(this js.Value, args []js.Value) any {
	container := arg(args, 0)
	if container.Type() != js.TypeObject {
		return toJSError(errArgument)
	}
	onRects := arg(args, 1)
	logger := zap.NewNop()

	opts := []geometry.TrackerOption{geometry.WithLogger(logger)}
	if onRects.Type() == js.TypeFunction {
		opts = append(opts, geometry.WithListener(func(rects []geometry.Rect) {
			data, err := marshalRects(rects)
			if err != nil {
				logger.Info("failed to encode rects", zap.Error(err))
				return
			}
			onRects.Invoke(data)
		}))
	}
	tr := geometry.NewTracker(func() (geometry.Element, geometry.Rect, bool) {
		if container.Get("firstElementChild").IsNull() {
			return nil, geometry.Rect{}, false
		}
		root, box := snapshot(container)
		return root, box, true
	}, opts...)

	var funcs []js.Func
	fn := func(f func(args []js.Value) any) js.Func {
		jf := js.FuncOf(func(_ js.Value, args []js.Value) any { return f(args) })
		funcs = append(funcs, jf)
		return jf
	}

	intersection := js.Global().Get("IntersectionObserver").New(
		fn(func(args []js.Value) any {
			entries := arg(args, 0)
			for i := 0; i < entries.Length(); i++ {
				tr.SetVisible(entries.Index(i).Get("isIntersecting").Bool())
			}
			return nil
		}),
		map[string]any{"rootMargin": visibilityMargin},
	)
	intersection.Call("observe", container)

	resize := js.Global().Get("ResizeObserver").New(fn(func([]js.Value) any {
		tr.Resize()
		return nil
	}))
	resize.Call("observe", container)

	return js.ValueOf(map[string]any{
		// setContent(markup: string) replaces the preview markup.
		"setContent": fn(func(args []js.Value) any {
			markup := arg(args, 0).String()
			container.Set("innerHTML", markup)
			tr.SetContent(markup)
			return nil
		}),
		"rects": fn(func([]js.Value) any {
			return result(marshalRects(tr.Rects()))
		}),
		"hitTest": fn(func(args []js.Value) any {
			return tr.HitTest(number(arg(args, 0), 0), number(arg(args, 1), 0))
		}),
		"close": fn(func([]js.Value) any {
			intersection.Call("disconnect")
			resize.Call("disconnect")
			tr.Close()
			released := funcs
			var release js.Func
			release = js.FuncOf(func(js.Value, []js.Value) any {
				for _, f := range released {
					f.Release()
				}
				release.Release()
				return nil
			})
			js.Global().Call("setTimeout", release, 0)
			return nil
		}),
	})
}
