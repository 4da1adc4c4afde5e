package main

import (
	"syscall/js"

	"github.com/stateful/labdoc/internal/bridge"
	"github.com/stateful/labdoc/internal/version"
	"github.com/stateful/labdoc/pkg/geometry"
)

func main() {
	labdoc := map[string]any{
		"version":        version.BaseVersion(),
		"markupToHTML":   js.FuncOf(markupToHTML),
		"markupFromHTML": js.FuncOf(markupFromHTML),
		"markupPlain":    js.FuncOf(markupPlain),
		"migrate":        js.FuncOf(migrate),
		"validate":       js.FuncOf(validate),
		"chartRequest":   js.FuncOf(chartRequest),
		"typst":          js.FuncOf(typstSource),
		"importMarkdown": js.FuncOf(importMarkdown),
		"exportHTML":     js.FuncOf(exportHTML),
		"pageRects":      js.FuncOf(pageRects),
		"blockRects":     js.FuncOf(blockRects),
		"hitTest":        js.FuncOf(hitTest),
		"openPage":       js.FuncOf(openPage),
		"trackPreview":   js.FuncOf(trackPreview),
	}
	js.Global().Set("Labdoc", js.ValueOf(labdoc))

	select {}
}

func markupToHTML(this js.Value, args []js.Value) any {
	return result(bridge.MarkupToHTML(arg(args, 0).String()))
}

func markupFromHTML(this js.Value, args []js.Value) any {
	return result(bridge.MarkupFromHTML(arg(args, 0).String()))
}

func markupPlain(this js.Value, args []js.Value) any {
	return bridge.MarkupPlain(arg(args, 0).String())
}

func migrate(this js.Value, args []js.Value) any {
	out, upgraded, err := bridge.Migrate(arg(args, 0).String())
	if err != nil {
		return toJSError(err)
	}
	return map[string]any{"document": out, "upgraded": upgraded}
}

func validate(this js.Value, args []js.Value) any {
	msgs, err := bridge.Validate(arg(args, 0).String())
	if err != nil {
		return toJSError(err)
	}
	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		values = append(values, m)
	}
	return values
}

func chartRequest(this js.Value, args []js.Value) any {
	return result(bridge.ChartRequest(arg(args, 0).String(), arg(args, 1).String()))
}

func typstSource(this js.Value, args []js.Value) any {
	markers := true
	if v := arg(args, 1); v.Type() == js.TypeBoolean {
		markers = v.Bool()
	}
	return result(bridge.Typst(arg(args, 0).String(), markers))
}

func importMarkdown(this js.Value, args []js.Value) any {
	return result(bridge.Import(arg(args, 0).String()))
}

func exportHTML(this js.Value, args []js.Value) any {
	style := ""
	if v := arg(args, 1); v.Type() == js.TypeString {
		style = v.String()
	}
	return result(bridge.Export(arg(args, 0).String(), style))
}

// pageRects(pages: string[], width?: number, gap?: number)
func pageRects(this js.Value, args []js.Value) any {
	list := arg(args, 0)
	if list.Type() != js.TypeObject {
		return toJSError(errArgument)
	}
	pages := make([]string, list.Length())
	for i := range pages {
		pages[i] = list.Index(i).String()
	}
	return result(bridge.PageRects(pages, number(arg(args, 1), 0), number(arg(args, 2), 16)))
}

// blockRects(container: Element) measures the rendered preview below
// container and returns the boxes as JSON.
func blockRects(this js.Value, args []js.Value) any {
	el := arg(args, 0)
	if el.Type() != js.TypeObject {
		return toJSError(errArgument)
	}
	root, container := snapshot(el)
	return result(marshalRects(geometry.Compute(root, container, geometry.Options{})))
}

// hitTest(rects: string, x: number, y: number, threshold?: number)
func hitTest(this js.Value, args []js.Value) any {
	i, err := bridge.HitTest(
		arg(args, 0).String(),
		number(arg(args, 1), 0),
		number(arg(args, 2), 0),
		number(arg(args, 3), geometry.DefaultHitThreshold),
	)
	if err != nil {
		return toJSError(err)
	}
	return i
}
