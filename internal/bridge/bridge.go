// Package bridge exposes document operations with string inputs and
// outputs for the wasm build used by the browser editor.
package bridge

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/stateful/labdoc/pkg/document"
	"github.com/stateful/labdoc/pkg/document/chart"
	"github.com/stateful/labdoc/pkg/document/export"
	"github.com/stateful/labdoc/pkg/document/importer"
	"github.com/stateful/labdoc/pkg/document/markup"
	"github.com/stateful/labdoc/pkg/document/typst"
	"github.com/stateful/labdoc/pkg/geometry"
	"github.com/stateful/labdoc/pkg/geometry/svg"
)

func MarkupToHTML(s string) (string, error) {
	return markup.RenderNodes(markup.ToEditableFragment(s))
}

func MarkupFromHTML(fragment string) (string, error) {
	root, err := markup.ParseFragment(fragment)
	if err != nil {
		return "", err
	}
	return markup.FromEditableFragment(root), nil
}

func MarkupPlain(s string) string {
	return markup.PlainText(s)
}

// Migrate loads a document, upgrades legacy blocks and returns it encoded
// as an envelope, together with whether anything changed.
func Migrate(source string) (string, bool, error) {
	doc, upgraded, err := document.Load([]byte(source))
	if err != nil {
		return "", false, err
	}
	data, err := doc.Marshal()
	if err != nil {
		return "", false, err
	}
	return string(data), upgraded, nil
}

// Validate returns one message per problem found in the document.
func Validate(source string) ([]string, error) {
	doc, _, err := document.Load([]byte(source))
	if err != nil {
		return nil, err
	}
	errs := multierr.Errors(document.Validate(doc.Blocks))
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return msgs, nil
}

// ChartRequest returns the render request of the chart block blockID,
// resolving table sources against the other blocks of the document.
func ChartRequest(source, blockID string) (string, error) {
	doc, _, err := document.Load([]byte(source))
	if err != nil {
		return "", err
	}
	b, ok := doc.Blocks.Find(blockID)
	if !ok {
		return "", errors.Errorf("block %s not found", blockID)
	}
	d, ok := b.ChartData()
	if !ok {
		return "", errors.Errorf("block %s is not a chart", blockID)
	}
	data, err := json.Marshal(chart.ToRenderRequest(d, doc.Blocks.Table))
	return string(data), errors.WithStack(err)
}

func Typst(source string, markers bool) (string, error) {
	doc, _, err := document.Load([]byte(source))
	if err != nil {
		return "", err
	}
	var opts []typst.Option
	if !markers {
		opts = append(opts, typst.WithoutMarkers())
	}
	return typst.New(opts...).Generate(doc), nil
}

func Import(markdown string) (string, error) {
	doc, err := importer.New().Import([]byte(markdown))
	if err != nil {
		return "", err
	}
	data, err := doc.Marshal()
	return string(data), err
}

func Export(source, style string) (string, error) {
	doc, _, err := document.Load([]byte(source))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := export.New(export.WithStyle(style)).Export(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// PageRects stacks rendered SVG pages the way the preview shows them and
// returns the box of every block as JSON.
func PageRects(pages []string, width, gap float64) (string, error) {
	layout, err := svg.Stack(pages, svg.StackOptions{Width: width, Gap: gap})
	if err != nil {
		return "", err
	}
	rects := layout.Compute(geometry.Options{})
	if rects == nil {
		rects = []geometry.Rect{}
	}
	data, err := json.Marshal(rects)
	return string(data), errors.WithStack(err)
}

// HitTest decodes rects from JSON and returns the index of the block at
// (x, y), or -1.
func HitTest(rects string, x, y, threshold float64) (int, error) {
	var rs []geometry.Rect
	if err := json.NewDecoder(strings.NewReader(rects)).Decode(&rs); err != nil {
		return -1, errors.Wrap(err, "failed to decode rects")
	}
	return geometry.HitTest(rs, x, y, threshold), nil
}
