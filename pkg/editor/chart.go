package editor

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stateful/labdoc/pkg/document/chart"
)

// Renderer turns a chart render request into an image URL.
type Renderer interface {
	RenderChart(ctx context.Context, req chart.RenderRequest) (string, error)
}

// ChartEditor edits the data of a chart block and renders previews.
type ChartEditor struct {
	mu         sync.Mutex
	blockID    string
	lastSynced string
	data       chart.Data
	onChange   func(string)
	resolve    chart.TableResolver
	renderer   Renderer
	loading    bool
	lastErr    error
	logger     *zap.Logger
}

// NewChartEditor creates an editor for content. Table-sourced series are
// resolved through resolve when rendering.
func NewChartEditor(blockID, content string, onChange func(string), resolve chart.TableResolver, renderer Renderer, opts ...Option) *ChartEditor {
	o := newOptions(opts)
	return &ChartEditor{
		blockID:    blockID,
		lastSynced: content,
		data:       chart.Parse(content),
		onChange:   onChange,
		resolve:    resolve,
		renderer:   renderer,
		logger:     o.logger,
	}
}

func (e *ChartEditor) Data() chart.Data {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data.Clone()
}

// Loading reports whether a render is in flight.
func (e *ChartEditor) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// Err returns the error of the last render, if it failed.
func (e *ChartEditor) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Update applies fn to the chart data and writes the result back.
func (e *ChartEditor) Update(fn func(chart.Data) chart.Data) {
	e.mu.Lock()
	d := fn(e.data.Clone())
	content := chart.Marshal(d)
	e.data = chart.Parse(content)
	if content == e.lastSynced {
		e.mu.Unlock()
		return
	}
	e.lastSynced = content
	e.mu.Unlock()

	e.onChange(content)
}

func (e *ChartEditor) SetType(t chart.Type) {
	e.Update(func(d chart.Data) chart.Data { return chart.SetType(d, t) })
}

func (e *ChartEditor) AddSeries() {
	e.Update(chart.AddSeries)
}

func (e *ChartEditor) RemoveSeries(i int) {
	e.Update(func(d chart.Data) chart.Data { return chart.RemoveSeries(d, i) })
}

func (e *ChartEditor) SetScatterSeries(i int, s chart.ScatterSeries) {
	e.Update(func(d chart.Data) chart.Data { return chart.SetScatterSeries(d, i, s) })
}

func (e *ChartEditor) SetBarSeries(i int, s chart.BarSeries) {
	e.Update(func(d chart.Data) chart.Data { return chart.SetBarSeries(d, i, s) })
}

func (e *ChartEditor) SetPieRow(i int, r chart.PieRow) {
	e.Update(func(d chart.Data) chart.Data { return chart.SetPieRow(d, i, r) })
}

// Sync is called with the block content whenever the document changes.
func (e *ChartEditor) Sync(content string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if content == e.lastSynced {
		return
	}
	e.lastSynced = content
	e.data = chart.Parse(content)
}

// Render converts the chart into a render request and stores the returned
// image URL. On failure the chart data is left as it was and the error is
// returned.
func (e *ChartEditor) Render(ctx context.Context) (string, error) {
	e.mu.Lock()
	if e.renderer == nil {
		e.mu.Unlock()
		return "", errors.New("no chart renderer configured")
	}
	req := chart.ToRenderRequest(e.data, e.resolve)
	e.loading = true
	e.lastErr = nil
	e.mu.Unlock()

	url, err := e.renderer.RenderChart(ctx, req)

	e.mu.Lock()
	e.loading = false
	if err != nil {
		e.lastErr = err
		e.mu.Unlock()
		e.logger.Info("chart render failed", zap.String("block", e.blockID), zap.Error(err))
		return "", err
	}
	e.mu.Unlock()

	e.Update(func(d chart.Data) chart.Data {
		d.ImageURL = url
		return d
	})
	return url, nil
}
