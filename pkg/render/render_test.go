package render

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stateful/labdoc/internal/client"
	"github.com/stateful/labdoc/pkg/document/chart"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	logger := zaptest.NewLogger(t)
	c, err := NewClient(srv.URL+"/",
		WithHTTPClient(client.NewHTTPClient(nil, 0, client.WithLogger(logger))),
		WithLogger(logger),
	)
	require.NoError(t, err)
	return c
}

func TestRenderChart(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, chartPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req chart.RenderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, chart.Bar, req.ChartType)
		assert.Equal(t, "Yield", req.Title)

		_ = json.NewEncoder(w).Encode(map[string]string{"url": "/static/charts/abc.png"})
	})

	req := chart.RenderRequest{ChartType: chart.Bar, Title: "Yield", Legend: true}
	u, err := c.RenderChart(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "/static/charts/abc.png", u)

	u, err = c.RenderChart(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "/static/charts/abc.png", u)
	assert.EqualValues(t, 1, calls.Load())

	req.Title = "Other"
	_, _ = c.RenderChart(context.Background(), req)
	assert.EqualValues(t, 2, calls.Load())
}

func TestRenderChart_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		detail string
	}{
		{"string detail", http.StatusBadRequest, `{"detail":"no data"}`, "no data"},
		{"object detail", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body"]}]}`, `[{"loc":["body"]}]`},
		{"plain body", http.StatusBadGateway, "upstream down\n", "upstream down"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := c.RenderChart(context.Background(), chart.RenderRequest{ChartType: chart.Pie})
			var rerr *Error
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, tc.status, rerr.Status)
			assert.Equal(t, tc.detail, rerr.Detail)
			assert.Equal(t, "render failed: "+tc.detail, err.Error())
		})
	}
}

func TestRenderChart_ErrorsAreNotCached(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"url":"/x.png"}`))
	})

	_, err := c.RenderChart(context.Background(), chart.RenderRequest{ChartType: chart.Scatter})
	require.Error(t, err)
	u, err := c.RenderChart(context.Background(), chart.RenderRequest{ChartType: chart.Scatter})
	require.NoError(t, err)
	assert.Equal(t, "/x.png", u)
}

func TestPreview(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, previewPath, r.URL.Path)
		var body struct {
			Source string `json:"source"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "= Title", body.Source)
		_, _ = w.Write([]byte(`{"pages":["<svg/>","<svg></svg>"]}`))
	})

	pages, err := c.Preview(context.Background(), "= Title")
	require.NoError(t, err)
	assert.Equal(t, []string{"<svg/>", "<svg></svg>"}, pages)

	// Callers own the returned slice.
	pages[0] = "changed"
	again, err := c.Preview(context.Background(), "= Title")
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", again[0])
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("localhost:8000")
	assert.Error(t, err)
	_, err = NewClient("ftp://example.com")
	assert.Error(t, err)
}
