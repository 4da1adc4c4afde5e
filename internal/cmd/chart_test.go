package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stateful/labdoc/pkg/document/chart"
	"github.com/stateful/labdoc/pkg/render"
)

func TestRenderCharts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chart.RenderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Title == "broken" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":"no data"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://img/" + req.Title + ".png"})
	}))
	defer srv.Close()

	rc, err := render.NewClient(srv.URL)
	require.NoError(t, err)

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	urls, err := renderCharts(cmd, rc, []chartRequest{
		{ID: "c1", Request: chart.RenderRequest{ChartType: chart.Scatter, Title: "one"}},
		{ID: "c2", Request: chart.RenderRequest{ChartType: chart.Bar, Title: "broken"}},
		{ID: "c3", Request: chart.RenderRequest{ChartType: chart.Pie, Title: "three"}},
	}, 2)
	require.Error(t, err)
	assert.ErrorContains(t, err, "chart c2")
	assert.ErrorContains(t, err, "no data")
	assert.Equal(t, map[string]string{
		"c1": "https://img/one.png",
		"c3": "https://img/three.png",
	}, urls)
}

func TestRenderCharts_Canceled(t *testing.T) {
	rc, err := render.NewClient("http://127.0.0.1:1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)

	urls, err := renderCharts(cmd, rc, []chartRequest{{ID: "c1"}}, 0)
	require.Error(t, err)
	assert.Empty(t, urls)
}
