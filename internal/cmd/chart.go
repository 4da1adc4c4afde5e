package cmd

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stateful/labdoc/internal/config/autoconfig"
	"github.com/stateful/labdoc/pkg/document"
	"github.com/stateful/labdoc/pkg/document/chart"
	"github.com/stateful/labdoc/pkg/render"
)

type chartRequest struct {
	ID      string              `json:"id"`
	Request chart.RenderRequest `json:"request"`
}

func chartCmd() *cobra.Command {
	var (
		doRender    bool
		write       bool
		concurrency int
	)

	cmd := cobra.Command{
		Use:   "chart FILE",
		Short: "Print or render the chart blocks of a document.",
		Long: `Print the render request of every chart block. With --render the requests
are sent to the render service and the image URLs are stored in the charts.
Charts that fail to render keep their previous image.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if write && (!doRender || path == stdio) {
				return errors.New("--write requires --render and a file")
			}

			return autoconfig.Invoke(func(rc *render.Client, logger *zap.Logger) error {
				doc, _, err := loadDocument(cmd, path)
				if err != nil {
					return err
				}

				var requests []chartRequest
				for _, b := range doc.Blocks {
					d, ok := b.ChartData()
					if !ok {
						continue
					}
					requests = append(requests, chartRequest{ID: b.ID, Request: chart.ToRenderRequest(d, doc.Blocks.Table)})
				}

				if !doRender {
					return printJSON(cmd, requests)
				}
				if rc == nil {
					return errors.New("service.url is not configured")
				}

				urls, renderErr := renderCharts(cmd, rc, requests, concurrency)
				logger.Info("rendered charts", zap.Int("count", len(urls)), zap.Int("total", len(requests)))

				table := newTable(cmd, "ID", "Type", "Image")
				for _, r := range requests {
					url, ok := urls[r.ID]
					if !ok {
						url = "failed"
					}
					table.AddField(r.ID)
					table.AddField(string(r.Request.ChartType))
					table.AddField(url)
					table.EndRow()
				}
				if err := table.Render(); err != nil {
					return errors.WithStack(err)
				}

				if write && len(urls) > 0 {
					doc.Blocks = applyImageURLs(doc.Blocks, urls)
					if err := writeDocument(cmd, path, doc); err != nil {
						return multierr.Append(renderErr, err)
					}
				}
				return renderErr
			})
		},
	}

	cmd.Flags().BoolVar(&doRender, "render", false, "Render charts with the render service.")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Store the image URLs in the document.")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Number of charts rendered at the same time.")

	return &cmd
}

// renderCharts renders all requests and returns the image URL per block id.
// Failures are collected; successful renders are returned regardless.
func renderCharts(cmd *cobra.Command, rc *render.Client, requests []chartRequest, concurrency int) (map[string]string, error) {
	var (
		mu   sync.Mutex
		urls = make(map[string]string, len(requests))
		errs error
	)

	g, ctx := errgroup.WithContext(cmd.Context())
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for _, r := range requests {
		g.Go(func() error {
			url, err := rc.RenderChart(ctx, r.Request)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "chart %s", r.ID))
				return nil
			}
			urls[r.ID] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return urls, multierr.Append(errs, err)
	}
	return urls, errs
}

func applyImageURLs(blocks document.Blocks, urls map[string]string) document.Blocks {
	for id, url := range urls {
		b, ok := blocks.Find(id)
		if !ok {
			continue
		}
		d, ok := b.ChartData()
		if !ok {
			continue
		}
		d.ImageURL = url
		blocks = blocks.Update(id, document.ContentPatch(chart.Marshal(d)))
	}
	return blocks
}
