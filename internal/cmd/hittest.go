package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stateful/labdoc/internal/config"
	"github.com/stateful/labdoc/internal/config/autoconfig"
	"github.com/stateful/labdoc/pkg/document"
	"github.com/stateful/labdoc/pkg/geometry"
	"github.com/stateful/labdoc/pkg/geometry/svg"
)

type blockRect struct {
	Index int           `json:"index"`
	ID    string        `json:"id,omitempty"`
	Rect  geometry.Rect `json:"rect"`
}

type hitResult struct {
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	Index  int         `json:"index"`
	ID     string      `json:"id,omitempty"`
	Blocks []blockRect `json:"blocks"`
}

func hitTestCmd() *cobra.Command {
	var (
		docPath string
		width   float64
		gap     float64
		x, y    float64
		format  string
	)

	cmd := cobra.Command{
		Use:   "hit-test PAGE.svg...",
		Short: "Locate blocks on rendered preview pages.",
		Long: `Stack the rendered pages vertically, compute the box of every block from its
marker and print them. With --x and --y the block under that point is
reported, or the nearest block within the configured hit threshold.

Coordinates are in the stacked layout: pages are scaled to --width and
separated by --gap.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return autoconfig.Invoke(func(cfg *config.Config, logger *zap.Logger) error {
				pages := make([]string, 0, len(args))
				for _, p := range args {
					data, err := os.ReadFile(p)
					if err != nil {
						return errors.Wrapf(err, "failed to read %s", p)
					}
					pages = append(pages, string(data))
				}

				layout, err := svg.Stack(pages, svg.StackOptions{Width: width, Gap: gap})
				if err != nil {
					return err
				}
				rects := layout.Compute(geometry.Options{})
				logger.Info("computed block boxes", zap.Int("pages", len(pages)), zap.Int("blocks", len(rects)))

				var blocks document.Blocks
				if docPath != "" {
					doc, _, err := loadDocument(cmd, docPath)
					if err != nil {
						return err
					}
					blocks = doc.Blocks
					if len(blocks) != len(rects) {
						logger.Warn("pages do not match the document",
							zap.Int("blocks", len(blocks)), zap.Int("markers", len(rects)))
					}
				}

				result := hitResult{X: x, Y: y, Index: -1}
				for i, r := range rects {
					result.Blocks = append(result.Blocks, blockRect{Index: i, ID: blockID(blocks, i), Rect: r})
				}

				queried := cmd.Flags().Changed("x") || cmd.Flags().Changed("y")
				if queried {
					result.Index = geometry.HitTest(rects, x, y, cfg.Geometry.HitThreshold)
					result.ID = blockID(blocks, result.Index)
				}

				if format == "json" {
					return printJSON(cmd, result)
				}

				table := newTable(cmd, "Index", "ID", "Left", "Top", "Right", "Bottom")
				for _, b := range result.Blocks {
					table.AddField(fmt.Sprint(b.Index))
					table.AddField(b.ID)
					table.AddField(fmt.Sprintf("%.1f", b.Rect.L))
					table.AddField(fmt.Sprintf("%.1f", b.Rect.T))
					table.AddField(fmt.Sprintf("%.1f", b.Rect.R))
					table.AddField(fmt.Sprintf("%.1f", b.Rect.B))
					table.EndRow()
				}
				if err := table.Render(); err != nil {
					return errors.WithStack(err)
				}
				if !queried {
					return nil
				}
				if result.Index < 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\n(%g, %g): no block\n", x, y)
					return nil
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\n(%g, %g): block %d %s\n", x, y, result.Index, result.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&docPath, "doc", "", "Document the pages were rendered from, to report block ids.")
	cmd.Flags().Float64Var(&width, "width", 0, "Scale pages to this width. 0 keeps the page size.")
	cmd.Flags().Float64Var(&gap, "gap", svg.DefaultGap, "Space between pages.")
	cmd.Flags().Float64Var(&x, "x", 0, "Horizontal coordinate to hit-test.")
	cmd.Flags().Float64Var(&y, "y", 0, "Vertical coordinate to hit-test.")
	addFormatFlag(cmd.Flags(), &format)

	return &cmd
}

func blockID(blocks document.Blocks, i int) string {
	if i < 0 || i >= len(blocks) {
		return ""
	}
	return blocks[i].ID
}
