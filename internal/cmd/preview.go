package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stateful/labdoc/internal/config/autoconfig"
	"github.com/stateful/labdoc/pkg/document/typst"
	"github.com/stateful/labdoc/pkg/render"
)

func previewCmd() *cobra.Command {
	var (
		doRender  bool
		outDir    string
		noMarkers bool
	)

	cmd := cobra.Command{
		Use:   "preview FILE",
		Short: "Generate the Typst source of a document.",
		Long: `Print the Typst source of a document. Every block is preceded by an
invisible marker used to map the rendered pages back to blocks.

With --render the source is compiled by the render service and the pages
are written to --out as page-001.svg, page-002.svg and so on. The pages can
be passed to "labdoc hit-test".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return autoconfig.Invoke(func(rc *render.Client, logger *zap.Logger) error {
				doc, _, err := loadDocument(cmd, args[0])
				if err != nil {
					return err
				}

				var opts []typst.Option
				if noMarkers {
					opts = append(opts, typst.WithoutMarkers())
				}
				source := typst.New(opts...).Generate(doc)

				if !doRender {
					return writeOutput(cmd, "", []byte(source))
				}
				if rc == nil {
					return errors.New("service.url is not configured")
				}

				pages, err := rc.Preview(cmd.Context(), source)
				if err != nil {
					return err
				}
				logger.Info("rendered preview", zap.Int("pages", len(pages)))

				if err := os.MkdirAll(outDir, 0o700); err != nil {
					return errors.Wrapf(err, "failed to create %s", outDir)
				}
				for i, page := range pages {
					name := filepath.Join(outDir, fmt.Sprintf("page-%03d.svg", i+1))
					if err := os.WriteFile(name, []byte(page), 0o600); err != nil {
						return errors.Wrapf(err, "failed to write %s", name)
					}
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&doRender, "render", false, "Compile the source with the render service.")
	cmd.Flags().StringVarP(&outDir, "out", "o", "preview", "Directory the rendered pages are written to.")
	cmd.Flags().BoolVar(&noMarkers, "no-markers", false, "Omit block markers.")

	return &cmd
}
