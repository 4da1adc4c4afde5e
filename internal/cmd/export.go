package cmd

import (
	"bytes"
	"net/url"
	"os"
	"path/filepath"

	"github.com/pkg/browser"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stateful/labdoc/internal/config/autoconfig"
	"github.com/stateful/labdoc/pkg/document/export"
	"github.com/stateful/labdoc/pkg/document/importer"
)

func importCmd() *cobra.Command {
	var output string

	cmd := cobra.Command{
		Use:   "import FILE.md",
		Short: "Convert a Markdown file into a document.",
		Long: `Convert Markdown into blocks. Headings, paragraphs, lists, fenced code,
"$$" formulas, GFM tables and images are kept. A frontmatter "title" becomes
the document title. Pipe the result to "labdoc doc new -" to store it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return autoconfig.Invoke(func(logger *zap.Logger) error {
				data, err := readInput(cmd, args[0])
				if err != nil {
					return err
				}
				doc, err := importer.New(importer.WithLogger(logger)).Import(data)
				if err != nil {
					return err
				}
				return writeDocument(cmd, output, doc)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the document to a file instead of stdout.")

	return &cmd
}

func exportCmd() *cobra.Command {
	var (
		output string
		style  string
		open   bool
	)

	cmd := cobra.Command{
		Use:   "export FILE",
		Short: "Export a document as a standalone HTML page.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return autoconfig.Invoke(func(logger *zap.Logger) error {
				doc, _, err := loadDocument(cmd, args[0])
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				exp := export.New(export.WithLogger(logger), export.WithStyle(style))
				if err := exp.Export(&buf, doc); err != nil {
					return err
				}
				if !open {
					return writeOutput(cmd, output, buf.Bytes())
				}

				if output == "" || output == stdio {
					f, err := os.CreateTemp("", "labdoc-*.html")
					if err != nil {
						return errors.WithStack(err)
					}
					output = f.Name()
					if err := f.Close(); err != nil {
						return errors.WithStack(err)
					}
				}
				if err := writeOutput(cmd, output, buf.Bytes()); err != nil {
					return err
				}
				abs, err := filepath.Abs(output)
				if err != nil {
					return errors.WithStack(err)
				}
				logger.Info("opening export", zap.String("path", abs))
				return errors.WithStack(browser.OpenURL((&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()))
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the page to a file instead of stdout.")
	cmd.Flags().BoolVar(&open, "open", false, "Open the page in the browser. Without --output a temporary file is used.")
	cmd.Flags().StringVar(&style, "style", "github", "Highlighting style of code blocks.")

	return &cmd
}
