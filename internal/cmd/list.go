package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stateful/labdoc/internal/config"
	"github.com/stateful/labdoc/internal/config/autoconfig"
	"github.com/stateful/labdoc/pkg/document"
)

type listEntry struct {
	Index   int    `json:"index"`
	ID      string `json:"id"`
	Type    string `json:"type"`
	Summary string `json:"summary"`
}

func listCmd() *cobra.Command {
	var (
		format     string
		conditions []string
	)

	cmd := cobra.Command{
		Use:     "list FILE",
		Aliases: []string{"ls"},
		Short:   "List the blocks of a document.",
		Long: `List the blocks of a document, optionally filtered.

Filters from labdoc.yaml apply first. Every --filter adds a block filter;
see "labdoc.default.yaml" for the available fields.`,
		Example: `List chart blocks:
  labdoc list report.json --filter "type == 'chart'"

List paragraphs containing math:
  labdoc list report.json --filter "has_math && type == 'paragraph'"
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return autoconfig.Invoke(func(filters []*config.Filter, logger *zap.Logger) error {
				doc, _, err := loadDocument(cmd, args[0])
				if err != nil {
					return err
				}

				filters = append([]*config.Filter(nil), filters...)
				for _, c := range conditions {
					filters = append(filters, &config.Filter{Type: config.FilterTypeBlock, Condition: c})
				}

				blocks, err := config.FilterBlocks(doc, filters)
				if err != nil {
					return err
				}
				logger.Info("filtered blocks", zap.Int("total", len(doc.Blocks)), zap.Int("count", len(blocks)))

				entries := make([]listEntry, 0, len(blocks))
				for _, b := range blocks {
					index := doc.Blocks.Index(b.ID)
					entries = append(entries, listEntry{
						Index:   index,
						ID:      b.ID,
						Type:    string(b.Type),
						Summary: summarize(b, index),
					})
				}

				if format == "json" {
					return printJSON(cmd, entries)
				}
				table := newTable(cmd, "Index", "ID", "Type", "Summary")
				for _, e := range entries {
					table.AddField(fmt.Sprint(e.Index))
					table.AddField(e.ID)
					table.AddField(e.Type)
					table.AddField(e.Summary)
					table.EndRow()
				}
				return errors.WithStack(table.Render())
			})
		},
	}

	addFormatFlag(cmd.Flags(), &format)
	cmd.Flags().StringArrayVar(&conditions, "filter", nil, "Expression a block must satisfy. Can be repeated.")

	return &cmd
}

func summarize(b document.Block, index int) string {
	env := config.NewFilterBlockEnv(b, index)
	switch b.Type {
	case document.TypeTable:
		return fmt.Sprintf("%dx%d %s", env.TableRows, env.TableCols, env.Caption)
	case document.TypeChart:
		return fmt.Sprintf("%s %s", env.ChartType, env.Caption)
	case document.TypeCode:
		return fmt.Sprintf("[%s] %s", env.Language, firstLine(b.Content))
	case document.TypeMath:
		if b.MathFormat == "typst" && b.MathTypst != "" {
			return firstLine(b.MathTypst)
		}
		if b.MathLatex != "" {
			return firstLine(b.MathLatex)
		}
		return firstLine(b.Content)
	default:
		return firstLine(env.Text)
	}
}
