package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/stateful/labdoc/internal/config/autoconfig"
	"github.com/stateful/labdoc/internal/term"
	"github.com/stateful/labdoc/pkg/document"
)

func migrateCmd() *cobra.Command {
	var write bool

	cmd := cobra.Command{
		Use:   "migrate FILE",
		Short: "Upgrade legacy blocks of a document.",
		Long: `Rewrite list blocks into paragraphs with list markers and move legacy chart
fields into series. The result is printed unless --write is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return autoconfig.Invoke(func(logger *zap.Logger) error {
				path := args[0]
				if write && path == stdio {
					return errors.New("--write cannot be used with stdin")
				}

				doc, upgraded, err := loadDocument(cmd, path)
				if err != nil {
					return err
				}
				logger.Info("loaded document", zap.String("path", path), zap.Bool("upgraded", upgraded))

				if !write {
					return writeDocument(cmd, "", doc)
				}
				if !upgraded {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s is up to date\n", path)
					return nil
				}
				if err := writeDocument(cmd, path, doc); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "migrated %s\n", path)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write the result back to the file.")

	return &cmd
}

func validateCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "validate FILE...",
		Short: "Check documents for invalid blocks.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := term.FromIO(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			okColor := color.New(color.FgGreen)
			errColor := color.New(color.FgRed)
			if !t.IsTTY() {
				okColor.DisableColor()
				errColor.DisableColor()
			}

			failed := 0
			for _, path := range args {
				doc, _, err := loadDocument(cmd, path)
				if err == nil {
					err = document.Validate(doc.Blocks)
				}
				if err == nil {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, okColor.Sprint("ok"))
					continue
				}
				failed++
				for _, e := range multierr.Errors(err) {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, errColor.Sprint(e))
				}
			}
			if failed > 0 {
				return errors.Errorf("%d of %d documents are invalid", failed, len(args))
			}
			return nil
		},
	}
	return &cmd
}
