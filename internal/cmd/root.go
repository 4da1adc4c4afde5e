package cmd

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stateful/labdoc/internal/version"
)

func Root() *cobra.Command {
	var (
		chdir  string
		silent bool
	)

	cmd := cobra.Command{
		Use:   "labdoc",
		Short: "Author lab reports as block documents.",
		Long: `labdoc works on lab report documents stored as JSON block arrays.

Commands read the labdoc.yaml configuration file from the working directory.
Rendering, uploads and AI generation use the service configured there.`,
		Version:       version.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if silent {
				cmd.SetErr(io.Discard)
			}
			if chdir != "" && chdir != "." {
				return errors.Wrapf(os.Chdir(chdir), "failed to change directory to %s", chdir)
			}
			return nil
		},
	}

	pflags := cmd.PersistentFlags()
	pflags.StringVar(&chdir, "chdir", ".", "Switch to a different working directory before executing the command.")
	pflags.BoolVar(&silent, "silent", false, "Silent mode. Do not print progress and error messages.")

	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(validateCmd())
	cmd.AddCommand(listCmd())
	cmd.AddCommand(chartCmd())
	cmd.AddCommand(previewCmd())
	cmd.AddCommand(hitTestCmd())
	cmd.AddCommand(markupCmd())
	cmd.AddCommand(importCmd())
	cmd.AddCommand(generateCmd())
	cmd.AddCommand(chatCmd())
	cmd.AddCommand(exportCmd())
	cmd.AddCommand(uploadCmd())
	cmd.AddCommand(docCmd())

	return &cmd
}
