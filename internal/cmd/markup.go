package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stateful/labdoc/pkg/document/markup"
)

func markupCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "markup",
		Short: "Convert inline markup.",
		Long: `Convert between the inline markup stored in heading and paragraph blocks
and the HTML used by editable regions. Input is read from the argument or
from stdin.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "to-html [MARKUP]",
		Short: "Render markup as editable HTML.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readArgOrInput(cmd, args)
			if err != nil {
				return err
			}
			out, err := markup.RenderNodes(markup.ToEditableFragment(strings.TrimRight(in, "\n")))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "from-html [HTML]",
		Short: "Read markup back from editable HTML.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readArgOrInput(cmd, args)
			if err != nil {
				return err
			}
			root, err := markup.ParseFragment(in)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), markup.FromEditableFragment(root))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "plain [MARKUP]",
		Short: "Strip styling and math delimiters from markup.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readArgOrInput(cmd, args)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), markup.PlainText(strings.TrimRight(in, "\n")))
			return err
		},
	})

	return &cmd
}
