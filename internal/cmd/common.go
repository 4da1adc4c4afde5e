package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/cli/go-gh/v2/pkg/jsonpretty"
	"github.com/cli/go-gh/v2/pkg/tableprinter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/stateful/labdoc/internal/term"
	"github.com/stateful/labdoc/pkg/document"
)

const stdio = "-"

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == stdio {
		data, err := io.ReadAll(cmd.InOrStdin())
		return data, errors.Wrap(err, "failed to read stdin")
	}
	data, err := os.ReadFile(path)
	return data, errors.Wrapf(err, "failed to read %s", path)
}

// readArgOrInput returns args[0], or stdin when no argument or "-" is given.
func readArgOrInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != stdio {
		return args[0], nil
	}
	data, err := readInput(cmd, stdio)
	return string(data), err
}

func loadDocument(cmd *cobra.Command, path string) (*document.Document, bool, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, false, err
	}
	doc, upgraded, err := document.Load(data)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to load %s", path)
	}
	return doc, upgraded, nil
}

// writeOutput writes data to path, or to stdout when path is empty or "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == stdio {
		_, err := cmd.OutOrStdout().Write(data)
		return errors.WithStack(err)
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o600), "failed to write %s", path)
}

func writeDocument(cmd *cobra.Command, path string, doc *document.Document) error {
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	return writeOutput(cmd, path, append(data, '\n'))
}

func printJSON(cmd *cobra.Command, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.WithStack(err)
	}
	t := term.FromIO(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	return errors.WithStack(
		jsonpretty.Format(t.Out(), bytes.NewReader(raw), "  ", t.IsTTY()),
	)
}

func newTable(cmd *cobra.Command, header ...string) tableprinter.TablePrinter {
	t := term.FromIO(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	table := tableprinter.New(t.Out(), t.IsTTY(), term.Width(t))
	for _, h := range header {
		table.AddField(strings.ToUpper(h))
	}
	table.EndRow()
	return table
}

// tmpDirName is the directory the store writes into before renaming.
const tmpDirName = ".tmp"

func addFormatFlag(fs *pflag.FlagSet, p *string) {
	fs.StringVar(p, "format", "table", "Output format (table, json)")
}

func checkFormat(format string) error {
	switch format {
	case "table", "json":
		return nil
	default:
		return errors.Errorf("invalid format: %s", format)
	}
}

// firstLine returns the first non-empty line of s.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
