package cmd

import (
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stateful/labdoc/internal/config/autoconfig"
	"github.com/stateful/labdoc/pkg/document"
	"github.com/stateful/labdoc/pkg/document/identity"
	"github.com/stateful/labdoc/pkg/upload"
)

type uploadResult struct {
	URL      string          `json:"url"`
	MIMEType string          `json:"mime_type"`
	Size     int64           `json:"size"`
	Block    *document.Block `json:"block,omitempty"`
}

func uploadCmd() *cobra.Command {
	var (
		asBlock bool
		copyURL bool
	)

	cmd := cobra.Command{
		Use:   "upload FILE",
		Short: "Upload an image or PDF and print its URL.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return autoconfig.Invoke(func(uc *upload.Client) error {
				if uc == nil {
					return errors.New("service.url is not configured")
				}

				f, err := os.Open(args[0])
				if err != nil {
					return errors.WithStack(err)
				}
				defer func() { _ = f.Close() }()

				res, err := uc.Upload(cmd.Context(), args[0], f)
				if err != nil {
					return err
				}

				if copyURL {
					if err := clipboard.WriteAll(res.URL); err != nil {
						_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "failed to copy the URL: %v\n", err)
					}
				}

				out := uploadResult{URL: res.URL, MIMEType: res.MIMEType, Size: res.Size}
				if asBlock {
					b := document.NewBlock(identity.NewGenerator("").Next(nil), document.TypeImage)
					b.Content = res.URL
					out.Block = &b
				}
				return printJSON(cmd, out)
			})
		},
	}

	cmd.Flags().BoolVar(&copyURL, "copy", false, "Copy the URL to the clipboard.")
	cmd.Flags().BoolVar(&asBlock, "block", false, "Also print an image block referring to the upload.")

	return &cmd
}
