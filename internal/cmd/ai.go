package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stateful/labdoc/internal/ansi"
	"github.com/stateful/labdoc/internal/config"
	"github.com/stateful/labdoc/internal/config/autoconfig"
	"github.com/stateful/labdoc/internal/term"
	"github.com/stateful/labdoc/internal/tui"
	"github.com/stateful/labdoc/pkg/ai"
	"github.com/stateful/labdoc/pkg/document"
)

var errNoAI = errors.New("no AI provider configured; set ai.provider in labdoc.yaml")

func generateCmd() *cobra.Command {
	var (
		topic   string
		pdfPath string
		output  string
		quiet   bool
	)

	cmd := cobra.Command{
		Use:   "generate",
		Short: "Generate a document with the configured model.",
		Long: `Generate a document either from a topic, producing a report outline, or
from a PDF, transcribing it into blocks. Progress and the model's reasoning
are shown on stderr while it works.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (topic == "") == (pdfPath == "") {
				return errors.New("exactly one of --topic and --pdf is required")
			}
			return autoconfig.Invoke(func(cfg *config.Config, s ai.Streamer, logger *zap.Logger) error {
				if s == nil {
					return errNoAI
				}

				run := func(ctx context.Context, progress func(ai.Event) error) (*document.Document, error) {
					opts := []ai.GeneratorOption{
						ai.WithModel(cfg.AI.Model),
						ai.WithThinking(cfg.AI.Thinking),
						ai.WithProgress(progress),
						ai.WithGeneratorLogger(logger),
					}
					if cfg.AI.MaxPages > 0 {
						opts = append(opts, ai.WithMaxPages(cfg.AI.MaxPages))
					}
					gen := ai.NewGenerator(s, opts...)
					if topic != "" {
						return gen.Outline(ctx, topic)
					}
					data, err := readInput(cmd, pdfPath)
					if err != nil {
						return nil, err
					}
					return gen.FromPDF(ctx, data)
				}

				var (
					doc *document.Document
					err error
				)
				t := term.FromIO(cmd.InOrStdin(), cmd.ErrOrStderr(), cmd.ErrOrStderr())
				switch {
				case quiet:
					doc, err = run(cmd.Context(), nil)
				case t.IsTTY() && pdfPath != stdio:
					err = tui.RunProgress(cmd.Context(), t.In(), t.ErrOut(), "Generating...", func(ctx context.Context, progress func(ai.Event) error) error {
						var rerr error
						doc, rerr = run(ctx, progress)
						return rerr
					})
				default:
					doc, err = run(cmd.Context(), progressPrinter(cmd.ErrOrStderr()))
				}
				if err != nil {
					return err
				}
				return writeDocument(cmd, output, doc)
			})
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "Topic of the report outline.")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "PDF file to transcribe.")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the document to a file instead of stdout.")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not show progress.")

	return &cmd
}

func chatCmd() *cobra.Command {
	var (
		model    string
		thinking bool
		showMeta bool
	)

	cmd := cobra.Command{
		Use:   "chat [PROMPT]",
		Short: "Ask the configured model a question.",
		Long: `Stream an answer from the configured model. The answer is written to
stdout and the reasoning, when thinking is enabled, to stderr. The prompt is
read from stdin when omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readArgOrInput(cmd, args)
			if err != nil {
				return err
			}
			if prompt = strings.TrimSpace(prompt); prompt == "" {
				return errors.New("empty prompt")
			}
			return autoconfig.Invoke(func(cfg *config.Config, s ai.Streamer) error {
				if s == nil {
					return errNoAI
				}
				req := ai.Request{Prompt: prompt, Model: cfg.AI.Model, Thinking: cfg.AI.Thinking}
				if model != "" {
					req.Model = model
				}
				if cmd.Flags().Changed("thinking") {
					req.Thinking = thinking
				}

				var acc ai.Accumulator
				out := cmd.OutOrStdout()
				err := s.Stream(cmd.Context(), req, ai.Tee(acc.Add, func(e ai.Event) error {
					switch e.Type {
					case ai.EventContent:
						_, err := io.WriteString(out, ansi.Strip(e.Text))
						return errors.WithStack(err)
					case ai.EventThought:
						_, err := io.WriteString(cmd.ErrOrStderr(), ansi.Strip(e.Text))
						return errors.WithStack(err)
					}
					return nil
				}))
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out)

				if showMeta {
					resp := acc.Response()
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "model: %s, tokens: %d prompt, %d output, %d total\n",
						resp.Model, resp.Usage.PromptTokens, resp.Usage.OutputTokens, resp.Usage.TotalTokens)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Override the configured model.")
	cmd.Flags().BoolVar(&thinking, "thinking", false, "Ask the model to stream its reasoning.")
	cmd.Flags().BoolVar(&showMeta, "usage", false, "Print the model and token usage to stderr.")

	return &cmd
}

func progressPrinter(w io.Writer) func(ai.Event) error {
	return func(e ai.Event) error {
		switch e.Type {
		case ai.EventMeta:
			_, _ = fmt.Fprintf(w, "model: %s\n", e.Model)
		case ai.EventThought:
			_, _ = io.WriteString(w, ansi.Strip(e.Text))
		case ai.EventUsage:
			if e.Usage != nil {
				_, _ = fmt.Fprintf(w, "\ntokens: %d\n", e.Usage.TotalTokens)
			}
		}
		return nil
	}
}
