package ai

import (
	"bytes"
	"context"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"rsc.io/pdf"

	"github.com/stateful/labdoc/pkg/document"
	"github.com/stateful/labdoc/pkg/document/importer"
)

// DefaultMaxPages limits the PDFs sent for conversion.
const DefaultMaxPages = 30

var (
	ErrNotPDF       = errors.New("file is not a PDF")
	ErrTooManyPages = errors.New("PDF has too many pages")
	ErrEmptyOutput  = errors.New("model returned no content")
)

const outlinePrompt = `Write the outline of a lab report about the topic below as Markdown.
Use "#" headings for the sections (purpose, principle, apparatus, procedure, data, analysis,
conclusion), short paragraphs under each, GFM tables for data to record and "$$...$$" paragraphs
for key formulas. Return only the Markdown.

Topic: `

const pdfPrompt = `Convert this PDF into Markdown. Keep the heading structure, paragraphs, lists,
tables as GFM tables and formulas as "$...$" or "$$...$$" LaTeX. Drop page headers, footers and
page numbers. Return only the Markdown.`

// Generator produces documents with a model.
type Generator struct {
	streamer Streamer
	model    string
	thinking bool
	maxPages int
	onEvent  func(Event) error
	logger   *zap.Logger
}

type GeneratorOption func(*Generator)

func WithModel(model string) GeneratorOption {
	return func(g *Generator) {
		g.model = model
	}
}

func WithThinking(enabled bool) GeneratorOption {
	return func(g *Generator) {
		g.thinking = enabled
	}
}

func WithMaxPages(n int) GeneratorOption {
	return func(g *Generator) {
		g.maxPages = n
	}
}

// WithProgress receives every event while a document is generated.
func WithProgress(fn func(Event) error) GeneratorOption {
	return func(g *Generator) {
		g.onEvent = fn
	}
}

func WithGeneratorLogger(logger *zap.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

func NewGenerator(s Streamer, opts ...GeneratorOption) *Generator {
	g := &Generator{streamer: s, maxPages: DefaultMaxPages}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

// Outline asks the model for a lab report outline on topic.
func (g *Generator) Outline(ctx context.Context, topic string) (*document.Document, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("topic is empty")
	}
	return g.generate(ctx, Request{Prompt: outlinePrompt + topic})
}

// FromPDF converts a PDF into blocks.
func (g *Generator) FromPDF(ctx context.Context, data []byte) (*document.Document, error) {
	if !mimetype.Detect(data).Is("application/pdf") {
		return nil, ErrNotPDF
	}
	n, err := PageCount(data)
	if err != nil {
		return nil, err
	}
	if g.maxPages > 0 && n > g.maxPages {
		return nil, errors.Wrapf(ErrTooManyPages, "%d pages, at most %d", n, g.maxPages)
	}
	g.logger.Debug("converting PDF", zap.Int("pages", n))
	return g.generate(ctx, Request{
		Prompt:      pdfPrompt,
		Attachments: []Attachment{{MIMEType: "application/pdf", Data: data}},
	})
}

func (g *Generator) generate(ctx context.Context, req Request) (*document.Document, error) {
	req.Model = g.model
	req.Thinking = g.thinking

	var acc Accumulator
	if err := g.streamer.Stream(ctx, req, Tee(acc.Add, g.onEvent)); err != nil {
		return nil, err
	}
	resp := acc.Response()
	g.logger.Debug("model finished",
		zap.String("model", resp.Model),
		zap.Int("content", len(resp.Content)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	source := StripFences(resp.Content)
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptyOutput
	}
	return importer.New(importer.WithLogger(g.logger)).Import([]byte(source))
}

// PageCount returns the number of pages of a PDF.
func PageCount(data []byte) (n int, err error) {
	// The reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("failed to read PDF: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, errors.Wrap(err, "failed to read PDF")
	}
	return r.NumPage(), nil
}

// StripFences removes a code fence wrapped around the whole text, which
// models add despite being asked not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return ""
	}
	body := strings.TrimSpace(s[nl+1:])
	body, ok := strings.CutSuffix(body, "```")
	if !ok {
		return s
	}
	return strings.TrimSpace(body)
}
