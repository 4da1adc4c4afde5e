// Package importer converts markdown into document blocks.
package importer

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/stateful/labdoc/pkg/document"
	"github.com/stateful/labdoc/pkg/document/identity"
	"github.com/stateful/labdoc/pkg/document/markup"
)

// Importer turns markdown sources into documents. Headings, paragraphs,
// lists, fenced code, "$$" math paragraphs, GFM tables and images become
// blocks; everything else is dropped.
type Importer struct {
	parser parser.Parser
	ids    *identity.Generator
	logger *zap.Logger
}

type Option func(*Importer)

func WithLogger(logger *zap.Logger) Option {
	return func(i *Importer) {
		i.logger = logger
	}
}

// WithGenerator makes the importer allocate ids from g, for example to
// import into an existing document.
func WithGenerator(g *identity.Generator) Option {
	return func(i *Importer) {
		i.ids = g
	}
}

func New(opts ...Option) *Importer {
	i := &Importer{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough),
		).Parser(),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = zap.NewNop()
	}
	if i.ids == nil {
		i.ids = identity.NewGenerator("")
	}
	return i
}

// Import parses source. A YAML frontmatter "title" becomes the document
// title.
func (i *Importer) Import(source []byte) (*document.Document, error) {
	raw, content := splitFrontmatter(source)
	fm, err := parseFrontmatter(raw)
	if err != nil {
		return nil, err
	}

	root := i.parser.Parse(text.NewReader(content))
	b := &builder{
		source: content,
		ids:    i.ids,
		logger: i.logger,
		blocks: document.Blocks{},
	}
	b.buildBlocks(root)

	doc := &document.Document{
		Version: document.Version,
		Title:   fm.Title,
		Blocks:  b.blocks,
	}
	if doc.Title == "" {
		doc.Title = firstHeading(doc.Blocks)
	}
	i.logger.Debug("imported markdown", zap.Int("blocks", len(doc.Blocks)), zap.String("title", doc.Title))
	return doc, nil
}

type builder struct {
	source []byte
	ids    *identity.Generator
	logger *zap.Logger
	blocks document.Blocks
}

func (b *builder) add(block document.Block) {
	block.ID = b.ids.Next(b.blocks.IDs())
	b.blocks = append(b.blocks, block)
}

func (b *builder) buildBlocks(parent ast.Node) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *ast.Heading:
			b.add(document.Block{
				Type:    document.TypeHeading,
				Level:   n.Level,
				Content: b.inlineMarkup(n),
			})
		case *ast.Paragraph, *ast.TextBlock:
			b.paragraph(n)
		case *ast.List:
			b.add(document.Block{
				Type:    document.TypeParagraph,
				Content: strings.Join(b.listLines(n), "\n"),
			})
		case *ast.FencedCodeBlock:
			b.code(string(n.Language(b.source)), rawLines(n, b.source))
		case *ast.CodeBlock:
			b.code("", rawLines(n, b.source))
		case *ast.Blockquote:
			b.buildBlocks(n)
		case *east.Table:
			b.table(n)
		default:
			b.logger.Debug("skipping markdown node", zap.String("kind", n.Kind().String()))
		}
	}
}

func (b *builder) paragraph(n ast.Node) {
	if img, ok := onlyImage(n); ok {
		b.add(document.Block{
			Type:    document.TypeImage,
			Content: string(img.Destination),
			Caption: plainText(img, b.source),
		})
		return
	}
	if src, ok := displayMath(rawLines(n, b.source)); ok {
		b.add(document.Block{
			Type:       document.TypeMath,
			Content:    src,
			MathFormat: "latex",
			MathLatex:  src,
		})
		return
	}
	if content := b.inlineMarkup(n); strings.TrimSpace(content) != "" {
		b.add(document.Block{Type: document.TypeParagraph, Content: content})
	}
}

func (b *builder) code(language, source string) {
	source = strings.TrimSuffix(source, "\n")
	switch strings.ToLower(language) {
	case "math", "latex", "tex":
		b.add(document.Block{
			Type:       document.TypeMath,
			Content:    source,
			MathFormat: "latex",
			MathLatex:  source,
			MathLines:  strings.Split(source, "\n"),
		})
	case "typst-math":
		b.add(document.Block{
			Type:       document.TypeMath,
			Content:    source,
			MathFormat: "typst",
			MathTypst:  source,
			MathLines:  strings.Split(source, "\n"),
		})
	default:
		b.add(document.Block{Type: document.TypeCode, Language: language, Content: source})
	}
}

func onlyImage(n ast.Node) (*ast.Image, bool) {
	var img *ast.Image
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Image:
			if img != nil {
				return nil, false
			}
			img = c
		case *ast.Text:
			if len(bytes.TrimSpace(c.Segment.Value(nil))) != 0 && !c.SoftLineBreak() {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return img, img != nil
}

func displayMath(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if len(s) < 5 || !strings.HasPrefix(s, "$$") || !strings.HasSuffix(s, "$$") {
		return "", false
	}
	inner := strings.TrimSpace(s[2 : len(s)-2])
	if inner == "" || strings.Contains(inner, "$$") {
		return "", false
	}
	return inner, true
}

func rawLines(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

func firstHeading(blocks document.Blocks) string {
	for _, b := range blocks {
		if b.Type == document.TypeHeading {
			return markup.PlainText(b.Content)
		}
	}
	return ""
}
