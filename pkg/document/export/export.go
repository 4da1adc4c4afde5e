// Package export renders documents as standalone HTML pages.
package export

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma"
	chromahtml "github.com/alecthomas/chroma/formatters/html"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/stateful/labdoc/pkg/document"
	"github.com/stateful/labdoc/pkg/document/markup"
	"github.com/stateful/labdoc/pkg/document/table"
)

const classPrefix = "hl-"

const pageCSS = `body{max-width:50rem;margin:2rem auto;font-family:sans-serif;line-height:1.6}
table{border-collapse:collapse}td{border:1px solid #999;padding:.25rem .5rem}
table.three-line td{border:none}table.three-line{border-top:2px solid #000;border-bottom:2px solid #000}
table.three-line tr:first-child td{border-bottom:1px solid #000}
figure{text-align:center}pre{padding:.75rem;overflow-x:auto}`

const katexAutoRender = `document.addEventListener("DOMContentLoaded",function(){renderMathInElement(document.body,{delimiters:[{left:"\\[",right:"\\]",display:true},{left:"\\(",right:"\\)",display:false}]})});`

type Exporter struct {
	style  *chroma.Style
	logger *zap.Logger
}

type Option func(*Exporter)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// WithStyle selects the chroma style used for code blocks.
func WithStyle(name string) Option {
	return func(e *Exporter) {
		e.style = styles.Get(name)
	}
}

func New(opts ...Option) *Exporter {
	e := &Exporter{style: styles.Get("github")}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.style == nil {
		e.style = styles.Fallback
	}
	return e
}

// Export writes doc to w as an HTML page. Math is left for KaTeX to
// render in the browser.
func (e *Exporter) Export(w io.Writer, doc *document.Document) error {
	formatter := chromahtml.New(chromahtml.WithClasses(true), chromahtml.ClassPrefix(classPrefix))

	var css bytes.Buffer
	css.WriteString(pageCSS)
	css.WriteByte('\n')
	if err := formatter.WriteCSS(&css, e.style); err != nil {
		return errors.Wrap(err, "failed to write highlight CSS")
	}

	head := el(atom.Head,
		el(atom.Meta, attr("charset", "utf-8")),
		el(atom.Title, text(doc.Title)),
		el(atom.Link, attr("rel", "stylesheet"), attr("href", "https://cdn.jsdelivr.net/npm/katex@0.16.11/dist/katex.min.css")),
		el(atom.Script, attr("defer", ""), attr("src", "https://cdn.jsdelivr.net/npm/katex@0.16.11/dist/katex.min.js")),
		el(atom.Script, attr("defer", ""), attr("src", "https://cdn.jsdelivr.net/npm/katex@0.16.11/dist/contrib/auto-render.min.js")),
		el(atom.Script, text(katexAutoRender)),
		el(atom.Style, text(css.String())),
	)

	article := el(atom.Article)
	if doc.Title != "" {
		article.AppendChild(el(atom.H1, text(doc.Title)))
	}
	r := &renderer{formatter: formatter, style: e.style, logger: e.logger}
	for _, b := range doc.Blocks {
		node, err := r.block(b)
		if err != nil {
			return errors.Wrapf(err, "block %s", b.ID)
		}
		if node != nil {
			article.AppendChild(node)
		}
	}

	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	root.AppendChild(el(atom.Html, head, el(atom.Body, article)))
	return errors.WithStack(html.Render(w, root))
}

type renderer struct {
	formatter *chromahtml.Formatter
	style     *chroma.Style
	logger    *zap.Logger
}

func (r *renderer) block(b document.Block) (*html.Node, error) {
	section := el(atom.Section, attr("id", b.ID), attr("class", "block block-"+string(b.Type)))
	switch b.Type {
	case document.TypeHeading:
		level := min(max(b.Level, 1), 6)
		h := el(headingAtoms[level-1])
		appendInlineLines(h, markup.Parse(b.Content).Lines)
		section.AppendChild(h)
	case document.TypeParagraph:
		for _, n := range markupNodes(b.Content) {
			section.AppendChild(n)
		}
		if b.LineSpacing != nil && *b.LineSpacing > 0 {
			section.Attr = append(section.Attr, attr("style", "line-height:"+strconv.FormatFloat(1.6**b.LineSpacing, 'f', 2, 64)))
		}
	case document.TypeCode:
		pre, err := r.code(b.Language, b.Content)
		if err != nil {
			return nil, err
		}
		section.AppendChild(pre)
	case document.TypeMath:
		section.AppendChild(el(atom.Div, attr("class", "math display"), text(`\[`+mathSource(b)+`\]`)))
	case document.TypeImage:
		section.AppendChild(figure(imageNode(b.Content, b.Width), b.Caption))
	case document.TypeTable:
		p, _ := b.TablePayload()
		section.AppendChild(figure(tableNode(p), p.Caption))
	case document.TypeChart:
		d, _ := b.ChartData()
		if d.ImageURL == "" {
			section.AppendChild(el(atom.P, attr("class", "chart-placeholder"), text("["+d.Title+"]")))
			break
		}
		section.AppendChild(figure(imageNode(d.ImageURL, ""), d.Title))
	default:
		r.logger.Debug("skipping block", zap.String("id", b.ID), zap.String("type", string(b.Type)))
		return nil, nil
	}
	return section, nil
}

func (r *renderer) code(language, source string) (*html.Node, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(source)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return nil, errors.Wrap(err, "failed to tokenise code")
	}
	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, r.style, iterator); err != nil {
		return nil, errors.Wrap(err, "failed to highlight code")
	}
	frag, err := markup.ParseFragment(buf.String())
	if err != nil {
		return nil, err
	}
	wrapper := el(atom.Div, attr("class", "code"), attr("data-language", language))
	for c := frag.FirstChild; c != nil; {
		next := c.NextSibling
		frag.RemoveChild(c)
		wrapper.AppendChild(c)
		c = next
	}
	return wrapper, nil
}

func mathSource(b document.Block) string {
	src := b.Content
	if b.MathLatex != "" {
		src = b.MathLatex
	}
	var lines []string
	for _, l := range b.MathLines {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > 1 {
		env := "aligned"
		if b.MathBrace {
			env = "cases"
		}
		src = `\begin{` + env + `}` + strings.Join(lines, ` \\ `) + `\end{` + env + `}`
	}
	return src
}

func figure(content *html.Node, caption string) *html.Node {
	f := el(atom.Figure, content)
	if caption != "" {
		f.AppendChild(el(atom.Figcaption, text(caption)))
	}
	return f
}

func imageNode(src, width string) *html.Node {
	img := el(atom.Img, attr("src", src), attr("alt", ""))
	if width != "" {
		img.Attr = append(img.Attr, attr("style", "width:"+width))
	}
	return img
}

func tableNode(p table.Payload) *html.Node {
	p = table.Normalize(p)
	class := "table"
	if p.Style == table.StyleThreeLine {
		class = "table three-line"
	}
	tbody := el(atom.Tbody)
	for r := 0; r < p.Rows; r++ {
		tr := el(atom.Tr)
		for c := 0; c < p.Cols; c++ {
			cell := p.Cells[r][c]
			if cell.Hidden {
				continue
			}
			td := el(atom.Td)
			if cell.Rowspan > 1 {
				td.Attr = append(td.Attr, attr("rowspan", strconv.Itoa(cell.Rowspan)))
			}
			if cell.Colspan > 1 {
				td.Attr = append(td.Attr, attr("colspan", strconv.Itoa(cell.Colspan)))
			}
			appendInlineLines(td, markup.Parse(cell.Content).Lines)
			tr.AppendChild(td)
		}
		tbody.AppendChild(tr)
	}
	return el(atom.Table, attr("class", class), tbody)
}

var headingAtoms = []atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}
