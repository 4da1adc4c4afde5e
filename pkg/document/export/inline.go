package export

import (
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/stateful/labdoc/pkg/document/markup"
)

func el(a atom.Atom, children ...any) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for _, c := range children {
		switch c := c.(type) {
		case html.Attribute:
			n.Attr = append(n.Attr, c)
		case *html.Node:
			n.AppendChild(c)
		}
	}
	return n
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// markupNodes renders markup as paragraphs and lists. Consecutive plain
// lines share a paragraph separated by line breaks.
func markupNodes(s string) []*html.Node {
	var (
		result []*html.Node
		para   *html.Node
		list   *html.Node
	)
	for _, line := range markup.Parse(s).Lines {
		switch line.Marker.Kind {
		case markup.NoMarker:
			list = nil
			if para == nil {
				para = el(atom.P)
				result = append(result, para)
			} else {
				para.AppendChild(el(atom.Br))
			}
			appendInlines(para, line.Inlines)
		default:
			para = nil
			tag := atom.Ul
			if line.Marker.Kind == markup.OrderedMarker {
				tag = atom.Ol
			}
			if list == nil || list.DataAtom != tag {
				list = el(tag)
				if tag == atom.Ol && line.Marker.Number != 1 {
					list.Attr = append(list.Attr, attr("start", strconv.Itoa(line.Marker.Number)))
				}
				result = append(result, list)
			}
			li := el(atom.Li)
			appendInlines(li, line.Inlines)
			list.AppendChild(li)
		}
	}
	return result
}

func appendInlineLines(parent *html.Node, lines []markup.Line) {
	for i, line := range lines {
		if i > 0 {
			parent.AppendChild(el(atom.Br))
		}
		if line.Marker.Kind != markup.NoMarker {
			parent.AppendChild(text(line.Marker.String()))
		}
		appendInlines(parent, line.Inlines)
	}
}

func appendInlines(parent *html.Node, inlines []markup.Inline) {
	for _, in := range inlines {
		switch v := in.(type) {
		case markup.Text:
			parent.AppendChild(styledText(v))
		case markup.Math:
			if v.Display {
				parent.AppendChild(el(atom.Span, attr("class", "math display"), text(`\[`+v.Source+`\]`)))
			} else {
				parent.AppendChild(el(atom.Span, attr("class", "math"), text(`\(`+v.Source+`\)`)))
			}
		}
	}
}

func styledText(t markup.Text) *html.Node {
	n := text(t.Value)
	wrap := func(a atom.Atom) {
		n = el(a, n)
	}
	if t.Style.Strike {
		wrap(atom.S)
	}
	if t.Style.Underline {
		wrap(atom.U)
	}
	if t.Style.Italic {
		wrap(atom.Em)
	}
	if t.Style.Bold {
		wrap(atom.Strong)
	}
	if t.Style.Color != "" {
		n = el(atom.Span, attr("style", "color:"+t.Style.Color), n)
	}
	return n
}
