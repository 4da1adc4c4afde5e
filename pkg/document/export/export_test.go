package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/net/html"

	"github.com/stateful/labdoc/pkg/document"
	"github.com/stateful/labdoc/pkg/document/table"
)

func exportString(t *testing.T, doc *document.Document) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, New(WithLogger(zaptest.NewLogger(t))).Export(&buf, doc))
	return buf.String()
}

func TestExport(t *testing.T) {
	p := table.New(2, 2)
	p = table.SetContent(p, 0, 0, "**x**")
	p = table.MergeRect(p, 0, 0, 1, 0)
	p.Caption = "Data"

	out := exportString(t, &document.Document{
		Title: "Lab <1>",
		Blocks: document.Blocks{
			{ID: "h", Type: document.TypeHeading, Level: 2, Content: "Intro"},
			{ID: "p", Type: document.TypeParagraph, Content: "a {red|b}\nc $x$\n- one\n- two\n3. three"},
			{ID: "c", Type: document.TypeCode, Language: "go", Content: "package main"},
			{ID: "m", Type: document.TypeMath, MathLatex: `\alpha`},
			{ID: "t", Type: document.TypeTable, Content: table.Marshal(p)},
			{ID: "i", Type: document.TypeImage, Content: "https://cdn/x.png", Caption: "Setup", Width: "40%"},
		},
	})

	_, err := html.Parse(strings.NewReader(out))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>Lab &lt;1&gt;</title>")
	assert.Contains(t, out, `<section id="h" class="block block-heading"><h2>Intro</h2></section>`)
	assert.Contains(t, out, `<p>a <span style="color:red">b</span><br/>c <span class="math">\(x\)</span></p>`)
	assert.Contains(t, out, "<ul><li>one</li><li>two</li></ul>")
	assert.Contains(t, out, `<ol start="3"><li>three</li></ol>`)
	assert.Contains(t, out, `class="hl-`)
	assert.Contains(t, out, `\[\alpha\]`)
	assert.Contains(t, out, `<td rowspan="2"><strong>x</strong></td>`)
	assert.Contains(t, out, "<figcaption>Data</figcaption>")
	assert.Contains(t, out, `<img src="https://cdn/x.png" alt="" style="width:40%"/>`)
}

func TestExport_UnknownLanguage(t *testing.T) {
	out := exportString(t, &document.Document{Blocks: document.Blocks{
		{ID: "c", Type: document.TypeCode, Language: "no-such-language", Content: "x < y"},
	}})
	assert.Contains(t, out, `data-language="no-such-language"`)
	assert.Contains(t, out, "&lt;")
}
