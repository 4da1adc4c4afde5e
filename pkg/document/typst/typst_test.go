package typst

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stateful/labdoc/pkg/document"
	"github.com/stateful/labdoc/pkg/document/chart"
	"github.com/stateful/labdoc/pkg/document/table"
)

func TestGenerate_OneMarkerPerBlock(t *testing.T) {
	doc := &document.Document{
		Title: "Lab #1",
		Blocks: document.Blocks{
			{ID: "h", Type: document.TypeHeading, Level: 2, Content: "Intro"},
			{ID: "p", Type: document.TypeParagraph, Content: "a\nb"},
			{ID: "e", Type: document.TypeParagraph},
		},
	}

	src := Generate(doc)
	assert.Equal(t, 3, strings.Count(src, MarkerFill))
	assert.Contains(t, src, "== Intro")
	assert.Contains(t, src, "a \\\nb")
	assert.Contains(t, src, `[Lab \#1]`)

	assert.NotContains(t, New(WithoutMarkers()).Generate(doc), MarkerFill)
}

func TestGenerate_Markup(t *testing.T) {
	src := New(WithPreamble("")).Generate(&document.Document{Blocks: document.Blocks{
		{ID: "p", Type: document.TypeParagraph, Content: "**b** {#ff0000|red} $[typst]x^2$ $$\\frac{1}{2}$$\n- item\n2. two"},
	}})

	assert.True(t, strings.HasPrefix(src, mitexImport), src)
	assert.Contains(t, src, "#strong[b]")
	assert.Contains(t, src, `#text(fill: rgb("#ff0000"))[red]`)
	assert.Contains(t, src, "$x^2$")
	assert.Contains(t, src, `#mitex("\\frac{1}{2}")`)
	assert.Contains(t, src, "\n- item\n2. two")
}

func TestGenerate_Escape(t *testing.T) {
	assert.Equal(t, `a\*b\_c \#x \@y \$`, escapeText("a*b_c #x @y $"))
	assert.Equal(t, `"say \"hi\"\n"`, quote("say \"hi\"\n"))
	assert.Equal(t, "````", rawFence("```"))
}

func TestGenerate_Table(t *testing.T) {
	p := table.New(3, 3)
	p = table.SetContent(p, 0, 0, "A")
	p = table.MergeRect(p, 0, 0, 0, 1)
	p.Style = table.StyleThreeLine
	p.Caption = "Results"

	src := New(WithPreamble(""), WithoutMarkers()).Generate(&document.Document{Blocks: document.Blocks{
		{ID: "t", Type: document.TypeTable, Content: table.Marshal(p)},
	}})

	assert.Contains(t, src, "columns: 3")
	assert.Contains(t, src, "table.cell(rowspan: 1, colspan: 2)[A]")
	assert.Equal(t, 3, strings.Count(src, "table.hline"))
	assert.Contains(t, src, "caption: [Results]")
}

func TestGenerate_MathBlock(t *testing.T) {
	src := New(WithPreamble(""), WithoutMarkers()).Generate(&document.Document{Blocks: document.Blocks{
		{ID: "m1", Type: document.TypeMath, MathFormat: "typst", MathLines: []string{"x = 1", "y = 2"}, MathBrace: true},
		{ID: "m2", Type: document.TypeMath, MathFormat: "latex", MathLatex: `\alpha`},
	}})

	assert.Contains(t, src, "$ cases(x = 1, y = 2) $")
	assert.Contains(t, src, `#mitex("\\alpha")`)
}

func TestGenerate_ImageAndChart(t *testing.T) {
	d := chart.Default()
	d.Title = "Fit"
	d.ImageURL = "https://cdn/chart.png"

	src := New(WithPreamble(""), WithoutMarkers()).Generate(&document.Document{Blocks: document.Blocks{
		{ID: "i", Type: document.TypeImage, Content: "https://cdn/a.png", Width: "50%", Caption: "Setup"},
		{ID: "c", Type: document.TypeChart, Content: chart.Marshal(d)},
		document.NewBlock("c2", document.TypeChart),
	}})

	assert.Contains(t, src, `#figure(image("https://cdn/a.png", width: 50%), caption: [Setup])`)
	assert.Contains(t, src, `image("https://cdn/chart.png", width: 80%), caption: [Fit]`)
	assert.Contains(t, src, `\[scatter\]`)
}
