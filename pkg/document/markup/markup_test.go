package markup

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func roundTrip(t *testing.T, s string) string {
	t.Helper()
	root := NewElement(atom.Div)
	for _, n := range ToEditableFragment(s) {
		root.AppendChild(n)
	}
	return FromEditableFragment(root)
}

func decode(t *testing.T, fragment string) string {
	t.Helper()
	root, err := ParseFragment(fragment)
	require.NoError(t, err)
	return FromEditableFragment(root)
}

func TestParse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		input string
		want  Line
	}{
		{
			name:  "Bold",
			input: "**a**b",
			want: Line{Inlines: []Inline{
				Text{Value: "a", Style: Style{Bold: true}},
				Text{Value: "b"},
			}},
		},
		{
			name:  "Toggles",
			input: "__i__ ~~s~~ ++u++",
			want: Line{Inlines: []Inline{
				Text{Value: "i", Style: Style{Italic: true}},
				Text{Value: " "},
				Text{Value: "s", Style: Style{Strike: true}},
				Text{Value: " "},
				Text{Value: "u", Style: Style{Underline: true}},
			}},
		},
		{
			name:  "Color",
			input: "{#ff0000|red {blue|in} back} out",
			want: Line{Inlines: []Inline{
				Text{Value: "red ", Style: Style{Color: "#ff0000"}},
				Text{Value: "in", Style: Style{Color: "blue"}},
				Text{Value: " back", Style: Style{Color: "#ff0000"}},
				Text{Value: " out"},
			}},
		},
		{
			name:  "BulletMarker",
			input: "- item",
			want: Line{
				Marker:  Marker{Kind: BulletMarker, Symbol: "-"},
				Inlines: []Inline{Text{Value: "item"}},
			},
		},
		{
			name:  "OrderedMarker",
			input: "12. item",
			want: Line{
				Marker:  Marker{Kind: OrderedMarker, Number: 12},
				Inlines: []Inline{Text{Value: "item"}},
			},
		},
		{
			name:  "InlineMath",
			input: "x $a^2$ y",
			want: Line{Inlines: []Inline{
				Text{Value: "x "},
				Math{Format: LaTeX, Source: "a^2"},
				Text{Value: " y"},
			}},
		},
		{
			name:  "DisplayTypstMath",
			input: "$$[typst]sum_i x_i$$",
			want: Line{Inlines: []Inline{
				Math{Format: Typst, Source: "sum_i x_i", Display: true},
			}},
		},
		{
			name:  "EscapedDollarInMath",
			input: `$a \$ b$`,
			want: Line{Inlines: []Inline{
				Math{Format: LaTeX, Source: `a $ b`},
			}},
		},
		{
			name:  "EscapedBackslashDollarInMath",
			input: `$\\\$5$`,
			want: Line{Inlines: []Inline{
				Math{Format: LaTeX, Source: `\$5`},
			}},
		},
		{
			name:  "UnclosedDollar",
			input: "costs $5",
			want:  Line{Inlines: []Inline{Text{Value: "costs $5"}}},
		},
		{
			name:  "Escapes",
			input: `\*\*not bold\*\* \{x\}`,
			want:  Line{Inlines: []Inline{Text{Value: "**not bold** {x}"}}},
		},
		{
			name:  "SingleToggleCharIsText",
			input: "a*b_c",
			want:  Line{Inlines: []Inline{Text{Value: "a*b_c"}}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseLine(tc.input)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ParseLine() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Parse("").Lines)
	assert.Len(t, Parse("a\n\nb").Lines, 3)
}

func TestFormat(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		line Line
		want string
	}{
		{
			name: "EscapesToggleEdges",
			line: Line{Inlines: []Inline{Text{Value: "*a*", Style: Style{Bold: true}}}},
			want: `**\*a\***`,
		},
		{
			name: "KeepsLoneToggleChar",
			line: Line{Inlines: []Inline{Text{Value: "2 * 3"}}},
			want: "2 * 3",
		},
		{
			name: "EscapesDollarAndBraces",
			line: Line{Inlines: []Inline{Text{Value: "costs $5 {x}"}}},
			want: `costs \$5 \{x\}`,
		},
		{
			name: "EscapesBulletLookalike",
			line: Line{Inlines: []Inline{Text{Value: "- x"}}},
			want: `\- x`,
		},
		{
			name: "EscapesOrderedLookalike",
			line: Line{Inlines: []Inline{Text{Value: "3. x"}}},
			want: `3\. x`,
		},
		{
			name: "ColorAroundToggles",
			line: Line{Inlines: []Inline{Text{Value: "x", Style: Style{Bold: true, Color: "#ff0000"}}}},
			want: "{#ff0000|**x**}",
		},
		{
			name: "TypstMath",
			line: Line{Inlines: []Inline{Math{Format: Typst, Source: "x^2", Display: true}}},
			want: "$$[typst]x^2$$",
		},
		{
			name: "DollarInMathSource",
			line: Line{Inlines: []Inline{Math{Format: LaTeX, Source: "a$b"}}},
			want: `$a\$b$`,
		},
		{
			name: "LaTeXDollarInMathSource",
			line: Line{Inlines: []Inline{Math{Format: LaTeX, Source: `\$5 \\ x`, Display: true}}},
			want: `$$\\\$5 \\ x$$`,
		},
		{
			name: "Marker",
			line: Line{Marker: Marker{Kind: OrderedMarker, Number: 2}, Inlines: []Inline{Text{Value: "b"}}},
			want: "2. b",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := FormatLine(tc.line)
			assert.Equal(t, tc.want, got)
			if diff := cmp.Diff(mergeTexts(tc.line.Inlines), ParseLine(got).Inlines); diff != "" {
				t.Errorf("reparse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"plain",
		"**bold** and __italic__",
		"~~gone~~ ++under++",
		"**__both__**",
		"{#ff0000|red} text",
		"x $a^2$ y",
		`$$\sum_i x_i$$`,
		"$[typst]x^2$ and $$[typst]y$$",
		"- one\n- two",
		"1. a\n2. b\n3. c",
		"first\n\nthird",
		"2 * 3 = 6",
		`costs \$5`,
		"**a**$x$**b**",
		`\- not a list`,
		`1\. not a list`,
		`**\- bold** lookalike`,
		`$a\$b$`,
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			want := Format(Parse(input))
			assert.Equal(t, want, roundTrip(t, input))
		})
	}
}

func TestFromEditableFragment_KeepsMarkerLookalikes(t *testing.T) {
	t.Parallel()

	for _, input := range []string{`\- not a list`, `1\. not a list`, "- a\n\\- b"} {
		t.Run(input, func(t *testing.T) {
			got := roundTrip(t, input)
			assert.Equal(t, input, got)
			assert.Equal(t, Parse(input).Lines[0].Marker, Parse(got).Lines[0].Marker)
		})
	}

	// Typed markers are still lifted.
	assert.Equal(t, "- typed", decode(t, "<div>- typed</div>"))
}

func TestToEditableFragment(t *testing.T) {
	t.Parallel()

	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, ToEditableFragment(""))
	})

	t.Run("EmptyLineIsBreak", func(t *testing.T) {
		nodes := ToEditableFragment("a\n\nb")
		require.Len(t, nodes, 3)
		br := nodes[1].FirstChild
		require.NotNil(t, br)
		assert.Equal(t, atom.Br, br.DataAtom)
		assert.Nil(t, br.NextSibling)
	})

	t.Run("Pill", func(t *testing.T) {
		nodes := ToEditableFragment("$$x$$")
		require.Len(t, nodes, 1)
		pill := nodes[0].FirstChild
		require.True(t, IsPill(pill))
		assert.Equal(t, "false", Attr(pill, "contenteditable"))
		assert.Equal(t, PillGlyph, pill.FirstChild.Data)

		state := ReadPill(pill)
		assert.Equal(t, LaTeX, state.Format)
		assert.Equal(t, "x", state.Latex)
		assert.True(t, state.Display)
		assert.NotEmpty(t, state.ID)
	})

	t.Run("Styles", func(t *testing.T) {
		nodes := ToEditableFragment("{#00ff00|**x**}")
		out, err := RenderNodes(nodes)
		require.NoError(t, err)
		assert.Equal(t, `<div><span style="color: #00ff00"><b>x</b></span></div>`, out)
	})
}

func TestFromEditableFragment(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		fragment string
		want     string
	}{
		{
			name:     "Synonyms",
			fragment: "<strong>a</strong><em>b</em><del>c</del><strike>d</strike><ins>e</ins>",
			want:     "**a**__b__~~cd~~++e++",
		},
		{
			name:     "InlineCSS",
			fragment: `<span style="font-weight: bold; color: rgb(255, 0, 0)">x</span>`,
			want:     "{#ff0000|**x**}",
		},
		{
			name:     "FontColor",
			fragment: `<font color="Blue">x</font>`,
			want:     "{blue|x}",
		},
		{
			name:     "Lines",
			fragment: "<div>a</div><div><br></div><div>b</div>",
			want:     "a\n\nb",
		},
		{
			name:     "LeadingTextLine",
			fragment: "a<div>b</div>",
			want:     "a\nb",
		},
		{
			name:     "TrailingBlankLinesCollapse",
			fragment: "<div>a</div><div><br></div><div>&nbsp;</div><div> </div>",
			want:     "a",
		},
		{
			name:     "NonBreakingSpace",
			fragment: "<div>a&nbsp;b</div>",
			want:     "a b",
		},
		{
			name:     "NativeLists",
			fragment: "<ul><li>a</li><li>b</li></ul><ol><li>x</li><li>y</li></ol>",
			want:     "- a\n- b\n1. x\n2. y",
		},
		{
			name:     "OrderedStart",
			fragment: `<ol start="3"><li>x</li></ol>`,
			want:     "3. x",
		},
		{
			name:     "ListItemWithParagraph",
			fragment: "<ul><li><p>a</p></li><li><br></li></ul>",
			want:     "- a\n- ",
		},
		{
			name:     "TypedMarkers",
			fragment: "<div>1. one</div><div>2. two</div>",
			want:     "1. one\n2. two",
		},
		{
			name:     "Pill",
			fragment: `<span class="math-pill" contenteditable="false" data-math-format="typst" data-math-latex="" data-math-typst="x^2" data-math-display="false">∑</span>`,
			want:     "$[typst]x^2$",
		},
		{
			name:     "Paragraphs",
			fragment: "<p>a</p><p>b</p>",
			want:     "a\nb",
		},
		{
			name:     "BrInsideLine",
			fragment: "<div>a<br>b</div>",
			want:     "a\nb",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, decode(t, tc.fragment))
		})
	}
}

func TestPlainText(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "a x\n- b", PlainText("**a** $x$\n- b"))
	assert.Equal(t, "10", PlainText("__10__"))
}

func TestSplitDisplayMath(t *testing.T) {
	t.Parallel()

	got := SplitDisplayMath("see $$x^2$$ now")
	want := []Inline{
		Text{Value: "see "},
		Math{Format: LaTeX, Source: "x^2", Display: true},
		Text{Value: " now"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SplitDisplayMath() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []Inline{Text{Value: "\u00e9"}}, SplitDisplayMath("e\u0301"))
	assert.True(t, ContainsDisplayMath("a $$b$$"))
	assert.False(t, ContainsDisplayMath("a $b$"))
}

func TestPasteFragment(t *testing.T) {
	t.Parallel()

	nodes := PasteFragment("a\r\nb $$y$$")
	require.Len(t, nodes, 4)
	assert.Equal(t, html.TextNode, nodes[0].Type)
	assert.Equal(t, "a", nodes[0].Data)
	assert.Equal(t, atom.Br, nodes[1].DataAtom)
	assert.Equal(t, "b ", nodes[2].Data)
	require.True(t, IsPill(nodes[3]))

	state := ReadPill(nodes[3])
	assert.True(t, state.Display)
	assert.Equal(t, "y", state.Latex)
}

func TestEnter(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		lines   []string
		idx     int
		want    []string
		caret   int
		handled bool
	}{
		{
			name:    "ContinuesOrdered",
			lines:   []string{"1. a"},
			want:    []string{"1. a", "2. "},
			caret:   1,
			handled: true,
		},
		{
			name:    "ContinuesBullet",
			lines:   []string{"* a", "next"},
			want:    []string{"* a", "* ", "next"},
			caret:   1,
			handled: true,
		},
		{
			name:  "PlainLine",
			lines: []string{"plain"},
			want:  []string{"plain"},
		},
		{
			name:    "EmptyMarkerExitsAndRenumbers",
			lines:   []string{"1. a", "2. ", "3. b", "4. c", "after"},
			idx:     1,
			want:    []string{"1. a", "", "1. b", "2. c", "after"},
			caret:   1,
			handled: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, caret, handled := Enter(tc.lines, tc.idx)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.caret, caret)
			assert.Equal(t, tc.handled, handled)
		})
	}
}

func TestBackspace(t *testing.T) {
	t.Parallel()

	got, caret, handled := Backspace([]string{"- a", "- "}, 1)
	assert.True(t, handled)
	assert.Equal(t, 1, caret)
	assert.Equal(t, []string{"- a", ""}, got)

	_, _, handled = Backspace([]string{"- a"}, 0)
	assert.False(t, handled)
}

func TestSplitNativeList(t *testing.T) {
	t.Parallel()

	root, err := ParseFragment("<ol><li>a</li><li><br></li><li>b</li><li>c</li></ol>")
	require.NoError(t, err)

	var items []*html.Node
	walk(root, func(n *html.Node) bool {
		if n.DataAtom == atom.Li {
			items = append(items, n)
		}
		return true
	})
	require.Len(t, items, 4)

	assert.Nil(t, SplitNativeList(items[0]))

	line := SplitNativeList(items[1])
	require.NotNil(t, line)
	assert.Equal(t, atom.Div, line.DataAtom)
	assert.Equal(t, "1. a\n\n1. b\n2. c", FromEditableFragment(root))
}

func TestFindPill(t *testing.T) {
	t.Parallel()

	root := NewElement(atom.Div)
	pill := NewPill(Math{Format: LaTeX, Source: "x"}, "m-test")
	root.AppendChild(pill)

	assert.Same(t, pill, FindPill(root, "m-test"))
	assert.Nil(t, FindPill(root, "missing"))

	WritePill(pill, PillState{ID: "m-test", Format: Typst, Latex: "x", Typst: "y"})
	assert.Equal(t, "$[typst]y$", FromEditableFragment(root))
}
