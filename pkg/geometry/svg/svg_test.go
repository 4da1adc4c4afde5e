package svg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stateful/labdoc/pkg/geometry"
)

func assertRect(t *testing.T, want, got geometry.Rect) {
	t.Helper()
	const eps = 1e-9
	assert.InDelta(t, want.L, got.L, eps, "left")
	assert.InDelta(t, want.T, got.T, eps, "top")
	assert.InDelta(t, want.R, got.R, eps, "right")
	assert.InDelta(t, want.B, got.B, eps, "bottom")
}

func TestParseTransform(t *testing.T) {
	m, err := ParseTransform("translate(10 20) scale(2)")
	require.NoError(t, err)
	x, y := m.Apply(1, 1)
	assert.Equal(t, 12.0, x)
	assert.Equal(t, 22.0, y)

	m, err = ParseTransform("rotate(90, 5, 5)")
	require.NoError(t, err)
	x, y = m.Apply(10, 5)
	assert.InDelta(t, 5, x, 1e-9)
	assert.InDelta(t, 10, y, 1e-9)

	m, err = ParseTransform("matrix(1,0,0,-1,0,100)")
	require.NoError(t, err)
	_, y = m.Apply(0, 30)
	assert.Equal(t, 70.0, y)

	_, err = ParseTransform("wobble(1)")
	assert.Error(t, err)
	_, err = ParseTransform("matrix(1 2)")
	assert.Error(t, err)
}

func TestPathExtents(t *testing.T) {
	testCases := []struct {
		d    string
		want geometry.Rect
	}{
		{"M 0 0 L 10 0 L 10 5 Z", geometry.Rect{L: 0, T: 0, R: 10, B: 5}},
		{"m5 5 l10 0 0 10 h-20 v-30z", geometry.Rect{L: -5, T: -15, R: 15, B: 15}},
		{"M0,0C-5,20 15,20 10,0", geometry.Rect{L: -5, T: 0, R: 10, B: 20}},
		{"M1-2.5.5 3", geometry.Rect{L: 0.5, T: -2.5, R: 1, B: 3}},
		{"M 0 0 Q 5 -5 10 0 T 20 0", geometry.Rect{L: 0, T: -5, R: 20, B: 0}},
		{"M 0 0 A 5 5 0 0 1 10 10", geometry.Rect{L: 0, T: 0, R: 10, B: 10}},
		{"M 1e1 0 L 2E1 1", geometry.Rect{L: 10, T: 0, R: 20, B: 1}},
	}
	for _, tc := range testCases {
		t.Run(tc.d, func(t *testing.T) {
			got, ok, err := PathExtents(tc.d)
			require.NoError(t, err)
			require.True(t, ok)
			assertRect(t, tc.want, got)
		})
	}

	_, _, err := PathExtents("10 10")
	assert.Error(t, err)
	_, ok, err := PathExtents("")
	require.NoError(t, err)
	assert.False(t, ok)
}

const page = `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink"
	width="200pt" height="100pt" viewBox="0 0 400 200">
  <defs>
    <symbol id="g1" overflow="visible"><path d="M 0 0 L 10 0 L 10 -10 L 0 -10 Z"/></symbol>
  </defs>
  <rect width="400" height="200" fill="#ffffff"/>
  <g transform="translate(20 20)">
    <path fill="#010203" d="M 0 0 L 1 0 L 1 1 L 0 1 Z"/>
    <g class="typst-text" transform="translate(0 30)">
      <use xlink:href="#g1" x="0"/>
      <use xlink:href="#g1" x="12"/>
    </g>
  </g>
  <text x="20" y="150" font-size="10">hello</text>
</svg>`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, 200.0, doc.Width)
	assert.Equal(t, 100.0, doc.Height)

	var uses, texts []*Node
	doc.Root.Walk(func(n *Node) {
		switch n.Name {
		case "use":
			uses = append(uses, n)
		case "text":
			texts = append(texts, n)
		}
	})
	require.Len(t, uses, 2)
	require.Len(t, texts, 1)

	// viewBox halves everything; the glyph sits above the baseline at y=50.
	b, ok := uses[1].Bounds()
	require.True(t, ok)
	assertRect(t, geometry.Rect{L: 16, T: 20, R: 21, B: 25}, b)

	b, ok = texts[0].Bounds()
	require.True(t, ok)
	assertRect(t, geometry.Rect{L: 10, T: 70, R: 25, B: 76.25}, b)

	markers := geometry.Markers(doc.Root, geometry.Options{})
	require.Len(t, markers, 1)
	b, ok = markers[0].Bounds()
	require.True(t, ok)
	assertRect(t, geometry.Rect{L: 10, T: 10, R: 10.5, B: 10.5}, b)

	_, err = Parse([]byte(`<html></html>`))
	assert.Error(t, err)
	_, err = Parse([]byte(`<svg><g>`))
	assert.Error(t, err)
}

func TestStack(t *testing.T) {
	layout, err := Stack([]string{page, page}, StackOptions{Width: 400, Gap: 10})
	require.NoError(t, err)
	require.Len(t, layout.Pages, 2)
	assertRect(t, geometry.Rect{L: 0, T: 0, R: 400, B: 410}, layout.Container)

	rects := layout.Compute(geometry.Options{})
	require.Len(t, rects, 2)

	// Both pages are drawn at scale 1: the glyphs sit at y 40..50 and the
	// text at 140..152.5, page two repeats them 210 lower. The white page
	// background of page two is too wide to count for block 0.
	assertRect(t, geometry.Rect{L: 20, T: 40, R: 50, B: 152.5}, rects[0])
	assertRect(t, geometry.Rect{L: 20, T: 250, R: 50, B: 362.5}, rects[1])
	assert.Equal(t, 1, geometry.HitTest(rects, 50, 300, geometry.DefaultHitThreshold))

	_, err = Stack([]string{"not svg"}, StackOptions{})
	assert.Error(t, err)

	empty, err := Stack(nil, StackOptions{})
	require.NoError(t, err)
	assert.Nil(t, empty.Compute(geometry.Options{}))
}
