package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stateful/labdoc/pkg/document/chart"
	"github.com/stateful/labdoc/pkg/geometry"
)

func TestMarkupRoundTrip(t *testing.T) {
	t.Parallel()

	fragment, err := MarkupToHTML("**a**\nb")
	require.NoError(t, err)
	assert.Contains(t, fragment, "<strong>a</strong>")

	got, err := MarkupFromHTML(fragment)
	require.NoError(t, err)
	assert.Equal(t, "**a**\nb", got)

	assert.Equal(t, "a x", MarkupPlain("**a** $x$"))
}

func TestMigrate(t *testing.T) {
	t.Parallel()

	out, upgraded, err := Migrate(`[{"id":"b1","type":"list","content":"a\nb"}]`)
	require.NoError(t, err)
	assert.True(t, upgraded)
	assert.Contains(t, out, `"type": "paragraph"`)

	_, upgraded, err = Migrate(out)
	require.NoError(t, err)
	assert.False(t, upgraded)

	_, _, err = Migrate("{")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	msgs, err := Validate(`[{"id":"b1","type":"paragraph"},{"id":"b1","type":"paragraph"}]`)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "duplicate id")

	msgs, err = Validate(`[]`)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestChartRequest(t *testing.T) {
	t.Parallel()

	doc := `[{"id":"c1","type":"chart","content":` + quote(chart.Marshal(chart.Default())) + `},{"id":"p1","type":"paragraph"}]`

	out, err := ChartRequest(doc, "c1")
	require.NoError(t, err)
	var req chart.RenderRequest
	require.NoError(t, json.Unmarshal([]byte(out), &req))
	assert.Equal(t, chart.Default().ChartType, req.ChartType)

	_, err = ChartRequest(doc, "p1")
	assert.ErrorContains(t, err, "not a chart")
	_, err = ChartRequest(doc, "missing")
	assert.ErrorContains(t, err, "not found")
}

func TestHitTest(t *testing.T) {
	t.Parallel()

	rects, err := json.Marshal([]geometry.Rect{{L: 0, T: 0, R: 100, B: 50}, {L: 0, T: 60, R: 100, B: 120}})
	require.NoError(t, err)

	i, err := HitTest(string(rects), 10, 70, geometry.DefaultHitThreshold)
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	_, err = HitTest("nope", 0, 0, 1)
	assert.Error(t, err)
}

func TestPageRectsEmpty(t *testing.T) {
	t.Parallel()

	out, err := PageRects(nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestImportTypstExport(t *testing.T) {
	t.Parallel()

	doc, err := Import("# Title\n\nBody text.\n")
	require.NoError(t, err)
	assert.Contains(t, doc, `"type": "heading"`)

	src, err := Typst(doc, false)
	require.NoError(t, err)
	assert.Contains(t, src, "Title")
	assert.NotContains(t, src, geometry.MarkerFill)

	page, err := Export(doc, "github")
	require.NoError(t, err)
	assert.Contains(t, page, "Body text.")
}

func quote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
