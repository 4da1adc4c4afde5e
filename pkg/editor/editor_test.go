package editor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/stateful/labdoc/pkg/document"
	"github.com/stateful/labdoc/pkg/document/chart"
	"github.com/stateful/labdoc/pkg/document/markup"
	"github.com/stateful/labdoc/pkg/document/table"
)

const waitFor = 5 * time.Second

// recorder collects written content. Debounced writes arrive on the fake
// clock's goroutine.
type recorder struct {
	mu     sync.Mutex
	writes []string
}

func (r *recorder) write(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, s)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.writes...)
}

func (r *recorder) len() int {
	return len(r.all())
}

func (r *recorder) last() string {
	writes := r.all()
	if len(writes) == 0 {
		return ""
	}
	return writes[len(writes)-1]
}

func newTestBinding(t *testing.T, content string) (*TextBinding, *NodeSurface, *clockwork.FakeClock, *recorder) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	surface := NewNodeSurface()
	rec := &recorder{}
	b, err := NewTextBinding(surface, content, rec.write, WithClock(clock), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return b, surface, clock, rec
}

func TestTextBinding_DebouncedWrite(t *testing.T) {
	b, surface, clock, rec := newTestBinding(t, "hello")
	assert.Equal(t, "<div>hello</div>", surface.HTML())

	require.NoError(t, surface.SetHTML("<div>hello <b>world</b></div>"))
	b.Input()
	clock.Advance(100 * time.Millisecond)
	b.Input()
	clock.Advance(100 * time.Millisecond)
	assert.Empty(t, rec.all())
	assert.True(t, b.Pending())

	clock.Advance(50 * time.Millisecond)
	require.Eventually(t, func() bool { return rec.len() == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, []string{"hello **world**"}, rec.all())
	assert.Equal(t, "hello **world**", b.LastSynced())
}

func TestTextBinding_BlurFlushes(t *testing.T) {
	b, surface, clock, rec := newTestBinding(t, "a")

	require.NoError(t, surface.SetHTML("<div>ab</div>"))
	b.Input()
	require.NoError(t, b.Blur())
	assert.Equal(t, []string{"ab"}, rec.all())

	clock.Advance(time.Second)
	assert.Never(t, func() bool { return rec.len() != 1 }, 50*time.Millisecond, time.Millisecond)

	require.NoError(t, b.Blur())
	assert.Equal(t, 1, rec.len(), "unchanged content is not written")
}

func TestTextBinding_MarkerLookalikeIsNotWritten(t *testing.T) {
	for _, content := range []string{`\- not a list`, `1\. not a list`} {
		t.Run(content, func(t *testing.T) {
			b, surface, _, rec := newTestBinding(t, content)
			surface.SetFocused(true)
			surface.SetFocused(false)
			require.NoError(t, b.Blur())
			assert.Empty(t, rec.all())
			assert.Equal(t, content, b.LastSynced())

			// Typing after the text keeps it a plain line.
			root, err := surface.Fragment()
			require.NoError(t, err)
			root.FirstChild.AppendChild(markup.NewText("!"))
			require.NoError(t, surface.SetFragment(markup.CloneNodes(children(root))))
			require.NoError(t, b.Blur())
			assert.Equal(t, []string{content + "!"}, rec.all())
		})
	}
}

func TestTextBinding_Refresh(t *testing.T) {
	t.Run("OwnWriteKeepsSurface", func(t *testing.T) {
		b, surface, _, _ := newTestBinding(t, "a")
		surface.SetFocused(true)
		require.NoError(t, surface.SetHTML("<div>ab</div>"))
		require.NoError(t, b.Blur())
		writes := surface.Writes()

		refreshed, err := b.Refresh("ab")
		require.NoError(t, err)
		assert.False(t, refreshed)
		assert.Equal(t, writes, surface.Writes())
	})

	t.Run("ExternalChangeWhileFocused", func(t *testing.T) {
		b, surface, clock, rec := newTestBinding(t, "a")
		surface.SetFocused(true)
		require.NoError(t, surface.SetHTML("<div>typing</div>"))
		b.Input()

		refreshed, err := b.Refresh("**undo**")
		require.NoError(t, err)
		assert.True(t, refreshed)
		assert.Equal(t, "<div><b>undo</b></div>", surface.HTML())

		clock.Advance(time.Second)
		assert.Never(t, func() bool { return rec.len() > 0 }, 50*time.Millisecond, time.Millisecond, "pending typing is dropped")
		assert.Equal(t, "**undo**", b.LastSynced())
	})

	t.Run("DeferredWhileMathOpen", func(t *testing.T) {
		b, surface, _, _ := newTestBinding(t, "x $a$")
		root, err := surface.Fragment()
		require.NoError(t, err)
		pill := findFirstPill(root)
		require.NotNil(t, pill)

		m := NewMathEditor()
		_, err = m.Open(ScopeMain, b, markup.ReadPill(pill).ID)
		require.NoError(t, err)

		refreshed, err := b.Refresh("other")
		require.NoError(t, err)
		assert.False(t, refreshed)
		assert.Contains(t, surface.HTML(), markup.PillClass)

		require.NoError(t, m.Close())
		assert.Equal(t, "<div>other</div>", surface.HTML())
	})
}

func TestTextBinding_Lists(t *testing.T) {
	b, _, _, rec := newTestBinding(t, "1. a\n2. b")

	caret, handled, err := b.Enter(1)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, 2, caret)
	require.NotEmpty(t, rec.all())
	assert.True(t, strings.HasPrefix(rec.last(), "1. a\n2. b"))

	_, handled, err = b.Enter(0)
	require.NoError(t, err)
	assert.True(t, handled)

	b2, _, _, rec2 := newTestBinding(t, "- a\n- ")
	caret, handled, err = b2.Backspace(1)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, 1, caret)
	assert.Equal(t, "- a", rec2.last())

	b3, _, _, _ := newTestBinding(t, "plain")
	_, handled, err = b3.Enter(0)
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestTextBinding_Paste(t *testing.T) {
	b, surface, _, rec := newTestBinding(t, "see")

	handled, err := b.Paste("plain text")
	require.NoError(t, err)
	assert.False(t, handled)

	handled, err = b.Paste(" $$E=mc^2$$")
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "see $$E=mc^2$$", rec.last())
	assert.Contains(t, surface.HTML(), markup.PillClass)
}

func TestMathEditor(t *testing.T) {
	b, _, _, rec := newTestBinding(t, "f: ")
	m := NewMathEditor()

	assert.ErrorIs(t, m.SetSource("x"), ErrNoMathOpen)

	state, err := m.Insert(ScopeMain, b, markup.LaTeX, false)
	require.NoError(t, err)
	assert.Equal(t, ScopeMain, state.Scope)
	assert.NotEmpty(t, state.ID)

	require.NoError(t, m.SetSource(`\alpha`))
	assert.Equal(t, `f: $\alpha$`, rec.last(), "edits flush without waiting for the debounce")

	require.NoError(t, m.SetFormat(markup.Typst))
	require.NoError(t, m.SetSource("alpha"))
	assert.Equal(t, "f: $[typst]alpha$", rec.last())

	require.NoError(t, m.SetFormat(markup.LaTeX))
	got, ok := m.State()
	require.True(t, ok)
	assert.Equal(t, `\alpha`, got.Latex, "the other source is kept")
	assert.Equal(t, "alpha", got.Typst)

	require.NoError(t, m.SetDisplayMode(true))
	assert.Equal(t, `f: $$\alpha$$`, rec.last())

	require.NoError(t, m.Close())
	_, ok = m.State()
	assert.False(t, ok)
	assert.False(t, b.Pending())

	_, err = m.Open(ScopeMain, b, "missing")
	assert.ErrorIs(t, err, ErrPillNotFound)
}

func findFirstPill(n *html.Node) *html.Node {
	if markup.IsPill(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if p := findFirstPill(c); p != nil {
			return p
		}
	}
	return nil
}

func newTestTable(t *testing.T, p table.Payload) (*TableEditor, *recorder) {
	t.Helper()
	rec := &recorder{}
	e := NewTableEditor("t1", table.Marshal(p), func(s string) {
		rec.write(s)
	}, WithClock(clockwork.NewFakeClock()), WithLogger(zaptest.NewLogger(t)))
	return e, rec
}

func filledTable(rows, cols int) table.Payload {
	p := table.New(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			p.Cells[r][c].Content = string(rune('a' + r*cols + c))
		}
	}
	return p
}

func TestTableEditor_Selection(t *testing.T) {
	e, _ := newTestTable(t, filledTable(3, 3))

	e.Click(0, 0, false)
	active, ok := e.Active()
	require.True(t, ok)
	assert.Equal(t, CellRef{0, 0}, active)

	e.Click(1, 2, true)
	sel, ok := e.Selection()
	require.True(t, ok)
	assert.Equal(t, table.Selection{BlockID: "t1", R1: 0, C1: 0, R2: 1, C2: 2}, sel)
	active, _ = e.Active()
	assert.Equal(t, CellRef{0, 0}, active, "shift-click keeps the active cell")

	e.SetSelectionMode(true)
	e.Click(2, 2, false)
	sel, _ = e.Selection()
	assert.True(t, sel.IsSingleCell())
	e.Click(1, 1, false)
	sel, _ = e.Selection()
	assert.Equal(t, table.Selection{BlockID: "t1", R1: 1, C1: 1, R2: 2, C2: 2}, sel)
	e.Click(0, 0, false)
	sel, _ = e.Selection()
	assert.True(t, sel.IsSingleCell(), "the third click starts a new rectangle")

	e.Click(9, 9, false)
	sel, _ = e.Selection()
	assert.Equal(t, 0, sel.R1)
}

func TestTableEditor_MergeUnmerge(t *testing.T) {
	e, rec := newTestTable(t, filledTable(3, 3))

	e.Click(0, 0, false)
	e.Merge()
	assert.Empty(t, rec.all(), "single cell merge is ignored")

	e.Click(1, 1, true)
	e.Merge()
	require.Len(t, rec.all(), 1)
	p := table.Parse(rec.last())
	assert.Equal(t, 2, p.Cells[0][0].Rowspan)
	assert.Equal(t, 2, p.Cells[0][0].Colspan)
	assert.True(t, p.Cells[1][1].Hidden)
	assert.Equal(t, "a", p.Cells[0][0].Content)

	e.Unmerge()
	p = table.Parse(rec.last())
	assert.Equal(t, 1, p.Cells[0][0].Rowspan)
	assert.Equal(t, "a", p.Cells[0][0].Content)
	assert.Empty(t, p.Cells[1][1].Content)
	assert.False(t, p.Cells[1][1].Hidden)
}

func TestTableEditor_Actions(t *testing.T) {
	e, rec := newTestTable(t, filledTable(3, 3))

	e.EditCell(0, 1, "**x**")
	assert.Equal(t, "**x**", table.Parse(rec.last()).Cells[0][1].Content)

	e.SetCaption("Results")
	e.SetStyle(table.StyleThreeLine)
	p := table.Parse(rec.last())
	assert.Equal(t, "Results", p.Caption)
	assert.Equal(t, table.StyleThreeLine, p.Style)

	e.Click(2, 2, false)
	e.Resize(5, 2)
	p = table.Parse(rec.last())
	assert.Equal(t, 5, p.Rows)
	assert.Equal(t, 2, p.Cols)
	assert.Equal(t, "Results", p.Caption)
	_, ok := e.Active()
	assert.False(t, ok, "active cell outside the new grid is dropped")

	n := len(rec.all())
	e.Resize(0, 2)
	assert.Len(t, rec.all(), n)
}

func TestTableEditor_CellBinding(t *testing.T) {
	e, rec := newTestTable(t, filledTable(2, 2))
	surface := NewNodeSurface()

	b, err := e.ActivateCell(1, 0, surface)
	require.NoError(t, err)
	assert.Equal(t, "<div>c</div>", surface.HTML())

	require.NoError(t, surface.SetHTML("<div>c2</div>"))
	b.Input()
	require.NoError(t, e.DeactivateCell())
	assert.Equal(t, "c2", table.Parse(rec.last()).Cells[1][0].Content)

	b, err = e.ActivateCell(1, 0, surface)
	require.NoError(t, err)

	external := filledTable(2, 2)
	external.Cells[1][0].Content = "undone"
	require.NoError(t, e.Sync(table.Marshal(external)))
	assert.Equal(t, "<div>undone</div>", surface.HTML())
	assert.Equal(t, "undone", b.LastSynced())

	require.NoError(t, e.Sync(table.Marshal(table.New(1, 1))))
	_, ok := e.CellBinding()
	assert.False(t, ok, "binding of a removed cell is dropped")

	_, err = e.ActivateCell(5, 5, surface)
	assert.Error(t, err)
}

type fakeRenderer struct {
	url  string
	err  error
	reqs []chart.RenderRequest
}

func (r *fakeRenderer) RenderChart(_ context.Context, req chart.RenderRequest) (string, error) {
	r.reqs = append(r.reqs, req)
	return r.url, r.err
}

func TestChartEditor(t *testing.T) {
	tbl := table.New(2, 2)
	tbl.Cells[0][0].Content = "1"
	tbl.Cells[0][1].Content = "2"
	tbl.Cells[1][0].Content = "3"
	tbl.Cells[1][1].Content = "4"
	resolve := func(id string) (table.Payload, bool) { return tbl, id == "t1" }

	rec := &recorder{}
	renderer := &fakeRenderer{url: "https://img/1.png"}
	e := NewChartEditor("c1", chart.Marshal(chart.Default()), rec.write, resolve, renderer, WithLogger(zaptest.NewLogger(t)))

	e.SetScatterSeries(0, chart.ScatterSeries{
		Name:            "s",
		XSource:         chart.SourceTable,
		YSource:         chart.SourceTable,
		XTableSelection: &table.Selection{BlockID: "t1", R1: 0, C1: 0, R2: 0, C2: 1},
		YTableSelection: &table.Selection{BlockID: "t1", R1: 1, C1: 0, R2: 1, C2: 1},
	})
	e.AddSeries()
	assert.Len(t, e.Data().ScatterSeries, 2)
	e.RemoveSeries(1)
	assert.Len(t, e.Data().ScatterSeries, 1)

	url, err := e.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://img/1.png", url)
	require.Len(t, renderer.reqs, 1)
	assert.Len(t, renderer.reqs[0].Data, 2)
	assert.Equal(t, "https://img/1.png", chart.Parse(rec.last()).ImageURL)

	renderer.err = errors.New("render failed: boom")
	before := e.Data()
	n := len(rec.all())
	_, err = e.Render(context.Background())
	assert.EqualError(t, err, "render failed: boom")
	assert.False(t, e.Loading())
	assert.Equal(t, err, e.Err())
	assert.Equal(t, before, e.Data())
	assert.Len(t, rec.all(), n)

	e.SetType(chart.Pie)
	assert.Equal(t, chart.Pie, e.Data().ChartType)
	assert.NotEmpty(t, e.Data().PieRows)

	e.Sync(chart.Marshal(chart.Default()))
	assert.Equal(t, chart.Scatter, e.Data().ChartType)
}

func TestDragGuard(t *testing.T) {
	var reordered [][2]string
	g := NewDragGuard(func(from, to string) {
		reordered = append(reordered, [2]string{from, to})
	})

	root, err := markup.ParseFragment(`<div class="block"><span class="handle">::</span><div contenteditable="true"><b>text</b></div><input></div>`)
	require.NoError(t, err)
	block := root.FirstChild
	handle := block.FirstChild
	bold := handle.NextSibling.FirstChild
	input := block.LastChild
	require.Equal(t, atom.B, bold.DataAtom)
	require.Equal(t, atom.Input, input.DataAtom)

	assert.True(t, IsEditable(HTMLTarget{Node: bold}))
	assert.True(t, IsEditable(HTMLTarget{Node: input}))
	assert.False(t, IsEditable(HTMLTarget{Node: handle}))

	g.PointerDown(HTMLTarget{Node: bold})
	assert.False(t, g.DragStart("a"))
	assert.False(t, g.Drop("b"))
	g.DragEnd()

	g.PointerDown(HTMLTarget{Node: handle})
	require.True(t, g.DragStart("a"))
	id, ok := g.Dragging()
	assert.True(t, ok)
	assert.Equal(t, "a", id)
	assert.True(t, g.Drop("c"))
	assert.Equal(t, [][2]string{{"a", "c"}}, reordered)

	g.PointerDown(HTMLTarget{Node: handle})
	require.True(t, g.DragStart("a"))
	assert.False(t, g.Drop("a"))
}

func TestPage(t *testing.T) {
	ctrl := document.NewController(document.Blocks{
		{ID: "p", Type: document.TypeParagraph, Content: "one"},
		{ID: "t", Type: document.TypeTable, Content: table.Marshal(table.Default())},
		{ID: "c", Type: document.TypeChart, Content: chart.Marshal(chart.Default())},
	})
	clock := clockwork.NewFakeClock()
	page := NewPage(ctrl, WithClock(clock), WithLogger(zaptest.NewLogger(t)))
	defer func() { require.NoError(t, page.Close()) }()

	surface := NewNodeSurface()
	tb, err := page.BindText("p", surface)
	require.NoError(t, err)
	te, err := page.BindTable("t")
	require.NoError(t, err)
	ce, err := page.BindChart("c", &fakeRenderer{})
	require.NoError(t, err)

	_, err = page.BindTable("p")
	assert.Error(t, err)
	_, err = page.BindText("missing", surface)
	assert.Error(t, err)

	require.NoError(t, surface.SetHTML("<div>one two</div>"))
	tb.Input()
	clock.Advance(DefaultDebounce)
	require.Eventually(t, func() bool {
		b, _ := ctrl.Block("p")
		return b.Content == "one two"
	}, waitFor, time.Millisecond)
	writes := surface.Writes()

	ctrl.Update("p", document.ContentPatch("external"))
	assert.Equal(t, "<div>external</div>", surface.HTML())
	assert.Equal(t, writes+1, surface.Writes())

	te.EditCell(0, 0, "cell")
	tb2, _ := ctrl.Block("t")
	assert.Equal(t, "cell", table.Parse(tb2.Content).Cells[0][0].Content)

	ce.SetType(chart.Bar)
	cb, _ := ctrl.Block("c")
	assert.Equal(t, chart.Bar, chart.Parse(cb.Content).ChartType)

	ctrl.Update("t", document.TypePatch(document.TypeParagraph))
	ctrl.Update("t", document.ContentPatch("now text"))
	assert.Equal(t, "cell", te.Payload().Cells[0][0].Content, "unbound editor no longer follows the block")

	page.Drag().PointerDown(HTMLTarget{Node: markup.NewElement(atom.Div)})
	require.True(t, page.Drag().DragStart("p"))
	page.Drag().Drop("c")
	assert.Equal(t, []string{"c", "t", "p"}, ctrl.Blocks().IDs())
}
