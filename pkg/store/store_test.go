package store

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stateful/labdoc/internal/ulid"
	"github.com/stateful/labdoc/pkg/document"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestStore(t *testing.T) (*FS, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewFS(memfs.New(), WithClock(c.now), WithLogger(zaptest.NewLogger(t))), c
}

func sampleDoc(title string) *document.Document {
	return &document.Document{
		Title: title,
		Blocks: document.Blocks{
			{ID: "1", Type: document.TypeHeading, Level: 1, Content: title},
			document.NewBlock("2", document.TypeTable),
		},
	}
}

func TestFS_CreateGetUpdate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, sampleDoc("Pendulum Lab"))
	require.NoError(t, err)
	assert.True(t, ulid.ValidID(rec.ID))
	assert.Equal(t, "pendulum-lab", rec.Slug)
	assert.Equal(t, 2, rec.Blocks)
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pendulum Lab", got.Document.Title)
	assert.Equal(t, rec.Document.Blocks, got.Document.Blocks)

	doc := got.Document
	doc.Title = "Pendulum Lab II"
	doc.Blocks = doc.Blocks[:1]
	upd, err := s.Update(ctx, rec.ID, doc)
	require.NoError(t, err)
	assert.Equal(t, rec.CreatedAt, upd.CreatedAt)
	assert.True(t, upd.UpdatedAt.After(rec.UpdatedAt))
	assert.Equal(t, "pendulum-lab-ii", upd.Slug)
	assert.Equal(t, 1, upd.Blocks)
}

func TestFS_NotFound(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, ulid.GenerateID())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Update(ctx, ulid.GenerateID(), sampleDoc("x"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, ulid.GenerateID()), ErrNotFound)
	_, err = s.Find(ctx, "nothing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFS_RejectsInvalidDocuments(t *testing.T) {
	s, _ := newTestStore(t)
	doc := &document.Document{Blocks: document.Blocks{{ID: "1", Type: "list"}}}
	_, err := s.Create(context.Background(), doc)
	assert.Error(t, err)
	_, err = s.Create(context.Background(), nil)
	assert.Error(t, err)
}

func TestFS_ListAndFind(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a, err := s.Create(ctx, sampleDoc("Alpha"))
	require.NoError(t, err)
	b, err := s.Create(ctx, sampleDoc("Beta"))
	require.NoError(t, err)
	_, err = s.Update(ctx, a.ID, sampleDoc("Alpha"))
	require.NoError(t, err)

	// Stray files are ignored.
	require.NoError(t, util.WriteFile(s.fs, "notes.txt", []byte("x"), 0o600))
	require.NoError(t, util.WriteFile(s.fs, ulid.GenerateID()+".json", []byte("{"), 0o600))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)

	found, err := s.Find(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, b.ID, found.ID)

	found, err = s.Find(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", found.Title)

	require.NoError(t, s.Delete(ctx, b.ID))
	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFS_UpgradesOnRead(t *testing.T) {
	s, _ := newTestStore(t)
	id := ulid.GenerateID()
	raw := `{"id":"` + id + `","slug":"old","document":[{"id":"1","type":"list","content":"a\nb"}]}`
	require.NoError(t, util.WriteFile(s.fs, id+".json", []byte(raw), 0o600))

	rec, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, rec.Document.Blocks, 1)
	assert.Equal(t, document.TypeParagraph, rec.Document.Blocks[0].Type)
	assert.Equal(t, "- a\n- b", rec.Document.Blocks[0].Content)
}

func TestSlugify(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"Pendulum Lab", "pendulum-lab"},
		{"  Ohm's law -- v2 ", "ohm-s-law-v2"},
		{"Réaction chimique", "reaction-chimique"},
		{"单摆实验 报告", "单摆实验-报告"},
		{"!!!", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Slugify(tc.in))
		})
	}
}
