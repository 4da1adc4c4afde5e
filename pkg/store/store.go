// Package store persists documents. Store is the contract the editor
// backend implements; FS is a local implementation over a billy file system.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/stateful/labdoc/internal/ulid"
	"github.com/stateful/labdoc/pkg/document"
)

var ErrNotFound = errors.New("document not found")

// Summary describes a stored document without its blocks.
type Summary struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Blocks    int       `json:"blocks"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Record is a stored document.
type Record struct {
	Summary
	Document *document.Document
}

type Store interface {
	Create(ctx context.Context, doc *document.Document) (Record, error)
	Update(ctx context.Context, id string, doc *document.Document) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
}

const fileExt = ".json"

// file is the on-disk form of a record.
type file struct {
	ID        string          `json:"id"`
	Slug      string          `json:"slug"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Document  json.RawMessage `json:"document"`
}

// FS stores one JSON file per document, named by its id.
type FS struct {
	mu     sync.Mutex
	fs     billy.Filesystem
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*FS)

func WithLogger(logger *zap.Logger) Option {
	return func(s *FS) {
		s.logger = logger
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *FS) {
		s.now = now
	}
}

// NewFS returns a store on fs. A nil fs stores into the current directory.
func NewFS(fs billy.Filesystem, opts ...Option) *FS {
	if fs == nil {
		fs = osfs.New(".")
	}
	s := &FS{fs: fs, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// NewDir returns a store in dir, creating it if needed.
func NewDir(dir string, opts ...Option) (*FS, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "failed to create store directory %s", dir)
	}
	return NewFS(osfs.New(dir), opts...), nil
}

var _ Store = (*FS)(nil)

func (s *FS) Create(ctx context.Context, doc *document.Document) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if err := validate(doc); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	f := file{
		ID:        ulid.GenerateID(),
		Slug:      Slugify(doc.Title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec, err := s.write(f, doc)
	if err != nil {
		return Record{}, err
	}
	s.logger.Debug("created document", zap.String("id", rec.ID), zap.String("slug", rec.Slug))
	return rec, nil
}

func (s *FS) Update(ctx context.Context, id string, doc *document.Document) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if err := validate(doc); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read(id)
	if err != nil {
		return Record{}, err
	}
	f.Slug = Slugify(doc.Title)
	f.UpdatedAt = s.now().UTC()
	return s.write(f, doc)
}

func (s *FS) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read(id)
	if err != nil {
		return Record{}, err
	}
	return s.decode(f)
}

// Find resolves ref as an id first and then as a slug. Among documents
// sharing a slug the most recently updated wins.
func (s *FS) Find(ctx context.Context, ref string) (Record, error) {
	rec, err := s.Get(ctx, ref)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return rec, err
	}
	list, err := s.List(ctx)
	if err != nil {
		return Record{}, err
	}
	for _, sum := range list {
		if sum.Slug == ref {
			return s.Get(ctx, sum.ID)
		}
	}
	return Record{}, errors.Wrapf(ErrNotFound, "%s", ref)
}

// List returns all documents, most recently updated first. Files that
// cannot be decoded are skipped.
func (s *FS) List(ctx context.Context) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.fs.ReadDir("/")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list documents")
	}

	var out []Summary
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), fileExt)
		if e.IsDir() || !ok || !ulid.ValidID(id) {
			continue
		}
		f, err := s.read(id)
		if err != nil {
			s.logger.Warn("skipping unreadable document", zap.String("id", id), zap.Error(err))
			continue
		}
		rec, err := s.decode(f)
		if err != nil {
			s.logger.Warn("skipping undecodable document", zap.String("id", id), zap.Error(err))
			continue
		}
		out = append(out, rec.Summary)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *FS) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ulid.ValidID(id) {
		return errors.Wrapf(ErrNotFound, "%s", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.fs.Remove(id + fileExt)
	if os.IsNotExist(err) {
		return errors.Wrapf(ErrNotFound, "%s", id)
	}
	return errors.Wrapf(err, "failed to delete %s", id)
}

func (s *FS) read(id string) (file, error) {
	if !ulid.ValidID(id) {
		return file{}, errors.Wrapf(ErrNotFound, "%s", id)
	}
	data, err := util.ReadFile(s.fs, id+fileExt)
	if err != nil {
		if os.IsNotExist(err) {
			return file{}, errors.Wrapf(ErrNotFound, "%s", id)
		}
		return file{}, errors.Wrapf(err, "failed to read %s", id)
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return file{}, errors.Wrapf(err, "failed to decode %s", id)
	}
	if f.ID != id {
		return file{}, errors.Errorf("document %s is stored under %s", f.ID, id)
	}
	return f, nil
}

func (s *FS) decode(f file) (Record, error) {
	doc, _, err := document.Load(f.Document)
	if err != nil {
		return Record{}, errors.Wrapf(err, "document %s", f.ID)
	}
	return Record{
		Summary: Summary{
			ID:        f.ID,
			Slug:      f.Slug,
			Title:     doc.Title,
			Blocks:    len(doc.Blocks),
			CreatedAt: f.CreatedAt,
			UpdatedAt: f.UpdatedAt,
		},
		Document: doc,
	}, nil
}

// write replaces the file of f through a temporary file and a rename.
func (s *FS) write(f file, doc *document.Document) (Record, error) {
	raw, err := doc.Marshal()
	if err != nil {
		return Record{}, err
	}
	f.Document = raw

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return Record{}, errors.WithStack(err)
	}

	name := f.ID + fileExt
	tmp := path.Join(".tmp", name)
	if err := util.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return Record{}, errors.Wrapf(err, "failed to write %s", f.ID)
	}
	if err := s.fs.Rename(tmp, name); err != nil {
		_ = s.fs.Remove(tmp)
		return Record{}, errors.Wrapf(err, "failed to write %s", f.ID)
	}
	return s.decode(f)
}

func validate(doc *document.Document) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	return errors.Wrap(document.Validate(doc.Blocks), "invalid document")
}

// Slugify lowercases title, drops accents and joins the remaining letters
// and digits with dashes. Letters of any script are kept.
func Slugify(title string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}

	var (
		b    strings.Builder
		dash bool
	)
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}
