package config

import (
	"io/fs"
	"path"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const FileName = "labdoc.yaml"

var ErrRootConfigNotFound = errors.New("root configuration file not found")

// Loader finds labdoc.yaml files on a file system. The root file lives at
// the top of the file system; documents in subdirectories may add their
// own files which override it.
type Loader struct {
	fsys     fs.FS
	fileName string
	logger   *zap.Logger
}

type LoaderOption func(*Loader)

func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

func WithFileName(name string) LoaderOption {
	return func(l *Loader) {
		l.fileName = name
	}
}

func NewLoader(fsys fs.FS, opts ...LoaderOption) *Loader {
	l := &Loader{
		fsys:     fsys,
		fileName: FileName,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.fileName == "" {
		panic("config file name is not set")
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}

	return l
}

func (l *Loader) RootConfig() ([]byte, error) {
	data, err := fs.ReadFile(l.fsys, l.fileName)
	if err != nil {
		return nil, ErrRootConfigNotFound
	}
	return data, nil
}

// FindConfigChain returns the contents of every configuration file from the
// root down to the directory of name, root first.
func (l *Loader) FindConfigChain(name string) ([][]byte, error) {
	paths, err := l.findConfigFilesOnPath(name)
	if err != nil {
		return nil, err
	}
	var result [][]byte
	for _, p := range paths {
		data, err := fs.ReadFile(l.fsys, p)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		result = append(result, data)
	}
	return result, nil
}

// Load parses the configuration chain for name. Without any file the
// defaults are returned.
func (l *Loader) Load(name string) (*Config, error) {
	chain, err := l.FindConfigChain(name)
	if err != nil {
		return nil, err
	}
	return ParseYAML(chain...)
}

func (l *Loader) findConfigFilesOnPath(name string) (result []string, _ error) {
	dir, err := l.dirOf(name)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("finding config files on path", zap.String("dir", dir))

	candidates := []string{l.fileName}
	if dir != "." {
		cur := ""
		for _, fragment := range strings.Split(dir, "/") {
			cur = path.Join(cur, fragment)
			candidates = append(candidates, path.Join(cur, l.fileName))
		}
	}

	for _, p := range candidates {
		_, err := fs.Stat(l.fsys, p)
		if err == nil {
			result = append(result, p)
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.WithStack(err)
		}
	}

	l.logger.Debug("found config files", zap.Strings("files", result))
	return result, nil
}

func (l *Loader) dirOf(name string) (string, error) {
	name = path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || name == "." {
		return ".", nil
	}
	info, err := fs.Stat(l.fsys, name)
	if err != nil {
		return "", errors.Wrapf(err, "failed to get the path info for %q", name)
	}
	if info.IsDir() {
		return name, nil
	}
	return path.Dir(name), nil
}
