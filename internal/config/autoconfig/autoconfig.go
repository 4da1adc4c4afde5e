// autoconfig provides a way to create various instances from the [config.Config] like
// [render.Client], [store.FS], [zap.Logger].
//
// For example, to instantiate [store.FS], you can write:
//
//	autoconfig.Invoke(func(s *store.FS) error {
//	    ...
//	})
//
// Treat it as a dependency injection mechanism. Collaborators that are not
// configured are provided as nil.
package autoconfig

import (
	"context"
	"io"
	"io/fs"
	"maps"
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/stateful/godotenv"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/stateful/labdoc/internal/client"
	"github.com/stateful/labdoc/internal/config"
	"github.com/stateful/labdoc/internal/log"
	"github.com/stateful/labdoc/internal/version"
	"github.com/stateful/labdoc/pkg/ai"
	"github.com/stateful/labdoc/pkg/render"
	"github.com/stateful/labdoc/pkg/store"
	"github.com/stateful/labdoc/pkg/upload"
)

// Builder holds a container with every provider registered.
type Builder struct {
	container *dig.Container
}

func NewBuilder() *Builder {
	c := dig.New()
	mustProvide(c.Provide(getLoader))
	mustProvide(c.Provide(getConfig))
	mustProvide(c.Provide(getLogger))
	mustProvide(c.Provide(getHTTPClient))
	mustProvide(c.Provide(getRenderClient))
	mustProvide(c.Provide(getUploadClient))
	mustProvide(c.Provide(getStore))
	mustProvide(c.Provide(getStreamer))
	mustProvide(c.Provide(getFilters))
	mustProvide(c.Provide(getDumpWriter))
	mustProvide(c.Provide(getEnv))
	return &Builder{container: c}
}

// Decorate replaces a provided value, for example the config loader in
// tests.
func (b *Builder) Decorate(decorator interface{}, opts ...dig.DecorateOption) error {
	return dig.RootCause(b.container.Decorate(decorator, opts...))
}

// Invoke is used to invoke the function with the given dependencies.
// The package will automatically figure out how to instantiate them
// using the available configuration.
func (b *Builder) Invoke(function interface{}, opts ...dig.InvokeOption) error {
	return dig.RootCause(b.container.Invoke(function, opts...))
}

var defaultBuilder = NewBuilder()

// Invoke runs function with the process-wide container.
func Invoke(function interface{}, opts ...dig.InvokeOption) error {
	return defaultBuilder.Invoke(function, opts...)
}

// Decorate replaces a value of the process-wide container.
func Decorate(decorator interface{}, opts ...dig.DecorateOption) error {
	return defaultBuilder.Decorate(decorator, opts...)
}

func mustProvide(err error) {
	if err != nil {
		panic("failed to provide: " + err.Error())
	}
}

// DumpWriter receives HTTP dumps when service.debug_http is set.
type DumpWriter io.Writer

func getDumpWriter() DumpWriter { return os.Stderr }

func getLoader() (*config.Loader, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return config.NewLoader(os.DirFS(wd)), nil
}

func getConfig(loader *config.Loader) (*config.Config, error) {
	return loader.Load(".")
}

func getLogger(c *config.Config) (*zap.Logger, error) {
	l, err := log.New(log.Options{
		Enabled: c.Log.Enabled,
		Path:    c.Log.Path,
		Verbose: c.Log.Verbose,
	})
	if err != nil {
		return nil, err
	}
	log.Set(l)
	return l, nil
}

func getHTTPClient(c *config.Config, logger *zap.Logger, dump DumpWriter) *http.Client {
	opts := []client.Option{
		client.WithUserAgent(version.BaseVersion()),
		client.WithRequestID(),
		client.WithLogger(logger.Named("http")),
	}
	if c.Service.DebugHTTP {
		opts = append(opts, client.WithDump(dump))
	}
	return client.NewHTTPClient(nil, c.Service.Timeout, opts...)
}

func getRenderClient(c *config.Config, hc *http.Client, logger *zap.Logger) (*render.Client, error) {
	if c.Service.URL == "" {
		return nil, nil
	}
	return render.NewClient(
		c.Service.URL,
		render.WithHTTPClient(hc),
		render.WithLogger(logger.Named("render")),
	)
}

func getUploadClient(c *config.Config, hc *http.Client, logger *zap.Logger) (*upload.Client, error) {
	if c.Service.URL == "" {
		return nil, nil
	}
	return upload.NewClient(
		c.Service.URL,
		upload.WithHTTPClient(hc),
		upload.WithLogger(logger.Named("upload")),
		upload.WithAllowed("image/*", "application/pdf"),
	)
}

func getStore(c *config.Config, logger *zap.Logger) (*store.FS, error) {
	return store.NewDir(c.Store.Dir, store.WithLogger(logger.Named("store")))
}

// Env holds the process environment on top of the variables of an optional
// .env file in the working directory.
type Env map[string]string

func getEnv() (Env, error) {
	env := Env{}
	data, err := os.ReadFile(".env")
	switch {
	case err == nil:
		values, _, err := godotenv.UnmarshalBytesWithComments(data)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse .env")
		}
		maps.Copy(env, values)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, errors.WithStack(err)
	}
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		env[k] = v
	}
	return env, nil
}

func getStreamer(c *config.Config, env Env, logger *zap.Logger) (ai.Streamer, error) {
	switch c.AI.Provider {
	case config.AIProviderGemini:
		key := env[c.AI.APIKeyEnv]
		if key == "" {
			return nil, errors.Errorf("environment variable %s is not set", c.AI.APIKeyEnv)
		}
		return ai.NewGemini(context.Background(), ai.GeminiConfig{
			APIKey: key,
			Model:  c.AI.Model,
			Logger: logger.Named("gemini"),
		})
	case config.AIProviderRemote:
		if c.Service.URL == "" {
			return nil, errors.New("ai provider \"remote\" requires service.url")
		}
		return ai.NewRemote(c.Service.URL, ai.WithRemoteLogger(logger.Named("chat")))
	default:
		return nil, nil
	}
}

func getFilters(c *config.Config) []*config.Filter {
	return c.Filters
}
