package autoconfig

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stateful/labdoc/internal/config"
	"github.com/stateful/labdoc/pkg/ai"
	"github.com/stateful/labdoc/pkg/render"
	"github.com/stateful/labdoc/pkg/store"
	"github.com/stateful/labdoc/pkg/upload"
)

func newBuilder(t *testing.T, yaml string) *Builder {
	t.Helper()
	builder := NewBuilder()
	configRootFS := fstest.MapFS{
		config.FileName: {Data: []byte(yaml)},
	}
	err := builder.Decorate(func() (*config.Loader, error) {
		return config.NewLoader(configRootFS), nil
	})
	require.NoError(t, err)
	return builder
}

func TestInvoke_Config(t *testing.T) {
	dir := t.TempDir()
	builder := newBuilder(t, "version: v1\nstore:\n  dir: "+filepath.ToSlash(dir)+"\nfilters:\n  - type: block\n    condition: \"type == 'chart'\"\n")

	err := builder.Invoke(func(
		cfg *config.Config,
		logger *zap.Logger,
		filters []*config.Filter,
		s *store.FS,
	) error {
		assert.Equal(t, filepath.ToSlash(dir), cfg.Store.Dir)
		assert.NotNil(t, logger)
		assert.Len(t, filters, 1)
		assert.NotNil(t, s)
		return nil
	})
	require.NoError(t, err)
}

func TestInvoke_ServiceClients(t *testing.T) {
	t.Run("NoServiceInConfig", func(t *testing.T) {
		builder := newBuilder(t, "version: v1\nservice:\n  url: \"\"\n")
		err := builder.Invoke(func(
			rc *render.Client,
			uc *upload.Client,
			s ai.Streamer,
		) error {
			assert.Nil(t, rc)
			assert.Nil(t, uc)
			assert.Nil(t, s)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("ServiceInConfig", func(t *testing.T) {
		var userAgent, requestID string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userAgent = r.UserAgent()
			requestID = r.Header.Get("X-Request-ID")
			_, _ = w.Write([]byte(`{"pages":["<svg/>"]}`))
		}))
		defer srv.Close()

		builder := newBuilder(t, "version: v1\nservice:\n  url: "+srv.URL+"\n  debug_http: true\nai:\n  provider: remote\n")
		var dump bytes.Buffer
		require.NoError(t, builder.Decorate(func() DumpWriter { return &dump }))

		err := builder.Invoke(func(rc *render.Client, s ai.Streamer) error {
			require.NotNil(t, rc)
			assert.IsType(t, &ai.Remote{}, s)

			pages, err := rc.Preview(t.Context(), "= A")
			require.NoError(t, err)
			assert.Equal(t, []string{"<svg/>"}, pages)
			return nil
		})
		require.NoError(t, err)
		assert.Contains(t, userAgent, "labdoc/")
		assert.NotEmpty(t, requestID)
		assert.Contains(t, dump.String(), "/api/render/preview")
	})
}

func TestInvoke_GeminiRequiresKey(t *testing.T) {
	t.Setenv("LABDOC_TEST_GEMINI_KEY", "")
	builder := newBuilder(t, "version: v1\nai:\n  provider: gemini\n  api_key_env: LABDOC_TEST_GEMINI_KEY\n")
	err := builder.Invoke(func(ai.Streamer) error { return nil })
	assert.ErrorContains(t, err, "LABDOC_TEST_GEMINI_KEY")
}

func TestInvoke_GeminiKeyFromEnv(t *testing.T) {
	builder := newBuilder(t, "version: v1\nai:\n  provider: gemini\n  api_key_env: LABDOC_TEST_GEMINI_KEY\n")
	require.NoError(t, builder.Decorate(func() Env {
		return Env{"LABDOC_TEST_GEMINI_KEY": "secret"}
	}))
	err := builder.Invoke(func(s ai.Streamer) error {
		assert.IsType(t, &ai.Gemini{}, s)
		return nil
	})
	require.NoError(t, err)
}

func TestInvoke_InvalidConfig(t *testing.T) {
	builder := newBuilder(t, "version: v2\n")
	err := builder.Invoke(func(*config.Config) error { return nil })
	assert.ErrorContains(t, err, "unknown version")
}
