package config

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewLoader(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		NewLoader(fstest.MapFS{}, WithFileName(""))
	})
}

func TestLoader_RootConfig(t *testing.T) {
	t.Parallel()

	t.Run("without root config", func(t *testing.T) {
		t.Parallel()

		loader := NewLoader(fstest.MapFS{}, WithLogger(zaptest.NewLogger(t)))
		result, err := loader.RootConfig()
		require.ErrorIs(t, err, ErrRootConfigNotFound)
		require.Nil(t, result)
	})

	t.Run("with root config", func(t *testing.T) {
		t.Parallel()

		data := []byte("version: v1\n")
		fsys := fstest.MapFS{FileName: {Data: data}}
		loader := NewLoader(fsys, WithLogger(zaptest.NewLogger(t)))
		result, err := loader.RootConfig()
		require.NoError(t, err)
		require.Equal(t, data, result)
	})
}

func TestLoader_FindConfigChain(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		FileName:                           {Data: []byte("root")},
		"reports/" + FileName:              {Data: []byte("reports")},
		"reports/2024/lab1.json":           {Data: []byte("[]")},
		"reports/2024/physics/" + FileName: {Data: []byte("physics")},
		"other/doc.json":                   {Data: []byte("[]")},
	}
	loader := NewLoader(fsys, WithLogger(zaptest.NewLogger(t)))

	testCases := []struct {
		name     string
		path     string
		expected []string
	}{
		{name: "root", path: "", expected: []string{"root"}},
		{name: "file in nested dir", path: "reports/2024/lab1.json", expected: []string{"root", "reports"}},
		{name: "nested dir", path: "reports/2024/physics", expected: []string{"root", "reports", "physics"}},
		{name: "sibling", path: "other/doc.json", expected: []string{"root"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			chain, err := loader.FindConfigChain(tc.path)
			require.NoError(t, err)
			var got []string
			for _, c := range chain {
				got = append(got, string(c))
			}
			assert.Equal(t, tc.expected, got)
		})
	}

	_, err := loader.FindConfigChain("missing/doc.json")
	assert.Error(t, err)
}

func TestLoader_Load(t *testing.T) {
	fsys := fstest.MapFS{
		FileName:          {Data: []byte("version: v1\nservice:\n  url: https://render.example.com\n")},
		"sub/" + FileName: {Data: []byte("version: v1\nai:\n  provider: remote\n")},
	}
	cfg, err := NewLoader(fsys).Load("sub")
	require.NoError(t, err)
	assert.Equal(t, "https://render.example.com", cfg.Service.URL)
	assert.Equal(t, AIProviderRemote, cfg.AI.Provider)
	assert.Equal(t, ".labdoc", cfg.Store.Dir)
}
