package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	expected, err := ParseYAML()
	require.NoError(t, err)
	got := Default()
	opts := []cmp.Option{cmpopts.EquateEmpty(), cmpopts.IgnoreUnexported(Filter{})}
	require.True(t, cmp.Equal(expected, got, opts...), "%s", cmp.Diff(expected, got, opts...))

	assert.Equal(t, 150*time.Millisecond, got.Editor.Debounce)
	assert.Equal(t, 150*time.Millisecond, got.Geometry.Settle)
	assert.Equal(t, 50.0, got.Geometry.HitThreshold)
	assert.Equal(t, AIProviderOff, got.AI.Provider)
}

func TestParseYAML(t *testing.T) {
	testCases := []struct {
		name           string
		chain          []string
		check          func(*testing.T, *Config)
		errorSubstring string
	}{
		{
			name:  "override service",
			chain: []string{"version: v1\nservice:\n  url: http://render:9000\n  timeout: 5s\n"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "http://render:9000", c.Service.URL)
				assert.Equal(t, 5*time.Second, c.Service.Timeout)
				assert.Equal(t, ".labdoc", c.Store.Dir)
			},
		},
		{
			name: "later file wins",
			chain: []string{
				"version: v1\nlog:\n  enabled: true\n  verbose: true\n",
				"log:\n  verbose: false\n",
			},
			check: func(t *testing.T, c *Config) {
				assert.True(t, c.Log.Enabled)
				assert.False(t, c.Log.Verbose)
			},
		},
		{
			name:  "filters",
			chain: []string{"version: v1\nfilters:\n  - type: block\n    condition: \"type == 'chart'\"\n"},
			check: func(t *testing.T, c *Config) {
				require.Len(t, c.Filters, 1)
				assert.Equal(t, FilterTypeBlock, c.Filters[0].Type)
			},
		},
		{
			name:           "unknown version",
			chain:          []string{"version: v0\n"},
			errorSubstring: "unknown version: v0",
		},
		{
			name:           "unknown field",
			chain:          []string{"version: v1\nserver:\n  address: x\n"},
			errorSubstring: "failed to decode config",
		},
		{
			name:           "invalid provider",
			chain:          []string{"version: v1\nai:\n  provider: openai\n"},
			errorSubstring: "failed to validate config",
		},
		{
			name:           "invalid filter type",
			chain:          []string{"version: v1\nfilters:\n  - type: cell\n    condition: \"true\"\n"},
			errorSubstring: "failed to validate config",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var chain [][]byte
			for _, c := range tc.chain {
				chain = append(chain, []byte(c))
			}
			cfg, err := ParseYAML(chain...)
			if tc.errorSubstring != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errorSubstring)
				return
			}
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}

func TestEncode(t *testing.T) {
	data, err := Encode(Default())
	require.NoError(t, err)

	cfg, err := ParseYAML(data)
	require.NoError(t, err)
	assert.Equal(t, Default().Service, cfg.Service)
}
