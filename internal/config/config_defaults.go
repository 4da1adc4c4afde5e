package config

import (
	_ "embed"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed labdoc.default.yaml
var defaultYAML []byte

var (
	defaultOnce sync.Once
	defaults    Config
	defaultsErr error
)

func newDefault() (*Config, error) {
	defaultOnce.Do(func() {
		defaultsErr = errors.Wrap(yaml.Unmarshal(defaultYAML, &defaults), "failed to decode defaults")
	})
	if defaultsErr != nil {
		return nil, defaultsErr
	}
	cfg := defaults
	cfg.Filters = nil
	return &cfg, nil
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	cfg, err := newDefault()
	if err != nil {
		panic(err)
	}
	return cfg
}
