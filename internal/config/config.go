package config

import (
	"bytes"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the configuration of labdoc read from labdoc.yaml files.
type Config struct {
	Version string `yaml:"version" validate:"required,eq=v1"`

	Service  ServiceConfig  `yaml:"service"`
	Store    StoreConfig    `yaml:"store"`
	AI       AIConfig       `yaml:"ai"`
	Editor   EditorConfig   `yaml:"editor"`
	Geometry GeometryConfig `yaml:"geometry"`
	Log      LogConfig      `yaml:"log"`

	Filters []*Filter `yaml:"filters" validate:"dive"`
}

// ServiceConfig points at the backend handling rendering and uploads.
type ServiceConfig struct {
	URL       string        `yaml:"url" validate:"omitempty,url"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
	DebugHTTP bool          `yaml:"debug_http"`
}

type StoreConfig struct {
	Dir string `yaml:"dir" validate:"required"`
}

const (
	AIProviderOff    = "off"
	AIProviderGemini = "gemini"
	AIProviderRemote = "remote"
)

type AIConfig struct {
	Provider  string `yaml:"provider" validate:"oneof=off gemini remote"`
	Model     string `yaml:"model" validate:"required_unless=Provider off"`
	APIKeyEnv string `yaml:"api_key_env" validate:"required_if=Provider gemini"`
	Thinking  bool   `yaml:"thinking"`
	MaxPages  int    `yaml:"max_pages" validate:"gte=0"`
}

type EditorConfig struct {
	Debounce time.Duration `yaml:"debounce" validate:"gt=0"`
}

type GeometryConfig struct {
	HitThreshold float64       `yaml:"hit_threshold" validate:"gt=0"`
	Settle       time.Duration `yaml:"settle" validate:"gt=0"`
}

type LogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Verbose bool   `yaml:"verbose"`
}

// ParseYAML decodes a chain of configuration files on top of the defaults.
// Later files override fields set by earlier ones.
func ParseYAML(chain ...[]byte) (*Config, error) {
	cfg, err := newDefault()
	if err != nil {
		return nil, err
	}
	for _, data := range chain {
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		version, err := parseVersionFromYAML(data)
		if err != nil {
			return nil, err
		}
		if version != "" && version != cfg.Version {
			return nil, errors.Errorf("unknown version: %s", version)
		}
		if err := decodeStrict(data, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to decode config")
		}
	}
	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to validate config")
	}
	return cfg, nil
}

type versionOnly struct {
	Version string `yaml:"version"`
}

func parseVersionFromYAML(data []byte) (string, error) {
	var result versionOnly

	if err := yaml.Unmarshal(data, &result); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal version")
	}

	return result.Version, nil
}

func decodeStrict(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return errors.WithStack(dec.Decode(cfg))
}

func validateConfig(cfg *Config) error {
	return errors.WithStack(validator.New().Struct(cfg))
}

// Encode returns cfg as YAML.
func Encode(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), errors.WithStack(enc.Close())
}
