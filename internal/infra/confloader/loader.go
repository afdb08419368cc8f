// Package confloader loads layered configuration with koanf.
//
// Sources are applied in order, later ones winning: defaults (LoadMap),
// the YAML file, SERVICELAYER_* environment variables, then explicit
// overrides such as command-line flags (LoadMap again).
//
// Environment names map to keys by lowercasing and treating a double
// underscore as the nesting separator:
//
//	SERVICELAYER_GATEWAY__RATE_LIMIT -> gateway.rate_limit
//	SERVICELAYER_HOST                -> host
package confloader

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the environment variable prefix.
const DefaultEnvPrefix = "SERVICELAYER_"

// Loader merges configuration sources into one tree.
type Loader struct {
	k            *koanf.Koanf
	envPrefix    string
	filePath     string
	optionalFile bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix. An empty prefix
// disables environment loading.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the YAML file read by Load.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithOptionalFile makes a missing config file a no-op instead of an error.
func WithOptionalFile() Option {
	return func(l *Loader) {
		l.optionalFile = true
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the config file and the environment on top of whatever was
// loaded before, then unmarshals the result into target.
func (l *Loader) Load(target any) error {
	if err := l.LoadFile(l.filePath); err != nil {
		return err
	}
	if err := l.LoadEnv(); err != nil {
		return err
	}
	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// LoadFile merges a YAML file. An empty path is ignored.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if l.optionalFile {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load config file %s: %w", path, err)
	}
	return nil
}

// LoadEnv merges the prefixed environment variables. Variables with an
// empty value are skipped so they cannot blank out file settings.
func (l *Loader) LoadEnv() error {
	if l.envPrefix == "" {
		return nil
	}
	provider := env.ProviderWithValue(l.envPrefix, ".", func(key, value string) (string, any) {
		if value == "" {
			return "", nil
		}
		return EnvKey(l.envPrefix, key), value
	})
	if err := l.k.Load(provider, nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// EnvKey converts an environment variable name to a config key.
func EnvKey(prefix, name string) string {
	s := strings.ToLower(strings.TrimPrefix(name, prefix))
	return strings.ReplaceAll(s, "__", ".")
}

// LoadMap merges a map of dotted or nested keys. Zero-length maps are
// ignored.
func (l *Loader) LoadMap(data map[string]any) error {
	if len(data) == 0 {
		return nil
	}
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	return nil
}

// Unmarshal decodes the merged tree into target using koanf tags.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// UnmarshalKey decodes the subtree at key into target.
func (l *Loader) UnmarshalKey(key string, target any) error {
	return l.k.Unmarshal(key, target)
}

// Exists reports whether key is set by any source.
func (l *Loader) Exists(key string) bool {
	return l.k.Exists(key)
}

// String returns the string value at key.
func (l *Loader) String(key string) string {
	return l.k.String(key)
}

// Int returns the int value at key.
func (l *Loader) Int(key string) int {
	return l.k.Int(key)
}

// Bool returns the bool value at key.
func (l *Loader) Bool(key string) bool {
	return l.k.Bool(key)
}

// Keys returns every loaded key.
func (l *Loader) Keys() []string {
	return l.k.Keys()
}

// FilePath returns the configured file path.
func (l *Loader) FilePath() string {
	return l.filePath
}
