package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// HomeEnv overrides the configuration directory.
const HomeEnv = "SERVICELAYER_HOME"

// Dir returns the sl-cli configuration directory.
func Dir() string {
	if d := os.Getenv(HomeEnv); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".servicelayer"
	}
	return filepath.Join(home, ".servicelayer")
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	return filepath.Join(Dir(), "cli.yaml")
}

// Paths locates the files kept beside a configuration file.
type Paths struct {
	Config   string
	Key      string
	Sessions string
	History  string
}

// PathsFor returns the Paths for the configuration file at path; ""
// means DefaultConfigPath.
func PathsFor(path string) Paths {
	if path == "" {
		path = DefaultConfigPath()
	}
	dir := filepath.Dir(path)
	return Paths{
		Config:   path,
		Key:      filepath.Join(dir, "key"),
		Sessions: filepath.Join(dir, "sessions"),
		History:  filepath.Join(dir, "history"),
	}
}

// Load reads the configuration at path; "" means DefaultConfigPath. A
// missing file yields Default().
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}
	return cfg, nil
}

// Save writes cfg to path with mode 0600, replacing the file atomically.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to a temp file beside path and renames it
// into place, creating the directory with mode 0700.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
