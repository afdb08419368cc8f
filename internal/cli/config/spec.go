// Package config holds the sl-cli configuration file: saved connection
// profiles and output preferences.
package config

import (
	"time"
)

// CLIConfig is the content of ~/.servicelayer/cli.yaml.
type CLIConfig struct {
	DefaultOutput  string             `yaml:"default_output,omitempty"`
	CurrentProfile string             `yaml:"current_profile,omitempty"`
	Profiles       map[string]Profile `yaml:"profiles,omitempty"`
}

// Profile is a saved connection. Password holds a sealed value.
type Profile struct {
	Host         string        `yaml:"host,omitempty" json:"host"`
	Port         int           `yaml:"port,omitempty" json:"port"`
	Version      string        `yaml:"version,omitempty" json:"version"`
	Company      string        `yaml:"company,omitempty" json:"company"`
	Username     string        `yaml:"username,omitempty" json:"username"`
	Password     string        `yaml:"password,omitempty" json:"-"`
	Insecure     bool          `yaml:"insecure_skip_verify,omitempty" json:"insecure_skip_verify"`
	CAFile       string        `yaml:"ca_file,omitempty" json:"ca_file,omitempty"`
	Debug        bool          `yaml:"debug,omitempty" json:"debug"`
	LoginTimeout time.Duration `yaml:"login_timeout,omitempty" json:"login_timeout,omitempty"`
}

// Default returns an empty configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultOutput: "json",
		Profiles:      make(map[string]Profile),
	}
}

// Profile returns the named profile.
func (c *CLIConfig) Profile(name string) (Profile, bool) {
	p, ok := c.Profiles[name]
	return p, ok
}

// SetProfile stores p under name. The first saved profile becomes current.
func (c *CLIConfig) SetProfile(name string, p Profile) {
	if c.Profiles == nil {
		c.Profiles = make(map[string]Profile)
	}
	c.Profiles[name] = p
	if c.CurrentProfile == "" {
		c.CurrentProfile = name
	}
}

// RemoveProfile deletes name and reports whether it existed.
func (c *CLIConfig) RemoveProfile(name string) bool {
	if _, ok := c.Profiles[name]; !ok {
		return false
	}
	delete(c.Profiles, name)
	if c.CurrentProfile == name {
		c.CurrentProfile = ""
	}
	return true
}
