package servicelayer

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullConfig() Config {
	return Config{
		Host:     "https://sap.example.com",
		Port:     50000,
		Version:  "v1",
		Company:  "SBODEMOUS",
		Username: "manager",
		Password: "secret",
	}
}

func TestConfig_Merge(t *testing.T) {
	base := fullConfig()

	tests := []struct {
		name   string
		update Config
		want   func(c *Config)
	}{
		{"empty update", Config{}, func(*Config) {}},
		{"host and port", Config{Host: "https://other", Port: 50001}, func(c *Config) {
			c.Host = "https://other"
			c.Port = 50001
		}},
		{"password only", Config{Password: "new"}, func(c *Config) { c.Password = "new" }},
		{"debug on", Config{Debug: Bool(true)}, func(c *Config) { c.Debug = Bool(true) }},
		{"insecure off", Config{InsecureSkipVerify: Bool(false)}, func(c *Config) { c.InsecureSkipVerify = Bool(false) }},
		{"ca and timeout", Config{CAFile: "/etc/ca.pem", LoginTimeout: time.Second}, func(c *Config) {
			c.CAFile = "/etc/ca.pem"
			c.LoginTimeout = time.Second
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := base
			tt.want(&want)
			assert.Equal(t, want, base.Merge(tt.update))
		})
	}
}

func TestConfig_MergeTurnsSwitchOff(t *testing.T) {
	c := Config{Debug: Bool(true)}.Merge(Config{Debug: Bool(false)})
	assert.False(t, c.DebugEnabled())
}

func TestConfig_MergeDoesNotAlias(t *testing.T) {
	update := Config{Debug: Bool(true)}
	merged := Config{}.Merge(update)
	*update.Debug = false
	assert.True(t, merged.DebugEnabled())
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, fullConfig().Validate())

	err := Config{Host: "h"}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Contains(t, err.Error(), "missing port, version, company, username, password")

	c := fullConfig()
	c.Port = 70000
	err = c.Validate()
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Contains(t, err.Error(), "out of range")
}

func TestConfig_BaseURL(t *testing.T) {
	tests := []struct {
		host    string
		version string
		want    string
	}{
		{"https://sap.example.com", "v1", "https://sap.example.com:50000/b1s/v1/"},
		{"https://sap.example.com/", "v2", "https://sap.example.com:50000/b1s/v2/"},
		{"sap.example.com", "v1", "https://sap.example.com:50000/b1s/v1/"},
		{"http://10.0.0.5", "/v1/", "http://10.0.0.5:50000/b1s/v1/"},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			c := Config{Host: tt.host, Port: 50000, Version: tt.version}
			assert.Equal(t, tt.want, c.BaseURL())
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	var c Config
	assert.False(t, c.DebugEnabled())
	assert.False(t, c.Insecure())
	assert.Equal(t, DefaultLoginTimeout, c.loginTimeout())

	c.LoginTimeout = 5 * time.Second
	assert.Equal(t, 5*time.Second, c.loginTimeout())
}

func TestConfig_TransportKey(t *testing.T) {
	a := fullConfig()
	b := a.Merge(Config{Password: "x", Company: "OTHER"})
	assert.Equal(t, a.transportKey(), b.transportKey())

	c := a.Merge(Config{InsecureSkipVerify: Bool(true)})
	assert.NotEqual(t, a.transportKey(), c.transportKey())
}

func TestConfig_LogValueHidesPassword(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	l.Info("cfg", "config", fullConfig())

	assert.NotContains(t, buf.String(), "secret")
	assert.Contains(t, buf.String(), "config.password=***")
	assert.Contains(t, buf.String(), "config.company=SBODEMOUS")
}
