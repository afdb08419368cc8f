package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Gateway struct {
		Addr      string  `koanf:"addr"`
		RateLimit float64 `koanf:"rate_limit"`
		Metrics   bool    `koanf:"metrics_enabled"`
	} `koanf:"gateway"`
	ServiceLayer struct {
		Host         string        `koanf:"host"`
		Port         int           `koanf:"port"`
		LoginTimeout time.Duration `koanf:"login_timeout"`
	} `koanf:"servicelayer"`
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	assert.Equal(t, DefaultEnvPrefix, l.envPrefix)

	l = NewLoader(WithEnvPrefix("X_"), WithConfigFile("/etc/sl.yaml"))
	assert.Equal(t, "X_", l.envPrefix)
	assert.Equal(t, "/etc/sl.yaml", l.FilePath())
}

func TestLoader_Layers(t *testing.T) {
	path := writeFile(t, `
gateway:
  addr: "127.0.0.1:8080"
  rate_limit: 5
servicelayer:
  host: https://file.example.com
  port: 50000
  login_timeout: 10s
`)
	t.Setenv("SLTEST_SERVICELAYER__HOST", "https://env.example.com")
	t.Setenv("SLTEST_GATEWAY__RATE_LIMIT", "")

	l := NewLoader(WithEnvPrefix("SLTEST_"), WithConfigFile(path))
	require.NoError(t, l.LoadMap(map[string]any{"gateway.addr": ":9000", "gateway.metrics_enabled": true}))

	var cfg testConfig
	require.NoError(t, l.Load(&cfg))

	assert.Equal(t, "127.0.0.1:8080", cfg.Gateway.Addr, "file overrides defaults")
	assert.True(t, cfg.Gateway.Metrics, "default kept")
	assert.Equal(t, float64(5), cfg.Gateway.RateLimit, "empty env does not override")
	assert.Equal(t, "https://env.example.com", cfg.ServiceLayer.Host, "env overrides file")
	assert.Equal(t, 50000, cfg.ServiceLayer.Port)
	assert.Equal(t, 10*time.Second, cfg.ServiceLayer.LoginTimeout)

	// Flags are loaded last.
	require.NoError(t, l.LoadMap(map[string]any{"servicelayer.port": 50001}))
	require.NoError(t, l.Unmarshal(&cfg))
	assert.Equal(t, 50001, cfg.ServiceLayer.Port)
}

func TestLoader_MissingFile(t *testing.T) {
	var cfg testConfig
	l := NewLoader(WithConfigFile("/nonexistent/config.yaml"))
	assert.Error(t, l.Load(&cfg))

	l = NewLoader(WithConfigFile("/nonexistent/config.yaml"), WithOptionalFile())
	assert.NoError(t, l.Load(&cfg))
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := writeFile(t, "gateway: [unclosed")
	assert.Error(t, NewLoader().LoadFile(path))
}

func TestLoader_Accessors(t *testing.T) {
	l := NewLoader(WithEnvPrefix(""))
	require.NoError(t, l.LoadMap(map[string]any{
		"a.s": "x",
		"a.i": 3,
		"a.b": true,
	}))

	assert.True(t, l.Exists("a.s"))
	assert.False(t, l.Exists("a.missing"))
	assert.Equal(t, "x", l.String("a.s"))
	assert.Equal(t, 3, l.Int("a.i"))
	assert.True(t, l.Bool("a.b"))
	assert.Len(t, l.Keys(), 3)

	var sub struct {
		S string `koanf:"s"`
	}
	require.NoError(t, l.UnmarshalKey("a", &sub))
	assert.Equal(t, "x", sub.S)
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"SERVICELAYER_HOST", "host"},
		{"SERVICELAYER_API_VERSION", "api_version"},
		{"SERVICELAYER_GATEWAY__RATE_LIMIT", "gateway.rate_limit"},
		{"SERVICELAYER_SERVICELAYER__CA_FILE", "servicelayer.ca_file"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EnvKey(DefaultEnvPrefix, tt.name), tt.name)
	}
}
