// Package config defines the sl-gateway configuration structure.
package config

import (
	"time"

	"github.com/yndnr/servicelayer-go/pkg/servicelayer"
)

// GatewayConfig is the root configuration for sl-gateway.
type GatewayConfig struct {
	Gateway      GatewaySection      `koanf:"gateway"`
	ServiceLayer servicelayer.Config `koanf:"servicelayer"`
	Log          LogSection          `koanf:"log"`
}

// GatewaySection configures the HTTP endpoint.
type GatewaySection struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	// RateLimit is the sustained requests per second allowed per client
	// IP; 0 disables limiting. Burst is the bucket size.
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`

	// AllowList restricts clients to these IPs or CIDR blocks. Empty means
	// no restriction.
	AllowList []string `koanf:"allow_list"`

	MetricsEnabled bool `koanf:"metrics_enabled"`
	Audit          bool `koanf:"audit"`

	// RequestTimeout bounds one forwarded call, renewal included.
	RequestTimeout time.Duration `koanf:"request_timeout"`
	// MaxBodyBytes bounds request bodies forwarded to the server.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// KeyFile holds the key that opens a sealed servicelayer.password.
	KeyFile string `koanf:"key_file"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
