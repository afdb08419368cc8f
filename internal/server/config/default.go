package config

import "time"

// Default configuration values.
const (
	DefaultAddr           = "127.0.0.1:8450"
	DefaultRateLimit      = 50
	DefaultBurst          = 100
	DefaultRequestTimeout = 60 * time.Second
	DefaultMaxBodyBytes   = 10 << 20

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// SL_GATEWAY_SERVICELAYER__PASSWORD for servicelayer.password.
const EnvPrefix = "SL_GATEWAY_"

// Default returns the default gateway configuration.
func Default() *GatewayConfig {
	return &GatewayConfig{
		Gateway: GatewaySection{
			Addr:           DefaultAddr,
			RateLimit:      DefaultRateLimit,
			Burst:          DefaultBurst,
			MetricsEnabled: true,
			Audit:          true,
			RequestTimeout: DefaultRequestTimeout,
			MaxBodyBytes:   DefaultMaxBodyBytes,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
