package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *GatewayConfig) *GatewayConfig {
	sanitized := *cfg
	sanitized.Gateway.AllowList = append([]string(nil), cfg.Gateway.AllowList...)

	if sanitized.ServiceLayer.Password != "" {
		sanitized.ServiceLayer.Password = maskSecret(sanitized.ServiceLayer.Password)
	}
	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
