package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// Verify validates the configuration.
func Verify(cfg *GatewayConfig) error {
	if err := verifyGateway(&cfg.Gateway); err != nil {
		return err
	}
	if err := cfg.ServiceLayer.Validate(); err != nil {
		return fmt.Errorf("servicelayer: %w", err)
	}
	return verifyLog(&cfg.Log)
}

func verifyGateway(g *GatewaySection) error {
	if g.Addr == "" {
		return errors.New("gateway.addr is required")
	}
	if _, _, err := net.SplitHostPort(g.Addr); err != nil {
		return fmt.Errorf("gateway.addr: %w", err)
	}
	if (g.TLSCertFile == "") != (g.TLSKeyFile == "") {
		return errors.New("gateway.tls_cert_file and gateway.tls_key_file must be set together")
	}
	for _, f := range []string{g.TLSCertFile, g.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("gateway TLS file: %w", err)
		}
	}
	if g.RateLimit < 0 {
		return errors.New("gateway.rate_limit must not be negative")
	}
	if g.RateLimit > 0 && g.Burst < 1 {
		return errors.New("gateway.burst must be at least 1 when rate limiting")
	}
	for _, entry := range g.AllowList {
		if strings.Contains(entry, "/") {
			if _, _, err := net.ParseCIDR(entry); err != nil {
				return fmt.Errorf("gateway.allow_list: %w", err)
			}
		} else if net.ParseIP(entry) == nil {
			return fmt.Errorf("gateway.allow_list: invalid IP %q", entry)
		}
	}
	if g.RequestTimeout <= 0 {
		return errors.New("gateway.request_timeout must be positive")
	}
	if g.MaxBodyBytes <= 0 {
		return errors.New("gateway.max_body_bytes must be positive")
	}
	return nil
}

func verifyLog(l *LogSection) error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format: unknown format %q", l.Format)
	}
	return nil
}
