package servicelayer

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultLoginTimeout bounds a single login call when Config.LoginTimeout is zero.
const DefaultLoginTimeout = 30 * time.Second

// Config is the connection configuration of a Client.
//
// A Config passed to CreateSession or Configure is a partial update: its
// non-zero fields replace the stored ones and zero fields keep the stored
// value. Boolean switches are pointers so an update can turn them off.
type Config struct {
	// Host is the server base address including the scheme,
	// e.g. "https://sap.example.com". "https://" is assumed when missing.
	Host     string `koanf:"host" yaml:"host,omitempty"`
	Port     int    `koanf:"port" yaml:"port,omitempty"`
	Version  string `koanf:"version" yaml:"version,omitempty"`
	Company  string `koanf:"company" yaml:"company,omitempty"`
	Username string `koanf:"username" yaml:"username,omitempty"`
	Password string `koanf:"password" yaml:"-"`

	// Debug turns on diagnostic log lines for session handling.
	Debug *bool `koanf:"debug" yaml:"debug,omitempty"`

	// InsecureSkipVerify disables TLS certificate verification.
	// Off unless set explicitly.
	InsecureSkipVerify *bool `koanf:"insecure_skip_verify" yaml:"insecure_skip_verify,omitempty"`

	// CAFile is an optional PEM bundle trusted in addition to the system roots.
	CAFile string `koanf:"ca_file" yaml:"ca_file,omitempty"`

	// LoginTimeout bounds one login call. Defaults to DefaultLoginTimeout.
	LoginTimeout time.Duration `koanf:"login_timeout" yaml:"login_timeout,omitempty"`
}

// Bool returns a pointer to b, for the optional switches of Config.
func Bool(b bool) *bool {
	return &b
}

// Merge returns c overlaid with the non-zero fields of update.
func (c Config) Merge(update Config) Config {
	merged := c
	if update.Host != "" {
		merged.Host = update.Host
	}
	if update.Port != 0 {
		merged.Port = update.Port
	}
	if update.Version != "" {
		merged.Version = update.Version
	}
	if update.Company != "" {
		merged.Company = update.Company
	}
	if update.Username != "" {
		merged.Username = update.Username
	}
	if update.Password != "" {
		merged.Password = update.Password
	}
	if update.Debug != nil {
		merged.Debug = Bool(*update.Debug)
	}
	if update.InsecureSkipVerify != nil {
		merged.InsecureSkipVerify = Bool(*update.InsecureSkipVerify)
	}
	if update.CAFile != "" {
		merged.CAFile = update.CAFile
	}
	if update.LoginTimeout != 0 {
		merged.LoginTimeout = update.LoginTimeout
	}
	return merged
}

// Validate checks that every field needed for a login is present.
func (c Config) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "host")
	}
	if c.Port <= 0 {
		missing = append(missing, "port")
	}
	if c.Version == "" {
		missing = append(missing, "version")
	}
	if c.Company == "" {
		missing = append(missing, "company")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return ErrInvalidConfig.WithDetails("missing " + strings.Join(missing, ", "))
	}
	if c.Port > 65535 {
		return ErrInvalidConfig.WithDetails(fmt.Sprintf("port %d out of range", c.Port))
	}
	return nil
}

// BaseURL returns "{host}:{port}/b1s/{version}/".
func (c Config) BaseURL() string {
	host := strings.TrimRight(c.Host, "/")
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return fmt.Sprintf("%s:%d/b1s/%s/", host, c.Port, strings.Trim(c.Version, "/"))
}

// DebugEnabled reports whether Debug is set to true.
func (c Config) DebugEnabled() bool {
	return c.Debug != nil && *c.Debug
}

// Insecure reports whether TLS verification is disabled.
func (c Config) Insecure() bool {
	return c.InsecureSkipVerify != nil && *c.InsecureSkipVerify
}

func (c Config) loginTimeout() time.Duration {
	if c.LoginTimeout > 0 {
		return c.LoginTimeout
	}
	return DefaultLoginTimeout
}

// transportKey identifies the settings an HTTP transport is built from.
func (c Config) transportKey() string {
	return fmt.Sprintf("%t|%s", c.Insecure(), c.CAFile)
}

// LogValue implements slog.LogValuer. The password is never rendered.
func (c Config) LogValue() slog.Value {
	password := ""
	if c.Password != "" {
		password = "***"
	}
	return slog.GroupValue(
		slog.String("host", c.Host),
		slog.Int("port", c.Port),
		slog.String("version", c.Version),
		slog.String("company", c.Company),
		slog.String("username", c.Username),
		slog.String("password", password),
		slog.Bool("debug", c.DebugEnabled()),
		slog.Bool("insecure_skip_verify", c.Insecure()),
	)
}
