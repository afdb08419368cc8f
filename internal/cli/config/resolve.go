package config

import (
	"fmt"

	"github.com/yndnr/servicelayer-go/internal/infra/confloader"
	"github.com/yndnr/servicelayer-go/internal/infra/sealbox"
	"github.com/yndnr/servicelayer-go/pkg/servicelayer"
)

// passwordAAD binds a sealed profile password to its profile name.
func passwordAAD(profile string) string {
	return "profile:" + profile
}

// SealPassword stores plain in p sealed for profile.
func SealPassword(box *sealbox.Box, profile string, p *Profile, plain string) error {
	sealed, err := box.SealString(plain, passwordAAD(profile))
	if err != nil {
		return fmt.Errorf("seal password: %w", err)
	}
	p.Password = sealed
	return nil
}

// OpenPassword returns the plain password of p. Passwords written into
// the file by hand are returned unchanged.
func OpenPassword(box *sealbox.Box, profile string, p Profile) (string, error) {
	if !sealbox.IsSealed(p.Password) {
		return p.Password, nil
	}
	if box == nil {
		return "", fmt.Errorf("profile %q: sealed password but no key", profile)
	}
	plain, err := box.OpenString(p.Password, passwordAAD(profile))
	if err != nil {
		return "", fmt.Errorf("profile %q: %w", profile, err)
	}
	return plain, nil
}

// values returns the profile as confloader keys, without zero fields.
func (p Profile) values(password string) map[string]any {
	m := map[string]any{}
	set := func(k string, v any, zero bool) {
		if !zero {
			m[k] = v
		}
	}
	set("host", p.Host, p.Host == "")
	set("port", p.Port, p.Port == 0)
	set("version", p.Version, p.Version == "")
	set("company", p.Company, p.Company == "")
	set("username", p.Username, p.Username == "")
	set("password", password, password == "")
	set("insecure_skip_verify", p.Insecure, !p.Insecure)
	set("ca_file", p.CAFile, p.CAFile == "")
	set("debug", p.Debug, !p.Debug)
	set("login_timeout", p.LoginTimeout, p.LoginTimeout == 0)
	return m
}

// ResolveOptions selects the layers merged by Resolve.
type ResolveOptions struct {
	// Profile is the profile name; "" uses the current profile if any.
	Profile string
	// EnvPrefix defaults to confloader.DefaultEnvPrefix.
	EnvPrefix string
	// Overrides are explicit settings, typically flags, keyed like
	// servicelayer.Config's koanf tags.
	Overrides map[string]any
}

// Resolve builds the connection configuration from the profile, the
// SERVICELAYER_* environment and the overrides, later layers winning.
func Resolve(cfg *CLIConfig, box *sealbox.Box, opts ResolveOptions) (servicelayer.Config, string, error) {
	name := opts.Profile
	explicit := name != ""
	if !explicit {
		name = cfg.CurrentProfile
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = confloader.DefaultEnvPrefix
	}
	l := confloader.NewLoader(confloader.WithEnvPrefix(prefix))

	if name != "" {
		p, ok := cfg.Profile(name)
		switch {
		case ok:
			password, err := OpenPassword(box, name, p)
			if err != nil {
				return servicelayer.Config{}, name, err
			}
			if err := l.LoadMap(p.values(password)); err != nil {
				return servicelayer.Config{}, name, err
			}
		case explicit:
			return servicelayer.Config{}, name, fmt.Errorf("unknown profile %q", name)
		default:
			name = ""
		}
	}

	if err := l.LoadEnv(); err != nil {
		return servicelayer.Config{}, name, err
	}
	if err := l.LoadMap(opts.Overrides); err != nil {
		return servicelayer.Config{}, name, err
	}

	var out servicelayer.Config
	if err := l.Unmarshal(&out); err != nil {
		return servicelayer.Config{}, name, fmt.Errorf("decode connection settings: %w", err)
	}
	return out, name, nil
}
