package config

import (
	"fmt"

	"github.com/yndnr/servicelayer-go/internal/infra/confloader"
	"github.com/yndnr/servicelayer-go/internal/infra/sealbox"
)

// passwordAAD binds a sealed gateway password to its use.
const passwordAAD = "gateway:servicelayer.password"

// Load reads the defaults, the YAML file at path (optional when empty) and
// the SL_GATEWAY_* environment, then opens a sealed password.
func Load(path string) (*GatewayConfig, error) {
	cfg := Default()

	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithEnvPrefix(EnvPrefix),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := openPassword(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openPassword(cfg *GatewayConfig) error {
	pw := cfg.ServiceLayer.Password
	if !sealbox.IsSealed(pw) {
		return nil
	}
	if cfg.Gateway.KeyFile == "" {
		return fmt.Errorf("servicelayer.password is sealed but gateway.key_file is not set")
	}
	box, err := sealbox.OpenKeyFile(cfg.Gateway.KeyFile)
	if err != nil {
		return err
	}
	plain, err := box.OpenString(pw, passwordAAD)
	if err != nil {
		return fmt.Errorf("open servicelayer.password: %w", err)
	}
	cfg.ServiceLayer.Password = plain
	return nil
}

// SealPassword seals plain for use as servicelayer.password with the key
// in keyFile, creating the key when missing.
func SealPassword(keyFile, plain string) (string, error) {
	box, err := sealbox.OpenKeyFile(keyFile)
	if err != nil {
		return "", err
	}
	return box.SealString(plain, passwordAAD)
}
