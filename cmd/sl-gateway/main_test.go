package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yndnr/servicelayer-go/internal/infra/sealbox"
	"github.com/yndnr/servicelayer-go/internal/telemetry/logger"
	"github.com/yndnr/servicelayer-go/pkg/servicelayer"
)

const baseConfig = `
gateway:
  addr: "127.0.0.1:8450"
servicelayer:
  host: https://sl.example.com
  port: 50000
  version: v1
  company: %s
  username: manager
  password: secret
log:
  level: info
`

// recordingClient keeps every replaced config and counts logins.
type recordingClient struct {
	calls  []servicelayer.Config
	logins int
	err    error
}

func (c *recordingClient) Replace(cfg servicelayer.Config) error {
	c.calls = append(c.calls, cfg)
	return nil
}

func (c *recordingClient) CreateSession(context.Context, servicelayer.Config) error {
	c.logins++
	return c.err
}

func writeConfig(t *testing.T, path, company string) {
	t.Helper()
	data := strings.Replace(baseConfig, "%s", company, 1)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
}

func newTestReloader(t *testing.T, client *recordingClient) (*reloader, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	writeConfig(t, path, "TEST")
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	return &reloader{path: path, current: cfg, client: client, log: logger.Nop()}, path
}

func TestReloader_NewCredentialsLogIn(t *testing.T) {
	client := &recordingClient{}
	r, path := newTestReloader(t, client)

	writeConfig(t, path, "OTHER")
	r.reload(context.Background())

	if len(client.calls) != 1 || client.logins != 1 {
		t.Fatalf("replaced %d configs with %d logins, want 1 and 1", len(client.calls), client.logins)
	}
	if client.calls[0].Company != "OTHER" {
		t.Errorf("company = %q, want OTHER", client.calls[0].Company)
	}
	if r.current.ServiceLayer.Company != "OTHER" {
		t.Error("current config should be replaced")
	}
}

func TestReloader_UnchangedSkipsLogin(t *testing.T) {
	client := &recordingClient{}
	r, _ := newTestReloader(t, client)

	r.reload(context.Background())

	if len(client.calls) != 0 || client.logins != 0 {
		t.Errorf("replaced %d configs with %d logins, want none", len(client.calls), client.logins)
	}
}

func TestReloader_InvalidConfigKept(t *testing.T) {
	client := &recordingClient{}
	r, path := newTestReloader(t, client)

	if err := os.WriteFile(path, []byte("gateway:\n  addr: \"\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	r.reload(context.Background())

	if len(client.calls) != 0 {
		t.Error("an invalid config must not trigger a login")
	}
	if r.current.Gateway.Addr != "127.0.0.1:8450" {
		t.Error("current config should be kept")
	}
}

func TestReloader_FailedLoginKeepsCurrent(t *testing.T) {
	client := &recordingClient{err: errors.New("rejected")}
	r, path := newTestReloader(t, client)

	writeConfig(t, path, "OTHER")
	r.reload(context.Background())

	if r.current.ServiceLayer.Company != "TEST" {
		t.Error("a failed login should keep the current config for the next attempt")
	}
}

func TestRunSeal(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "gateway.key")
	in, err := os.CreateTemp(dir, "stdin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := in.WriteString("secret\n"); err != nil {
		t.Fatal(err)
	}
	if _, err := in.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	defer in.Close()

	var out bytes.Buffer
	if err := runSeal(keyFile, in, &out); err != nil {
		t.Fatalf("runSeal() error = %v", err)
	}
	sealed := strings.TrimSpace(out.String())
	if !sealbox.IsSealed(sealed) {
		t.Fatalf("output %q is not sealed", sealed)
	}

	cfgPath := filepath.Join(dir, "gateway.yaml")
	data := strings.Replace(baseConfig, "%s", "TEST", 1)
	data = strings.Replace(data, "password: secret", "password: \""+sealed+"\"", 1)
	data = strings.Replace(data, "gateway:\n", "gateway:\n  key_file: "+keyFile+"\n", 1)
	if err := os.WriteFile(cfgPath, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.ServiceLayer.Password != "secret" {
		t.Errorf("password = %q, want secret", cfg.ServiceLayer.Password)
	}
}

// tlsConfig points at a TLS server with a self-signed certificate.
const tlsConfig = `
servicelayer:
  host: https://%HOST%
  port: %PORT%
  version: v1
  company: %COMPANY%
  username: manager
  password: secret
%EXTRA%`

func writeTLSConfig(t *testing.T, path string, srv *httptest.Server, company, extra string) {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	data := strings.NewReplacer(
		"%HOST%", u.Hostname(),
		"%PORT%", u.Port(),
		"%COMPANY%", company,
		"%EXTRA%", extra,
	).Replace(tlsConfig)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestReloader_RemovedInsecureFlagRestoresVerification(t *testing.T) {
	var logins atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"SessionId": "abc123", "SessionTimeout": 30})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	writeTLSConfig(t, path, srv, "A", "  insecure_skip_verify: true\n")
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	client, err := servicelayer.New(cfg.ServiceLayer)
	if err != nil {
		t.Fatal(err)
	}
	if err := client.CreateSession(context.Background(), servicelayer.Config{}); err != nil {
		t.Fatalf("insecure login failed: %v", err)
	}

	r := &reloader{path: path, current: cfg, client: client, log: logger.Nop()}
	writeTLSConfig(t, path, srv, "B", "")
	r.reload(context.Background())

	if client.Config().Insecure() {
		t.Error("certificate verification should be back on once the flag is removed")
	}
	if got := logins.Load(); got != 1 {
		t.Errorf("logins = %d, the self-signed server must be refused", got)
	}
	if r.current.ServiceLayer.Company != "A" {
		t.Errorf("current company = %q, a failed login keeps the previous config", r.current.ServiceLayer.Company)
	}
}
