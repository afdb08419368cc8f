package command

import (
	"errors"
	"testing"
)

func TestApp(t *testing.T) {
	app := App()
	if app == nil {
		t.Fatal("App() returned nil")
	}
	if app.Name != "sl-cli" {
		t.Errorf("Name = %q, want %q", app.Name, "sl-cli")
	}
	if app.Usage == "" {
		t.Error("Usage should not be empty")
	}

	commandNames := make(map[string]bool)
	for _, cmd := range app.Commands {
		commandNames[cmd.Name] = true
	}
	requiredCommands := []string{
		"login", "logout", "status", "get", "find", "post", "put", "patch",
		"delete", "profile", "shell", "version",
	}
	for _, name := range requiredCommands {
		if !commandNames[name] {
			t.Errorf("missing required command: %s", name)
		}
	}
}

func TestApp_GlobalFlags(t *testing.T) {
	app := App()

	flagNames := make(map[string]bool)
	for _, flag := range app.Flags {
		flagNames[flag.Names()[0]] = true
	}

	requiredFlags := []string{
		"config", "profile", "host", "port", "api-version", "company",
		"username", "password", "insecure", "ca-file", "debug", "output",
		"log-level", "no-cache",
	}
	for _, name := range requiredFlags {
		if !flagNames[name] {
			t.Errorf("missing required flag: %s", name)
		}
	}
}

func TestConnectionOverrides(t *testing.T) {
	c := testContext("--host", "https://sap", "--port", "50000", "--api-version", "v2", "--insecure", "--output", "yaml")
	got := connectionOverrides(c)

	want := map[string]any{
		"host":                 "https://sap",
		"port":                 50000,
		"version":              "v2",
		"insecure_skip_verify": true,
	}
	if len(got) != len(want) {
		t.Fatalf("overrides = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("overrides[%q] = %v, want %v", k, got[k], v)
		}
	}
}

func TestConnectionOverrides_None(t *testing.T) {
	if got := connectionOverrides(testContext()); len(got) != 0 {
		t.Errorf("overrides = %v, want none", got)
	}
}

func TestDecodeConfig(t *testing.T) {
	cfg, err := decodeConfig(map[string]any{"company": "PROD", "debug": true})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Company != "PROD" {
		t.Errorf("Company = %q", cfg.Company)
	}
	if cfg.Debug == nil || !*cfg.Debug {
		t.Error("Debug should be set")
	}
	if cfg.InsecureSkipVerify != nil {
		t.Error("InsecureSkipVerify should stay unset")
	}
}

func TestIsReported(t *testing.T) {
	base := errors.New("boom")
	if IsReported(base) {
		t.Error("plain error reported")
	}
	if !IsReported(&reportedError{err: base}) {
		t.Error("reportedError not detected")
	}
	if !errors.Is(&reportedError{err: base}, base) {
		t.Error("reportedError should unwrap")
	}
}

func TestVersionCommand(t *testing.T) {
	e := newTestEnv(t)
	if err := e.run("version"); err != nil {
		t.Fatal(err)
	}
	if got := e.out.String(); len(got) < len("sl-cli ") || got[:7] != "sl-cli " {
		t.Errorf("output = %q", got)
	}

	e.out.Reset()
	if err := e.run("-o", "json", "version"); err != nil {
		t.Fatal(err)
	}
	if !contains(e.out.String(), `"go_version"`) {
		t.Errorf("json output = %q", e.out.String())
	}
}
