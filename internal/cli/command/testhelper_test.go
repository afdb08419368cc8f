package command

import (
	"bytes"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/servicelayer-go/internal/cli/config"
	"github.com/yndnr/servicelayer-go/internal/telemetry/logger"
)

const (
	testSessionID = "abc123"
	testPassword  = "secret"
)

// mockServer is a fake Service Layer. Login accepts manager/secret on any
// company; resource handlers are registered per path prefix.
type mockServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc

	logins  atomic.Int32
	logouts atomic.Int32
}

// newMockServer creates a new mock server.
func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Close)

	m.handle("/b1s/v1/Login", m.login)
	m.handle("/b1s/v1/Logout", func(w http.ResponseWriter, r *http.Request) {
		m.logouts.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	return m
}

func (m *mockServer) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	var (
		best    string
		handler http.HandlerFunc
	)
	for pattern, h := range m.handlers {
		if strings.HasPrefix(r.URL.Path, pattern) && len(pattern) > len(best) {
			best, handler = pattern, h
		}
	}
	m.mu.Unlock()

	if handler == nil {
		http.NotFound(w, r)
		return
	}
	if !strings.HasSuffix(best, "/Login") && !strings.HasSuffix(best, "/Logout") &&
		!strings.Contains(r.Header.Get("Cookie"), "B1SESSION="+testSessionID) {
		errorResponse(w, http.StatusUnauthorized, 301, "Invalid session.")
		return
	}
	handler(w, r)
}

// handle registers a handler for a path prefix. The longest prefix wins.
func (m *mockServer) handle(pattern string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[pattern] = handler
}

func (m *mockServer) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyDB string
		Password  string
		UserName  string
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, -1, "bad request")
		return
	}
	if req.UserName != "manager" || req.Password != testPassword {
		errorResponse(w, http.StatusUnauthorized, 100000027, "Fail to get DB Credentials from SLD")
		return
	}
	m.logins.Add(1)
	jsonResponse(w, http.StatusOK, map[string]any{
		"SessionId":      testSessionID,
		"SessionTimeout": 30,
	})
}

// connArgs returns the global flags that point at the mock server.
func (m *mockServer) connArgs(t *testing.T) []string {
	t.Helper()
	u, err := url.Parse(m.URL)
	if err != nil {
		t.Fatal(err)
	}
	return []string{
		"--host", "http://" + u.Hostname(),
		"--port", u.Port(),
		"--api-version", "v1",
		"--company", "TEST",
		"--username", "manager",
		"--password", testPassword,
	}
}

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorResponse writes a Service Layer error document.
func errorResponse(w http.ResponseWriter, status, code int, message string) {
	jsonResponse(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": map[string]string{"lang": "en-us", "value": message},
		},
	})
}

// testEnv is a State writing to buffers, with its files in a temp dir.
type testEnv struct {
	server *mockServer
	st     *State
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvIn(t, newMockServer(t), t.TempDir())
}

// newTestEnvIn creates a State over dir, as a new process would.
func newTestEnvIn(t *testing.T, server *mockServer, dir string) *testEnv {
	t.Helper()
	paths := config.PathsFor(filepath.Join(dir, "cli.yaml"))
	cfg, err := config.Load(paths.Config)
	if err != nil {
		t.Fatal(err)
	}
	e := &testEnv{
		server: server,
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
	}
	e.st = &State{
		Stdin:  strings.NewReader(""),
		Stdout: e.out,
		Stderr: e.errOut,
		Paths:  paths,
		Config: cfg,
		Log:    logger.Nop(),
	}
	return e
}

// run executes sl-cli with args.
func (e *testEnv) run(args ...string) error {
	return newApp(e.st).Run(append([]string{"sl-cli"}, args...))
}

// runConn executes sl-cli with the mock server's connection flags first.
func (e *testEnv) runConn(t *testing.T, args ...string) error {
	t.Helper()
	return e.run(append(e.server.connArgs(t), args...)...)
}

// testContext creates a CLI context with the global flags parsed from args.
func testContext(args ...string) *cli.Context {
	app := &cli.App{Name: "test", Flags: globalFlags()}
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range app.Flags {
		f.Apply(set)
	}
	set.Parse(args)
	return cli.NewContext(app, set, nil)
}
