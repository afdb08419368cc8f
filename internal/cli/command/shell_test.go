package command

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
)

func TestShell_SharesSession(t *testing.T) {
	e := newTestEnv(t)
	var calls int
	e.server.handle("/b1s/v1/Items", func(w http.ResponseWriter, r *http.Request) {
		calls++
		jsonResponse(w, http.StatusOK, map[string]any{"value": []map[string]any{{"ItemCode": "A1"}}})
	})

	e.st.Stdin = strings.NewReader(strings.Join([]string{
		"get Items",
		"find --top 1 Items",
		"get Missing",
		"status",
		"exit",
	}, "\n") + "\n")

	if err := e.runConn(t, "-o", "json", "shell"); err != nil {
		t.Fatalf("shell: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if n := e.server.logins.Load(); n != 1 {
		t.Errorf("logins = %d, want 1", n)
	}

	out := e.out.String()
	if !strings.Contains(out, "sl> ") {
		t.Errorf("prompt missing from %q", out)
	}
	if !strings.Contains(out, `"active": true`) {
		t.Errorf("status in shell should see the session: %q", out)
	}

	hist, err := os.ReadFile(e.st.Paths.History)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(string(hist), "find --top 1 Items") {
		t.Errorf("history = %q", hist)
	}
}

func TestShell_ConfigureFromLine(t *testing.T) {
	e := newTestEnv(t)
	e.server.handle("/b1s/v1/Items", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]any{"value": []any{}})
	})
	e.st.Stdin = strings.NewReader("get Items\n--company OTHER get Items\n")

	if err := e.runConn(t, "shell"); err != nil {
		t.Fatal(err)
	}
	if n := e.server.logins.Load(); n != 2 {
		t.Errorf("switching company should log in again, logins = %d", n)
	}
}

func TestShellExecutor_RejectsNesting(t *testing.T) {
	e := newTestEnv(t)
	err := shellExecutor(e.st)(context.Background(), []string{"shell"})
	if err == nil || !strings.Contains(err.Error(), "already in a shell") {
		t.Errorf("err = %v", err)
	}
}
