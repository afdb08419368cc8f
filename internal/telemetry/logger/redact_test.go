package logger

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact_SecretKeys(t *testing.T) {
	l, buf := newJSON(t, "info")

	l.Info("login", "password", "p@ssw0rd", "client_secret", "abc", "username", "manager")

	entry := decode(t, buf)
	assert.Equal(t, redactedValue, entry["password"])
	assert.Equal(t, redactedValue, entry["client_secret"])
	assert.Equal(t, "manager", entry["username"])
}

func TestRedact_EmptySecretKept(t *testing.T) {
	l, buf := newJSON(t, "info")

	l.Info("login", "password", "")

	entry := decode(t, buf)
	assert.Equal(t, "", entry["password"])
}

func TestRedact_Cookie(t *testing.T) {
	l, buf := newJSON(t, "info")

	l.Info("request", "header", "B1SESSION=0f9a1c2e-aaaa-bbbb-cccc-1234567890ab;CompanyDB=SBODEMO")

	entry := decode(t, buf)
	assert.Equal(t, "B1SESSION=0f9...0ab;CompanyDB=SBODEMO", entry["header"])
}

func TestRedact_SessionID(t *testing.T) {
	l, buf := newJSON(t, "info")

	l.Info("session renewed", "session_id", "0f9a1c2e-aaaa-bbbb-cccc-1234567890ab")

	entry := decode(t, buf)
	assert.Equal(t, "0f9...0ab", entry["session_id"])
}

func TestRedact_Group(t *testing.T) {
	a := redactSensitive(slog.Group("config", slog.String("password", "x"), slog.String("host", "srv")))

	group := a.Value.Group()
	assert.Equal(t, redactedValue, group[0].Value.String())
	assert.Equal(t, "srv", group[1].Value.String())
}

func TestMaskValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "***"},
		{"short", "***"},
		{"123456789", "***"},
		{"1234567890", "123...890"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskValue(tt.in), tt.in)
	}
}

func TestRedactCookie(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"session and company", "B1SESSION=abcdefghijkl;CompanyDB=TEST", "B1SESSION=abc...jkl;CompanyDB=TEST"},
		{"spaced pairs", "CompanyDB=TEST; B1SESSION=abcdefghijkl", "CompanyDB=TEST; B1SESSION=abc...jkl"},
		{"no session", "CompanyDB=TEST", "CompanyDB=TEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactCookie(tt.in))
		})
	}
}

func TestIsSensitiveKey(t *testing.T) {
	assert.True(t, IsSensitiveKey("Password"))
	assert.True(t, IsSensitiveKey("session_id"))
	assert.True(t, IsSensitiveKey("Cookie"))
	assert.False(t, IsSensitiveKey("resource"))
}
