package logger

import (
	"log/slog"
	"strings"
)

// cookiePrefix marks a Service Layer session cookie value.
const cookiePrefix = "B1SESSION="

// Keys whose values are fully redacted.
var secretKeyPatterns = []string{
	"password",
	"passwd",
	"secret",
	"authorization",
}

// Keys whose values are partially masked; enough remains to correlate
// two log lines about the same session.
var sessionKeyPatterns = []string{
	"session_id",
	"sessionid",
	"cookie",
}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if s == "" {
			return a
		}
		key := strings.ToLower(a.Key)
		if matchesAny(key, secretKeyPatterns) {
			return slog.String(a.Key, redactedValue)
		}
		if strings.Contains(s, cookiePrefix) {
			return slog.String(a.Key, RedactCookie(s))
		}
		if matchesAny(key, sessionKeyPatterns) {
			return slog.String(a.Key, MaskValue(s))
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

func matchesAny(key string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(key, p) {
			return true
		}
	}
	return false
}

// MaskValue keeps the first and last three characters of value.
// Values of nine characters or fewer are masked entirely.
func MaskValue(value string) string {
	if len(value) <= 9 {
		return "***"
	}
	return value[:3] + "..." + value[len(value)-3:]
}

// RedactCookie masks the session id inside a
// "B1SESSION=<id>;CompanyDB=<db>" style cookie string, leaving the
// other cookie pairs readable.
func RedactCookie(cookie string) string {
	parts := strings.Split(cookie, ";")
	for i, part := range parts {
		trimmed := strings.TrimSpace(part)
		if id, ok := strings.CutPrefix(trimmed, cookiePrefix); ok {
			parts[i] = strings.Replace(part, trimmed, cookiePrefix+MaskValue(id), 1)
		}
	}
	return strings.Join(parts, ";")
}

// IsSensitiveKey reports whether a key name suggests secret content.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	return matchesAny(k, secretKeyPatterns) || matchesAny(k, sessionKeyPatterns)
}
