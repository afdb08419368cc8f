// Package logger provides structured logging for servicelayer-go.
//
// This package wraps log/slog:
//
//   - logger.go: Logger interface, configuration and the default instance
//   - context.go: Context-aware logging with request IDs
//   - redact.go: Masking of credentials and session cookies
//
// Every handler built by New runs attributes through the redactor, so a
// password or a B1SESSION cookie never reaches the output in clear text.
package logger
