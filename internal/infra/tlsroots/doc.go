// Package tlsroots builds the trust configuration for outbound TLS.
//
// Service Layer installations commonly run with self-signed certificates.
// The supported answers are, in order of preference: add the server's CA
// with AddCertFile, or disable verification explicitly with Options.Insecure.
// Verification is never skipped implicitly.
package tlsroots
