// Package metric provides Prometheus metrics for servicelayer-go.
//
// Registry satisfies servicelayer.MetricsRecorder, so a Client records
// login outcomes, request rates and latencies, and the current session
// expiry. The gateway exposes the registry on /metrics.
package metric
