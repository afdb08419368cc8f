package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "servicelayer"

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	LoginsTotal      *prometheus.CounterVec
	LoginDuration    prometheus.Histogram
	LogoutsTotal     prometheus.Counter
	SessionExpiresAt prometheus.Gauge

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	GatewayRequestsTotal *prometheus.CounterVec
	GatewayRateLimited   prometheus.Counter
}

// NewRegistry creates a registry with every metric registered.
// Go runtime and process collectors are included when withRuntime is set.
func NewRegistry(withRuntime bool) *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "logins_total",
			Help:      "Login attempts by result (success, failure).",
		}, []string{"result"}),

		LoginDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "login_duration_seconds",
			Help:      "Latency of login calls.",
			Buckets:   prometheus.DefBuckets,
		}),

		LogoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "logouts_total",
			Help:      "Sessions closed with an explicit logout.",
		}),

		SessionExpiresAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "expires_at_timestamp_seconds",
			Help:      "Unix time at which the current session is renewed; 0 when absent.",
		}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Resource requests by HTTP method and status code (0 on transport error).",
		}, []string{"method", "code"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Latency of resource requests, session renewal excluded.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		GatewayRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Requests served by the gateway by method and status code.",
		}, []string{"method", "code"}),

		GatewayRateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-IP rate limiter.",
		}),
	}

	r.reg.MustRegister(
		r.LoginsTotal,
		r.LoginDuration,
		r.LogoutsTotal,
		r.SessionExpiresAt,
		r.RequestsTotal,
		r.RequestDuration,
		r.GatewayRequestsTotal,
		r.GatewayRateLimited,
	)

	if withRuntime {
		r.reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return r
}

// ObserveLogin records one login attempt.
func (r *Registry) ObserveLogin(ok bool, d time.Duration, expiresAt time.Time) {
	result := "failure"
	if ok {
		result = "success"
		r.SessionExpiresAt.Set(float64(expiresAt.Unix()))
	}
	r.LoginsTotal.WithLabelValues(result).Inc()
	r.LoginDuration.Observe(d.Seconds())
}

// ObserveLogout records a logout and clears the expiry gauge.
func (r *Registry) ObserveLogout() {
	r.LogoutsTotal.Inc()
	r.SessionExpiresAt.Set(0)
}

// ObserveRequest records one resource request.
func (r *Registry) ObserveRequest(method string, status int, d time.Duration) {
	r.RequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	r.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveGatewayRequest records a request served by the gateway.
func (r *Registry) ObserveGatewayRequest(method string, status int) {
	r.GatewayRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// ObserveRateLimited records a request rejected by the rate limiter.
func (r *Registry) ObserveRateLimited() {
	r.GatewayRateLimited.Inc()
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
