package httpserver

import (
	"net/http"
	"time"

	"github.com/yndnr/servicelayer-go/internal/server/httpserver/handler"
	"github.com/yndnr/servicelayer-go/internal/telemetry/logger"
	"github.com/yndnr/servicelayer-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Client is the shared Service Layer client.
	Client handler.SessionClient

	// Metrics records gateway traffic and serves /metrics. Nil disables
	// both.
	Metrics *metric.Registry

	Logger logger.Logger

	// RateLimit is the per-IP rate in requests/second; 0 disables it.
	RateLimit float64
	Burst     int

	// AllowList is the IP/CIDR allowlist (empty = no restriction).
	AllowList []string

	EnableAudit    bool
	MetricsEnabled bool

	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// NewRouter creates and configures the HTTP router with all routes and
// middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	h := handler.New(handler.Config{
		Client:         cfg.Client,
		Logger:         log,
		RequestTimeout: cfg.RequestTimeout,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})

	// Health checks bypass the ACL and the limiter.
	health := Chain(h, RequestID(), Recover(log))

	// Order: Recover -> RequestID -> ACL -> RateLimit -> Instrument -> Audit -> Handler
	chain := []Middleware{Recover(log), RequestID(), WithLogger(log)}
	if len(cfg.AllowList) > 0 {
		chain = append(chain, NetworkACL(cfg.AllowList, log))
	}
	if cfg.RateLimit > 0 {
		var onLimited func()
		if cfg.Metrics != nil {
			onLimited = cfg.Metrics.ObserveRateLimited
		}
		chain = append(chain, RateLimit(cfg.RateLimit, cfg.Burst, onLimited))
	}
	if cfg.Metrics != nil {
		chain = append(chain, Instrument(cfg.Metrics.ObserveGatewayRequest))
	}
	if cfg.EnableAudit {
		chain = append(chain, Audit(log))
	}
	api := Chain(h, chain...)

	mux := http.NewServeMux()
	mux.Handle("GET /health", health)
	mux.Handle("GET /ready", health)

	if cfg.MetricsEnabled && cfg.Metrics != nil {
		metricsChain := []Middleware{Recover(log), RequestID()}
		if len(cfg.AllowList) > 0 {
			metricsChain = append(metricsChain, NetworkACL(cfg.AllowList, log))
		}
		mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(), metricsChain...))
	}

	mux.Handle("/", api)
	return mux
}
