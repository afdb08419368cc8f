// Package handler provides the HTTP handlers of sl-gateway.
//
// The gateway serves a single Service Layer identity: every forwarded call
// runs through one shared servicelayer.Client, which keeps the session
// alive. Gateway endpoints answer with the Response envelope; forwarded
// resource calls answer with the server's own status and body.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/yndnr/servicelayer-go/internal/telemetry/logger"
	"github.com/yndnr/servicelayer-go/pkg/servicelayer"
)

// Error codes of gateway-generated failures.
const (
	CodeBadRequest  = "GW-ARG-4000"
	CodeNotFound    = "GW-ARG-4040"
	CodeMethod      = "GW-ARG-4050"
	CodeTooLarge    = "GW-ARG-4130"
	CodeForbidden   = "GW-ACL-4030"
	CodeRateLimited = "GW-RATE-4290"
	CodeInternal    = "GW-SYS-5000"
	CodeUpstream    = "GW-SL-5020"
	CodeSessionDown = "GW-SL-5030"
)

// SessionClient is the part of *servicelayer.Client the handlers use.
type SessionClient interface {
	Session() *servicelayer.Session
	Config() servicelayer.Config
	RefreshSession(ctx context.Context) error
	CreateSession(ctx context.Context, partial servicelayer.Config) error
	Logout(ctx context.Context) error
	Do(ctx context.Context, method, resource string, data any, opts ...servicelayer.RequestOption) (*servicelayer.Response, error)
}

// Config configures a Handler.
type Config struct {
	Client SessionClient
	Logger logger.Logger

	// RequestTimeout bounds one forwarded call or session operation.
	RequestTimeout time.Duration
	// ReadyTimeout bounds the login attempted by /ready.
	ReadyTimeout time.Duration
	// MaxBodyBytes bounds forwarded request bodies.
	MaxBodyBytes int64

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Handler routes gateway requests.
type Handler struct {
	client         SessionClient
	logger         logger.Logger
	requestTimeout time.Duration
	readyTimeout   time.Duration
	maxBodyBytes   int64
	now            func() time.Time
	mux            *http.ServeMux
}

// New creates a Handler.
func New(cfg Config) *Handler {
	h := &Handler{
		client:         cfg.Client,
		logger:         cfg.Logger,
		requestTimeout: cfg.RequestTimeout,
		readyTimeout:   cfg.ReadyTimeout,
		maxBodyBytes:   cfg.MaxBodyBytes,
		now:            cfg.Now,
		mux:            http.NewServeMux(),
	}
	if h.logger == nil {
		h.logger = logger.Nop()
	}
	if h.requestTimeout <= 0 {
		h.requestTimeout = 60 * time.Second
	}
	if h.readyTimeout <= 0 {
		h.readyTimeout = 5 * time.Second
	}
	if h.maxBodyBytes <= 0 {
		h.maxBodyBytes = 10 << 20
	}
	if h.now == nil {
		h.now = time.Now
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("GET /session", h.handleSessionStatus)
	h.mux.HandleFunc("POST /session/renew", h.handleSessionRenew)
	h.mux.HandleFunc("DELETE /session", h.handleSessionLogout)

	h.mux.HandleFunc("/{resource...}", h.handleProxy)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	WriteError(w, logger.RequestIDFromContext(r.Context()), status, code, message, details)
}

// WriteError writes an error envelope. Middleware uses it for requests
// that never reach a Handler.
func WriteError(w http.ResponseWriter, requestID string, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message, details))
}
