package servicelayer

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yndnr/servicelayer-go/pkg/odata"
)

// Logger is the logging interface used by Client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsRecorder receives client measurements.
// internal/telemetry/metric.Registry implements it.
type MetricsRecorder interface {
	ObserveLogin(ok bool, d time.Duration, expiresAt time.Time)
	ObserveLogout()
	ObserveRequest(method string, status int, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveLogin(bool, time.Duration, time.Time) {}
func (nopMetrics) ObserveLogout()                              {}
func (nopMetrics) ObserveRequest(string, int, time.Duration)   {}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client built from the TLS settings of the
// configuration. The caller then owns TLS policy; later TLS updates through
// Configure are not applied.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
			c.ownTransport = false
		}
	}
}

// WithClock sets the time source used for session expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSessionStore lets the client reuse a session saved by an earlier
// process and save every new one.
func WithSessionStore(s SessionStore) Option {
	return func(c *Client) {
		c.store = s
	}
}

// WithUserAgent sets the User-Agent header of every call.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

type requestOptions struct {
	query   url.Values
	headers http.Header
}

// RequestOption adjusts a single resource call.
type RequestOption func(*requestOptions)

func newRequestOptions(opts []RequestOption) *requestOptions {
	ro := &requestOptions{
		query:   url.Values{},
		headers: http.Header{},
	}
	for _, opt := range opts {
		opt(ro)
	}
	return ro
}

// WithQuery adds query parameters.
func WithQuery(v url.Values) RequestOption {
	return func(ro *requestOptions) {
		for k, vals := range v {
			for _, val := range vals {
				ro.query.Add(k, val)
			}
		}
	}
}

// WithODataQuery adds OData system query options.
func WithODataQuery(q odata.Query) RequestOption {
	return WithQuery(q.Values())
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(ro *requestOptions) {
		ro.headers.Set(key, value)
	}
}

// WithMaxPageSize asks the server for up to n entities per page.
func WithMaxPageSize(n int) RequestOption {
	return func(ro *requestOptions) {
		if n > 0 {
			ro.headers.Set("Prefer", "odata.maxpagesize="+strconv.Itoa(n))
		}
	}
}

// WithReplaceCollections makes a PATCH replace child collections instead
// of merging them.
func WithReplaceCollections() RequestOption {
	return WithHeader("B1S-ReplaceCollectionsOnPatch", "true")
}
