package servicelayer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/yndnr/servicelayer-go/internal/infra/buildinfo"
	"github.com/yndnr/servicelayer-go/internal/telemetry/logger"
)

// routeCookie is the load-balancer affinity cookie set by clustered servers.
const routeCookie = "ROUTEID"

// Client holds one session against one server and renews it on demand.
//
// A Client is safe for concurrent use. At most one login is in flight at a
// time; callers that need a session while a login runs wait for it and
// share its outcome.
type Client struct {
	http         *http.Client
	ownTransport bool
	log          Logger
	metrics      MetricsRecorder
	store        SessionStore
	now          func() time.Time
	userAgent    string

	// renew serializes logins and logouts.
	renew *semaphore.Weighted

	mu           sync.RWMutex
	cfg          Config
	transportKey string
	session      *Session
	loginGen     uint64
	loginErr     error
	storeChecked bool
}

// Response is a completed resource call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// New returns a Client for cfg. cfg may be partial; the remaining fields
// can be supplied later through CreateSession or Configure. No login is
// performed.
func New(cfg Config, opts ...Option) (*Client, error) {
	c := &Client{
		ownTransport: true,
		log:          logger.Default(),
		metrics:      nopMetrics{},
		now:          time.Now,
		userAgent:    buildinfo.UserAgent(""),
		renew:        semaphore.NewWeighted(1),
		cfg:          cfg,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.ownTransport {
		if err := c.syncTransportLocked(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// CreateSession merges partial into the stored configuration and logs in
// with the result. The merged configuration is kept even when the login
// fails. A failed login leaves the current session untouched.
func (c *Client) CreateSession(ctx context.Context, partial Config) error {
	cfg, err := c.merge(partial)
	if err != nil {
		c.log.Error("session configuration rejected", "error", err)
		return err
	}
	if cfg.DebugEnabled() {
		c.log.Debug("creating session", "config", cfg)
	}

	if err := c.renew.Acquire(ctx, 1); err != nil {
		return ErrLoginFailed.WithCause(err).WithDetails(err.Error())
	}
	defer c.renew.Release(1)

	return c.login(ctx)
}

// RefreshSession logs in with the stored configuration when there is no
// session or the session has expired. It does nothing while the session is
// valid.
func (c *Client) RefreshSession(ctx context.Context) error {
	c.mu.RLock()
	usable := c.usableLocked()
	gen := c.loginGen
	debug := c.cfg.DebugEnabled()
	hadSession := c.session != nil
	c.mu.RUnlock()

	if usable {
		return nil
	}
	if debug {
		if hadSession {
			c.log.Debug("session expired, renewing")
		} else {
			c.log.Debug("no session, logging in")
		}
	}

	if err := c.renew.Acquire(ctx, 1); err != nil {
		return ErrLoginFailed.WithCause(err).WithDetails(err.Error())
	}
	defer c.renew.Release(1)

	c.mu.RLock()
	usable = c.usableLocked()
	shared := c.loginGen != gen
	loginErr := c.loginErr
	c.mu.RUnlock()

	switch {
	case usable:
		return nil
	case shared && loginErr != nil:
		// The login we waited for failed; report its error rather than
		// repeating the attempt.
		return loginErr
	}

	if c.adoptStored(ctx) {
		return nil
	}
	return c.login(ctx)
}

// usableLocked reports whether the current session is valid for the
// current configuration. c.mu must be held.
func (c *Client) usableLocked() bool {
	return c.session.Valid(c.now()) && c.session.Matches(c.cfg)
}

// adoptStored installs a session from the store, once per Client, when the
// client holds none. The caller holds c.renew.
func (c *Client) adoptStored(ctx context.Context) bool {
	c.mu.Lock()
	if c.store == nil || c.storeChecked || c.session != nil {
		c.mu.Unlock()
		return false
	}
	c.storeChecked = true
	cfg := c.cfg
	c.mu.Unlock()

	s, err := c.store.Load(ctx)
	if err != nil {
		c.log.Warn("cannot load stored session", "error", err)
		return false
	}
	if !s.Valid(c.now()) || !s.Matches(cfg) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
	c.loginGen++
	c.loginErr = nil
	if cfg.DebugEnabled() {
		c.log.Debug("reusing stored session", "expires_at", s.ExpiresAt)
	}
	return true
}

type loginRequest struct {
	CompanyDB string `json:"CompanyDB"`
	Password  string `json:"Password"`
	UserName  string `json:"UserName"`
}

type loginResponse struct {
	SessionID      string      `json:"SessionId"`
	SessionTimeout json.Number `json:"SessionTimeout"`
}

// login performs a Login call with the stored configuration. The caller
// holds c.renew.
func (c *Client) login(ctx context.Context) (err error) {
	c.mu.RLock()
	cfg := c.cfg
	hc := c.http
	c.mu.RUnlock()

	start := time.Now()
	var sess *Session
	defer func() {
		c.finishLogin(ctx, sess, err, time.Since(start))
	}()

	if err := cfg.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(loginRequest{
		CompanyDB: cfg.Company,
		Password:  cfg.Password,
		UserName:  cfg.Username,
	})
	if err != nil {
		return ErrLoginFailed.WithCause(err).WithDetails(err.Error())
	}

	lctx, cancel := context.WithTimeout(ctx, cfg.loginTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(lctx, http.MethodPost, cfg.BaseURL()+"Login", bytes.NewReader(body))
	if err != nil {
		return ErrLoginFailed.WithCause(err).WithDetails(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := hc.Do(req)
	if err != nil {
		return ErrLoginFailed.WithCause(err).WithDetails(err.Error())
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return ErrLoginFailed.WithCause(err).WithDetails(err.Error())
	}
	if !success(resp.StatusCode) {
		return ErrLoginRejected.withResponse(resp.StatusCode, payload)
	}

	var lr loginResponse
	if err := json.Unmarshal(payload, &lr); err != nil {
		return ErrLoginResponse.WithCause(err).withResponse(resp.StatusCode, payload)
	}
	timeout, err := strconv.Atoi(lr.SessionTimeout.String())
	if lr.SessionID == "" || err != nil {
		return ErrLoginResponse.WithDetails("missing SessionId or SessionTimeout").withResponse(resp.StatusCode, payload)
	}

	issuedAt := c.now()
	sess = &Session{
		ID:             lr.SessionID,
		Company:        cfg.Company,
		RouteID:        cookieValue(resp, routeCookie),
		BaseURL:        cfg.BaseURL(),
		Username:       cfg.Username,
		TimeoutMinutes: timeout,
		IssuedAt:       issuedAt,
		ExpiresAt:      ExpiryFor(issuedAt, timeout),
	}
	return nil
}

// finishLogin records the outcome of a login for waiting callers. A login
// abandoned because the caller's context ended is not recorded, so the
// next caller tries again.
func (c *Client) finishLogin(ctx context.Context, sess *Session, err error, d time.Duration) {
	var expiresAt time.Time
	if sess != nil {
		expiresAt = sess.ExpiresAt
	}
	c.metrics.ObserveLogin(err == nil, d, expiresAt)

	if err != nil {
		c.log.Error("login failed", "error", err)
		if ctx.Err() != nil {
			return
		}
		c.mu.Lock()
		c.loginGen++
		c.loginErr = err
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.session = sess
	c.loginGen++
	c.loginErr = nil
	debug := c.cfg.DebugEnabled()
	store := c.store
	c.mu.Unlock()

	if debug {
		c.log.Debug("session renewed",
			"timeout_minutes", sess.TimeoutMinutes,
			"expires_at", sess.ExpiresAt,
		)
	}
	if store != nil {
		if err := store.Save(ctx, sess.clone()); err != nil {
			c.log.Warn("cannot save session", "error", err)
		}
	}
}

// Logout ends the current session on the server and forgets it locally.
// A valid stored session is ended when the client holds none. The session
// is forgotten even when the server call fails. Without a session Logout
// does nothing.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.renew.Acquire(ctx, 1); err != nil {
		return ErrLogoutFailed.WithCause(err).WithDetails(err.Error())
	}
	defer c.renew.Release(1)

	c.adoptStored(ctx)

	c.mu.Lock()
	sess := c.session
	base := c.cfg.BaseURL()
	hc := c.http
	store := c.store
	c.session = nil
	c.mu.Unlock()

	if store != nil {
		if err := store.Clear(ctx); err != nil {
			c.log.Warn("cannot clear stored session", "error", err)
		}
	}
	if sess == nil {
		return nil
	}
	c.metrics.ObserveLogout()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"Logout", nil)
	if err != nil {
		return ErrLogoutFailed.WithCause(err).WithDetails(err.Error())
	}
	req.Header.Set("Cookie", sess.Cookie())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := hc.Do(req)
	if err != nil {
		c.log.Error("logout failed", "error", err)
		return ErrLogoutFailed.WithCause(err).WithDetails(err.Error())
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)
	// 401 means the server already dropped the session.
	if !success(resp.StatusCode) && resp.StatusCode != http.StatusUnauthorized {
		lerr := ErrLogoutFailed.withResponse(resp.StatusCode, payload)
		c.log.Error("logout failed", "error", lerr)
		return lerr
	}
	return nil
}

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Do renews the session if needed and performs method on resource, a path
// relative to the base URL such as "Items('A1')" or "Orders?$top=5".
//
// data is sent as JSON; []byte and json.RawMessage are sent verbatim and
// nil sends no body. A non-2xx answer returns an *Error carrying the status
// and body.
func (c *Client) Do(ctx context.Context, method, resource string, data any, opts ...RequestOption) (*Response, error) {
	method = strings.ToUpper(method)
	if !allowedMethods[method] {
		return nil, ErrRequestInvalid.WithDetails(fmt.Sprintf("unsupported method %q", method))
	}
	ro := newRequestOptions(opts)

	body, err := encodeBody(data)
	if err != nil {
		return nil, ErrRequestEncode.WithCause(err).WithDetails(err.Error())
	}

	if err := c.RefreshSession(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	sess := c.session
	target := c.cfg.BaseURL() + normalizeResource(resource)
	hc := c.http
	debug := c.cfg.DebugEnabled()
	c.mu.RUnlock()

	if sess == nil {
		// Logout raced the refresh.
		return nil, ErrLoginFailed.WithDetails("session ended before the request was sent")
	}

	if len(ro.query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + strings.ReplaceAll(ro.query.Encode(), "+", "%20")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, ErrRequestInvalid.WithCause(err).WithDetails(err.Error())
	}
	req.Header.Set("Cookie", sess.Cookie())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range ro.headers {
		req.Header[k] = v
	}

	if debug {
		c.log.Debug("request", "method", method, "resource", resource)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, 0, time.Since(start))
		c.log.Error("request failed", "method", method, "resource", resource, "error", err)
		return nil, ErrRequestFailed.WithCause(err).WithDetails(err.Error())
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	c.metrics.ObserveRequest(method, resp.StatusCode, time.Since(start))
	if err != nil {
		c.log.Error("request failed", "method", method, "resource", resource, "error", err)
		return nil, ErrRequestFailed.WithCause(err).WithDetails(err.Error())
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidate(sess)
	}
	if !success(resp.StatusCode) {
		rerr := ErrRequestRejected.withResponse(resp.StatusCode, payload)
		c.log.Error("request rejected",
			"method", method,
			"resource", resource,
			"status", resp.StatusCode,
			"message", ServerMessage(payload),
		)
		return nil, rerr
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       payload,
	}, nil
}

// invalidate drops sess if it is still the current session, so the next
// call logs in again. The failed call itself is not repeated.
func (c *Client) invalidate(sess *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == sess {
		c.session = nil
		// A stored copy of the same session is just as dead.
		c.storeChecked = true
		if c.cfg.DebugEnabled() {
			c.log.Debug("session rejected by server, dropped")
		}
	}
}

// Request is Do returning only the response body.
func (c *Client) Request(ctx context.Context, method, resource string, data any, opts ...RequestOption) ([]byte, error) {
	resp, err := c.Do(ctx, method, resource, data, opts...)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Get reads resource.
func (c *Client) Get(ctx context.Context, resource string, opts ...RequestOption) ([]byte, error) {
	return c.Request(ctx, http.MethodGet, resource, nil, opts...)
}

// Find runs a query such as "Items?$filter=ItemType eq 'itItems'". It issues
// the same request as Get.
func (c *Client) Find(ctx context.Context, query string, opts ...RequestOption) ([]byte, error) {
	return c.Get(ctx, query, opts...)
}

// Post creates an entity or invokes an action.
func (c *Client) Post(ctx context.Context, resource string, data any, opts ...RequestOption) ([]byte, error) {
	return c.Request(ctx, http.MethodPost, resource, data, opts...)
}

// Put replaces an entity.
func (c *Client) Put(ctx context.Context, resource string, data any, opts ...RequestOption) ([]byte, error) {
	return c.Request(ctx, http.MethodPut, resource, data, opts...)
}

// Patch updates the given fields of an entity.
func (c *Client) Patch(ctx context.Context, resource string, data any, opts ...RequestOption) ([]byte, error) {
	return c.Request(ctx, http.MethodPatch, resource, data, opts...)
}

// Delete removes an entity.
func (c *Client) Delete(ctx context.Context, resource string, opts ...RequestOption) ([]byte, error) {
	return c.Request(ctx, http.MethodDelete, resource, nil, opts...)
}

// Session returns a copy of the current session, or nil.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.clone()
}

// Config returns a copy of the merged configuration.
func (c *Client) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Config{}.Merge(c.cfg)
}

// Configure merges partial into the stored configuration without logging
// in. A session issued for another server, company or user stops being
// used and the next call logs in again.
func (c *Client) Configure(partial Config) error {
	_, err := c.merge(partial)
	return err
}

// Replace sets the stored configuration to cfg as a whole, without
// logging in. Unlike Configure, fields left zero in cfg are cleared, so a
// TLS switch or CA file missing from cfg falls back to its default.
func (c *Client) Replace(cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	return c.syncTransportLocked()
}

func (c *Client) merge(partial Config) (Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = c.cfg.Merge(partial)
	if err := c.syncTransportLocked(); err != nil {
		return c.cfg, err
	}
	return c.cfg, nil
}

// syncTransportLocked rebuilds the owned HTTP client when the TLS settings
// changed. c.mu must be held, or c not yet shared.
func (c *Client) syncTransportLocked() error {
	if !c.ownTransport {
		return nil
	}
	key := c.cfg.transportKey()
	if c.http != nil && key == c.transportKey {
		return nil
	}
	hc, err := NewHTTPClient(c.cfg)
	if err != nil {
		return ErrInvalidConfig.WithCause(err).WithDetails(err.Error())
	}
	if c.cfg.Insecure() {
		c.log.Warn("TLS certificate verification disabled", "host", c.cfg.Host)
	}
	if c.http != nil {
		c.http.CloseIdleConnections()
	}
	c.http = hc
	c.transportKey = key
	return nil
}

func encodeBody(data any) ([]byte, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	case string:
		return []byte(v), nil
	case io.Reader:
		return io.ReadAll(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		return b, nil
	}
}

// normalizeResource strips leading slashes and escapes the spaces OData
// filters commonly contain in the query part.
func normalizeResource(resource string) string {
	path, query, ok := strings.Cut(strings.TrimLeft(resource, "/"), "?")
	if !ok {
		return path
	}
	return path + "?" + strings.ReplaceAll(query, " ", "%20")
}

func success(status int) bool {
	return status >= 200 && status < 300
}

func cookieValue(resp *http.Response, name string) string {
	for _, ck := range resp.Cookies() {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// IsSessionExpired reports whether err is a resource call the server
// rejected for lack of a valid session.
func IsSessionExpired(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindRequest && e.Status == http.StatusUnauthorized
}
