package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/yndnr/servicelayer-go/internal/telemetry/logger"
	"github.com/yndnr/servicelayer-go/pkg/servicelayer"
)

// forwardedRequestHeaders are copied from the caller to the server.
var forwardedRequestHeaders = []string{
	"Prefer",
	"If-Match",
	"B1S-ReplaceCollectionsOnPatch",
	"B1S-CaseInsensitive",
	"B1S-PageSize",
}

// forwardedResponseHeaders are copied from the server to the caller.
var forwardedResponseHeaders = []string{
	"Content-Type",
	"ETag",
	"Location",
	"OData-Version",
	"Preference-Applied",
}

var proxyMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// handleProxy forwards any other path to the server as a resource call.
// GET /Items?$top=5 becomes GET {baseURL}Items?$top=5 with the session
// cookie attached.
func (h *Handler) handleProxy(w http.ResponseWriter, r *http.Request) {
	if !proxyMethods[r.Method] {
		w.Header().Set("Allow", "GET, POST, PUT, PATCH, DELETE")
		h.writeError(w, r, http.StatusMethodNotAllowed, CodeMethod, "method not allowed", nil)
		return
	}

	resource := strings.TrimPrefix(r.URL.EscapedPath(), "/")
	if resource == "" {
		h.writeError(w, r, http.StatusNotFound, CodeNotFound, "resource path required", nil)
		return
	}
	if r.URL.RawQuery != "" {
		resource += "?" + r.URL.RawQuery
	}

	data, ok := h.readBody(w, r)
	if !ok {
		return
	}

	var opts []servicelayer.RequestOption
	for _, name := range forwardedRequestHeaders {
		if v := r.Header.Get(name); v != "" {
			opts = append(opts, servicelayer.WithHeader(name, v))
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	resp, err := h.client.Do(ctx, r.Method, resource, data, opts...)
	if err != nil {
		h.writeUpstreamError(w, r, err)
		return
	}

	for _, name := range forwardedResponseHeaders {
		if v := resp.Header.Get(name); v != "" {
			w.Header().Set(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 && resp.StatusCode != http.StatusNoContent {
		if _, err := w.Write(resp.Body); err != nil {
			logger.L(r.Context()).Debug("write response failed", "error", err)
		}
	}
}

// readBody returns the request body as raw JSON, or nil when empty. On
// failure it has already answered the request.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) (any, bool) {
	if r.Body == nil {
		return nil, true
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, http.StatusRequestEntityTooLarge, CodeTooLarge, "request body too large", nil)
		} else {
			h.writeError(w, r, http.StatusBadRequest, CodeBadRequest, "cannot read request body", nil)
		}
		return nil, false
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, true
	}
	if !json.Valid(body) {
		h.writeError(w, r, http.StatusBadRequest, CodeBadRequest, "request body is not valid JSON", nil)
		return nil, false
	}
	return json.RawMessage(body), true
}

// writeUpstreamError relays a server answer verbatim. Failures without an
// answer are reported with the normalized failure document.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	var slErr *servicelayer.Error
	if errors.As(err, &slErr) && slErr.Kind == servicelayer.KindRequest && slErr.Status != 0 {
		if json.Valid(slErr.Payload) {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(slErr.Status)
		_, _ = w.Write(slErr.Payload)
		return
	}

	status := http.StatusBadGateway
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, servicelayer.ErrRequestInvalid), errors.Is(err, servicelayer.ErrRequestEncode):
		status = http.StatusBadRequest
	case servicelayer.IsAuthError(err):
		status = http.StatusServiceUnavailable
	}
	logger.L(r.Context()).Error("forwarded request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(servicelayer.ResultOf(err))
}
