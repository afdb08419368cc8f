package handler

import (
	"context"
	"net/http"
	"time"
)

// handleHealth handles GET /health. It never touches the server.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.status("healthy"))
}

// handleReady handles GET /ready: ready means a usable session, logging in
// when there is none.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if !h.client.Session().Valid(h.now()) {
		ctx, cancel := context.WithTimeout(r.Context(), h.readyTimeout)
		defer cancel()
		if err := h.client.RefreshSession(ctx); err != nil {
			h.logger.Warn("readiness check failed", "error", err)
			h.writeError(w, r, http.StatusServiceUnavailable, CodeSessionDown, "no service layer session", h.status("not_ready"))
			return
		}
	}
	h.writeJSON(w, r, http.StatusOK, h.status("ready"))
}

func (h *Handler) status(s string) StatusResponse {
	return StatusResponse{Status: s, Time: h.now().UTC().Format(time.RFC3339)}
}
