package handler

import (
	"context"
	"net/http"

	"github.com/yndnr/servicelayer-go/internal/telemetry/logger"
	"github.com/yndnr/servicelayer-go/pkg/servicelayer"
)

// handleSessionStatus handles GET /session.
func (h *Handler) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.sessionResponse())
}

// handleSessionRenew handles POST /session/renew: a fresh login whether or
// not the current session is still valid.
func (h *Handler) handleSessionRenew(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	if err := h.client.CreateSession(ctx, servicelayer.Config{}); err != nil {
		logger.L(r.Context()).Error("session renewal failed", "error", err)
		h.writeError(w, r, http.StatusBadGateway, CodeUpstream, "session renewal failed", servicelayer.ResultOf(err))
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.sessionResponse())
}

// handleSessionLogout handles DELETE /session.
func (h *Handler) handleSessionLogout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	if err := h.client.Logout(ctx); err != nil {
		logger.L(r.Context()).Error("logout failed", "error", err)
		h.writeError(w, r, http.StatusBadGateway, CodeUpstream, "logout failed", servicelayer.ResultOf(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sessionResponse() SessionResponse {
	cfg := h.client.Config()
	resp := SessionResponse{
		BaseURL:  cfg.BaseURL(),
		Company:  cfg.Company,
		Username: cfg.Username,
	}
	sess := h.client.Session()
	now := h.now()
	if !sess.Valid(now) {
		return resp
	}
	resp.Active = true
	resp.Session = logger.MaskValue(sess.ID)
	resp.IssuedAt = sess.IssuedAt
	resp.ExpiresAt = sess.ExpiresAt
	resp.RemainingS = int64(sess.Remaining(now).Seconds())
	return resp
}
