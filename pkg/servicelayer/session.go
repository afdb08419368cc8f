package servicelayer

import (
	"strings"
	"time"
)

// expiryMargin is subtracted from the server timeout so a request never
// races the exact expiry instant.
const expiryMargin = time.Minute

// Session is a server-issued login.
type Session struct {
	ID      string `json:"id"`
	Company string `json:"company"`

	// RouteID is the load-balancer affinity cookie, when the server sets one.
	RouteID string `json:"route_id,omitempty"`

	// BaseURL and Username record which configuration the session belongs to.
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`

	// TimeoutMinutes is the server-declared validity window.
	TimeoutMinutes int       `json:"timeout_minutes"`
	IssuedAt       time.Time `json:"issued_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// ExpiryFor returns issuedAt plus timeoutMinutes less the one-minute margin.
// Timeouts under one minute yield an already expired session.
func ExpiryFor(issuedAt time.Time, timeoutMinutes int) time.Time {
	d := time.Duration(timeoutMinutes)*time.Minute - expiryMargin
	if d < 0 {
		d = 0
	}
	return issuedAt.Add(d)
}

// Valid reports whether s can be used at now. A nil session is never valid.
// The session expires at ExpiresAt, inclusive.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.ID != "" && now.Before(s.ExpiresAt)
}

// Remaining returns the time left until expiry, or zero.
func (s *Session) Remaining(now time.Time) time.Duration {
	if !s.Valid(now) {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}

// Cookie renders the credential sent with every request.
func (s *Session) Cookie() string {
	var b strings.Builder
	b.WriteString("B1SESSION=")
	b.WriteString(s.ID)
	b.WriteString(";CompanyDB=")
	b.WriteString(s.Company)
	if s.RouteID != "" {
		b.WriteString(";ROUTEID=")
		b.WriteString(s.RouteID)
	}
	return b.String()
}

// Matches reports whether s was issued for cfg's server, company and user.
func (s *Session) Matches(cfg Config) bool {
	return s != nil &&
		s.BaseURL == cfg.BaseURL() &&
		s.Company == cfg.Company &&
		s.Username == cfg.Username
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
