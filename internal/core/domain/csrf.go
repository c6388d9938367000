package domain

import "time"

// CsrfSession pairs an opaque session identifier with its current canonical
// token. A session holds at most one live token; rotation replaces it.
type CsrfSession struct {
	SessionID string
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the session's token is past its TTL.
func (s CsrfSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
