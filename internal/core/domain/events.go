package domain

import "time"

// AuditOutcome classifies why the gateway refused a request.
type AuditOutcome string

// Audit outcomes recorded for security-sensitive decisions.
const (
	AuditOutcomeDenied          AuditOutcome = "denied"
	AuditOutcomeUnauthenticated AuditOutcome = "unauthenticated"
	AuditOutcomeRateLimited     AuditOutcome = "rate_limited"
	AuditOutcomeCsrfRejected    AuditOutcome = "csrf_rejected"
)

// SecurityAuditEvent represents the payload for gateway.security.audit messages.
// Delivery is best effort; the request outcome never depends on it.
type SecurityAuditEvent struct {
	EventID     string
	PrincipalID string
	Action      string
	Resource    string
	Outcome     AuditOutcome
	IPAddress   string
	UserAgent   string
	OccurredAt  time.Time
	Metadata    map[string]string
}
