package port

import (
	"context"

	"github.com/wwicak/kom-sabu-sub000/internal/core/domain"
)

// AuditSink receives security audit events. Appends are best effort: callers
// must never fail a request because an append failed.
type AuditSink interface {
	Append(ctx context.Context, event domain.SecurityAuditEvent) error
}
