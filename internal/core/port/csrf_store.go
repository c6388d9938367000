package port

import (
	"context"
	"time"

	"github.com/wwicak/kom-sabu-sub000/internal/core/domain"
)

// CsrfTokenStore maps opaque session identifiers to their canonical token.
// Get must treat an expired record as absent and evict it, so a concurrent
// sweeper can never resurrect a stale token. Put replaces any previous token for
// the session; a session holds at most one live token.
type CsrfTokenStore interface {
	Get(ctx context.Context, sessionID string, now time.Time) (*domain.CsrfSession, error)
	Put(ctx context.Context, session domain.CsrfSession) error
	Delete(ctx context.Context, sessionID string) error
	Sweep(ctx context.Context, now time.Time) (int, error)
}
