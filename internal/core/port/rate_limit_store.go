package port

import (
	"context"
	"time"

	"github.com/wwicak/kom-sabu-sub000/internal/core/domain"
)

// RateLimitStore is a key-scoped counter table with expiry. Check performs the
// whole fixed-window check-and-increment atomically: concurrent calls for the
// same key are linearizable, so two racing requests can never both read a stale
// count. Entries whose window has ended are treated as absent on read even if a
// sweep has not deleted them yet.
type RateLimitStore interface {
	Check(ctx context.Context, key string, window time.Duration, limit int, now time.Time) (domain.RateLimitDecision, error)
	Delete(ctx context.Context, key string) error
	Sweep(ctx context.Context, now time.Time) (int, error)
}
