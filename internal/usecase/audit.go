package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wwicak/kom-sabu-sub000/internal/core/domain"
	"github.com/wwicak/kom-sabu-sub000/internal/core/port"
)

const auditAppendTimeout = 5 * time.Second

// AuditRecorder forwards security audit events to the configured sink without
// blocking the request path.
type AuditRecorder struct {
	sink   port.AuditSink
	clock  port.Clock
	logger *zap.Logger
}

// NewAuditRecorder constructs an AuditRecorder.
func NewAuditRecorder(sink port.AuditSink, clock port.Clock, logger *zap.Logger) *AuditRecorder {
	if clock == nil {
		clock = port.SystemClock
	}
	return &AuditRecorder{sink: sink, clock: clock, logger: logger}
}

// Record fills in the event identity and timestamp and appends the event in a
// background goroutine. Sink failures are logged, never surfaced to the
// caller; a lost audit event must not fail the request that produced it.
func (r *AuditRecorder) Record(event domain.SecurityAuditEvent) {
	if r == nil || r.sink == nil {
		return
	}

	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = r.clock()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditAppendTimeout)
		defer cancel()

		if err := r.sink.Append(ctx, event); err != nil {
			r.logger.Warn("audit append failed",
				zap.Error(err),
				zap.String("event_id", event.EventID),
				zap.String("outcome", string(event.Outcome)),
			)
		}
	}()
}
