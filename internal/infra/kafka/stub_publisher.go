package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wwicak/kom-sabu-sub000/internal/core/domain"
	"github.com/wwicak/kom-sabu-sub000/internal/core/port"
)

// StubAuditSink logs audit events instead of sending them to Kafka. Useful
// for development environments without a broker.
type StubAuditSink struct {
	logger *zap.Logger
}

// NewStubAuditSink constructs a development-friendly audit sink.
func NewStubAuditSink(logger *zap.Logger) *StubAuditSink {
	return &StubAuditSink{logger: logger}
}

// Append logs the event at info level.
func (s *StubAuditSink) Append(_ context.Context, event domain.SecurityAuditEvent) error {
	at := event.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	s.logger.Info("Stub audit event",
		zap.String("event_id", event.EventID),
		zap.String("principal_id", event.PrincipalID),
		zap.String("action", event.Action),
		zap.String("resource", event.Resource),
		zap.String("outcome", string(event.Outcome)),
		zap.Time("occurred_at", at.UTC()),
	)
	return nil
}

var _ port.AuditSink = (*StubAuditSink)(nil)
