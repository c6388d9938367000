package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wwicak/kom-sabu-sub000/internal/core/domain"
	"github.com/wwicak/kom-sabu-sub000/internal/core/port"
	"github.com/wwicak/kom-sabu-sub000/internal/infra/config"
)

const (
	schemaVersion  = "1.0"
	auditEventType = "security.audit"
)

// AuditPublisher implements port.AuditSink using Kafka.
type AuditPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewAuditPublisher constructs a Kafka-backed audit sink.
func NewAuditPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *AuditPublisher {
	return &AuditPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

// Append publishes the audit event on the gateway.security.audit topic. The
// send is asynchronous; delivery failures surface on the producer error
// channel, not here.
func (p *AuditPublisher) Append(ctx context.Context, event domain.SecurityAuditEvent) error {
	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := event.EventID
	if id == "" {
		id = uuid.NewString()
	}

	payload := struct {
		PrincipalID string            `json:"principal_id,omitempty"`
		Action      string            `json:"action"`
		Resource    string            `json:"resource"`
		Outcome     string            `json:"outcome"`
		IPAddress   string            `json:"ip_address,omitempty"`
		UserAgent   string            `json:"user_agent,omitempty"`
		OccurredAt  time.Time         `json:"occurred_at"`
		Metadata    map[string]string `json:"metadata,omitempty"`
	}{
		PrincipalID: event.PrincipalID,
		Action:      event.Action,
		Resource:    event.Resource,
		Outcome:     string(event.Outcome),
		IPAddress:   event.IPAddress,
		UserAgent:   event.UserAgent,
		OccurredAt:  ts.UTC(),
		Metadata:    event.Metadata,
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: auditEventType,
		UserID:    event.PrincipalID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: envelopeMetadata{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal audit envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(auditEventType),
		Key:   sarama.StringEncoder(id),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ port.AuditSink = (*AuditPublisher)(nil)
