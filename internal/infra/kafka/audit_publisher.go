package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/trace"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/infra/config"
)

const schemaVersion = "1.0"

// AuditPublisher streams audit entries to Kafka, one topic per action.
type AuditPublisher struct {
	producer *Producer
	appCfg   config.AppSettings
}

// NewAuditPublisher constructs a Kafka-backed audit publisher.
func NewAuditPublisher(producer *Producer, appCfg config.AppSettings) *AuditPublisher {
	return &AuditPublisher{producer: producer, appCfg: appCfg}
}

type envelopeMetadata map[string]string

type auditEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	ActorID   *string          `json:"actor_id,omitempty"`
	Target    string           `json:"target,omitempty"`
	TargetID  string           `json:"target_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Details   map[string]any   `json:"details,omitempty"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

// PublishAudit enqueues the entry on "<prefix>.audit.<action>". Delivery is
// asynchronous; only enqueueing honours ctx.
func (p *AuditPublisher) PublishAudit(ctx context.Context, entry domain.AuditEntry) error {
	ts := entry.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	eventType := "audit." + string(entry.Action)
	payload, err := json.Marshal(auditEnvelope{
		EventID:   entry.ID,
		EventType: eventType,
		ActorID:   entry.ActorID,
		Target:    entry.Target,
		TargetID:  entry.TargetID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Details:   entry.Details,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal audit envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(entry.TargetID),
		Value: sarama.ByteEncoder(payload),
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ port.AuditPublisher = (*AuditPublisher)(nil)
