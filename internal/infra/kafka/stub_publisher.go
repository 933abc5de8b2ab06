package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
)

// StubPublisher logs audit entries instead of sending them to Kafka.
// Used when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a logging publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubPublisher{logger: logger}
}

// PublishAudit logs the entry at debug level.
func (p *StubPublisher) PublishAudit(_ context.Context, entry domain.AuditEntry) error {
	actor := ""
	if entry.ActorID != nil {
		actor = *entry.ActorID
	}
	p.logger.Debug("audit event",
		zap.String("action", string(entry.Action)),
		zap.String("actor_id", actor),
		zap.String("target", entry.Target),
		zap.String("target_id", entry.TargetID),
		zap.Time("timestamp", entry.CreatedAt.UTC()),
		zap.Any("details", entry.Details),
	)
	return nil
}

var _ port.AuditPublisher = (*StubPublisher)(nil)
