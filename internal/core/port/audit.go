package port

import (
	"context"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
)

// AuditSink receives security-relevant events.
type AuditSink interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
}

// AuditRepository appends audit entries to durable storage.
type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
}

// AuditPublisher forwards audit entries to downstream consumers.
type AuditPublisher interface {
	PublishAudit(ctx context.Context, entry domain.AuditEntry) error
}
