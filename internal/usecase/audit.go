package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
)

// AuditMetrics counts audit outcomes.
type AuditMetrics interface {
	ObserveAudit(action string)
	ObserveAuditFailure(sink string)
}

// AuditTrail fans an entry out to durable storage and the event stream.
type AuditTrail struct {
	repo      port.AuditRepository
	publisher port.AuditPublisher
	metrics   AuditMetrics
	now       func() time.Time
}

// NewAuditTrail constructs the audit sink. publisher may be nil.
func NewAuditTrail(repo port.AuditRepository, publisher port.AuditPublisher) *AuditTrail {
	return &AuditTrail{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}
}

// WithMetrics attaches counters.
func (a *AuditTrail) WithMetrics(metrics AuditMetrics) *AuditTrail {
	a.metrics = metrics
	return a
}

// WithClock overrides the timestamp source.
func (a *AuditTrail) WithClock(clock func() time.Time) *AuditTrail {
	if clock != nil {
		a.now = clock
	}
	return a
}

// Record stamps the entry and writes it to every sink. Each sink is attempted
// even if another fails; failures are joined.
func (a *AuditTrail) Record(ctx context.Context, entry domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = a.now().UTC()
	}

	var errs []error
	if a.repo != nil {
		if err := a.repo.Append(ctx, entry); err != nil {
			a.observeFailure("postgres")
			errs = append(errs, fmt.Errorf("append audit entry: %w", err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.PublishAudit(ctx, entry); err != nil {
			a.observeFailure("kafka")
			errs = append(errs, fmt.Errorf("publish audit entry: %w", err))
		}
	}

	if a.metrics != nil {
		a.metrics.ObserveAudit(string(entry.Action))
	}
	return errors.Join(errs...)
}

func (a *AuditTrail) observeFailure(sink string) {
	if a.metrics != nil {
		a.metrics.ObserveAuditFailure(sink)
	}
}

var _ port.AuditSink = (*AuditTrail)(nil)

// recordAudit writes entry and logs instead of failing the caller: audit
// writes never change the outcome of the request that triggered them.
func recordAudit(ctx context.Context, sink port.AuditSink, logger *zap.Logger, entry domain.AuditEntry) {
	if sink == nil {
		return
	}
	if err := sink.Record(ctx, entry); err != nil {
		logger.Warn("audit write failed",
			zap.String("action", string(entry.Action)),
			zap.String("target_id", entry.TargetID),
			zap.Error(err),
		)
	}
}

func actorRef(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func userEntry(action domain.AuditAction, actorID, targetID string, details map[string]any) domain.AuditEntry {
	return domain.AuditEntry{
		ActorID:  actorRef(actorID),
		Action:   action,
		Target:   domain.AuditTargetUser,
		TargetID: targetID,
		Details:  details,
	}
}

// sleepContext blocks for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
