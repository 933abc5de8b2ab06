package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
)

const auditTable = "audit_entries"

// AuditRepository appends to the audit_entries table. Rows are never
// updated or deleted.
type AuditRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditRepository wires a PostgreSQL-backed audit log.
func NewAuditRepository(exec pgExecutor) *AuditRepository {
	return &AuditRepository{
		exec:    exec,
		builder: newBuilder(),
	}
}

// Append stores one entry.
func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	details := []byte("{}")
	if len(entry.Details) > 0 {
		payload, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		details = payload
	}

	stmt, args, err := r.builder.Insert(auditTable).
		Columns("id", "actor_id", "action", "target", "target_id", "details", "created_at").
		Values(
			entry.ID,
			entry.ActorID,
			string(entry.Action),
			entry.Target,
			entry.TargetID,
			details,
			entry.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit entry sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

var _ port.AuditRepository = (*AuditRepository)(nil)
