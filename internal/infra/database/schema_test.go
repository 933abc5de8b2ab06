package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type recordingExecer struct {
	sql string
	err error
}

func (r *recordingExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.sql = sql
	return pgconn.NewCommandTag("CREATE TABLE"), r.err
}

func TestEnsureSchemaAppliesEmbeddedSQL(t *testing.T) {
	db := &recordingExecer{}

	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("EnsureSchema returned error: %v", err)
	}

	for _, table := range []string{"accounts", "plants", "audit_entries"} {
		if !strings.Contains(db.sql, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("schema does not create %s", table)
		}
	}
	if !strings.Contains(db.sql, "accounts_email_key") || !strings.Contains(db.sql, "accounts_username_key") {
		t.Fatal("schema must name the unique constraints the repositories map to conflicts")
	}
}

func TestEnsureSchemaWrapsErrors(t *testing.T) {
	db := &recordingExecer{err: errors.New("permission denied")}

	if err := EnsureSchema(context.Background(), db); err == nil || !strings.Contains(err.Error(), "apply schema") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
