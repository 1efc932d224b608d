package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresSink materializes audit events into the audit_events table for
// querying. Inserts are idempotent via ON CONFLICT DO NOTHING so a worker
// restart replaying buffered events does not duplicate rows.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// EnsureSchema creates the audit_events table when it does not exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS audit_events (
			id          UUID PRIMARY KEY,
			occurred_at TIMESTAMPTZ NOT NULL,
			request_id  TEXT NOT NULL DEFAULT '',
			path        TEXT NOT NULL,
			decision    TEXT NOT NULL,
			reason      TEXT NOT NULL,
			subject     TEXT NOT NULL DEFAULT '',
			client_ip   TEXT NOT NULL DEFAULT '',
			device      TEXT NOT NULL DEFAULT '',
			device_fp   TEXT NOT NULL DEFAULT ''
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *PostgresSink) Name() string { return "postgres" }

// Write inserts the batch in one transaction so a mid-batch failure leaves
// no partial writes behind.
func (s *PostgresSink) Write(ctx context.Context, events []Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit insert: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO audit_events (
			id, occurred_at, request_id, path, decision, reason,
			subject, client_ip, device, device_fp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	for _, event := range events {
		if _, err := tx.ExecContext(ctx, query,
			event.ID,
			event.Time,
			event.RequestID,
			event.Path,
			event.Decision,
			event.Reason,
			event.Subject,
			event.ClientIP,
			event.Device,
			event.DeviceFP,
		); err != nil {
			return fmt.Errorf("insert audit event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit insert: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	return s.db.Close()
}
