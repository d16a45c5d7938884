package repository

import (
	"context"
	"fmt"
)

type migration struct {
	version int
	name    string
	sql     string
}

// migrations are applied in order and recorded in schema_migrations.
var migrations = []migration{
	{1, "create_workflows", `
		CREATE TABLE IF NOT EXISTS workflows (
			id                TEXT PRIMARY KEY,
			name              TEXT NOT NULL,
			target_collection TEXT NOT NULL UNIQUE,
			steps             JSONB NOT NULL,
			created_by        TEXT NOT NULL DEFAULT '',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{2, "create_workflow_step_statuses", `
		CREATE TABLE IF NOT EXISTS workflow_step_statuses (
			id          TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL REFERENCES workflows (id) ON DELETE CASCADE,
			doc_id      TEXT NOT NULL,
			step_id     TEXT NOT NULL,
			status      TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
			updated_by  TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (workflow_id, doc_id, step_id)
		);
		CREATE INDEX IF NOT EXISTS idx_workflow_step_statuses_step
			ON workflow_step_statuses (workflow_id, step_id)`},
	{3, "create_workflow_audit_log", `
		CREATE TABLE IF NOT EXISTS workflow_audit_log (
			id          TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			step_id     TEXT NOT NULL DEFAULT '',
			initiator   TEXT NOT NULL,
			collection  TEXT NOT NULL,
			doc_id      TEXT NOT NULL,
			prev_status TEXT NOT NULL,
			cur_status  TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_workflow_audit_log_document
			ON workflow_audit_log (collection, doc_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_workflow_audit_log_workflow
			ON workflow_audit_log (workflow_id)`},
	{4, "create_users", `
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL UNIQUE,
			name       TEXT NOT NULL DEFAULT '',
			role       TEXT NOT NULL CHECK (role IN ('admin', 'staff', 'user')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{5, "create_documents", `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			data       JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection, id)
		)`},
	{6, "cascade_workflow_audit_log", `
		DELETE FROM workflow_audit_log a
			WHERE NOT EXISTS (SELECT 1 FROM workflows w WHERE w.id = a.workflow_id);
		ALTER TABLE workflow_audit_log
			ADD CONSTRAINT workflow_audit_log_workflow_id_fkey
			FOREIGN KEY (workflow_id) REFERENCES workflows (id) ON DELETE CASCADE`},
}

// Migrate applies every migration that has not run yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return wrap("create schema_migrations", err)
	}

	for _, m := range migrations {
		var applied bool
		err := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version).Scan(&applied)
		if err != nil {
			return wrap("check migration", err)
		}
		if applied {
			continue
		}

		tx, err := s.db.Begin(ctx)
		if err != nil {
			return wrap("begin migration", err)
		}
		if _, err := tx.Exec(ctx, m.sql); err != nil {
			rollback(ctx, tx)
			return fmt.Errorf("repository: migration %03d_%s: %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name); err != nil {
			rollback(ctx, tx)
			return wrap("record migration", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return wrap("commit migration", err)
		}
	}
	return nil
}
