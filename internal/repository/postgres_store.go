// Package repository persists workflows, step statuses, audit entries, users
// and documents. PostgresStore is the production backend; MemoryStore backs
// tests and local development.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Repository = (*PostgresStore)(nil)

// PostgresStore is a PostgreSQL implementation of Repository.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isDuplicateKey reports a unique_violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// isForeignKeyViolation reports a foreign_key_violation (23503), raised when a
// status or audit row references a workflow that does not exist.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func rollback(ctx context.Context, tx pgx.Tx) {
	_ = tx.Rollback(ctx) //nolint:errcheck // no-op after commit
}

func wrap(op string, err error) error {
	return fmt.Errorf("repository: %s: %w", op, err)
}
