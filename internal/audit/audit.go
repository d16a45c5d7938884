// Package audit delivers step status audit entries to their sinks. Entries
// are appended by the engine and the transition API; delivery never blocks
// or fails the status write that produced the entry.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"docflow/backend/internal/repository"
	"docflow/backend/pkg/models"
)

// Sink receives audit entries.
type Sink interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
}

// Logger is the logging surface used by this package.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NewEntry builds an entry stamped with a fresh id and the current time.
func NewEntry(workflowID, stepID, initiator, collection, documentID string, change models.StatusChange) *models.AuditEntry {
	return &models.AuditEntry{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		StepID:     stepID,
		Initiator:  initiator,
		Collection: collection,
		DocumentID: documentID,
		PrevStatus: change.Previous,
		CurStatus:  change.Current,
		CreatedAt:  time.Now().UTC(),
	}
}

// StoreSink appends entries to the audit table.
type StoreSink struct {
	store repository.AuditStore
}

// NewStoreSink creates a StoreSink.
func NewStoreSink(store repository.AuditStore) *StoreSink {
	return &StoreSink{store: store}
}

// Append stores entry.
func (s *StoreSink) Append(ctx context.Context, entry *models.AuditEntry) error {
	return s.store.AppendAudit(ctx, entry)
}

// Multi fans an entry out to every sink. All sinks are attempted; their
// errors are joined.
type Multi []Sink

// Append delivers entry to each sink in order.
func (m Multi) Append(ctx context.Context, entry *models.AuditEntry) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every entry.
type Discard struct{}

// Append does nothing.
func (Discard) Append(context.Context, *models.AuditEntry) error { return nil }
