package repository

import (
	"context"
	"errors"

	"docflow/backend/internal/document"
	"docflow/backend/pkg/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict is returned when a write violates a uniqueness rule.
	ErrConflict = errors.New("repository: conflict")
)

// WorkflowStore persists workflow definitions.
type WorkflowStore interface {
	// CreateWorkflow stores a new definition. Returns ErrConflict when the
	// target collection is already bound to another workflow.
	CreateWorkflow(ctx context.Context, workflow *models.Workflow) error
	// GetWorkflow retrieves a definition by id.
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	// GetWorkflowByCollection retrieves the definition bound to a collection.
	GetWorkflowByCollection(ctx context.Context, collection string) (*models.Workflow, error)
	// ListWorkflows returns every definition ordered by creation time.
	ListWorkflows(ctx context.Context) ([]*models.Workflow, error)
	// DeleteWorkflow removes a definition together with its statuses and
	// audit entries.
	DeleteWorkflow(ctx context.Context, id string) error
}

// StatusStore persists step statuses keyed by (workflow, document, step).
//
// It has two write paths. ReconcileStatus is used by automatic condition
// evaluation and never downgrades an approved step. TransitionStatus is used
// by authorized actors and writes any status. Both run as one atomic
// read-modify-write per key and create the record when it is absent. Writes
// for a workflow that does not exist return ErrNotFound.
type StatusStore interface {
	// GetStatus retrieves one status record.
	GetStatus(ctx context.Context, key models.StatusKey) (*models.StepStatus, error)
	// ListStatusesByDocument returns every status of a document under a workflow.
	ListStatusesByDocument(ctx context.Context, workflowID, documentID string) ([]*models.StepStatus, error)
	// ListStatusesByStep returns every status recorded for one step of a workflow.
	ListStatusesByStep(ctx context.Context, workflowID, stepID string) ([]*models.StepStatus, error)
	// ReconcileStatus applies an automatically computed status.
	ReconcileStatus(ctx context.Context, key models.StatusKey, computed models.Status) (models.StatusChange, error)
	// TransitionStatus applies a manual status change made by actorID.
	TransitionStatus(ctx context.Context, key models.StatusKey, status models.Status, actorID string) (models.StatusChange, error)
	// DeleteStatusesByWorkflow removes every status of a workflow.
	DeleteStatusesByWorkflow(ctx context.Context, workflowID string) (int64, error)
}

// AuditStore persists the append-only audit trail.
type AuditStore interface {
	// AppendAudit stores a new entry. Returns ErrNotFound when the entry's
	// workflow does not exist.
	AppendAudit(ctx context.Context, entry *models.AuditEntry) error
	// ListAuditByDocument returns the entries of one document, oldest first.
	ListAuditByDocument(ctx context.Context, collection, documentID string) ([]*models.AuditEntry, error)
	// DeleteAuditByWorkflow removes every entry of a workflow.
	DeleteAuditByWorkflow(ctx context.Context, workflowID string) (int64, error)
}

// UserStore persists known identities and their roles.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// CreateUser stores a new user. Returns ErrConflict for a known e-mail.
	CreateUser(ctx context.Context, user *models.User) error
	// ListUsersByRole returns users having any of roles; no roles lists everyone.
	ListUsersByRole(ctx context.Context, roles ...models.Role) ([]*models.User, error)
}

// Repository is the aggregate persistence interface implemented by every backend.
type Repository interface {
	WorkflowStore
	StatusStore
	AuditStore
	UserStore
	document.Store

	// Ping checks connectivity.
	Ping(ctx context.Context) error
}
