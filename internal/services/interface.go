package services

import (
	"context"

	"docflow/backend/internal/engine"
)

// Logger is the logging surface used by the service layer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Backfiller processes the documents that existed before a hook was registered.
type Backfiller interface {
	ProcessExistingDocuments(ctx context.Context, collection, workflowID string) (engine.BackfillResult, error)
}

// HookRegistry installs and removes the lifecycle hooks of workflows.
type HookRegistry interface {
	Register(collection, workflowID string) bool
	Unregister(collection, workflowID string) int
	UnregisterWorkflow(workflowID string) int
}
