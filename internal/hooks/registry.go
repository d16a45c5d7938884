// Package hooks connects document lifecycle events to the workflow engine.
// A Registry maps each collection to an ordered list of registrations; the
// Store adapter consults it after every create and update.
package hooks

import (
	"context"
	"sync"

	"docflow/backend/internal/document"
)

// Processor runs a workflow against a document.
type Processor interface {
	ProcessDocument(ctx context.Context, collection, docID string, payload map[string]any, workflowID string) error
}

// Logger is the logging surface used by this package.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// EventKind is the document lifecycle event that fired a hook.
type EventKind string

const (
	EventCreate EventKind = "create"
	EventUpdate EventKind = "update"
)

// Registration is one hook installed on a collection.
type Registration struct {
	Key        string `json:"key"`
	Collection string `json:"collection_name"`
	WorkflowID string `json:"workflow_id"`
}

// Key returns the stable registration key of a workflow.
func Key(workflowID string) string {
	return "workflow-" + workflowID
}

// Registry holds the hooks of every collection.
type Registry struct {
	mu           sync.RWMutex
	byCollection map[string][]Registration
	processor    Processor
	logger       Logger
}

// NewRegistry creates an empty Registry whose hooks call processor.
func NewRegistry(processor Processor, logger Logger) *Registry {
	return &Registry{
		byCollection: make(map[string][]Registration),
		processor:    processor,
		logger:       logger,
	}
}

// Register installs the hook of workflowID on collection. Registering the
// same pair again is a no-op; the return value reports whether a hook was added.
func (r *Registry) Register(collection, workflowID string) bool {
	key := Key(workflowID)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, reg := range r.byCollection[collection] {
		if reg.Key == key {
			return false
		}
	}
	r.byCollection[collection] = append(r.byCollection[collection], Registration{
		Key:        key,
		Collection: collection,
		WorkflowID: workflowID,
	})
	r.logger.Info("hook registered", "collection", collection, "key", key)
	return true
}

// Unregister removes the hook of workflowID from collection and returns how
// many registrations were removed.
func (r *Registry) Unregister(collection, workflowID string) int {
	key := Key(workflowID)

	r.mu.Lock()
	regs := r.byCollection[collection]
	kept := regs[:0:0]
	for _, reg := range regs {
		if reg.Key != key {
			kept = append(kept, reg)
		}
	}
	removed := len(regs) - len(kept)
	if len(kept) == 0 {
		delete(r.byCollection, collection)
	} else {
		r.byCollection[collection] = kept
	}
	r.mu.Unlock()

	r.logger.Info("hook unregistered", "collection", collection, "key", key, "removed", removed)
	return removed
}

// UnregisterWorkflow removes the hooks of workflowID from every collection.
func (r *Registry) UnregisterWorkflow(workflowID string) int {
	r.mu.RLock()
	var collections []string
	for collection, regs := range r.byCollection {
		for _, reg := range regs {
			if reg.WorkflowID == workflowID {
				collections = append(collections, collection)
				break
			}
		}
	}
	r.mu.RUnlock()

	removed := 0
	for _, collection := range collections {
		removed += r.Unregister(collection, workflowID)
	}
	return removed
}

// Registrations returns the hooks of collection in registration order.
func (r *Registry) Registrations(collection string) []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]Registration(nil), r.byCollection[collection]...)
}

// Dispatch runs every hook of the document's collection in order. Hook
// failures are logged and never returned to the writer of the document.
func (r *Registry) Dispatch(ctx context.Context, kind EventKind, doc *document.Document) {
	for _, reg := range r.Registrations(doc.Collection) {
		if err := r.processor.ProcessDocument(ctx, doc.Collection, doc.ID, doc.Data, reg.WorkflowID); err != nil {
			r.logger.Error("hook failed", "event", kind, "collection", doc.Collection,
				"doc_id", doc.ID, "key", reg.Key, "error", err)
		}
	}
}
