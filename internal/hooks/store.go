package hooks

import (
	"context"

	"docflow/backend/internal/document"
)

var _ document.Store = (*Store)(nil)

// Store is a document.Store that dispatches lifecycle hooks after every
// successful create and update.
type Store struct {
	document.Store
	registry *Registry
}

// NewStore wraps next.
func NewStore(next document.Store, registry *Registry) *Store {
	return &Store{Store: next, registry: registry}
}

// Create stores the document and fires the create hooks.
func (s *Store) Create(ctx context.Context, collection string, data map[string]any) (*document.Document, error) {
	doc, err := s.Store.Create(ctx, collection, data)
	if err != nil {
		return nil, err
	}
	s.registry.Dispatch(ctx, EventCreate, doc)
	return doc, nil
}

// Update merges data and fires the update hooks with the merged document.
func (s *Store) Update(ctx context.Context, collection, id string, data map[string]any) (*document.Document, error) {
	doc, err := s.Store.Update(ctx, collection, id, data)
	if err != nil {
		return nil, err
	}
	s.registry.Dispatch(ctx, EventUpdate, doc)
	return doc, nil
}

// UpdateWhere merges data into every match and fires the update hooks for each.
func (s *Store) UpdateWhere(ctx context.Context, collection string, f document.Filter, data map[string]any) ([]*document.Document, error) {
	docs, err := s.Store.UpdateWhere(ctx, collection, f, data)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		s.registry.Dispatch(ctx, EventUpdate, doc)
	}
	return docs, nil
}
