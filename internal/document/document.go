// Package document holds the document model the workflow engine reads from,
// the typed field view used to resolve condition fields, and the contract of
// the external document store.
package document

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document: not found")

// Document is one record of a collection. The engine never mutates it.
type Document struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Data       map[string]any `json:"data"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Query selects documents of a collection. A zero Limit returns every match.
type Query struct {
	Filter Filter
	Limit  int
	Offset int
}

// FindResult is a page of documents plus the total number of matches.
type FindResult struct {
	Docs      []*Document `json:"docs"`
	TotalDocs int         `json:"totalDocs"`
}

// Store is the generic document store keyed by collection name and document id.
type Store interface {
	// Find returns the documents of collection matching q, ordered by creation time.
	Find(ctx context.Context, collection string, q Query) (*FindResult, error)
	// FindByID returns one document or ErrNotFound.
	FindByID(ctx context.Context, collection, id string) (*Document, error)
	// Create stores a new document. A string "id" in data is used as the document id.
	Create(ctx context.Context, collection string, data map[string]any) (*Document, error)
	// Update merges data into the top-level fields of an existing document.
	Update(ctx context.Context, collection, id string, data map[string]any) (*Document, error)
	// UpdateWhere merges data into every document matching f.
	UpdateWhere(ctx context.Context, collection string, f Filter, data map[string]any) ([]*Document, error)
	// Delete removes one document or returns ErrNotFound.
	Delete(ctx context.Context, collection, id string) error
	// DeleteWhere removes every document matching f and returns how many were removed.
	DeleteWhere(ctx context.Context, collection string, f Filter) (int, error)
}
