package services

import (
	"context"
	"errors"
	"strings"

	"docflow/backend/internal/document"
	"docflow/backend/internal/repository"
	"docflow/backend/pkg/models"
)

// MaxDocumentPage caps the page size of ListDocuments.
const MaxDocumentPage = 500

func documentError(err error, collection, id string) error {
	switch {
	case errors.Is(err, document.ErrNotFound):
		return notFound("document %q not found in %q", id, collection)
	case errors.Is(err, repository.ErrConflict):
		return conflict("document %q already exists in %q", id, collection)
	default:
		return internal("document store failure", err)
	}
}

func requireCollection(collection string) error {
	if strings.TrimSpace(collection) == "" {
		return invalid("collection is required")
	}
	return nil
}

// CreateDocument stores a document. Workflow hooks of the collection run
// before it returns.
func (s *WorkflowService) CreateDocument(ctx context.Context, actor *models.Actor, collection string, data map[string]any) (*document.Document, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if err := requireCollection(collection); err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	doc, err := s.documents.Create(ctx, collection, data)
	if err != nil {
		id, _ := data["id"].(string)
		return nil, documentError(err, collection, id)
	}
	return doc, nil
}

// UpdateDocument merges data into a document. Workflow hooks of the
// collection run before it returns.
func (s *WorkflowService) UpdateDocument(ctx context.Context, actor *models.Actor, collection, id string, data map[string]any) (*document.Document, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	doc, err := s.documents.Update(ctx, collection, id, data)
	if err != nil {
		return nil, documentError(err, collection, id)
	}
	return doc, nil
}

// GetDocument returns one document to any authenticated caller.
func (s *WorkflowService) GetDocument(ctx context.Context, actor *models.Actor, collection, id string) (*document.Document, error) {
	if actor == nil {
		return nil, unauthenticated()
	}
	doc, err := s.documents.FindByID(ctx, collection, id)
	if err != nil {
		return nil, documentError(err, collection, id)
	}
	return doc, nil
}

// ListDocuments returns a page of a collection to any authenticated caller.
func (s *WorkflowService) ListDocuments(ctx context.Context, actor *models.Actor, collection string, q document.Query) (*document.FindResult, error) {
	if actor == nil {
		return nil, unauthenticated()
	}
	if q.Limit <= 0 || q.Limit > MaxDocumentPage {
		q.Limit = MaxDocumentPage
	}
	if q.Offset < 0 {
		return nil, invalid("offset must not be negative")
	}
	res, err := s.documents.Find(ctx, collection, q)
	if err != nil {
		return nil, internal("document store failure", err)
	}
	if res.Docs == nil {
		res.Docs = []*document.Document{}
	}
	return res, nil
}

// DeleteDocument removes a document.
func (s *WorkflowService) DeleteDocument(ctx context.Context, actor *models.Actor, collection, id string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if err := s.documents.Delete(ctx, collection, id); err != nil {
		return documentError(err, collection, id)
	}
	return nil
}
