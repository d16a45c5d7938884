package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"docflow/backend/pkg/models"
)

const workflowColumns = `id, name, target_collection, steps, created_by, created_at, updated_at`

func scanWorkflow(row pgx.Row) (*models.Workflow, error) {
	var w models.Workflow
	err := row.Scan(&w.ID, &w.Name, &w.TargetCollection, &w.Steps, &w.CreatedBy, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// CreateWorkflow stores a new workflow definition.
func (s *PostgresStore) CreateWorkflow(ctx context.Context, w *models.Workflow) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO workflows (id, name, target_collection, steps, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		w.ID, w.Name, w.TargetCollection, w.Steps, w.CreatedBy,
	).Scan(&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return wrap("create workflow", err)
	}
	return nil
}

// GetWorkflow retrieves a workflow definition by id.
func (s *PostgresStore) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	w, err := scanWorkflow(s.db.QueryRow(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, wrap("get workflow", err)
	}
	return w, nil
}

// GetWorkflowByCollection retrieves the workflow bound to a collection.
func (s *PostgresStore) GetWorkflowByCollection(ctx context.Context, collection string) (*models.Workflow, error) {
	w, err := scanWorkflow(s.db.QueryRow(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE target_collection = $1`, collection))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, wrap("get workflow by collection", err)
	}
	return w, nil
}

// ListWorkflows returns every workflow definition.
func (s *PostgresStore) ListWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := s.db.Query(ctx, `SELECT `+workflowColumns+` FROM workflows ORDER BY created_at, id`)
	if err != nil {
		return nil, wrap("list workflows", err)
	}
	defer rows.Close()

	var workflows []*models.Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, wrap("scan workflow", err)
		}
		workflows = append(workflows, w)
	}
	return workflows, rows.Err()
}

// DeleteWorkflow removes a workflow definition. Statuses and audit entries
// go with it through ON DELETE CASCADE.
func (s *PostgresStore) DeleteWorkflow(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return wrap("delete workflow", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
