package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"docflow/backend/pkg/models"
)

const statusColumns = `id, workflow_id, doc_id, step_id, status, updated_by, created_at, updated_at`

func scanStatus(row pgx.Row) (*models.StepStatus, error) {
	var st models.StepStatus
	err := row.Scan(&st.ID, &st.WorkflowID, &st.DocumentID, &st.StepID, &st.Status, &st.UpdatedBy, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *PostgresStore) listStatuses(ctx context.Context, op, where string, args ...any) ([]*models.StepStatus, error) {
	rows, err := s.db.Query(ctx, `SELECT `+statusColumns+` FROM workflow_step_statuses WHERE `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var statuses []*models.StepStatus
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

// GetStatus retrieves one step status.
func (s *PostgresStore) GetStatus(ctx context.Context, key models.StatusKey) (*models.StepStatus, error) {
	st, err := scanStatus(s.db.QueryRow(ctx,
		`SELECT `+statusColumns+` FROM workflow_step_statuses
		 WHERE workflow_id = $1 AND doc_id = $2 AND step_id = $3`,
		key.WorkflowID, key.DocumentID, key.StepID))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, wrap("get status", err)
	}
	return st, nil
}

// ListStatusesByDocument returns the statuses of one document under a workflow.
func (s *PostgresStore) ListStatusesByDocument(ctx context.Context, workflowID, documentID string) ([]*models.StepStatus, error) {
	return s.listStatuses(ctx, "list statuses by document", `workflow_id = $1 AND doc_id = $2`, workflowID, documentID)
}

// ListStatusesByStep returns the statuses recorded for one step.
func (s *PostgresStore) ListStatusesByStep(ctx context.Context, workflowID, stepID string) ([]*models.StepStatus, error) {
	return s.listStatuses(ctx, "list statuses by step", `workflow_id = $1 AND step_id = $2`, workflowID, stepID)
}

// lockStatus locks the record for key inside tx and returns its status. When
// the record is absent it is inserted with initial and created is true.
// Concurrent creators are resolved by the unique (workflow_id, doc_id,
// step_id) constraint: the loser waits, inserts nothing and re-reads.
func lockStatus(ctx context.Context, tx pgx.Tx, key models.StatusKey, initial models.Status, actorID string) (current models.Status, created bool, err error) {
	const selectForUpdate = `SELECT status FROM workflow_step_statuses
		WHERE workflow_id = $1 AND doc_id = $2 AND step_id = $3 FOR UPDATE`

	err = tx.QueryRow(ctx, selectForUpdate, key.WorkflowID, key.DocumentID, key.StepID).Scan(&current)
	if err == nil {
		return current, false, nil
	}
	if !isNoRows(err) {
		return "", false, err
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO workflow_step_statuses (id, workflow_id, doc_id, step_id, status, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (workflow_id, doc_id, step_id) DO NOTHING`,
		uuid.New().String(), key.WorkflowID, key.DocumentID, key.StepID, initial, actorID)
	if err != nil {
		return "", false, err
	}
	if tag.RowsAffected() == 1 {
		return initial, true, nil
	}

	err = tx.QueryRow(ctx, selectForUpdate, key.WorkflowID, key.DocumentID, key.StepID).Scan(&current)
	return current, false, err
}

func setStatus(ctx context.Context, tx pgx.Tx, key models.StatusKey, status models.Status, actorID string) error {
	_, err := tx.Exec(ctx,
		`UPDATE workflow_step_statuses SET status = $4, updated_by = $5, updated_at = NOW()
		 WHERE workflow_id = $1 AND doc_id = $2 AND step_id = $3`,
		key.WorkflowID, key.DocumentID, key.StepID, status, actorID)
	return err
}

// ReconcileStatus applies an automatically computed status. An approved step
// stays approved.
func (s *PostgresStore) ReconcileStatus(ctx context.Context, key models.StatusKey, computed models.Status) (models.StatusChange, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return models.StatusChange{}, wrap("reconcile status", err)
	}
	defer rollback(ctx, tx)

	current, created, err := lockStatus(ctx, tx, key, computed, models.SystemInitiator)
	if isForeignKeyViolation(err) {
		return models.StatusChange{}, ErrNotFound
	}
	if err != nil {
		return models.StatusChange{}, wrap("reconcile status", err)
	}
	change := models.StatusChange{Previous: current, Current: current, Created: created}
	if created {
		change.Previous = models.StatusPending
	} else {
		change.Current = models.ReconcileStatus(current, computed)
		if change.Changed() {
			if err := setStatus(ctx, tx, key, change.Current, models.SystemInitiator); err != nil {
				return models.StatusChange{}, wrap("reconcile status", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return models.StatusChange{}, wrap("reconcile status", err)
	}
	return change, nil
}

// TransitionStatus writes a manual status change.
func (s *PostgresStore) TransitionStatus(ctx context.Context, key models.StatusKey, status models.Status, actorID string) (models.StatusChange, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return models.StatusChange{}, wrap("transition status", err)
	}
	defer rollback(ctx, tx)

	current, created, err := lockStatus(ctx, tx, key, status, actorID)
	if isForeignKeyViolation(err) {
		return models.StatusChange{}, ErrNotFound
	}
	if err != nil {
		return models.StatusChange{}, wrap("transition status", err)
	}
	change := models.StatusChange{Previous: current, Current: status, Created: created}
	if created {
		change.Previous = models.StatusPending
	} else if change.Changed() {
		if err := setStatus(ctx, tx, key, status, actorID); err != nil {
			return models.StatusChange{}, wrap("transition status", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return models.StatusChange{}, wrap("transition status", err)
	}
	return change, nil
}

// DeleteStatusesByWorkflow removes every status of a workflow.
func (s *PostgresStore) DeleteStatusesByWorkflow(ctx context.Context, workflowID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM workflow_step_statuses WHERE workflow_id = $1`, workflowID)
	if err != nil {
		return 0, wrap("delete statuses", err)
	}
	return tag.RowsAffected(), nil
}
