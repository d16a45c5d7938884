package repository

import (
	"context"
	"time"

	"docflow/backend/pkg/models"
)

// AppendAudit stores a new audit entry.
func (s *PostgresStore) AppendAudit(ctx context.Context, e *models.AuditEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO workflow_audit_log
			(id, workflow_id, step_id, initiator, collection, doc_id, prev_status, cur_status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.WorkflowID, e.StepID, e.Initiator, e.Collection, e.DocumentID, e.PrevStatus, e.CurStatus, e.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return wrap("append audit", err)
	}
	return nil
}

// ListAuditByDocument returns the audit trail of one document, oldest first.
func (s *PostgresStore) ListAuditByDocument(ctx context.Context, collection, documentID string) ([]*models.AuditEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, workflow_id, step_id, initiator, collection, doc_id, prev_status, cur_status, created_at
		 FROM workflow_audit_log
		 WHERE collection = $1 AND doc_id = $2
		 ORDER BY created_at, id`, collection, documentID)
	if err != nil {
		return nil, wrap("list audit", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.WorkflowID, &e.StepID, &e.Initiator, &e.Collection,
			&e.DocumentID, &e.PrevStatus, &e.CurStatus, &e.CreatedAt); err != nil {
			return nil, wrap("scan audit", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// DeleteAuditByWorkflow removes the audit trail of a workflow.
func (s *PostgresStore) DeleteAuditByWorkflow(ctx context.Context, workflowID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM workflow_audit_log WHERE workflow_id = $1`, workflowID)
	if err != nil {
		return 0, wrap("delete audit", err)
	}
	return tag.RowsAffected(), nil
}
