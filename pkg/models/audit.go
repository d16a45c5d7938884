package models

import "time"

// SystemInitiator marks audit entries written by automatic reconciliation.
const SystemInitiator = "system"

// AuditEntry records one observed status transition. Entries are append-only.
type AuditEntry struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	StepID     string    `json:"step_id"`
	Initiator  string    `json:"initiator"`
	Collection string    `json:"collection_affected"`
	DocumentID string    `json:"document_affected"`
	PrevStatus Status    `json:"prev_status"`
	CurStatus  Status    `json:"cur_status"`
	CreatedAt  time.Time `json:"created_at"`
}
