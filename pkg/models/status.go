package models

import "time"

// Status is the approval state of one step for one document.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// StatusKey identifies a StepStatus. At most one record exists per key.
type StatusKey struct {
	WorkflowID string
	DocumentID string
	StepID     string
}

// StepStatus is the current approval state of one step for one document instance.
type StepStatus struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	DocumentID string    `json:"doc_id"`
	StepID     string    `json:"step_id"`
	Status     Status    `json:"step_status"`
	UpdatedBy  string    `json:"updated_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Key returns the identity of the record.
func (s *StepStatus) Key() StatusKey {
	return StatusKey{WorkflowID: s.WorkflowID, DocumentID: s.DocumentID, StepID: s.StepID}
}

// StatusChange reports the outcome of a status write.
type StatusChange struct {
	Previous Status
	Current  Status
	Created  bool
}

// Changed reports whether the write moved the step to a different status.
func (c StatusChange) Changed() bool { return c.Previous != c.Current }

// ReconcileStatus computes the status an automatic reconciliation stores when
// the current status is current and the condition evaluation produced computed.
// Approved is never downgraded by automation.
func ReconcileStatus(current, computed Status) Status {
	if current == StatusApproved {
		return StatusApproved
	}
	return computed
}
