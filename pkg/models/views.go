package models

// StepView joins a step definition with its current status for one document.
type StepView struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Type          StepType `json:"type"`
	AssignedTo    string   `json:"assigned_to,omitempty"`
	FieldName     string   `json:"field_name,omitempty"`
	Operator      string   `json:"operator,omitempty"`
	DesiredValue  string   `json:"desired_value,omitempty"`
	CurrentStatus Status   `json:"current_status"`
}

// AssignedStepView is one document's status for a step assigned to the caller.
type AssignedStepView struct {
	ID             string   `json:"id"`
	StepID         string   `json:"step_id"`
	StepName       string   `json:"step_name"`
	Type           StepType `json:"type"`
	Status         Status   `json:"step_status"`
	WorkflowID     string   `json:"workflow_id"`
	WorkflowName   string   `json:"workflow_name"`
	DocumentID     string   `json:"doc_id"`
	CollectionName string   `json:"collection_name"`
	AssignedTo     string   `json:"assigned_to"`
}

// TransitionResult is returned by a manual step transition.
type TransitionResult struct {
	Message  string `json:"message"`
	StepID   string `json:"step_id"`
	Previous Status `json:"prev_status"`
	Status   Status `json:"step_status"`
	Changed  bool   `json:"changed"`
}

// HealthStatus represents service health
type HealthStatus struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}
