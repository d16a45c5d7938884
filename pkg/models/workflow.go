// Package models defines the domain models for the approval workflow service
package models

import (
	"time"
)

// StepType classifies what a workflow step asks of its assignee
type StepType string

const (
	StepTypeApproval    StepType = "approval"
	StepTypeReview      StepType = "review"
	StepTypeSignOff     StepType = "sign-off"
	StepTypeCommentOnly StepType = "comment-only"
)

// Valid reports whether t is one of the known step types.
func (t StepType) Valid() bool {
	switch t {
	case StepTypeApproval, StepTypeReview, StepTypeSignOff, StepTypeCommentOnly:
		return true
	}
	return false
}

// StepTypes lists the accepted step types in display order.
var StepTypes = []StepType{StepTypeApproval, StepTypeReview, StepTypeSignOff, StepTypeCommentOnly}

// Condition auto-resolves a step from document data.
type Condition struct {
	FieldName    string `json:"field_name" yaml:"field_name"`
	Operator     string `json:"operator" yaml:"operator"`
	DesiredValue string `json:"desired_value" yaml:"desired_value"`
}

// Complete reports whether every part of the condition is set. Incomplete
// conditions leave the step unconditioned.
func (c *Condition) Complete() bool {
	return c != nil && c.FieldName != "" && c.Operator != "" && c.DesiredValue != ""
}

// Empty reports whether no part of the condition is set.
func (c *Condition) Empty() bool {
	return c == nil || (c.FieldName == "" && c.Operator == "" && c.DesiredValue == "")
}

// Step is a single stage of a workflow.
type Step struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"step_name" yaml:"step_name"`
	Type       StepType   `json:"type" yaml:"type"`
	AssignedTo string     `json:"assigned_to,omitempty" yaml:"assigned_to"`
	Condition  *Condition `json:"condition,omitempty" yaml:"condition"`
}

// Workflow is an ordered list of steps bound to exactly one document collection.
type Workflow struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	TargetCollection string    `json:"collection_name"`
	Steps            []Step    `json:"steps"`
	CreatedBy        string    `json:"created_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Step returns the step with the given id, or nil.
func (w *Workflow) Step(id string) *Step {
	for i := range w.Steps {
		if w.Steps[i].ID == id {
			return &w.Steps[i]
		}
	}
	return nil
}
