// Package services implements the step transition API: workflow
// administration, status queries and manual transitions, each guarded by the
// caller's role.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"docflow/backend/internal/audit"
	"docflow/backend/internal/condition"
	"docflow/backend/internal/document"
	"docflow/backend/internal/repository"
	"docflow/backend/pkg/models"
)

// MinSteps is the smallest number of steps a workflow may have.
const MinSteps = 2

// WorkflowService is the entry point for every workflow operation.
type WorkflowService struct {
	repo      repository.Repository
	documents document.Store
	hooks     HookRegistry
	backfill  Backfiller
	audit     audit.Sink
	logger    Logger

	transitions metric.Int64Counter
	backfills   sync.WaitGroup
}

// NewWorkflowService creates a new WorkflowService. documents is the
// hook-dispatching view of the document store used by the documents facade.
func NewWorkflowService(repo repository.Repository, documents document.Store, hooks HookRegistry,
	backfill Backfiller, sink audit.Sink, logger Logger) *WorkflowService {
	// On error the API returns a noop instrument.
	transitions, _ := otel.Meter("docflow/backend/services").Int64Counter(
		"docflow.services.manual_transitions",
		metric.WithDescription("Step status changes made by authorized actors"),
		metric.WithUnit("{transition}"),
	)
	return &WorkflowService{
		repo:        repo,
		documents:   documents,
		hooks:       hooks,
		backfill:    backfill,
		audit:       sink,
		logger:      logger,
		transitions: transitions,
	}
}

func requireStaff(actor *models.Actor) error {
	if actor == nil {
		return unauthenticated()
	}
	if !actor.IsStaff() {
		return forbidden("role %q may not perform this operation", actor.Role)
	}
	return nil
}

func requireAdmin(actor *models.Actor) error {
	if actor == nil {
		return unauthenticated()
	}
	if !actor.IsAdmin() {
		return forbidden("only admins may perform this operation")
	}
	return nil
}

func (s *WorkflowService) workflowByCollection(ctx context.Context, collection string) (*models.Workflow, error) {
	wf, err := s.repo.GetWorkflowByCollection(ctx, collection)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("no workflow is bound to collection %q", collection)
	}
	if err != nil {
		return nil, internal("failed to load workflow", err)
	}
	return wf, nil
}

func (s *WorkflowService) workflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	wf, err := s.repo.GetWorkflow(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("workflow %q not found", id)
	}
	if err != nil {
		return nil, internal("failed to load workflow", err)
	}
	return wf, nil
}

// GetStatus returns every step of the collection's workflow with its current
// status for docID. Steps without a status record are pending.
func (s *WorkflowService) GetStatus(ctx context.Context, actor *models.Actor, collection, docID string) ([]models.StepView, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	wf, err := s.workflowByCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	statuses, err := s.repo.ListStatusesByDocument(ctx, wf.ID, docID)
	if err != nil {
		return nil, internal("failed to load step statuses", err)
	}
	current := make(map[string]models.Status, len(statuses))
	for _, st := range statuses {
		current[st.StepID] = st.Status
	}

	views := make([]models.StepView, 0, len(wf.Steps))
	for _, step := range wf.Steps {
		view := models.StepView{
			ID:            step.ID,
			Name:          step.Name,
			Type:          step.Type,
			AssignedTo:    step.AssignedTo,
			CurrentStatus: models.StatusPending,
		}
		if c := step.Condition; c != nil {
			view.FieldName, view.Operator, view.DesiredValue = c.FieldName, c.Operator, c.DesiredValue
		}
		if st, ok := current[step.ID]; ok {
			view.CurrentStatus = st
		}
		views = append(views, view)
	}
	return views, nil
}

// TriggerTransition sets the status of one step for one document. The caller
// must be admin, or staff assigned to the step. Setting the current status
// again succeeds without writing.
func (s *WorkflowService) TriggerTransition(ctx context.Context, actor *models.Actor, collection, docID, stepID string, status models.Status) (*models.TransitionResult, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(stepID) == "" {
		return nil, invalid("step_id is required")
	}
	if !status.Valid() {
		return nil, invalid("invalid step status %q", status)
	}
	if strings.TrimSpace(docID) == "" {
		return nil, invalid("document id is required")
	}
	wf, err := s.workflowByCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	step := wf.Step(stepID)
	if step == nil {
		return nil, invalid("step %q is not part of workflow %q", stepID, wf.Name)
	}
	if !actor.IsAdmin() && step.AssignedTo != actor.ID {
		return nil, forbidden("you are not allowed to update step %q", step.Name)
	}

	key := models.StatusKey{WorkflowID: wf.ID, DocumentID: docID, StepID: stepID}
	previous := models.StatusPending
	existing, err := s.repo.GetStatus(ctx, key)
	switch {
	case err == nil:
		previous = existing.Status
	case !errors.Is(err, repository.ErrNotFound):
		return nil, internal("failed to load step status", err)
	}
	if previous == status {
		return unchanged(stepID, status), nil
	}

	change, err := s.repo.TransitionStatus(ctx, key, status, actor.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("workflow %q was deleted", wf.Name)
	}
	if err != nil {
		return nil, internal("failed to update step status", err)
	}
	if !change.Changed() {
		return unchanged(stepID, status), nil
	}

	s.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
	entry := audit.NewEntry(wf.ID, stepID, actor.ID, collection, docID, change)
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error("audit append failed", "workflow_id", wf.ID, "doc_id", docID, "step_id", stepID, "error", err)
	}
	s.logger.Info("step status changed", "workflow_id", wf.ID, "doc_id", docID, "step_id", stepID,
		"prev_status", change.Previous, "step_status", change.Current, "actor", actor.ID)

	return &models.TransitionResult{
		Message:  fmt.Sprintf("Step status updated to %s", status),
		StepID:   stepID,
		Previous: change.Previous,
		Status:   change.Current,
		Changed:  true,
	}, nil
}

func unchanged(stepID string, status models.Status) *models.TransitionResult {
	return &models.TransitionResult{
		Message:  fmt.Sprintf("Step is already %s, nothing to update", status),
		StepID:   stepID,
		Previous: status,
		Status:   status,
	}
}

// ListAssignedSteps returns the status records of every step assigned to the
// caller. Only exact assignments are listed, for admins too.
func (s *WorkflowService) ListAssignedSteps(ctx context.Context, actor *models.Actor) ([]models.AssignedStepView, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	workflows, err := s.repo.ListWorkflows(ctx)
	if err != nil {
		return nil, internal("failed to list workflows", err)
	}

	views := []models.AssignedStepView{}
	for _, wf := range workflows {
		for _, step := range wf.Steps {
			if step.AssignedTo == "" || step.AssignedTo != actor.ID {
				continue
			}
			statuses, err := s.repo.ListStatusesByStep(ctx, wf.ID, step.ID)
			if err != nil {
				return nil, internal("failed to load step statuses", err)
			}
			for _, st := range statuses {
				views = append(views, models.AssignedStepView{
					ID:             st.ID,
					StepID:         step.ID,
					StepName:       step.Name,
					Type:           step.Type,
					Status:         st.Status,
					WorkflowID:     wf.ID,
					WorkflowName:   wf.Name,
					DocumentID:     st.DocumentID,
					CollectionName: wf.TargetCollection,
					AssignedTo:     step.AssignedTo,
				})
			}
		}
	}
	return views, nil
}

// ListWorkflows returns every workflow definition.
func (s *WorkflowService) ListWorkflows(ctx context.Context, actor *models.Actor) ([]*models.Workflow, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	workflows, err := s.repo.ListWorkflows(ctx)
	if err != nil {
		return nil, internal("failed to list workflows", err)
	}
	return workflows, nil
}

// GetWorkflow returns one workflow definition.
func (s *WorkflowService) GetWorkflow(ctx context.Context, actor *models.Actor, id string) (*models.Workflow, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	return s.workflowByID(ctx, id)
}

// CreateWorkflow validates and stores a new definition and installs its hook
// on the target collection.
func (s *WorkflowService) CreateWorkflow(ctx context.Context, actor *models.Actor, wf *models.Workflow) (*models.Workflow, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, invalid("workflow definition is required")
	}
	if err := normalizeWorkflow(wf); err != nil {
		return nil, err
	}
	wf.ID = uuid.New().String()
	wf.CreatedBy = actor.ID

	if err := s.repo.CreateWorkflow(ctx, wf); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, conflict("a workflow for collection %q already exists", wf.TargetCollection)
		}
		return nil, internal("failed to create workflow", err)
	}
	s.hooks.Register(wf.TargetCollection, wf.ID)

	for _, step := range wf.Steps {
		if step.Condition != nil && !condition.Supported(condition.Operator(step.Condition.Operator)) {
			s.logger.Warn("step condition uses an unknown operator and stays pending",
				"workflow_id", wf.ID, "step_id", step.ID, "operator", step.Condition.Operator)
		}
	}
	s.logger.Info("workflow created", "workflow_id", wf.ID, "collection", wf.TargetCollection, "actor", actor.ID)
	return wf, nil
}

// normalizeWorkflow trims names, assigns missing step ids and rejects
// definitions that cannot be stored.
func normalizeWorkflow(wf *models.Workflow) error {
	wf.Name = strings.TrimSpace(wf.Name)
	wf.TargetCollection = strings.TrimSpace(wf.TargetCollection)
	if wf.Name == "" {
		return invalid("workflow name is required")
	}
	if wf.TargetCollection == "" {
		return invalid("collection_name is required")
	}
	if len(wf.Steps) < MinSteps {
		return invalid("a workflow needs at least %d steps, got %d", MinSteps, len(wf.Steps))
	}

	seen := make(map[string]bool, len(wf.Steps))
	for i := range wf.Steps {
		step := &wf.Steps[i]
		step.Name = strings.TrimSpace(step.Name)
		if step.Name == "" {
			return invalid("step %d: step_name is required", i+1)
		}
		if !step.Type.Valid() {
			return invalid("step %d: invalid step type %q", i+1, step.Type)
		}
		if step.ID == "" {
			step.ID = uuid.New().String()
		}
		if seen[step.ID] {
			return invalid("step %d: duplicate step id %q", i+1, step.ID)
		}
		seen[step.ID] = true

		switch c := step.Condition; {
		case c.Empty():
			step.Condition = nil
		case !c.Complete():
			return invalid("step %d: condition needs field_name, operator and desired_value", i+1)
		}
	}
	return nil
}

// DeleteWorkflow removes a definition with its statuses, audit trail and hooks.
// Hooks go first so no new document event can write statuses for it; the
// store then rejects writes from events already in flight.
func (s *WorkflowService) DeleteWorkflow(ctx context.Context, actor *models.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	wf, err := s.workflowByID(ctx, id)
	if err != nil {
		return err
	}

	hooks := s.hooks.UnregisterWorkflow(wf.ID)
	restore := func() {
		if hooks > 0 {
			s.hooks.Register(wf.TargetCollection, wf.ID)
		}
	}

	statuses, err := s.repo.DeleteStatusesByWorkflow(ctx, wf.ID)
	if err != nil {
		restore()
		return internal("failed to delete step statuses", err)
	}
	entries, err := s.repo.DeleteAuditByWorkflow(ctx, wf.ID)
	if err != nil {
		restore()
		return internal("failed to delete audit entries", err)
	}
	if err := s.repo.DeleteWorkflow(ctx, wf.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("workflow %q not found", id)
		}
		restore()
		return internal("failed to delete workflow", err)
	}

	s.logger.Info("workflow deleted", "workflow_id", wf.ID, "statuses", statuses,
		"audit_entries", entries, "hooks", hooks, "actor", actor.ID)
	return nil
}

// RegisterHook installs the hook of a workflow on collection, which defaults
// to the workflow's target collection. With processExisting the documents
// already in the collection are processed in the background, detached from
// ctx's cancellation.
func (s *WorkflowService) RegisterHook(ctx context.Context, actor *models.Actor, workflowID, collection string, processExisting bool) (bool, error) {
	if err := requireAdmin(actor); err != nil {
		return false, err
	}
	wf, err := s.workflowByID(ctx, workflowID)
	if err != nil {
		return false, err
	}
	if collection = strings.TrimSpace(collection); collection == "" {
		collection = wf.TargetCollection
	}

	added := s.hooks.Register(collection, wf.ID)
	if processExisting {
		s.startBackfill(context.WithoutCancel(ctx), collection, wf.ID)
	}
	return added, nil
}

func (s *WorkflowService) startBackfill(ctx context.Context, collection, workflowID string) {
	s.backfills.Add(1)
	go func() {
		defer s.backfills.Done()
		if _, err := s.backfill.ProcessExistingDocuments(ctx, collection, workflowID); err != nil {
			s.logger.Error("backfill failed", "collection", collection, "workflow_id", workflowID, "error", err)
		}
	}()
}

// WaitBackfills blocks until every running backfill has finished.
func (s *WorkflowService) WaitBackfills() {
	s.backfills.Wait()
}

// UnregisterHook removes the hook of a workflow from collection and returns
// how many registrations were removed.
func (s *WorkflowService) UnregisterHook(ctx context.Context, actor *models.Actor, workflowID, collection string) (int, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}
	if strings.TrimSpace(collection) == "" {
		return 0, invalid("collection_name is required")
	}
	return s.hooks.Unregister(collection, workflowID), nil
}

// RestoreHooks installs the hook of every stored workflow on its target
// collection. Registrations live in memory, so this runs at startup.
func (s *WorkflowService) RestoreHooks(ctx context.Context) (int, error) {
	workflows, err := s.repo.ListWorkflows(ctx)
	if err != nil {
		return 0, internal("failed to list workflows", err)
	}
	for _, wf := range workflows {
		s.hooks.Register(wf.TargetCollection, wf.ID)
	}
	return len(workflows), nil
}

// ListAudit returns the audit trail of one document, oldest first.
func (s *WorkflowService) ListAudit(ctx context.Context, actor *models.Actor, collection, docID string) ([]*models.AuditEntry, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListAuditByDocument(ctx, collection, docID)
	if err != nil {
		return nil, internal("failed to load audit trail", err)
	}
	if entries == nil {
		entries = []*models.AuditEntry{}
	}
	return entries, nil
}

// ListUsers returns the users having any of roles.
func (s *WorkflowService) ListUsers(ctx context.Context, actor *models.Actor, roles ...models.Role) ([]*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	for _, r := range roles {
		switch r {
		case models.RoleAdmin, models.RoleStaff, models.RoleUser:
		default:
			return nil, invalid("unknown role %q", r)
		}
	}
	users, err := s.repo.ListUsersByRole(ctx, roles...)
	if err != nil {
		return nil, internal("failed to list users", err)
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

// Health reports whether the store is reachable.
func (s *WorkflowService) Health(ctx context.Context, version string) models.HealthStatus {
	health := models.HealthStatus{
		Status:  "ok",
		Service: "docflow",
		Version: version,
		Checks:  map[string]string{"store": "ok"},
	}
	if err := s.repo.Ping(ctx); err != nil {
		health.Status = "degraded"
		health.Checks["store"] = err.Error()
	}
	return health
}
