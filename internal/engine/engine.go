// Package engine evaluates workflow step conditions against documents and
// reconciles the resulting statuses into the status store.
package engine

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"docflow/backend/internal/audit"
	"docflow/backend/internal/condition"
	"docflow/backend/internal/document"
	"docflow/backend/internal/repository"
	"docflow/backend/pkg/models"
)

// Logger is the logging surface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Engine runs automatic status reconciliation. Calls for the same
// (workflow, document) pair are serialized; distinct pairs run concurrently.
type Engine struct {
	workflows repository.WorkflowStore
	statuses  repository.StatusStore
	documents document.Store
	audit     audit.Sink
	logger    Logger

	locks               *keyLock
	backfillConcurrency int
	backfillPageSize    int
	meterProvider       metric.MeterProvider
	metrics             *instruments
}

// Option configures an Engine.
type Option func(*Engine)

// WithBackfillConcurrency bounds how many documents a backfill processes at once.
func WithBackfillConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.backfillConcurrency = n
		}
	}
}

// WithBackfillPageSize sets how many documents a backfill reads per page.
func WithBackfillPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.backfillPageSize = n
		}
	}
}

// WithMeterProvider sets a custom OTel MeterProvider.
// If not set, the global otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) {
		e.meterProvider = mp
	}
}

// New creates an Engine.
func New(repo repository.Repository, sink audit.Sink, logger Logger, opts ...Option) *Engine {
	e := &Engine{
		workflows:           repo,
		statuses:            repo,
		documents:           repo,
		audit:               sink,
		logger:              logger,
		locks:               newKeyLock(),
		backfillConcurrency: 4,
		backfillPageSize:    100,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.metrics = newInstruments(e.meterProvider)
	return e
}

// ProcessDocument reconciles every step of the workflow against payload. The
// workflow is looked up by workflowID when given, otherwise by collection; no
// workflow is a no-op. Failures of individual steps are logged and do not
// stop the remaining steps. Only a failed workflow lookup is returned.
func (e *Engine) ProcessDocument(ctx context.Context, collection, docID string, payload map[string]any, workflowID string) error {
	wf, err := e.resolveWorkflow(ctx, collection, workflowID)
	if err != nil {
		e.metrics.document(ctx, "error")
		return err
	}
	if wf == nil {
		e.metrics.document(ctx, "skipped")
		e.logger.Debug("no workflow for document", "collection", collection, "doc_id", docID)
		return nil
	}

	unlock := e.locks.Lock(wf.ID + "\x00" + docID)
	defer unlock()

	view := document.NewView(payload)
	for _, step := range wf.Steps {
		e.processStep(ctx, wf, step, collection, docID, view)
	}
	e.metrics.document(ctx, "ok")
	return nil
}

func (e *Engine) resolveWorkflow(ctx context.Context, collection, workflowID string) (*models.Workflow, error) {
	var (
		wf  *models.Workflow
		err error
	)
	if workflowID != "" {
		wf, err = e.workflows.GetWorkflow(ctx, workflowID)
	} else {
		wf, err = e.workflows.GetWorkflowByCollection(ctx, collection)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("engine: resolve workflow: %w", err)
	}
	return wf, nil
}

func (e *Engine) processStep(ctx context.Context, wf *models.Workflow, step models.Step, collection, docID string, view document.View) {
	computed, err := computeStatus(step, view)
	if err != nil {
		e.metrics.stepError(ctx)
		e.logger.Warn("step condition not evaluated",
			"workflow_id", wf.ID, "doc_id", docID, "step_id", step.ID, "error", err)
		return
	}

	key := models.StatusKey{WorkflowID: wf.ID, DocumentID: docID, StepID: step.ID}
	change, err := e.statuses.ReconcileStatus(ctx, key, computed)
	if err != nil {
		e.logger.Error("step status reconcile failed",
			"workflow_id", wf.ID, "doc_id", docID, "step_id", step.ID, "error", err)
		return
	}
	if !change.Changed() {
		return
	}

	e.metrics.transition(ctx, change.Current)
	entry := audit.NewEntry(wf.ID, step.ID, models.SystemInitiator, collection, docID, change)
	if err := e.audit.Append(ctx, entry); err != nil {
		e.logger.Error("audit append failed", "workflow_id", wf.ID, "doc_id", docID, "step_id", step.ID, "error", err)
	}
}

// computeStatus evaluates the step condition. Steps without a complete
// condition stay pending, as do steps whose operator is unknown.
func computeStatus(step models.Step, view document.View) (models.Status, error) {
	cond := step.Condition
	if !cond.Complete() {
		return models.StatusPending, nil
	}

	met, err := condition.Evaluate(view.Resolve(cond.FieldName), condition.Operator(cond.Operator), cond.DesiredValue)
	if errors.Is(err, condition.ErrUnsupportedOperator) {
		return models.StatusPending, nil
	}
	if err != nil {
		return "", err
	}
	if met {
		return models.StatusApproved, nil
	}
	return models.StatusPending, nil
}
