package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"docflow/backend/pkg/models"
)

// meterName is the instrumentation scope name for engine metrics.
const meterName = "docflow/backend/engine"

// instruments records engine activity:
//   - docflow.engine.documents (Int64Counter): documents processed,
//     with attribute outcome ("ok", "skipped" or "error")
//   - docflow.engine.transitions (Int64Counter): status changes written by
//     reconciliation, with attribute status
//   - docflow.engine.step_errors (Int64Counter): steps skipped because their
//     condition could not be evaluated
type instruments struct {
	documents   metric.Int64Counter
	transitions metric.Int64Counter
	stepErrors  metric.Int64Counter
}

func newInstruments(mp metric.MeterProvider) *instruments {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	// On error the API returns noop instruments.
	documents, _ := meter.Int64Counter(
		"docflow.engine.documents",
		metric.WithDescription("Documents processed by the workflow engine"),
		metric.WithUnit("{document}"),
	)
	transitions, _ := meter.Int64Counter(
		"docflow.engine.transitions",
		metric.WithDescription("Step status changes written by automatic reconciliation"),
		metric.WithUnit("{transition}"),
	)
	stepErrors, _ := meter.Int64Counter(
		"docflow.engine.step_errors",
		metric.WithDescription("Steps skipped because their condition could not be evaluated"),
		metric.WithUnit("{step}"),
	)
	return &instruments{documents: documents, transitions: transitions, stepErrors: stepErrors}
}

func (i *instruments) document(ctx context.Context, outcome string) {
	i.documents.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (i *instruments) transition(ctx context.Context, status models.Status) {
	i.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
}

func (i *instruments) stepError(ctx context.Context) {
	i.stepErrors.Add(ctx, 1)
}
