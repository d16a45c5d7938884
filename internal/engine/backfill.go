package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"docflow/backend/internal/document"
)

// BackfillResult summarizes a ProcessExistingDocuments run.
type BackfillResult struct {
	Processed int
	Failed    int
}

// ProcessExistingDocuments runs ProcessDocument for every document of
// collection under workflowID. Documents are read page by page and processed
// with bounded concurrency; a failing document is logged and the run
// continues. Only a failure to read the collection is returned.
func (e *Engine) ProcessExistingDocuments(ctx context.Context, collection, workflowID string) (BackfillResult, error) {
	var result BackfillResult

	for offset := 0; ; offset += e.backfillPageSize {
		page, err := e.documents.Find(ctx, collection, document.Query{Limit: e.backfillPageSize, Offset: offset})
		if err != nil {
			return result, fmt.Errorf("engine: list %s documents: %w", collection, err)
		}

		var failed atomic.Int64
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.backfillConcurrency)
		for _, doc := range page.Docs {
			g.Go(func() error {
				if err := e.ProcessDocument(gctx, collection, doc.ID, doc.Data, workflowID); err != nil {
					e.logger.Error("backfill document failed",
						"collection", collection, "doc_id", doc.ID, "workflow_id", workflowID, "error", err)
					failed.Add(1)
				}
				// Per-document failures never cancel siblings.
				return nil
			})
		}
		_ = g.Wait() //nolint:errcheck // goroutines always return nil

		result.Failed += int(failed.Load())
		result.Processed += len(page.Docs) - int(failed.Load())

		if len(page.Docs) < e.backfillPageSize || offset+len(page.Docs) >= page.TotalDocs {
			break
		}
	}

	e.logger.Info("backfill finished", "collection", collection, "workflow_id", workflowID,
		"processed", result.Processed, "failed", result.Failed)
	return result, nil
}
