package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"docflow/backend/pkg/models"
)

// Emitter is a non-blocking Sink. Append queues the entry on a bounded
// buffer and returns immediately; a single goroutine delivers queued entries
// to the wrapped sink. When the buffer is full the entry is dropped and a
// warning is logged.
type Emitter struct {
	sink    Sink
	logger  Logger
	queue   chan *models.AuditEntry
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewEmitter starts an Emitter delivering to sink.
func NewEmitter(sink Sink, bufferSize int, logger Logger) *Emitter {
	if bufferSize < 1 {
		bufferSize = 1
	}
	e := &Emitter{
		sink:   sink,
		logger: logger,
		queue:  make(chan *models.AuditEntry, bufferSize),
		done:   make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *Emitter) run() {
	defer close(e.done)
	for entry := range e.queue {
		// Delivery outlives the request that produced the entry.
		if err := e.sink.Append(context.Background(), entry); err != nil {
			e.logger.Error("audit delivery failed", "entry_id", entry.ID, "doc_id", entry.DocumentID, "error", err)
		}
	}
}

// Append queues entry. It never blocks and never returns an error.
func (e *Emitter) Append(_ context.Context, entry *models.AuditEntry) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		e.drop(entry, "emitter closed")
		return nil
	}
	select {
	case e.queue <- entry:
	default:
		e.drop(entry, "buffer full")
	}
	return nil
}

func (e *Emitter) drop(entry *models.AuditEntry, reason string) {
	e.dropped.Add(1)
	e.logger.Warn("audit entry dropped", "reason", reason, "entry_id", entry.ID, "doc_id", entry.DocumentID)
}

// Dropped returns how many entries were discarded.
func (e *Emitter) Dropped() int64 {
	return e.dropped.Load()
}

// Close stops accepting entries and waits until queued ones are delivered or
// ctx is done.
func (e *Emitter) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
