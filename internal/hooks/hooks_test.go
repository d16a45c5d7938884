package hooks

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/backend/internal/document"
	"docflow/backend/internal/logging"
	"docflow/backend/internal/repository"
)

type call struct {
	collection, docID, workflowID string
	title                         any
}

type recordingProcessor struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (p *recordingProcessor) ProcessDocument(_ context.Context, collection, docID string, payload map[string]any, workflowID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call{collection, docID, workflowID, payload["title"]})
	return p.err
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	r := NewRegistry(&recordingProcessor{}, logging.NewNop())

	assert.True(t, r.Register("posts", "w1"))
	assert.False(t, r.Register("posts", "w1"))
	assert.True(t, r.Register("posts", "w2"))

	regs := r.Registrations("posts")
	require.Len(t, regs, 2)
	assert.Equal(t, "workflow-w1", regs[0].Key)
	assert.Equal(t, "workflow-w2", regs[1].Key)
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry(&recordingProcessor{}, logging.NewNop())
	r.Register("posts", "w1")
	r.Register("posts", "w2")

	assert.Equal(t, 1, r.Unregister("posts", "w1"))
	assert.Equal(t, 0, r.Unregister("posts", "w1"))
	assert.Equal(t, 0, r.Unregister("pages", "w2"))

	regs := r.Registrations("posts")
	require.Len(t, regs, 1)
	assert.Equal(t, "w2", regs[0].WorkflowID)

	r.Register("pages", "w2")
	assert.Equal(t, 2, r.UnregisterWorkflow("w2"))
	assert.Empty(t, r.Registrations("posts"))
	assert.Empty(t, r.Registrations("pages"))
}

func TestStore_DispatchesCreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	proc := &recordingProcessor{}
	r := NewRegistry(proc, logging.NewNop())
	r.Register("posts", "w1")
	s := NewStore(repository.NewMemoryStore(), r)

	_, err := s.Create(ctx, "posts", map[string]any{"id": "p1", "title": "Hi"})
	require.NoError(t, err)
	_, err = s.Update(ctx, "posts", "p1", map[string]any{"title": "Hello World"})
	require.NoError(t, err)
	_, err = s.UpdateWhere(ctx, "posts", document.Eq("id", "p1"), map[string]any{"title": "Again"})
	require.NoError(t, err)
	_, err = s.Create(ctx, "pages", map[string]any{"id": "x1", "title": "Unhooked"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "posts", "p1"))

	assert.Equal(t, []call{
		{"posts", "p1", "w1", "Hi"},
		{"posts", "p1", "w1", "Hello World"},
		{"posts", "p1", "w1", "Again"},
	}, proc.calls)
}

func TestStore_HookErrorsDoNotFailWrites(t *testing.T) {
	ctx := context.Background()
	proc := &recordingProcessor{err: errors.New("engine down")}
	r := NewRegistry(proc, logging.NewNop())
	r.Register("posts", "w1")
	s := NewStore(repository.NewMemoryStore(), r)

	doc, err := s.Create(ctx, "posts", map[string]any{"title": "Hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Len(t, proc.calls, 1)
}

func TestStore_FailedWriteSkipsHooks(t *testing.T) {
	ctx := context.Background()
	proc := &recordingProcessor{}
	r := NewRegistry(proc, logging.NewNop())
	r.Register("posts", "w1")
	s := NewStore(repository.NewMemoryStore(), r)

	_, err := s.Update(ctx, "posts", "missing", map[string]any{"title": "x"})
	assert.ErrorIs(t, err, document.ErrNotFound)
	assert.Empty(t, proc.calls)
}
