package repository

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docflow/backend/internal/document"
	"docflow/backend/pkg/models"
)

var _ Repository = (*MemoryStore)(nil)

// MemoryStore is an in-process Repository. A single mutex guards every map,
// which makes each status read-modify-write atomic. Records are copied on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu        sync.Mutex
	workflows map[string]*models.Workflow
	statuses  map[models.StatusKey]*models.StepStatus
	audit     []*models.AuditEntry
	users     map[string]*models.User
	documents map[string]map[string]*document.Document
	now       func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workflows: make(map[string]*models.Workflow),
		statuses:  make(map[models.StatusKey]*models.StepStatus),
		users:     make(map[string]*models.User),
		documents: make(map[string]map[string]*document.Document),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// ──────────────────────────────────────────────────
// Workflows
// ──────────────────────────────────────────────────

func copyWorkflow(w *models.Workflow) *models.Workflow {
	out := *w
	out.Steps = make([]models.Step, len(w.Steps))
	for i, st := range w.Steps {
		out.Steps[i] = st
		if st.Condition != nil {
			c := *st.Condition
			out.Steps[i].Condition = &c
		}
	}
	return &out
}

func (m *MemoryStore) CreateWorkflow(_ context.Context, w *models.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.workflows[w.ID]; ok {
		return ErrConflict
	}
	for _, existing := range m.workflows {
		if existing.TargetCollection == w.TargetCollection {
			return ErrConflict
		}
	}
	now := m.now()
	w.CreatedAt, w.UpdatedAt = now, now
	m.workflows[w.ID] = copyWorkflow(w)
	return nil
}

func (m *MemoryStore) GetWorkflow(_ context.Context, id string) (*models.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.workflows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyWorkflow(w), nil
}

func (m *MemoryStore) GetWorkflowByCollection(_ context.Context, collection string) (*models.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.workflows {
		if w.TargetCollection == collection {
			return copyWorkflow(w), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListWorkflows(context.Context) ([]*models.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.Workflow, 0, len(m.workflows))
	for _, w := range m.workflows {
		out = append(out, copyWorkflow(w))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) DeleteWorkflow(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.workflows[id]; !ok {
		return ErrNotFound
	}
	delete(m.workflows, id)
	for key := range m.statuses {
		if key.WorkflowID == id {
			delete(m.statuses, key)
		}
	}
	m.audit = slices.DeleteFunc(m.audit, func(e *models.AuditEntry) bool {
		return e.WorkflowID == id
	})
	return nil
}

// ──────────────────────────────────────────────────
// Step statuses
// ──────────────────────────────────────────────────

func (m *MemoryStore) GetStatus(_ context.Context, key models.StatusKey) (*models.StepStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.statuses[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := *st
	return &out, nil
}

func (m *MemoryStore) listStatuses(match func(models.StatusKey) bool) []*models.StepStatus {
	var out []*models.StepStatus
	for key, st := range m.statuses {
		if match(key) {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *MemoryStore) ListStatusesByDocument(_ context.Context, workflowID, documentID string) ([]*models.StepStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.listStatuses(func(k models.StatusKey) bool {
		return k.WorkflowID == workflowID && k.DocumentID == documentID
	}), nil
}

func (m *MemoryStore) ListStatusesByStep(_ context.Context, workflowID, stepID string) ([]*models.StepStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.listStatuses(func(k models.StatusKey) bool {
		return k.WorkflowID == workflowID && k.StepID == stepID
	}), nil
}

// writeStatus applies next to the record for key, creating it when absent.
// Caller must hold mu.
func (m *MemoryStore) writeStatus(key models.StatusKey, next func(current models.Status) models.Status, actorID string) models.StatusChange {
	now := m.now()
	st, ok := m.statuses[key]
	if !ok {
		status := next(models.StatusPending)
		m.statuses[key] = &models.StepStatus{
			ID:         uuid.New().String(),
			WorkflowID: key.WorkflowID,
			DocumentID: key.DocumentID,
			StepID:     key.StepID,
			Status:     status,
			UpdatedBy:  actorID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return models.StatusChange{Previous: models.StatusPending, Current: status, Created: true}
	}

	change := models.StatusChange{Previous: st.Status, Current: next(st.Status)}
	if change.Changed() {
		st.Status = change.Current
		st.UpdatedBy = actorID
		st.UpdatedAt = now
	}
	return change
}

func (m *MemoryStore) ReconcileStatus(_ context.Context, key models.StatusKey, computed models.Status) (models.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.workflows[key.WorkflowID]; !ok {
		return models.StatusChange{}, ErrNotFound
	}
	return m.writeStatus(key, func(current models.Status) models.Status {
		return models.ReconcileStatus(current, computed)
	}, models.SystemInitiator), nil
}

func (m *MemoryStore) TransitionStatus(_ context.Context, key models.StatusKey, status models.Status, actorID string) (models.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.workflows[key.WorkflowID]; !ok {
		return models.StatusChange{}, ErrNotFound
	}
	return m.writeStatus(key, func(models.Status) models.Status { return status }, actorID), nil
}

func (m *MemoryStore) DeleteStatusesByWorkflow(_ context.Context, workflowID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for key := range m.statuses {
		if key.WorkflowID == workflowID {
			delete(m.statuses, key)
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Audit
// ──────────────────────────────────────────────────

func (m *MemoryStore) AppendAudit(_ context.Context, e *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.workflows[e.WorkflowID]; !ok {
		return ErrNotFound
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.now()
	}
	cp := *e
	m.audit = append(m.audit, &cp)
	return nil
}

func (m *MemoryStore) ListAuditByDocument(_ context.Context, collection, documentID string) ([]*models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.AuditEntry
	for _, e := range m.audit {
		if e.Collection == collection && e.DocumentID == documentID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) DeleteAuditByWorkflow(_ context.Context, workflowID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := len(m.audit)
	m.audit = slices.DeleteFunc(m.audit, func(e *models.AuditEntry) bool {
		return e.WorkflowID == workflowID
	})
	return int64(before - len(m.audit)), nil
}

// ──────────────────────────────────────────────────
// Users
// ──────────────────────────────────────────────────

func (m *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; ok {
		return ErrConflict
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrConflict
		}
	}
	now := m.now()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) ListUsersByRole(_ context.Context, roles ...models.Role) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.User
	for _, u := range m.users {
		if len(roles) == 0 || slices.Contains(roles, u.Role) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// ──────────────────────────────────────────────────
// Documents
// ──────────────────────────────────────────────────

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = copyValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

func copyDocument(d *document.Document) *document.Document {
	out := *d
	out.Data, _ = copyValue(d.Data).(map[string]any)
	return &out
}

// sortedDocuments returns the documents of collection matching f in creation
// order. Caller must hold mu.
func (m *MemoryStore) sortedDocuments(collection string, f document.Filter) []*document.Document {
	var out []*document.Document
	for _, d := range m.documents[collection] {
		if f.Match(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *MemoryStore) Find(_ context.Context, collection string, q document.Query) (*document.FindResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := m.sortedDocuments(collection, q.Filter)
	res := &document.FindResult{TotalDocs: len(matched)}
	if q.Offset >= len(matched) {
		return res, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	for _, d := range matched {
		res.Docs = append(res.Docs, copyDocument(d))
	}
	return res, nil
}

func (m *MemoryStore) FindByID(_ context.Context, collection, id string) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.documents[collection][id]
	if !ok {
		return nil, document.ErrNotFound
	}
	return copyDocument(d), nil
}

func (m *MemoryStore) Create(_ context.Context, collection string, data map[string]any) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, data := documentID(data)
	docs, ok := m.documents[collection]
	if !ok {
		docs = make(map[string]*document.Document)
		m.documents[collection] = docs
	}
	if _, exists := docs[id]; exists {
		return nil, ErrConflict
	}
	now := m.now()
	d := &document.Document{
		ID:         id,
		Collection: collection,
		Data:       copyValue(data).(map[string]any),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	docs[id] = d
	return copyDocument(d), nil
}

// merge applies a shallow merge of data onto d. Caller must hold mu.
func (m *MemoryStore) merge(d *document.Document, data map[string]any) {
	for k, v := range withoutID(data) {
		d.Data[k] = copyValue(v)
	}
	d.UpdatedAt = m.now()
}

func (m *MemoryStore) Update(_ context.Context, collection, id string, data map[string]any) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.documents[collection][id]
	if !ok {
		return nil, document.ErrNotFound
	}
	m.merge(d, data)
	return copyDocument(d), nil
}

func (m *MemoryStore) UpdateWhere(_ context.Context, collection string, f document.Filter, data map[string]any) ([]*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*document.Document
	for _, d := range m.sortedDocuments(collection, f) {
		m.merge(d, data)
		out = append(out, copyDocument(d))
	}
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.documents[collection][id]; !ok {
		return document.ErrNotFound
	}
	delete(m.documents[collection], id)
	return nil
}

func (m *MemoryStore) DeleteWhere(_ context.Context, collection string, f document.Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := m.sortedDocuments(collection, f)
	for _, d := range matched {
		delete(m.documents[collection], d.ID)
	}
	return len(matched), nil
}
