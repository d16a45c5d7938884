package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/backend/internal/document"
	"docflow/backend/pkg/models"
)

// testRepository runs the behaviour every Repository backend must share.
// Records use fresh ids so the suite can run against a shared database.
func testRepository(t *testing.T, repo Repository) {
	ctx := context.Background()

	newWorkflow := func(t *testing.T) *models.Workflow {
		t.Helper()
		w := &models.Workflow{
			ID:               uuid.NewString(),
			Name:             "Contract review",
			TargetCollection: "contracts-" + uuid.NewString(),
			Steps: []models.Step{
				{ID: "s1", Name: "Legal", Type: models.StepTypeApproval, AssignedTo: "u-legal",
					Condition: &models.Condition{FieldName: "amount", Operator: "number:greater", DesiredValue: "100"}},
				{ID: "s2", Name: "Finance", Type: models.StepTypeReview},
			},
			CreatedBy: "u-admin",
		}
		require.NoError(t, repo.CreateWorkflow(ctx, w))
		return w
	}

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, repo.Ping(ctx))
	})

	t.Run("Workflow CRUD", func(t *testing.T) {
		w := newWorkflow(t)
		assert.False(t, w.CreatedAt.IsZero())

		got, err := repo.GetWorkflow(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, w.Name, got.Name)
		assert.Equal(t, w.TargetCollection, got.TargetCollection)
		require.Len(t, got.Steps, 2)
		require.NotNil(t, got.Steps[0].Condition)
		assert.Equal(t, "number:greater", got.Steps[0].Condition.Operator)
		assert.Nil(t, got.Steps[1].Condition)

		byCollection, err := repo.GetWorkflowByCollection(ctx, w.TargetCollection)
		require.NoError(t, err)
		assert.Equal(t, w.ID, byCollection.ID)

		all, err := repo.ListWorkflows(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(all))
		for _, x := range all {
			ids = append(ids, x.ID)
		}
		assert.Contains(t, ids, w.ID)

		require.NoError(t, repo.DeleteWorkflow(ctx, w.ID))
		_, err = repo.GetWorkflow(ctx, w.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, repo.DeleteWorkflow(ctx, w.ID), ErrNotFound)
	})

	t.Run("Workflow collection is unique", func(t *testing.T) {
		w := newWorkflow(t)
		dup := &models.Workflow{ID: uuid.NewString(), Name: "Other", TargetCollection: w.TargetCollection}
		assert.ErrorIs(t, repo.CreateWorkflow(ctx, dup), ErrConflict)
	})

	t.Run("Reconcile creates then keeps approved", func(t *testing.T) {
		w := newWorkflow(t)
		key := models.StatusKey{WorkflowID: w.ID, DocumentID: "doc-1", StepID: "s1"}

		change, err := repo.ReconcileStatus(ctx, key, models.StatusApproved)
		require.NoError(t, err)
		assert.True(t, change.Created)
		assert.Equal(t, models.StatusPending, change.Previous)
		assert.Equal(t, models.StatusApproved, change.Current)

		change, err = repo.ReconcileStatus(ctx, key, models.StatusRejected)
		require.NoError(t, err)
		assert.False(t, change.Changed())
		assert.Equal(t, models.StatusApproved, change.Current)

		st, err := repo.GetStatus(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, st.Status)
		assert.Equal(t, models.SystemInitiator, st.UpdatedBy)
	})

	t.Run("Reconcile moves rejected back to pending", func(t *testing.T) {
		w := newWorkflow(t)
		key := models.StatusKey{WorkflowID: w.ID, DocumentID: "doc-1", StepID: "s1"}

		_, err := repo.ReconcileStatus(ctx, key, models.StatusRejected)
		require.NoError(t, err)
		change, err := repo.ReconcileStatus(ctx, key, models.StatusPending)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, change.Previous)
		assert.Equal(t, models.StatusPending, change.Current)
		assert.True(t, change.Changed())
	})

	t.Run("Transition overrides approved", func(t *testing.T) {
		w := newWorkflow(t)
		key := models.StatusKey{WorkflowID: w.ID, DocumentID: "doc-1", StepID: "s1"}

		_, err := repo.ReconcileStatus(ctx, key, models.StatusApproved)
		require.NoError(t, err)

		change, err := repo.TransitionStatus(ctx, key, models.StatusRejected, "u-admin")
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, change.Previous)
		assert.Equal(t, models.StatusRejected, change.Current)

		st, err := repo.GetStatus(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, st.Status)
		assert.Equal(t, "u-admin", st.UpdatedBy)
	})

	t.Run("Transition creates missing record", func(t *testing.T) {
		w := newWorkflow(t)
		key := models.StatusKey{WorkflowID: w.ID, DocumentID: "doc-9", StepID: "s2"}

		change, err := repo.TransitionStatus(ctx, key, models.StatusApproved, "u-staff")
		require.NoError(t, err)
		assert.True(t, change.Created)
		assert.Equal(t, models.StatusPending, change.Previous)

		byDoc, err := repo.ListStatusesByDocument(ctx, w.ID, "doc-9")
		require.NoError(t, err)
		require.Len(t, byDoc, 1)
		assert.Equal(t, "s2", byDoc[0].StepID)

		byStep, err := repo.ListStatusesByStep(ctx, w.ID, "s2")
		require.NoError(t, err)
		assert.Len(t, byStep, 1)
	})

	t.Run("Concurrent reconciles create one record", func(t *testing.T) {
		w := newWorkflow(t)
		key := models.StatusKey{WorkflowID: w.ID, DocumentID: "doc-race", StepID: "s1"}

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
		)
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				change, err := repo.ReconcileStatus(ctx, key, models.StatusApproved)
				assert.NoError(t, err)
				if change.Created {
					mu.Lock()
					created++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, created)
		statuses, err := repo.ListStatusesByDocument(ctx, w.ID, "doc-race")
		require.NoError(t, err)
		assert.Len(t, statuses, 1)
	})

	t.Run("Delete statuses and audit by workflow", func(t *testing.T) {
		w := newWorkflow(t)
		for _, doc := range []string{"a", "b"} {
			_, err := repo.ReconcileStatus(ctx, models.StatusKey{WorkflowID: w.ID, DocumentID: doc, StepID: "s2"}, models.StatusPending)
			require.NoError(t, err)
			require.NoError(t, repo.AppendAudit(ctx, &models.AuditEntry{
				ID: uuid.NewString(), WorkflowID: w.ID, StepID: "s2", Initiator: "u-1",
				Collection: w.TargetCollection, DocumentID: doc,
				PrevStatus: models.StatusPending, CurStatus: models.StatusApproved,
			}))
		}

		n, err := repo.DeleteStatusesByWorkflow(ctx, w.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		n, err = repo.DeleteAuditByWorkflow(ctx, w.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		entries, err := repo.ListAuditByDocument(ctx, w.TargetCollection, "a")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Concurrent transitions chain on one record", func(t *testing.T) {
		w := newWorkflow(t)
		key := models.StatusKey{WorkflowID: w.ID, DocumentID: "doc-flip", StepID: "s1"}
		targets := []models.Status{models.StatusApproved, models.StatusRejected}

		const n = 24
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			changes []models.StatusChange
		)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				change, err := repo.TransitionStatus(ctx, key, targets[i%2], "u-admin")
				assert.NoError(t, err)
				mu.Lock()
				changes = append(changes, change)
				mu.Unlock()
			}()
		}
		wg.Wait()
		require.Len(t, changes, n)

		statuses, err := repo.ListStatusesByDocument(ctx, w.ID, "doc-flip")
		require.NoError(t, err)
		require.Len(t, statuses, 1)

		// Every write saw the value left by exactly one earlier write, so the
		// changes form a single chain from pending to the stored status.
		created := 0
		seen := map[models.Status]int{}
		for _, c := range changes {
			if c.Created {
				created++
				assert.Equal(t, models.StatusPending, c.Previous)
				continue
			}
			seen[c.Previous]++
		}
		assert.Equal(t, 1, created)
		for _, c := range changes {
			seen[c.Current]--
		}
		final := statuses[0].Status
		for status, balance := range seen {
			if status == final {
				assert.Equal(t, -1, balance, "stored status %s is the unconsumed tail", status)
			} else {
				assert.Zero(t, balance, "status %s", status)
			}
		}
	})

	t.Run("Delete workflow cascades and rejects late writes", func(t *testing.T) {
		w := newWorkflow(t)
		key := models.StatusKey{WorkflowID: w.ID, DocumentID: "doc-1", StepID: "s2"}
		_, err := repo.ReconcileStatus(ctx, key, models.StatusPending)
		require.NoError(t, err)
		require.NoError(t, repo.AppendAudit(ctx, &models.AuditEntry{
			ID: uuid.NewString(), WorkflowID: w.ID, StepID: "s2", Initiator: "u-1",
			Collection: w.TargetCollection, DocumentID: "doc-1",
			PrevStatus: models.StatusPending, CurStatus: models.StatusApproved,
		}))

		require.NoError(t, repo.DeleteWorkflow(ctx, w.ID))

		statuses, err := repo.ListStatusesByDocument(ctx, w.ID, "doc-1")
		require.NoError(t, err)
		assert.Empty(t, statuses)
		entries, err := repo.ListAuditByDocument(ctx, w.TargetCollection, "doc-1")
		require.NoError(t, err)
		assert.Empty(t, entries)

		_, err = repo.ReconcileStatus(ctx, key, models.StatusApproved)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.TransitionStatus(ctx, key, models.StatusApproved, "u-admin")
		assert.ErrorIs(t, err, ErrNotFound)
		err = repo.AppendAudit(ctx, &models.AuditEntry{
			ID: uuid.NewString(), WorkflowID: w.ID, StepID: "s2", Initiator: "u-1",
			Collection: w.TargetCollection, DocumentID: "doc-1",
			PrevStatus: models.StatusPending, CurStatus: models.StatusApproved,
		})
		assert.ErrorIs(t, err, ErrNotFound)

		statuses, err = repo.ListStatusesByDocument(ctx, w.ID, "doc-1")
		require.NoError(t, err)
		assert.Empty(t, statuses)
	})

	t.Run("Audit trail per document", func(t *testing.T) {
		w := newWorkflow(t)
		collection := w.TargetCollection
		for _, cur := range []models.Status{models.StatusApproved, models.StatusRejected} {
			require.NoError(t, repo.AppendAudit(ctx, &models.AuditEntry{
				ID: uuid.NewString(), WorkflowID: w.ID, StepID: "s1", Initiator: models.SystemInitiator,
				Collection: collection, DocumentID: "d1", PrevStatus: models.StatusPending, CurStatus: cur,
			}))
		}
		entries, err := repo.ListAuditByDocument(ctx, collection, "d1")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, models.SystemInitiator, entries[0].Initiator)
	})

	t.Run("Users", func(t *testing.T) {
		suffix := uuid.NewString()
		admin := &models.User{ID: "a-" + suffix, Email: "admin-" + suffix + "@example.com", Role: models.RoleAdmin}
		staff := &models.User{ID: "s-" + suffix, Email: "staff-" + suffix + "@example.com", Role: models.RoleStaff}
		require.NoError(t, repo.CreateUser(ctx, admin))
		require.NoError(t, repo.CreateUser(ctx, staff))

		dup := &models.User{ID: uuid.NewString(), Email: admin.Email, Role: models.RoleUser}
		assert.ErrorIs(t, repo.CreateUser(ctx, dup), ErrConflict)

		got, err := repo.GetUserByEmail(ctx, "STAFF-"+suffix+"@example.com")
		require.NoError(t, err)
		assert.Equal(t, staff.ID, got.ID)

		_, err = repo.GetUser(ctx, "missing-"+suffix)
		assert.ErrorIs(t, err, ErrNotFound)

		users, err := repo.ListUsersByRole(ctx, models.RoleAdmin, models.RoleStaff)
		require.NoError(t, err)
		emails := make([]string, 0, len(users))
		for _, u := range users {
			emails = append(emails, u.Email)
		}
		assert.Contains(t, emails, admin.Email)
		assert.Contains(t, emails, staff.Email)
	})

	t.Run("Documents", func(t *testing.T) {
		collection := "docs-" + uuid.NewString()

		d1, err := repo.Create(ctx, collection, map[string]any{"id": "d1", "title": "Lease", "amount": 150})
		require.NoError(t, err)
		assert.Equal(t, "d1", d1.ID)
		_, err = repo.Create(ctx, collection, map[string]any{"title": "Loan", "amount": 50, "meta": map[string]any{"owner": "bob"}})
		require.NoError(t, err)

		res, err := repo.Find(ctx, collection, document.Query{Filter: document.Eq("title", "Lease")})
		require.NoError(t, err)
		require.Equal(t, 1, res.TotalDocs)
		assert.Equal(t, "d1", res.Docs[0].ID)

		res, err = repo.Find(ctx, collection, document.Query{Filter: document.Eq("meta.owner", "bob")})
		require.NoError(t, err)
		assert.Equal(t, 1, res.TotalDocs)

		res, err = repo.Find(ctx, collection, document.Query{Filter: document.In("id", "d1", "nope")})
		require.NoError(t, err)
		assert.Equal(t, 1, res.TotalDocs)

		res, err = repo.Find(ctx, collection, document.Query{Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, res.TotalDocs)
		assert.Len(t, res.Docs, 1)

		updated, err := repo.Update(ctx, collection, "d1", map[string]any{"amount": 300, "id": "renamed"})
		require.NoError(t, err)
		assert.Equal(t, "d1", updated.ID)
		assert.Equal(t, "Lease", updated.Data["title"])
		assert.EqualValues(t, 300, updated.Data["amount"])

		_, err = repo.Update(ctx, collection, "missing", map[string]any{"x": 1})
		assert.ErrorIs(t, err, document.ErrNotFound)

		touched, err := repo.UpdateWhere(ctx, collection, document.Eq("title", "Loan"), map[string]any{"stage": "final"})
		require.NoError(t, err)
		require.Len(t, touched, 1)
		assert.Equal(t, "final", touched[0].Data["stage"])

		n, err := repo.DeleteWhere(ctx, collection, document.Eq("stage", "final"))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		require.NoError(t, repo.Delete(ctx, collection, "d1"))
		_, err = repo.FindByID(ctx, collection, "d1")
		assert.ErrorIs(t, err, document.ErrNotFound)
	})
}
