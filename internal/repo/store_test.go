package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-sync/internal/errs"
	"github.com/BuzzLyutic/task-sync/internal/model"
)

func strPtr(s string) *string { return &s }

func rep(id uuid.UUID, name string) model.TaskRepresentation {
	s := model.FormatIdentifier(id)
	return model.TaskRepresentation{Identifier: &s, Name: name, Priority: model.PriorityNormal}
}

// failingBackend wraps a working backend and fails on demand.
type failingBackend struct {
	Backend
	commitErr error
	queryErr  error
}

func (f *failingBackend) All(ctx context.Context) ([]model.Task, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.Backend.All(ctx)
}

func (f *failingBackend) ByIdentifiers(ctx context.Context, ids []uuid.UUID) ([]model.Task, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.Backend.ByIdentifiers(ctx, ids)
}

func (f *failingBackend) Commit(ctx context.Context, cs Changeset) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	return f.Backend.Commit(ctx, cs)
}

func TestMemoryBackend_Contract(t *testing.T) {
	runBackendContract(t, func(t *testing.T) Backend { return NewMemoryBackend() })
}

// runBackendContract exercises the Backend interface through a Store.
func runBackendContract(t *testing.T, open func(t *testing.T) Backend) {
	ctx := context.Background()

	t.Run("insert then fetch", func(t *testing.T) {
		store := NewStore(open(t), zap.NewNop())
		id := uuid.New()

		s := store.NewSession()
		created := s.Insert(rep(id, "Buy milk"))
		local := &model.Task{Name: "Local only", Notes: strPtr("n"), Priority: model.PriorityHigh}
		s.Create(local)
		require.NoError(t, s.Save(ctx))

		assert.NotZero(t, created.ID)
		assert.NotZero(t, local.ID)

		all, err := store.NewSession().FetchAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		found, err := store.NewSession().FetchByIdentifiers(ctx, []uuid.UUID{id, uuid.New()})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Buy milk", found[0].Name)
		assert.Equal(t, id, *found[0].Identifier)
		assert.Nil(t, found[0].Notes)
	})

	t.Run("update keeps identifier", func(t *testing.T) {
		store := NewStore(open(t), zap.NewNop())
		id := uuid.New()

		s := store.NewSession()
		s.Insert(rep(id, "Old"))
		require.NoError(t, s.Save(ctx))

		s = store.NewSession()
		found, err := s.FetchByIdentifiers(ctx, []uuid.UUID{id})
		require.NoError(t, err)
		require.Len(t, found, 1)

		s.Update(found[0], model.TaskRepresentation{Name: "New", Notes: strPtr("x"), Priority: model.PriorityCritical})
		require.NoError(t, s.Save(ctx))

		all, err := store.NewSession().FetchAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "New", all[0].Name)
		assert.Equal(t, "x", *all[0].Notes)
		assert.Equal(t, model.PriorityCritical, all[0].Priority)
		assert.Equal(t, id, *all[0].Identifier)
	})

	t.Run("modify assigns identifier", func(t *testing.T) {
		store := NewStore(open(t), zap.NewNop())

		s := store.NewSession()
		task := &model.Task{Name: "Unsynced", Priority: model.PriorityLow}
		s.Create(task)
		require.NoError(t, s.Save(ctx))

		id := uuid.New()
		s.Modify(task, func(t *model.Task) { t.Identifier = &id })
		require.NoError(t, s.Save(ctx))

		found, err := store.NewSession().FetchByIdentifiers(ctx, []uuid.UUID{id})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, task.ID, found[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		store := NewStore(open(t), zap.NewNop())

		s := store.NewSession()
		keep := s.Insert(rep(uuid.New(), "keep"))
		gone := s.Insert(rep(uuid.New(), "gone"))
		require.NoError(t, s.Save(ctx))

		s.Delete(gone)
		require.NoError(t, s.Save(ctx))

		all, err := store.NewSession().FetchAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, keep.ID, all[0].ID)
	})
}

func TestSession_EmptyIdentifierSetSkipsQuery(t *testing.T) {
	backend := &failingBackend{Backend: NewMemoryBackend(), queryErr: errors.New("unreachable")}
	s := NewStore(backend, zap.NewNop()).NewSession()

	found, err := s.FetchByIdentifiers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestSession_QueryError(t *testing.T) {
	backend := &failingBackend{Backend: NewMemoryBackend(), queryErr: errors.New("unreachable")}
	s := NewStore(backend, zap.NewNop()).NewSession()

	_, err := s.FetchAll(context.Background())
	assert.ErrorIs(t, err, errs.ErrQuery)

	_, err = s.FetchByIdentifiers(context.Background(), []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, errs.ErrQuery)
}

func TestSession_SaveFailureThenReset(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryBackend()
	backend := &failingBackend{Backend: mem}
	store := NewStore(backend, zap.NewNop())

	s := store.NewSession()
	task := s.Insert(rep(uuid.New(), "Original"))
	require.NoError(t, s.Save(ctx))

	backend.commitErr = errors.New("disk full")
	s.Update(task, model.TaskRepresentation{Name: "Changed", Priority: model.PriorityHigh})
	s.Insert(rep(uuid.New(), "Extra"))

	err := s.Save(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrPersistence)
	assert.True(t, s.HasChanges(), "failed save keeps staged changes")

	s.Reset()
	assert.False(t, s.HasChanges())
	assert.Equal(t, "Original", task.Name)
	assert.Equal(t, model.PriorityNormal, task.Priority)

	backend.commitErr = nil
	require.NoError(t, s.Save(ctx))
	assert.Equal(t, 1, mem.Len())
}

func TestSession_DeleteUnsavedUnstages(t *testing.T) {
	s := NewStore(NewMemoryBackend(), zap.NewNop()).NewSession()

	task := &model.Task{Name: "draft", Priority: model.PriorityNormal}
	s.Create(task)
	assert.True(t, s.HasChanges())

	s.Delete(task)
	assert.False(t, s.HasChanges())
}

func TestSession_InsertThenModifyStaysInsert(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryBackend()
	s := NewStore(mem, zap.NewNop()).NewSession()

	task := &model.Task{Name: "draft", Priority: model.PriorityNormal}
	s.Create(task)
	id := uuid.New()
	s.Modify(task, func(t *model.Task) { t.Identifier = &id })

	require.NoError(t, s.Save(ctx))
	assert.Equal(t, 1, mem.Len())
	assert.NotZero(t, task.ID)
}

func TestMemoryCollection(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCollection()

	require.NoError(t, c.Put(ctx, "a", []byte(`{"name":"x","priority":"low"}`)))
	require.NoError(t, c.Put(ctx, "b", []byte(`{"name":"y","priority":"low"}`)))
	require.NoError(t, c.Delete(ctx, "b"))
	require.NoError(t, c.Delete(ctx, "missing"))

	docs, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.JSONEq(t, `{"name":"x","priority":"low"}`, string(docs["a"]))
}
