package repo

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-sync/internal/errs"
	"github.com/BuzzLyutic/task-sync/internal/model"
)

// Store is the shared handle to local persistence. Sessions opened from the
// same Store serialize their commits against each other.
type Store struct {
	backend Backend
	logger  *zap.Logger
	writeMu sync.Mutex
}

func NewStore(backend Backend, logger *zap.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger,
	}
}

// NewSession opens a unit of work. Sessions are cheap and not shared.
func (s *Store) NewSession() *Session {
	return &Session{
		store:     s,
		staged:    make(map[*model.Task]change),
		snapshots: make(map[*model.Task]model.Task),
	}
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) commit(ctx context.Context, cs Changeset) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.backend.Commit(ctx, cs)
}

type change int

const (
	changeInsert change = iota + 1
	changeUpdate
	changeDelete
)

// Session stages mutations in memory until Save. Tasks returned by a session
// are tracked by pointer.
type Session struct {
	store *Store

	mu        sync.Mutex
	order     []*model.Task
	staged    map[*model.Task]change
	snapshots map[*model.Task]model.Task
}

// FetchAll returns every committed task.
func (s *Session) FetchAll(ctx context.Context) ([]*model.Task, error) {
	rows, err := s.store.backend.All(ctx)
	if err != nil {
		return nil, errs.E(errs.ErrQuery, "repo.fetch_all", err)
	}
	return pointers(rows), nil
}

// FetchByIdentifiers returns the committed tasks whose identifier is in ids.
func (s *Session) FetchByIdentifiers(ctx context.Context, ids []uuid.UUID) ([]*model.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.store.backend.ByIdentifiers(ctx, ids)
	if err != nil {
		return nil, errs.E(errs.ErrQuery, "repo.fetch_by_identifiers", err)
	}
	return pointers(rows), nil
}

// Insert stages a new task built from a wire representation.
func (s *Session) Insert(rep model.TaskRepresentation) *model.Task {
	t := model.NewTask(rep)
	s.Create(t)
	return t
}

// Create stages a locally authored task. A task that already has a local ID
// is staged as an update instead.
func (s *Session) Create(t *model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID != 0 {
		s.stageLocked(t, changeUpdate)
		return
	}
	s.stageLocked(t, changeInsert)
}

// Update overwrites name, notes and priority from rep. The identifier is kept.
func (s *Session) Update(t *model.Task, rep model.TaskRepresentation) {
	s.Modify(t, func(t *model.Task) { t.Apply(rep) })
}

// Modify applies fn to t and stages the result. Reset restores the fields
// t had before its first modification in this session.
func (s *Session) Modify(t *model.Task, fn func(*model.Task)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snapshots[t]; !ok {
		s.snapshots[t] = *t.Clone()
	}
	fn(t)

	if t.ID == 0 {
		s.stageLocked(t, changeInsert)
		return
	}
	s.stageLocked(t, changeUpdate)
}

// Delete stages removal. Deleting a task that was never saved just unstages it.
func (s *Session) Delete(t *model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == 0 {
		if _, ok := s.staged[t]; ok {
			delete(s.staged, t)
			s.removeLocked(t)
		}
		return
	}
	s.stageLocked(t, changeDelete)
}

func (s *Session) stageLocked(t *model.Task, c change) {
	prev, ok := s.staged[t]
	if !ok {
		s.order = append(s.order, t)
		s.staged[t] = c
		return
	}
	// a pending insert stays an insert until it is saved
	if prev == changeInsert && c == changeUpdate {
		return
	}
	s.staged[t] = c
}

func (s *Session) removeLocked(t *model.Task) {
	for i, o := range s.order {
		if o == t {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// HasChanges reports whether anything is staged.
func (s *Session) HasChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.staged) > 0
}

// Save commits staged mutations. On failure the staged state is kept; the
// caller is expected to Reset.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cs Changeset
	for _, t := range s.order {
		switch s.staged[t] {
		case changeInsert:
			cs.Inserts = append(cs.Inserts, t)
		case changeUpdate:
			cs.Updates = append(cs.Updates, t)
		case changeDelete:
			cs.Deletes = append(cs.Deletes, t)
		}
	}
	if cs.Empty() {
		return nil
	}

	if err := s.store.commit(ctx, cs); err != nil {
		return errs.E(errs.ErrPersistence, "repo.save", err)
	}

	s.store.logger.Debug("local store saved",
		zap.Int("inserted", len(cs.Inserts)),
		zap.Int("updated", len(cs.Updates)),
		zap.Int("deleted", len(cs.Deletes)),
	)
	s.clearLocked()
	return nil
}

// Reset discards staged mutations and restores modified tasks.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for t, snap := range s.snapshots {
		*t = snap
	}
	s.clearLocked()
}

func (s *Session) clearLocked() {
	s.order = nil
	s.staged = make(map[*model.Task]change)
	s.snapshots = make(map[*model.Task]model.Task)
}

func pointers(rows []model.Task) []*model.Task {
	out := make([]*model.Task, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}
