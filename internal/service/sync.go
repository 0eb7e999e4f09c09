package service

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-sync/internal/errs"
	"github.com/BuzzLyutic/task-sync/internal/model"
	"github.com/BuzzLyutic/task-sync/internal/reconcile"
	"github.com/BuzzLyutic/task-sync/internal/repo"
	"github.com/BuzzLyutic/task-sync/internal/worker"
)

// RemoteClient is the transport the sync service needs.
type RemoteClient interface {
	FetchCollection(ctx context.Context) (map[string]model.TaskRepresentation, error)
	Put(ctx context.Context, id uuid.UUID, rep model.TaskRepresentation) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SyncService pulls the remote collection into the local store and pushes
// local mutations upstream. Every operation returns immediately; its
// completion runs on the callbacks pool, which must have a single worker for
// completions to be serialized.
//
// Operations are not cancellable once started: the context passed in only
// contributes its values.
type SyncService struct {
	store      *repo.Store
	remote     RemoteClient
	reconciler *reconcile.Reconciler
	callbacks  *worker.Pool
	logger     *zap.Logger

	inflight sync.WaitGroup
}

func NewSyncService(store *repo.Store, remote RemoteClient, callbacks *worker.Pool, logger *zap.Logger) *SyncService {
	return &SyncService{
		store:      store,
		remote:     remote,
		reconciler: reconcile.New(store, logger),
		callbacks:  callbacks,
		logger:     logger,
	}
}

// PullAll fetches the whole remote collection and merges it into the local
// store. The completion gets the fetch error, if any. Local store failures
// during the merge are logged only.
func (s *SyncService) PullAll(ctx context.Context, completion Completion) *Result {
	ctx = context.WithoutCancel(ctx)
	res := newResult()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		collection, err := s.remote.FetchCollection(ctx)
		if err != nil {
			s.logger.Error("Error fetching tasks from server", zap.Error(err))
			s.finish(res, completion, err)
			return
		}

		// server keys are dropped; only embedded identifiers match
		reps := make([]model.TaskRepresentation, 0, len(collection))
		for _, rep := range collection {
			reps = append(reps, rep)
		}

		if _, err := s.reconciler.Reconcile(ctx, reps); err != nil {
			s.logger.Warn("pull finished with local store errors", zap.Error(err))
		}
		s.finish(res, completion, nil)
	}()

	return res
}

// Push mirrors task to the server. A task without an identifier gets a new
// UUID first and an empty priority becomes normal. Assignment and the local
// save happen before Push returns and stick even if the PUT later fails;
// retry is up to the caller.
func (s *SyncService) Push(ctx context.Context, task *model.Task, completion Completion) *Result {
	return s.push(ctx, task, nil, completion)
}

// push applies edit to task, then saves and uploads it. edit and the
// defaults go through the session, so a failed save restores task.
func (s *SyncService) push(ctx context.Context, task *model.Task, edit func(*model.Task), completion Completion) *Result {
	ctx = context.WithoutCancel(ctx)
	res := newResult()

	candidate := task.Clone()
	if edit != nil {
		edit(candidate)
	}
	if candidate.Priority == "" {
		candidate.Priority = model.PriorityNormal
	}
	if err := Validate(candidate); err != nil {
		s.finish(res, completion, err)
		return res
	}

	session := s.store.NewSession()
	session.Modify(task, func(t *model.Task) {
		*t = *candidate
		if t.Identifier == nil {
			id := uuid.New()
			t.Identifier = &id
		}
	})

	if err := session.Save(ctx); err != nil {
		session.Reset()
		s.logger.Error("Error saving task before push", zap.Int64("task_id", task.ID), zap.Error(err))
		s.finish(res, completion, err)
		return res
	}

	id := *task.Identifier
	rep := task.Representation()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		err := s.remote.Put(ctx, id, rep)
		if err != nil {
			s.logger.Error("Error PUTting task to server",
				zap.String("identifier", model.FormatIdentifier(id)),
				zap.Error(err),
			)
		}
		s.finish(res, completion, err)
	}()

	return res
}

// DeleteTask removes task locally and remotely. The two deletions run
// independently: neither waits for nor compensates the other. The
// completion gets the remote error; a local failure is logged and its
// session reset. A task that was never pushed is only deleted locally.
func (s *SyncService) DeleteTask(ctx context.Context, task *model.Task, completion Completion) *Result {
	ctx = context.WithoutCancel(ctx)
	res := newResult()

	var (
		wg        sync.WaitGroup
		remoteErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()

		session := s.store.NewSession()
		session.Delete(task)
		if err := session.Save(ctx); err != nil {
			session.Reset()
			s.logger.Error("Error deleting task from local store", zap.Int64("task_id", task.ID), zap.Error(err))
		}
	}()

	if task.Identifier != nil {
		id := *task.Identifier
		wg.Add(1)
		go func() {
			defer wg.Done()

			remoteErr = s.remote.Delete(ctx, id)
			if remoteErr != nil {
				s.logger.Error("Error deleting task from server",
					zap.String("identifier", model.FormatIdentifier(id)),
					zap.Error(remoteErr),
				)
			}
		}()
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		wg.Wait()
		s.finish(res, completion, remoteErr)
	}()

	return res
}

// Wait blocks until every started operation has finished.
func (s *SyncService) Wait() {
	s.inflight.Wait()
}

// finish hands the outcome to the completion on the callbacks pool and
// resolves res after the completion has run.
func (s *SyncService) finish(res *Result, completion Completion, err error) {
	if completion == nil {
		res.resolve(err)
		return
	}

	ok := s.callbacks.Submit(func() {
		defer res.resolve(err)
		completion(err)
	})
	if !ok {
		s.logger.Warn("callback pool stopped, dropping completion", zap.Error(err))
		res.resolve(err)
	}
}

// Validate checks what must hold before any I/O.
func Validate(task *model.Task) error {
	const op = "service.validate"

	if strings.TrimSpace(task.Name) == "" {
		return errs.Validation(op, "name is required")
	}
	if !task.Priority.Valid() {
		return errs.Validation(op, "unknown priority %q", task.Priority)
	}
	return nil
}
