package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-sync/internal/errs"
	"github.com/BuzzLyutic/task-sync/internal/model"
	"github.com/BuzzLyutic/task-sync/internal/repo"
)

// Draft is what an edit screen collects.
type Draft struct {
	Name     string
	Notes    *string
	Priority model.Priority
}

// TaskService is the entry point for the task list and detail screens.
type TaskService struct {
	store  *repo.Store
	sync   *SyncService
	logger *zap.Logger
}

func NewTaskService(store *repo.Store, sync *SyncService, logger *zap.Logger) *TaskService {
	return &TaskService{
		store:  store,
		sync:   sync,
		logger: logger,
	}
}

// List returns every local task ordered by local ID.
func (s *TaskService) List(ctx context.Context) ([]*model.Task, error) {
	tasks, err := s.store.NewSession().FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// Get finds a task by local ID.
func (s *TaskService) Get(ctx context.Context, id int64) (*model.Task, error) {
	tasks, err := s.store.NewSession().FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, errs.E(errs.ErrNotFound, "service.get", nil)
}

// Create builds a new task from d and pushes it, which also saves it locally.
func (s *TaskService) Create(ctx context.Context, d Draft, completion Completion) (*model.Task, *Result) {
	task := &model.Task{}
	applyDraft(task, d)
	return task, s.sync.Push(ctx, task, completion)
}

// Edit applies d to task and pushes it. Nothing changes when d is invalid or
// the local save fails.
func (s *TaskService) Edit(ctx context.Context, task *model.Task, d Draft, completion Completion) *Result {
	return s.sync.push(ctx, task, func(t *model.Task) { applyDraft(t, d) }, completion)
}

// Delete removes task locally and remotely.
func (s *TaskService) Delete(ctx context.Context, task *model.Task, completion Completion) *Result {
	return s.sync.DeleteTask(ctx, task, completion)
}

// Refresh pulls the remote collection.
func (s *TaskService) Refresh(ctx context.Context, completion Completion) *Result {
	return s.sync.PullAll(ctx, completion)
}

func applyDraft(task *model.Task, d Draft) {
	task.Name = d.Name
	task.Notes = d.Notes
	task.Priority = d.Priority
	if task.Priority == "" {
		task.Priority = model.PriorityNormal
	}
}
