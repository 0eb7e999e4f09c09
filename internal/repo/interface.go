package repo

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/task-sync/internal/model"
)

// Backend is the durable engine behind a Store.
type Backend interface {
	All(ctx context.Context) ([]model.Task, error)
	ByIdentifiers(ctx context.Context, ids []uuid.UUID) ([]model.Task, error)
	// Commit applies the changeset atomically. On success every inserted
	// task has its ID set; on failure no task is modified.
	Commit(ctx context.Context, cs Changeset) error
	Close() error
}

// Changeset is the set of staged mutations written by one Save.
type Changeset struct {
	Inserts []*model.Task
	Updates []*model.Task
	Deletes []*model.Task
}

func (cs Changeset) Empty() bool {
	return len(cs.Inserts) == 0 && len(cs.Updates) == 0 && len(cs.Deletes) == 0
}

// CollectionStore backs the remote JSON store served by the dev server.
// Bodies are kept verbatim.
type CollectionStore interface {
	Snapshot(ctx context.Context) (map[string]json.RawMessage, error)
	Put(ctx context.Context, key string, body json.RawMessage) error
	Delete(ctx context.Context, key string) error
}
