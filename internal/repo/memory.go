package repo

import (
	"context"
	"encoding/json"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/task-sync/internal/model"
)

// MemoryBackend keeps tasks in a map. Used by tests and the ephemeral driver.
type MemoryBackend struct {
	mu     sync.RWMutex
	rows   map[int64]model.Task
	nextID int64
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{rows: make(map[int64]model.Task)}
}

func (m *MemoryBackend) All(ctx context.Context) ([]model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Task, 0, len(m.rows))
	for _, t := range m.rows {
		out = append(out, *t.Clone())
	}
	return out, nil
}

func (m *MemoryBackend) ByIdentifiers(ctx context.Context, ids []uuid.UUID) ([]model.Task, error) {
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Task
	for _, t := range m.rows {
		if t.Identifier == nil {
			continue
		}
		if _, ok := want[*t.Identifier]; ok {
			out = append(out, *t.Clone())
		}
	}
	return out, nil
}

func (m *MemoryBackend) Commit(ctx context.Context, cs Changeset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range cs.Updates {
		if _, ok := m.rows[t.ID]; ok {
			m.rows[t.ID] = *t.Clone()
		}
	}
	for _, t := range cs.Deletes {
		delete(m.rows, t.ID)
	}
	for _, t := range cs.Inserts {
		m.nextID++
		t.ID = m.nextID
		m.rows[t.ID] = *t.Clone()
	}
	return nil
}

func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

func (m *MemoryBackend) Close() error { return nil }

// MemoryCollection is an in-process CollectionStore.
type MemoryCollection struct {
	mu   sync.RWMutex
	docs map[string]json.RawMessage
}

func NewMemoryCollection() *MemoryCollection {
	return &MemoryCollection{docs: make(map[string]json.RawMessage)}
}

func (c *MemoryCollection) Snapshot(ctx context.Context) (map[string]json.RawMessage, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.docs), nil
}

func (c *MemoryCollection) Put(ctx context.Context, key string, body json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[key] = append(json.RawMessage(nil), body...)
	return nil
}

func (c *MemoryCollection) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, key)
	return nil
}
