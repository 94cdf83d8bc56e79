package embedding

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory TaskStore used by the pipeline tests. It mirrors
// the Postgres semantics: at most one outstanding task per entity, claims
// ordered by (priority, created_at).
type memStore struct {
	mu      sync.Mutex
	now     func() time.Time
	tasks   map[string]*Task
	vectors map[string]Vector
}

func newMemStore() *memStore {
	return &memStore{
		now:     time.Now,
		tasks:   make(map[string]*Task),
		vectors: make(map[string]Vector),
	}
}

func vectorKey(et EntityType, id string, kind Kind) string {
	return fmt.Sprintf("%s/%s/%s", et, id, kind)
}

func (m *memStore) VectorSourceHash(_ context.Context, et EntityType, id string, kind Kind) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.vectors[vectorKey(et, id, kind)]; ok {
		return v.SourceHash, nil
	}
	return "", nil
}

func (m *memStore) EnqueueTask(_ context.Context, task Task) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.EntityType == task.EntityType && t.EntityID == task.EntityID &&
			(t.Status == TaskPending || t.Status == TaskProcessing) {
			return false, nil
		}
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = m.now()
	}
	cp := task
	m.tasks[task.ID] = &cp
	return true, nil
}

func (m *memStore) ClaimNextTask(_ context.Context) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pending []*Task
	for _, t := range m.tasks {
		if t.Status == TaskPending {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Priority != pending[j].Priority {
			return pending[i].Priority < pending[j].Priority
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	t := pending[0]
	t.Status = TaskProcessing
	started := m.now()
	t.StartedAt = &started
	cp := *t
	return &cp, nil
}

func (m *memStore) CompleteTask(_ context.Context, taskID string, vec Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s not found", taskID)
	}
	t.Status = TaskCompleted
	completed := m.now()
	t.CompletedAt = &completed
	m.vectors[vectorKey(vec.EntityType, vec.EntityID, vec.Kind)] = vec
	return nil
}

func (m *memStore) FailTask(_ context.Context, taskID string, cause string, terminal bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s not found", taskID)
	}
	t.RetryCount++
	t.LastError = cause
	t.StartedAt = nil
	if terminal {
		t.Status = TaskFailed
	} else {
		t.Status = TaskPending
	}
	return nil
}

func (m *memStore) ReclaimStuck(_ context.Context, lease time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-lease)
	reclaimed := 0
	for _, t := range m.tasks {
		if t.Status == TaskProcessing && t.StartedAt != nil && t.StartedAt.Before(cutoff) {
			t.Status = TaskPending
			t.StartedAt = nil
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (m *memStore) task(id string) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.tasks[id]
}

func (m *memStore) taskCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *memStore) vector(et EntityType, id string, kind Kind) (Vector, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vectors[vectorKey(et, id, kind)]
	return v, ok
}

func (m *memStore) putVector(vec Vector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[vectorKey(vec.EntityType, vec.EntityID, vec.Kind)] = vec
}
