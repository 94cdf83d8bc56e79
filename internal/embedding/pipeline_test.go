package embedding

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) EmbeddingModel() string { return "test-embedding-model" }

func TestRequestEmbeddingEnqueuesOnce(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	created, err := svc.RequestEmbedding(ctx, "t1", EntityCandidate, "cand-1", "go engineer in berlin", 5)
	require.NoError(t, err)
	assert.True(t, created)

	// Same entity with a task still outstanding: no duplicate task.
	created, err = svc.RequestEmbedding(ctx, "t1", EntityCandidate, "cand-1", "go engineer in berlin, updated", 5)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, store.taskCount())
}

func TestRequestEmbeddingSkipsWhenHashMatches(t *testing.T) {
	store := newMemStore()
	text := "senior backend engineer"
	store.putVector(Vector{
		EntityType: EntityJob,
		EntityID:   "job-1",
		Kind:       KindProfile,
		SourceHash: SourceHash(text),
	})
	svc := NewService(store)

	created, err := svc.RequestEmbedding(context.Background(), "t1", EntityJob, "job-1", text, 5)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 0, store.taskCount())
}

func TestRequestEmbeddingRegeneratesOnStaleHash(t *testing.T) {
	store := newMemStore()
	store.putVector(Vector{
		EntityType: EntityJob,
		EntityID:   "job-1",
		Kind:       KindProfile,
		SourceHash: SourceHash("old description"),
	})
	svc := NewService(store)

	created, err := svc.RequestEmbedding(context.Background(), "t1", EntityJob, "job-1", "new description", 5)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestWorkerStoresVectorOnSuccess(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.RequestEmbedding(ctx, "t1", EntityCandidate, "cand-1", "profile text", 1)
	require.NoError(t, err)

	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	worker := NewWorker(store, embedder, time.Second, time.Minute)

	task, err := store.ClaimNextTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	worker.Process(ctx, task)

	vec, ok := store.vector(EntityCandidate, "cand-1", KindProfile)
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec.Values)
	assert.Equal(t, SourceHash("profile text"), vec.SourceHash)
	assert.Equal(t, "test-embedding-model", vec.Model)
	assert.Equal(t, TaskCompleted, store.task(task.ID).Status)
}

func TestWorkerRetriesThenFailsTerminally(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.RequestEmbedding(ctx, "t1", EntityCandidate, "cand-1", "profile text", 1)
	require.NoError(t, err)

	embedder := &fakeEmbedder{err: fmt.Errorf("service unavailable")}
	worker := NewWorker(store, embedder, time.Second, time.Minute)

	var taskID string
	for i := 0; i < DefaultMaxRetries; i++ {
		task, err := store.ClaimNextTask(ctx)
		require.NoError(t, err)
		require.NotNil(t, task, "expected a claimable task on attempt %d", i+1)
		taskID = task.ID
		worker.Process(ctx, task)
	}

	final := store.task(taskID)
	assert.Equal(t, TaskFailed, final.Status)
	assert.Equal(t, DefaultMaxRetries, final.RetryCount)
	assert.Equal(t, "service unavailable", final.LastError)

	// Failed is terminal: the task is excluded from future pickup.
	task, err := store.ClaimNextTask(ctx)
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestClaimOrderPriorityThenAge(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	base := time.Now()

	for i, tc := range []struct {
		id       string
		priority int
		age      time.Duration
	}{
		{"low-old", 9, 3 * time.Hour},
		{"high-new", 1, time.Minute},
		{"high-old", 1, 2 * time.Hour},
	} {
		_, err := store.EnqueueTask(ctx, Task{
			ID:         tc.id,
			EntityType: EntityCandidate,
			EntityID:   fmt.Sprintf("cand-%d", i),
			Kind:       KindProfile,
			Priority:   tc.priority,
			Status:     TaskPending,
			MaxRetries: DefaultMaxRetries,
			CreatedAt:  base.Add(-tc.age),
		})
		require.NoError(t, err)
	}

	var order []string
	for {
		task, err := store.ClaimNextTask(ctx)
		require.NoError(t, err)
		if task == nil {
			break
		}
		order = append(order, task.ID)
	}
	assert.Equal(t, []string{"high-old", "high-new", "low-old"}, order)
}

func TestReclaimStuckReturnsTaskToPending(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	_, err := store.EnqueueTask(ctx, Task{
		ID:         "stuck",
		EntityType: EntityCandidate,
		EntityID:   "cand-1",
		Kind:       KindProfile,
		Status:     TaskPending,
		MaxRetries: DefaultMaxRetries,
	})
	require.NoError(t, err)

	task, err := store.ClaimNextTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)

	// Backdate the claim past the lease.
	store.mu.Lock()
	old := time.Now().Add(-time.Hour)
	store.tasks["stuck"].StartedAt = &old
	store.mu.Unlock()

	n, err := store.ReclaimStuck(ctx, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	task, err = store.ClaimNextTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "stuck", task.ID)
}
