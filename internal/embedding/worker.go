package embedding

import (
	"context"
	"log"
	"time"
)

// Worker polls the task queue and materializes vectors. Multiple workers
// can run against the same queue: claiming is atomic and stuck processing
// rows are reclaimed by lease rather than by a global lock.
type Worker struct {
	store        TaskStore
	embedder     Embedder
	pollInterval time.Duration
	lease        time.Duration
}

func NewWorker(store TaskStore, embedder Embedder, pollInterval, lease time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if lease <= 0 {
		lease = 5 * time.Minute
	}
	return &Worker{
		store:        store,
		embedder:     embedder,
		pollInterval: pollInterval,
		lease:        lease,
	}
}

// Run blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	log.Println("[EmbeddingWorker] Started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[EmbeddingWorker] Stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if reclaimed, err := w.store.ReclaimStuck(ctx, w.lease); err != nil {
		log.Printf("[EmbeddingWorker] Lease reclaim failed: %v", err)
	} else if reclaimed > 0 {
		log.Printf("[EmbeddingWorker] Reclaimed %d stuck tasks", reclaimed)
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := w.store.ClaimNextTask(ctx)
		if err != nil {
			log.Printf("[EmbeddingWorker] Claim failed: %v", err)
			return
		}
		if task == nil {
			return
		}
		w.process(ctx, task)
	}
}

// Process runs a single claimed task to completion. Exported for the
// recompute tool, which drains the queue inline instead of polling.
func (w *Worker) Process(ctx context.Context, task *Task) {
	w.process(ctx, task)
}

func (w *Worker) process(ctx context.Context, task *Task) {
	start := time.Now()
	log.Printf("[EmbeddingWorker] Processing task %s (%s %s, attempt %d/%d)",
		task.ID, task.EntityType, task.EntityID, task.RetryCount+1, task.MaxRetries)

	values, err := w.embedder.Embed(ctx, task.SourceText)
	if err != nil {
		terminal := task.RetryCount+1 >= task.MaxRetries
		if terminal {
			log.Printf("[EmbeddingWorker] Task %s exhausted retries, marking failed: %v", task.ID, err)
		} else {
			log.Printf("[EmbeddingWorker] Task %s failed, returning to pending: %v", task.ID, err)
		}
		if ferr := w.store.FailTask(ctx, task.ID, err.Error(), terminal); ferr != nil {
			log.Printf("[EmbeddingWorker] Failed to record task failure for %s: %v", task.ID, ferr)
		}
		return
	}

	vec := Vector{
		TenantID:   task.TenantID,
		EntityType: task.EntityType,
		EntityID:   task.EntityID,
		Kind:       task.Kind,
		Values:     values,
		SourceHash: task.SourceHash,
		Model:      w.embedder.EmbeddingModel(),
		CreatedAt:  time.Now(),
	}
	if err := w.store.CompleteTask(ctx, task.ID, vec); err != nil {
		log.Printf("[EmbeddingWorker] Failed to store vector for task %s: %v", task.ID, err)
		return
	}

	log.Printf("[EmbeddingWorker] Completed task %s (%d dims, took %v)",
		task.ID, len(values), time.Since(start))
}
