package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type EntityType string

const (
	EntityCandidate EntityType = "candidate"
	EntityJob       EntityType = "job"
)

// Kind distinguishes multiple vectors per entity (only profile today).
type Kind string

const KindProfile Kind = "profile"

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

const DefaultMaxRetries = 3

// Task is a queue entry for vector generation. At most one non-terminal
// task exists per (entity type, entity id); the storage layer enforces
// that with a unique constraint.
type Task struct {
	ID          string
	TenantID    string
	EntityType  EntityType
	EntityID    string
	Kind        Kind
	SourceText  string
	SourceHash  string
	Priority    int
	Status      TaskStatus
	RetryCount  int
	MaxRetries  int
	LastError   string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Vector is the materialized embedding for one (entity, kind).
type Vector struct {
	TenantID   string
	EntityType EntityType
	EntityID   string
	Kind       Kind
	Values     []float32
	SourceHash string
	Model      string
	CreatedAt  time.Time
}

// Embedder is the capability the worker needs from the reasoning service.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbeddingModel() string
}

// TaskStore is the persistence surface for the pipeline. Implemented by
// the Postgres storage layer; tests use an in-memory version.
type TaskStore interface {
	// VectorSourceHash returns the stored hash for an entity's vector,
	// or "" when no vector exists yet.
	VectorSourceHash(ctx context.Context, entityType EntityType, entityID string, kind Kind) (string, error)
	// EnqueueTask inserts a pending task. Returns false without error when
	// a task for the same entity is already outstanding.
	EnqueueTask(ctx context.Context, task Task) (bool, error)
	// ClaimNextTask atomically moves the lowest-priority-number, oldest
	// pending task to processing. Returns nil when the queue is empty.
	ClaimNextTask(ctx context.Context) (*Task, error)
	// CompleteTask stores the vector and marks the task completed.
	CompleteTask(ctx context.Context, taskID string, vec Vector) error
	// FailTask increments the retry count and either returns the task to
	// pending or, when terminal, marks it failed.
	FailTask(ctx context.Context, taskID string, cause string, terminal bool) error
	// ReclaimStuck returns processing tasks older than the lease to
	// pending so another worker can pick them up.
	ReclaimStuck(ctx context.Context, lease time.Duration) (int, error)
}

// SourceHash fingerprints embedding source text for staleness checks.
func SourceHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
