package embedding

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// Service keeps one fresh vector per (entity, kind). Generation itself is
// decoupled from ingestion latency through the task queue.
type Service struct {
	store TaskStore
}

func NewService(store TaskStore) *Service {
	return &Service{store: store}
}

// RequestEmbedding enqueues vector generation for an entity. It is
// idempotent twice over: a vector whose stored hash matches the current
// source text is a no-op, and an outstanding task for the same entity is
// never duplicated. Returns true when a new task was enqueued.
func (s *Service) RequestEmbedding(ctx context.Context, tenantID string, entityType EntityType, entityID, sourceText string, priority int) (bool, error) {
	hash := SourceHash(sourceText)

	existing, err := s.store.VectorSourceHash(ctx, entityType, entityID, KindProfile)
	if err != nil {
		return false, fmt.Errorf("hash lookup failed: %w", err)
	}
	if existing == hash {
		log.Printf("[Embedding] %s %s unchanged (hash match), skipping", entityType, entityID)
		return false, nil
	}

	created, err := s.store.EnqueueTask(ctx, Task{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		EntityType: entityType,
		EntityID:   entityID,
		Kind:       KindProfile,
		SourceText: sourceText,
		SourceHash: hash,
		Priority:   priority,
		Status:     TaskPending,
		MaxRetries: DefaultMaxRetries,
	})
	if err != nil {
		return false, fmt.Errorf("enqueue failed: %w", err)
	}
	if created {
		log.Printf("[Embedding] Queued %s %s (priority %d)", entityType, entityID, priority)
	} else {
		log.Printf("[Embedding] Task already outstanding for %s %s, skipping", entityType, entityID)
	}
	return created, nil
}
