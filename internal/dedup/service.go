package dedup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"talent-match/internal/matching"
)

// Store is the persistence surface the detector needs. Implemented by the
// Postgres storage layer; tests use an in-memory version.
type Store interface {
	Identity(ctx context.Context, candidateID string) (Identity, error)
	// TenantIdentities returns the active (non-retired) candidates of a
	// tenant, optionally excluding one id.
	TenantIdentities(ctx context.Context, tenantID, excludeID string) ([]Identity, error)
	// IsSuppressed reports whether the unordered pair was rejected by a
	// human before. Suppressed pairs are never re-surfaced.
	IsSuppressed(ctx context.Context, idA, idB string) (bool, error)
	// SavePair upserts a detection result. An existing row for the same
	// unordered pair keeps its workflow status; only score, tier and
	// reasons are refreshed.
	SavePair(ctx context.Context, pair Pair) error
}

// VectorSource yields profile embeddings for the resume-similarity signal.
type VectorSource interface {
	Vector(ctx context.Context, entityType, entityID string) ([]float32, bool, error)
}

// Detector runs pairwise identity comparison over a tenant's candidate
// pool and persists the classified pairs for the merge queue.
type Detector struct {
	store   Store
	vectors VectorSource
	now     func() time.Time
}

func NewDetector(store Store, vectors VectorSource) *Detector {
	return &Detector{store: store, vectors: vectors, now: time.Now}
}

// DetectForCandidate compares one candidate against the rest of its tenant
// pool. Returns the pairs that classified at review tier or above.
func (d *Detector) DetectForCandidate(ctx context.Context, candidateID string) ([]Pair, error) {
	subject, err := d.store.Identity(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("load candidate %s: %w", candidateID, err)
	}

	others, err := d.store.TenantIdentities(ctx, subject.TenantID, subject.ID)
	if err != nil {
		return nil, fmt.Errorf("load tenant pool: %w", err)
	}

	var surfaced []Pair
	for _, other := range others {
		pair, err := d.comparePair(ctx, subject, other)
		if err != nil {
			return nil, err
		}
		if pair != nil {
			surfaced = append(surfaced, *pair)
		}
	}

	log.Printf("[DupDetector] Candidate %s: %d of %d comparisons surfaced", candidateID, len(surfaced), len(others))
	return surfaced, nil
}

// SweepTenant runs full pairwise detection over a tenant pool.
func (d *Detector) SweepTenant(ctx context.Context, tenantID string) (int, error) {
	pool, err := d.store.TenantIdentities(ctx, tenantID, "")
	if err != nil {
		return 0, fmt.Errorf("load tenant pool: %w", err)
	}

	surfaced := 0
	for i := 0; i < len(pool); i++ {
		for j := i + 1; j < len(pool); j++ {
			pair, err := d.comparePair(ctx, pool[i], pool[j])
			if err != nil {
				return surfaced, err
			}
			if pair != nil {
				surfaced++
			}
		}
	}

	log.Printf("[DupDetector] Tenant %s sweep: %d candidates, %d pairs surfaced", tenantID, len(pool), surfaced)
	return surfaced, nil
}

// comparePair classifies one unordered pair, honoring suppression, and
// persists the result when it surfaces. Detection is idempotent with
// respect to rejection: a suppressed pair silently disappears.
func (d *Detector) comparePair(ctx context.Context, a, b Identity) (*Pair, error) {
	suppressed, err := d.store.IsSuppressed(ctx, a.ID, b.ID)
	if err != nil {
		return nil, fmt.Errorf("suppression check: %w", err)
	}
	if suppressed {
		return nil, nil
	}

	sim, simOK := d.resumeSimilarity(ctx, a.ID, b.ID)
	result := Compare(a, b, sim, simOK)
	if result.MatchType == MatchNone {
		return nil, nil
	}

	primary, duplicate := a, b
	if b.CreatedAt.Before(a.CreatedAt) {
		primary, duplicate = b, a
	}

	now := d.now()
	pair := Pair{
		ID:          uuid.New().String(),
		TenantID:    a.TenantID,
		PrimaryID:   primary.ID,
		DuplicateID: duplicate.ID,
		Score:       result.Score,
		MatchType:   result.MatchType,
		Reasons:     result.Reasons,
		Status:      StatusPending,
		CreatedAt:   now,
		EnqueuedAt:  now,
	}
	if err := d.store.SavePair(ctx, pair); err != nil {
		return nil, fmt.Errorf("save pair: %w", err)
	}

	log.Printf("[DupDetector] Pair %s/%s classified %s (score %.4f, %d reasons)",
		primary.ID, duplicate.ID, result.MatchType, result.Score, len(result.Reasons))
	return &pair, nil
}

func (d *Detector) resumeSimilarity(ctx context.Context, idA, idB string) (float64, bool) {
	if d.vectors == nil {
		return 0, false
	}
	va, okA, err := d.vectors.Vector(ctx, "candidate", idA)
	if err != nil || !okA {
		return 0, false
	}
	vb, okB, err := d.vectors.Vector(ctx, "candidate", idB)
	if err != nil || !okB {
		return 0, false
	}
	return matching.Cosine(va, vb), true
}
