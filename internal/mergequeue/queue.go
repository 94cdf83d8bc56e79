package mergequeue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"talent-match/internal/dedup"
)

var (
	// ErrTerminalState is returned for operations on merged or rejected
	// pairs. Those states are final.
	ErrTerminalState = errors.New("pair is in a terminal state")
	// ErrMergeConflict is returned when one side of the pair was already
	// merged or retired elsewhere. The merge fails atomically.
	ErrMergeConflict = errors.New("merge conflict")
	ErrNotFound      = errors.New("pair not found")
)

// Store is the persistence surface for the merge workflow. The mutating
// operations are atomic: either the whole transition applies or none of it.
type Store interface {
	Pair(ctx context.Context, pairID string) (dedup.Pair, error)
	// MergePair reparents the duplicate candidate's observations, activity
	// history and resume documents onto the primary, retires the duplicate
	// record and marks the pair merged — all in one transaction.
	MergePair(ctx context.Context, pair dedup.Pair) error
	// RejectPair marks the pair rejected and records the unordered pair on
	// the suppression list in the same transaction.
	RejectPair(ctx context.Context, pair dedup.Pair, reason string) error
	// RequeuePair returns a deferred pair to pending with a fresh
	// enqueue timestamp.
	RequeuePair(ctx context.Context, pairID string, enqueuedAt time.Time) error
	// ListPending returns the pending pairs of a tenant, optionally
	// filtered by match type. Ordering is the queue's concern.
	ListPending(ctx context.Context, tenantID string, matchType dedup.MatchType) ([]dedup.Pair, error)
}

// Queue is the human-review workflow over flagged duplicate pairs.
// States: pending -> merged (terminal), pending -> rejected (terminal),
// pending -> deferred -> pending (cyclic, back of the queue).
type Queue struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Queue {
	return &Queue{store: store, now: time.Now}
}

// Merge resolves a pair by folding the duplicate candidate into the
// primary. Partial reparenting is not acceptable; the store applies the
// whole transfer or nothing, so a failure leaves the pair pending.
func (q *Queue) Merge(ctx context.Context, pairID string) error {
	pair, err := q.pending(ctx, pairID)
	if err != nil {
		return err
	}
	if err := q.store.MergePair(ctx, pair); err != nil {
		return fmt.Errorf("merge pair %s: %w", pairID, err)
	}
	log.Printf("[MergeQueue] Pair %s merged: %s absorbed into %s", pairID, pair.DuplicateID, pair.PrimaryID)
	return nil
}

// Reject resolves a pair as not-a-duplicate and suppresses it from all
// future detection runs.
func (q *Queue) Reject(ctx context.Context, pairID, reason string) error {
	pair, err := q.pending(ctx, pairID)
	if err != nil {
		return err
	}
	if err := q.store.RejectPair(ctx, pair, reason); err != nil {
		return fmt.Errorf("reject pair %s: %w", pairID, err)
	}
	log.Printf("[MergeQueue] Pair %s rejected (%s/%s suppressed)", pairID, pair.PrimaryID, pair.DuplicateID)
	return nil
}

// Defer sends a pair to the back of the reviewer's queue. The pair passes
// through deferred and immediately returns to pending with a fresh
// enqueue timestamp, so it is never parked in a dead end.
func (q *Queue) Defer(ctx context.Context, pairID string) error {
	pair, err := q.pending(ctx, pairID)
	if err != nil {
		return err
	}
	if err := q.store.RequeuePair(ctx, pair.ID, q.now()); err != nil {
		return fmt.Errorf("defer pair %s: %w", pairID, err)
	}
	log.Printf("[MergeQueue] Pair %s deferred to back of queue", pairID)
	return nil
}

// List returns the pending queue ordered by match-type severity
// (hard > strong > fuzzy > review), then enqueue time ascending.
func (q *Queue) List(ctx context.Context, tenantID string, matchType dedup.MatchType) ([]dedup.Pair, error) {
	pairs, err := q.store.ListPending(ctx, tenantID, matchType)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		si, sj := dedup.SeverityRank(pairs[i].MatchType), dedup.SeverityRank(pairs[j].MatchType)
		if si != sj {
			return si < sj
		}
		return pairs[i].EnqueuedAt.Before(pairs[j].EnqueuedAt)
	})
	return pairs, nil
}

func (q *Queue) pending(ctx context.Context, pairID string) (dedup.Pair, error) {
	pair, err := q.store.Pair(ctx, pairID)
	if err != nil {
		return dedup.Pair{}, err
	}
	switch pair.Status {
	case dedup.StatusPending:
		return pair, nil
	case dedup.StatusMerged, dedup.StatusRejected:
		return dedup.Pair{}, fmt.Errorf("pair %s is %s: %w", pairID, pair.Status, ErrTerminalState)
	default:
		// Deferred pairs are re-enqueued as pending immediately, so this
		// state should not be observable between requests.
		return dedup.Pair{}, fmt.Errorf("pair %s is %s, not actionable", pairID, pair.Status)
	}
}
