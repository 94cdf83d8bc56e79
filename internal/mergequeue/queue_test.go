package mergequeue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-match/internal/dedup"
)

// memStore mirrors the transactional semantics of the Postgres layer:
// MergePair stages the whole ownership transfer and commits it only when
// every step succeeds, so an injected failure leaves state untouched.
type memStore struct {
	pairs        map[string]dedup.Pair
	observations map[string]string // observation id -> candidate id
	activities   map[string]string
	documents    map[string]string
	retired      map[string]bool
	suppressed   map[string]string // unordered pair key -> reason
	failMergeAt  int               // fail after staging N record moves, 0 = never
}

func newQueueStore() *memStore {
	return &memStore{
		pairs:        make(map[string]dedup.Pair),
		observations: make(map[string]string),
		activities:   make(map[string]string),
		documents:    make(map[string]string),
		retired:      make(map[string]bool),
		suppressed:   make(map[string]string),
	}
}

func suppressKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

func (m *memStore) Pair(_ context.Context, pairID string) (dedup.Pair, error) {
	p, ok := m.pairs[pairID]
	if !ok {
		return dedup.Pair{}, ErrNotFound
	}
	return p, nil
}

func (m *memStore) MergePair(_ context.Context, pair dedup.Pair) error {
	if m.retired[pair.PrimaryID] || m.retired[pair.DuplicateID] {
		return ErrMergeConflict
	}

	// Stage the transfer on copies; commit all-or-nothing.
	stagedObs := cloneOwners(m.observations)
	stagedActs := cloneOwners(m.activities)
	stagedDocs := cloneOwners(m.documents)

	moved := 0
	for _, staged := range []map[string]string{stagedObs, stagedActs, stagedDocs} {
		for id, owner := range staged {
			if owner != pair.DuplicateID {
				continue
			}
			moved++
			if m.failMergeAt > 0 && moved >= m.failMergeAt {
				return fmt.Errorf("simulated reparent failure after %d moves", moved)
			}
			staged[id] = pair.PrimaryID
		}
	}

	m.observations = stagedObs
	m.activities = stagedActs
	m.documents = stagedDocs
	m.retired[pair.DuplicateID] = true
	pair.Status = dedup.StatusMerged
	now := time.Now()
	pair.ResolvedAt = &now
	m.pairs[pair.ID] = pair
	return nil
}

func (m *memStore) RejectPair(_ context.Context, pair dedup.Pair, reason string) error {
	pair.Status = dedup.StatusRejected
	now := time.Now()
	pair.ResolvedAt = &now
	m.pairs[pair.ID] = pair
	m.suppressed[suppressKey(pair.PrimaryID, pair.DuplicateID)] = reason
	return nil
}

func (m *memStore) RequeuePair(_ context.Context, pairID string, enqueuedAt time.Time) error {
	p, ok := m.pairs[pairID]
	if !ok {
		return ErrNotFound
	}
	p.Status = dedup.StatusPending
	p.EnqueuedAt = enqueuedAt
	m.pairs[pairID] = p
	return nil
}

func (m *memStore) ListPending(_ context.Context, tenantID string, matchType dedup.MatchType) ([]dedup.Pair, error) {
	var out []dedup.Pair
	for _, p := range m.pairs {
		if p.TenantID != tenantID || p.Status != dedup.StatusPending {
			continue
		}
		if matchType != dedup.MatchNone && p.MatchType != matchType {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func cloneOwners(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func seedPair(store *memStore, id string, matchType dedup.MatchType, enqueuedAt time.Time) dedup.Pair {
	pair := dedup.Pair{
		ID:          id,
		TenantID:    "t1",
		PrimaryID:   id + "-primary",
		DuplicateID: id + "-dup",
		Score:       0.95,
		MatchType:   matchType,
		Status:      dedup.StatusPending,
		CreatedAt:   enqueuedAt,
		EnqueuedAt:  enqueuedAt,
	}
	store.pairs[id] = pair
	return pair
}

func TestMergeReparentsEverythingAndRetiresDuplicate(t *testing.T) {
	store := newQueueStore()
	pair := seedPair(store, "p1", dedup.MatchHard, time.Now())

	store.observations["obs-1"] = pair.DuplicateID
	store.observations["obs-2"] = pair.DuplicateID
	store.observations["obs-3"] = pair.PrimaryID
	store.activities["act-1"] = pair.DuplicateID
	store.documents["doc-1"] = pair.DuplicateID

	queue := New(store)
	require.NoError(t, queue.Merge(context.Background(), "p1"))

	assert.Equal(t, dedup.StatusMerged, store.pairs["p1"].Status)
	assert.True(t, store.retired[pair.DuplicateID])
	assert.False(t, store.retired[pair.PrimaryID])
	for _, owners := range []map[string]string{store.observations, store.activities, store.documents} {
		for id, owner := range owners {
			assert.Equal(t, pair.PrimaryID, owner, "record %s left on the duplicate", id)
		}
	}
}

func TestMergeFailureLeavesNothingHalfMoved(t *testing.T) {
	store := newQueueStore()
	pair := seedPair(store, "p1", dedup.MatchHard, time.Now())

	store.observations["obs-1"] = pair.DuplicateID
	store.observations["obs-2"] = pair.DuplicateID
	store.documents["doc-1"] = pair.DuplicateID
	store.failMergeAt = 2 // fail mid-reparent

	queue := New(store)
	err := queue.Merge(context.Background(), "p1")
	require.Error(t, err)

	// Every record still belongs to one of the two candidates, none moved.
	assert.Equal(t, pair.DuplicateID, store.observations["obs-1"])
	assert.Equal(t, pair.DuplicateID, store.observations["obs-2"])
	assert.Equal(t, pair.DuplicateID, store.documents["doc-1"])
	assert.False(t, store.retired[pair.DuplicateID])
	assert.Equal(t, dedup.StatusPending, store.pairs["p1"].Status, "failed merge must not mark the pair merged")
}

func TestMergeConflictWhenSideAlreadyRetired(t *testing.T) {
	store := newQueueStore()
	pair := seedPair(store, "p1", dedup.MatchStrong, time.Now())
	store.retired[pair.DuplicateID] = true // merged away elsewhere

	queue := New(store)
	err := queue.Merge(context.Background(), "p1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMergeConflict)
	assert.Equal(t, dedup.StatusPending, store.pairs["p1"].Status)
}

func TestTerminalStatesAreFinal(t *testing.T) {
	store := newQueueStore()
	seedPair(store, "p1", dedup.MatchHard, time.Now())
	queue := New(store)

	require.NoError(t, queue.Merge(context.Background(), "p1"))

	for name, op := range map[string]func() error{
		"merge":  func() error { return queue.Merge(context.Background(), "p1") },
		"reject": func() error { return queue.Reject(context.Background(), "p1", "") },
		"defer":  func() error { return queue.Defer(context.Background(), "p1") },
	} {
		err := op()
		require.Error(t, err, "%s on merged pair must fail", name)
		assert.ErrorIs(t, err, ErrTerminalState, name)
	}
}

func TestRejectSuppressesPair(t *testing.T) {
	store := newQueueStore()
	pair := seedPair(store, "p1", dedup.MatchFuzzy, time.Now())

	queue := New(store)
	require.NoError(t, queue.Reject(context.Background(), "p1", "different people, shared office phone"))

	assert.Equal(t, dedup.StatusRejected, store.pairs["p1"].Status)
	reason, ok := store.suppressed[suppressKey(pair.DuplicateID, pair.PrimaryID)]
	require.True(t, ok, "rejected pair must land on the suppression list")
	assert.Equal(t, "different people, shared office phone", reason)

	// A rejected pair disappears from the queue without erroring.
	pending, err := queue.List(context.Background(), "t1", dedup.MatchNone)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDeferReturnsPairToBackOfQueue(t *testing.T) {
	store := newQueueStore()
	base := time.Now()
	seedPair(store, "p1", dedup.MatchStrong, base.Add(-2*time.Hour))
	seedPair(store, "p2", dedup.MatchStrong, base.Add(-1*time.Hour))

	queue := New(store)
	queue.now = func() time.Time { return base }

	require.NoError(t, queue.Defer(context.Background(), "p1"))

	assert.Equal(t, dedup.StatusPending, store.pairs["p1"].Status, "deferred pair must cycle back to pending")

	pending, err := queue.List(context.Background(), "t1", dedup.MatchNone)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "p2", pending[0].ID)
	assert.Equal(t, "p1", pending[1].ID, "deferred pair goes to the tail")
}

func TestListOrdersBySeverityThenAge(t *testing.T) {
	store := newQueueStore()
	base := time.Now()
	seedPair(store, "review-old", dedup.MatchReview, base.Add(-3*time.Hour))
	seedPair(store, "hard-new", dedup.MatchHard, base)
	seedPair(store, "strong-old", dedup.MatchStrong, base.Add(-2*time.Hour))
	seedPair(store, "hard-old", dedup.MatchHard, base.Add(-1*time.Hour))

	queue := New(store)
	pending, err := queue.List(context.Background(), "t1", dedup.MatchNone)
	require.NoError(t, err)

	var order []string
	for _, p := range pending {
		order = append(order, p.ID)
	}
	assert.Equal(t, []string{"hard-old", "hard-new", "strong-old", "review-old"}, order)
}

func TestListFiltersByMatchType(t *testing.T) {
	store := newQueueStore()
	seedPair(store, "p1", dedup.MatchHard, time.Now())
	seedPair(store, "p2", dedup.MatchFuzzy, time.Now())

	queue := New(store)
	pending, err := queue.List(context.Background(), "t1", dedup.MatchFuzzy)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "p2", pending[0].ID)
}
