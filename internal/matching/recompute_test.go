package matching

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recomputeMemStore struct {
	mu      sync.Mutex
	jobs    map[string]JobProfile
	pool    []CandidateProfile
	cfg     Config
	matches map[string]Match // candidate|job|version

	poolGate    chan struct{} // when set, CandidateProfiles blocks on it
	openJobsErr error
}

func newRecomputeStore(cfg Config) *recomputeMemStore {
	return &recomputeMemStore{
		jobs:    make(map[string]JobProfile),
		cfg:     cfg,
		matches: make(map[string]Match),
	}
}

func matchKey(candidateID, jobID, version string) string {
	return candidateID + "|" + jobID + "|" + version
}

func (s *recomputeMemStore) JobProfile(_ context.Context, jobID string) (JobProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return JobProfile{}, fmt.Errorf("job %s not found", jobID)
	}
	return job, nil
}

func (s *recomputeMemStore) OpenJobs(_ context.Context, tenantID string) ([]JobProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openJobsErr != nil {
		return nil, s.openJobsErr
	}
	var open []JobProfile
	for _, j := range s.jobs {
		if j.TenantID == tenantID && j.Status == "open" {
			open = append(open, j)
		}
	}
	return open, nil
}

func (s *recomputeMemStore) CandidateProfile(_ context.Context, candidateID string) (CandidateProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.pool {
		if c.ID == candidateID {
			return c, nil
		}
	}
	return CandidateProfile{}, fmt.Errorf("candidate %s not found", candidateID)
}

func (s *recomputeMemStore) CandidateProfiles(_ context.Context, _ string) ([]CandidateProfile, error) {
	s.mu.Lock()
	gate := s.poolGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CandidateProfile(nil), s.pool...), nil
}

func (s *recomputeMemStore) TenantMatchConfig(_ context.Context, _ string) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg, nil
}

func (s *recomputeMemStore) SaveMatches(_ context.Context, _ string, matches []Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range matches {
		s.matches[matchKey(m.CandidateID, m.JobID, m.AlgorithmVersion)] = m
	}
	return nil
}

func (s *recomputeMemStore) DeleteJobMatches(_ context.Context, jobID, algorithmVersion string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, m := range s.matches {
		if m.JobID == jobID && m.AlgorithmVersion == algorithmVersion {
			delete(s.matches, key)
		}
	}
	return nil
}

func (s *recomputeMemStore) match(candidateID, jobID, version string) (Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchKey(candidateID, jobID, version)]
	return m, ok
}

func startRecomputer(t *testing.T, store *recomputeMemStore) *Recomputer {
	t.Helper()
	rec := NewRecomputer(store, NewScorer(&fakeVectors{}, nil))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go rec.Run(ctx)
	return rec
}

func waitForRun(t *testing.T, rec *Recomputer, runID string) Run {
	t.Helper()
	require.Eventually(t, func() bool {
		run, ok := rec.RunStatus(runID)
		return ok && (run.Status == RunCompleted || run.Status == RunFailed)
	}, 2*time.Second, 10*time.Millisecond)
	run, _ := rec.RunStatus(runID)
	return run
}

func TestRecomputeKeepsPriorVersionRows(t *testing.T) {
	cfg := DefaultConfig("t1") // algorithm version v2
	store := newRecomputeStore(cfg)
	store.jobs["job-1"] = testJob()
	store.pool = []CandidateProfile{testCandidate("cand-1")}

	// A row written under the previous algorithm version, and a stale
	// current-version row for a candidate no longer in the pool.
	prior := Match{CandidateID: "cand-old", JobID: "job-1", Score: 0.91, AlgorithmVersion: "v1"}
	stale := Match{CandidateID: "cand-gone", JobID: "job-1", Score: 0.88, AlgorithmVersion: "v2"}
	store.matches[matchKey("cand-old", "job-1", "v1")] = prior
	store.matches[matchKey("cand-gone", "job-1", "v2")] = stale

	rec := startRecomputer(t, store)
	run, err := rec.Enqueue(RecomputeRequest{TenantID: "t1", JobID: "job-1"})
	require.NoError(t, err)

	done := waitForRun(t, rec, run.ID)
	assert.Equal(t, RunCompleted, done.Status)
	assert.Equal(t, 1, done.JobsScored)

	kept, ok := store.match("cand-old", "job-1", "v1")
	require.True(t, ok, "prior-version row must survive a rescore")
	assert.Equal(t, 0.91, kept.Score)

	_, ok = store.match("cand-gone", "job-1", "v2")
	assert.False(t, ok, "stale current-version row must be pruned")

	_, ok = store.match("cand-1", "job-1", "v2")
	assert.True(t, ok)
}

func TestEnqueueReturnsBeforeScoringRuns(t *testing.T) {
	store := newRecomputeStore(DefaultConfig("t1"))
	store.jobs["job-1"] = testJob()
	store.pool = []CandidateProfile{testCandidate("cand-1")}
	store.poolGate = make(chan struct{})

	rec := startRecomputer(t, store)
	run, err := rec.Enqueue(RecomputeRequest{TenantID: "t1"})
	require.NoError(t, err)

	// Scoring is parked on the gate, yet the enqueue already returned and
	// the run is observable.
	current, ok := rec.RunStatus(run.ID)
	require.True(t, ok)
	assert.NotEqual(t, RunCompleted, current.Status)

	close(store.poolGate)
	done := waitForRun(t, rec, run.ID)
	assert.Equal(t, RunCompleted, done.Status)
	assert.Equal(t, 1, done.MatchesSaved)
}

func TestRecomputeCandidateScopeScoresOpenJobs(t *testing.T) {
	store := newRecomputeStore(DefaultConfig("t1"))
	open := testJob()
	closed := testJob()
	closed.ID = "job-2"
	closed.Status = "closed"
	store.jobs["job-1"] = open
	store.jobs["job-2"] = closed
	store.pool = []CandidateProfile{testCandidate("cand-1")}

	rec := startRecomputer(t, store)
	run, err := rec.Enqueue(RecomputeRequest{TenantID: "t1", CandidateID: "cand-1"})
	require.NoError(t, err)

	done := waitForRun(t, rec, run.ID)
	assert.Equal(t, RunCompleted, done.Status)
	assert.Equal(t, 1, done.MatchesSaved)

	_, ok := store.match("cand-1", "job-1", "v2")
	assert.True(t, ok)
	_, ok = store.match("cand-1", "job-2", "v2")
	assert.False(t, ok)
}

func TestEnqueueValidatesScope(t *testing.T) {
	rec := NewRecomputer(newRecomputeStore(DefaultConfig("t1")), NewScorer(&fakeVectors{}, nil))

	_, err := rec.Enqueue(RecomputeRequest{})
	assert.Error(t, err)

	_, err = rec.Enqueue(RecomputeRequest{TenantID: "t1", JobID: "job-1", CandidateID: "cand-1"})
	assert.Error(t, err)
}

func TestRecomputeFailureIsReported(t *testing.T) {
	store := newRecomputeStore(DefaultConfig("t1"))
	store.openJobsErr = fmt.Errorf("connection refused")

	rec := startRecomputer(t, store)
	run, err := rec.Enqueue(RecomputeRequest{TenantID: "t1"})
	require.NoError(t, err)

	done := waitForRun(t, rec, run.ID)
	assert.Equal(t, RunFailed, done.Status)
	assert.Contains(t, done.Error, "connection refused")
}

func TestRunStatusUnknownRun(t *testing.T) {
	rec := NewRecomputer(newRecomputeStore(DefaultConfig("t1")), NewScorer(&fakeVectors{}, nil))
	_, ok := rec.RunStatus("no-such-run")
	assert.False(t, ok)
}
