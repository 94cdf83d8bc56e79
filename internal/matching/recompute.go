package matching

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RecomputeStore is the persistence surface a rescoring run needs.
// Implemented by the Postgres storage layer; tests use an in-memory
// version.
type RecomputeStore interface {
	JobProfile(ctx context.Context, jobID string) (JobProfile, error)
	OpenJobs(ctx context.Context, tenantID string) ([]JobProfile, error)
	CandidateProfile(ctx context.Context, candidateID string) (CandidateProfile, error)
	CandidateProfiles(ctx context.Context, tenantID string) ([]CandidateProfile, error)
	TenantMatchConfig(ctx context.Context, tenantID string) (Config, error)
	// SaveMatches upserts under each match's algorithm version. Rows
	// written under earlier versions keep their scores and breakdowns.
	SaveMatches(ctx context.Context, tenantID string, matches []Match) error
	// DeleteJobMatches prunes a job's rows for one algorithm version only.
	DeleteJobMatches(ctx context.Context, jobID, algorithmVersion string) error
}

// RecomputeRequest scopes one rescoring run. JobID and CandidateID are
// mutually exclusive; with neither set, every open job of the tenant is
// rescored against the full candidate pool.
type RecomputeRequest struct {
	TenantID    string `json:"tenant_id"`
	JobID       string `json:"job_id,omitempty"`
	CandidateID string `json:"candidate_id,omitempty"`
}

type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is the observable state of one rescoring run.
type Run struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	Status       RunStatus  `json:"status"`
	JobsScored   int        `json:"jobs_scored"`
	MatchesSaved int        `json:"matches_saved"`
	Error        string     `json:"error,omitempty"`
	EnqueuedAt   time.Time  `json:"enqueued_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

var ErrRecomputeBusy = errors.New("recompute queue is full")

type queuedRecompute struct {
	runID string
	req   RecomputeRequest
}

// Recomputer runs batch rescoring off the request path. Enqueue registers
// a run and returns immediately; a single worker loop drains the queue so
// heavy scoring never blocks an HTTP handler.
type Recomputer struct {
	store  RecomputeStore
	scorer *Scorer
	now    func() time.Time

	mu    sync.Mutex
	runs  map[string]*Run
	queue chan queuedRecompute
}

func NewRecomputer(store RecomputeStore, scorer *Scorer) *Recomputer {
	return &Recomputer{
		store:  store,
		scorer: scorer,
		now:    time.Now,
		runs:   make(map[string]*Run),
		queue:  make(chan queuedRecompute, 64),
	}
}

// Enqueue validates the request, registers a queued run and hands it to
// the worker loop. Scoring never happens on the caller's goroutine.
func (r *Recomputer) Enqueue(req RecomputeRequest) (Run, error) {
	if req.TenantID == "" {
		return Run{}, fmt.Errorf("tenant id is required")
	}
	if req.JobID != "" && req.CandidateID != "" {
		return Run{}, fmt.Errorf("job_id and candidate_id are mutually exclusive")
	}

	run := &Run{
		ID:         uuid.New().String(),
		TenantID:   req.TenantID,
		Status:     RunQueued,
		EnqueuedAt: r.now(),
	}
	r.mu.Lock()
	r.runs[run.ID] = run
	r.mu.Unlock()

	select {
	case r.queue <- queuedRecompute{runID: run.ID, req: req}:
	default:
		r.mu.Lock()
		delete(r.runs, run.ID)
		r.mu.Unlock()
		return Run{}, ErrRecomputeBusy
	}
	return *run, nil
}

// RunStatus returns a snapshot of a registered run.
func (r *Recomputer) RunStatus(runID string) (Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

// Run drains queued recomputations until ctx is cancelled. One run at a
// time: a batch rescore is DB- and rerank-heavy, so concurrent runs for
// the same tenant would only contend.
func (r *Recomputer) Run(ctx context.Context) {
	log.Println("[Recompute] Worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("[Recompute] Worker stopped")
			return
		case q := <-r.queue:
			r.execute(ctx, q.runID, q.req)
		}
	}
}

func (r *Recomputer) execute(ctx context.Context, runID string, req RecomputeRequest) {
	start := r.now()
	r.update(runID, func(run *Run) { run.Status = RunRunning })

	jobsScored, matchesSaved, err := r.rescore(ctx, req)

	finished := r.now()
	r.update(runID, func(run *Run) {
		run.JobsScored = jobsScored
		run.MatchesSaved = matchesSaved
		run.FinishedAt = &finished
		if err != nil {
			run.Status = RunFailed
			run.Error = err.Error()
		} else {
			run.Status = RunCompleted
		}
	})
	if err != nil {
		log.Printf("[Recompute] Run %s failed: %v", runID, err)
		return
	}
	log.Printf("[Recompute] Run %s: %d jobs, %d matches in %v",
		runID, jobsScored, matchesSaved, finished.Sub(start))
}

func (r *Recomputer) update(runID string, fn func(*Run)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[runID]; ok {
		fn(run)
	}
}

func (r *Recomputer) rescore(ctx context.Context, req RecomputeRequest) (int, int, error) {
	cfg, err := r.store.TenantMatchConfig(ctx, req.TenantID)
	if err != nil {
		return 0, 0, fmt.Errorf("loading match config: %w", err)
	}

	if req.CandidateID != "" {
		return r.rescoreCandidate(ctx, cfg, req)
	}

	var jobs []JobProfile
	if req.JobID != "" {
		job, err := r.store.JobProfile(ctx, req.JobID)
		if err != nil {
			return 0, 0, fmt.Errorf("loading job %s: %w", req.JobID, err)
		}
		jobs = append(jobs, job)
	} else {
		jobs, err = r.store.OpenJobs(ctx, req.TenantID)
		if err != nil {
			return 0, 0, fmt.Errorf("loading open jobs: %w", err)
		}
	}

	pool, err := r.store.CandidateProfiles(ctx, req.TenantID)
	if err != nil {
		return 0, 0, fmt.Errorf("loading candidates: %w", err)
	}

	now := r.now()
	saved := 0
	for i, job := range jobs {
		matches, err := r.scorer.ScoreJob(ctx, cfg, job, pool, now)
		if err != nil {
			return i, saved, fmt.Errorf("scoring job %s: %w", job.ID, err)
		}
		// Prune only this version's rows: a candidate who dropped out of
		// the pool must not keep a stale rank, but rows written under
		// earlier algorithm versions stay queryable.
		if err := r.store.DeleteJobMatches(ctx, job.ID, cfg.AlgorithmVersion); err != nil {
			return i, saved, fmt.Errorf("pruning job %s: %w", job.ID, err)
		}
		if err := r.store.SaveMatches(ctx, req.TenantID, matches); err != nil {
			return i, saved, fmt.Errorf("saving job %s: %w", job.ID, err)
		}
		saved += len(matches)
	}
	return len(jobs), saved, nil
}

// rescoreCandidate scores one candidate against the tenant's open jobs.
// Only the candidate's own rows are upserted; nothing is pruned.
func (r *Recomputer) rescoreCandidate(ctx context.Context, cfg Config, req RecomputeRequest) (int, int, error) {
	candidate, err := r.store.CandidateProfile(ctx, req.CandidateID)
	if err != nil {
		return 0, 0, fmt.Errorf("loading candidate %s: %w", req.CandidateID, err)
	}
	jobs, err := r.store.OpenJobs(ctx, req.TenantID)
	if err != nil {
		return 0, 0, fmt.Errorf("loading open jobs: %w", err)
	}

	matches, err := r.scorer.ScoreCandidate(ctx, cfg, candidate, jobs, r.now())
	if err != nil {
		return 0, 0, err
	}
	if err := r.store.SaveMatches(ctx, req.TenantID, matches); err != nil {
		return 0, 0, fmt.Errorf("saving candidate matches: %w", err)
	}
	return len(jobs), len(matches), nil
}
