package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"talent-match/internal/matching"
)

// JobMatchesHandler returns the stored ranked matches for a job
// @Summary Ranked candidates for a job
// @Description Stored match scores for a job, best rank first, with per-factor breakdowns
// @Tags matches
// @Produce json
// @Param job_id query string true "Job ID"
// @Param min_score query number false "Minimum score filter (0..1)"
// @Param algorithm_version query string false "Scoring version to read (default: most recent)"
// @Success 200 {array} matching.Match
// @Failure 400 {object} map[string]string
// @Router /matches/job [get]
func (a *API) JobMatchesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job_id is required")
		return
	}

	minScore := 0.0
	if raw := r.URL.Query().Get("min_score"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			writeError(w, http.StatusBadRequest, "min_score must be a number in [0,1]")
			return
		}
		minScore = parsed
	}

	matches, err := a.db.JobMatches(r.Context(), jobID, minScore, r.URL.Query().Get("algorithm_version"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load matches: %v", err))
		return
	}
	if matches == nil {
		matches = []matching.Match{}
	}
	writeJSON(w, http.StatusOK, matches)
}

// CandidateMatchesHandler returns the stored matches for a candidate
// @Summary Matching open jobs for a candidate
// @Description Stored match scores for a candidate across open jobs, best score first
// @Tags matches
// @Produce json
// @Param candidate_id query string true "Candidate ID"
// @Success 200 {array} matching.Match
// @Failure 400 {object} map[string]string
// @Router /matches/candidate [get]
func (a *API) CandidateMatchesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	candidateID := r.URL.Query().Get("candidate_id")
	if candidateID == "" {
		writeError(w, http.StatusBadRequest, "candidate_id is required")
		return
	}

	matches, err := a.db.CandidateMatches(r.Context(), candidateID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load matches: %v", err))
		return
	}
	if matches == nil {
		matches = []matching.Match{}
	}
	writeJSON(w, http.StatusOK, matches)
}

// RecomputeMatchesHandler enqueues a background rescoring run
// @Summary Enqueue a match recomputation
// @Description Queues a rescore of one job, one candidate or every open job of a tenant; scoring runs in the background worker
// @Tags matches
// @Accept json
// @Produce json
// @Param request body matching.RecomputeRequest true "Recompute request"
// @Success 202 {object} matching.Run
// @Failure 400 {object} map[string]string
// @Router /matches/recompute [post]
func (a *API) RecomputeMatchesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req matching.RecomputeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := a.recomputer.Enqueue(req)
	if err != nil {
		if errors.Is(err, matching.ErrRecomputeBusy) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Printf("[API] Queued recompute run %s for tenant %s", run.ID, run.TenantID)
	writeJSON(w, http.StatusAccepted, run)
}

// RecomputeStatusHandler reports the state of a queued rescoring run
// @Summary Recompute run status
// @Description State and counters of a previously enqueued recomputation
// @Tags matches
// @Produce json
// @Param run_id query string true "Run ID returned by the recompute endpoint"
// @Success 200 {object} matching.Run
// @Failure 404 {object} map[string]string
// @Router /matches/recompute/status [get]
func (a *API) RecomputeStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}
	run, ok := a.recomputer.RunStatus(runID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("run %s not found", runID))
		return
	}
	writeJSON(w, http.StatusOK, run)
}
