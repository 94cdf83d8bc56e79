package api

import (
	"errors"
	"fmt"
	"net/http"

	"talent-match/internal/dedup"
	"talent-match/internal/mergequeue"
)

// DuplicateQueueHandler returns the pending review queue
// @Summary Pending duplicate pairs
// @Description Flagged pairs awaiting human review, most severe and oldest first
// @Tags duplicates
// @Produce json
// @Param tenant_id query string true "Tenant ID"
// @Param match_type query string false "Filter: hard, strong, fuzzy or review"
// @Success 200 {array} dedup.Pair
// @Failure 400 {object} map[string]string
// @Router /duplicates/queue [get]
func (a *API) DuplicateQueueHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	matchType := dedup.MatchType(r.URL.Query().Get("match_type"))
	switch matchType {
	case dedup.MatchNone, dedup.MatchHard, dedup.MatchStrong, dedup.MatchFuzzy, dedup.MatchReview:
	default:
		writeError(w, http.StatusBadRequest, "match_type must be hard, strong, fuzzy or review")
		return
	}

	pairs, err := a.queue.List(r.Context(), tenantID, matchType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load queue: %v", err))
		return
	}
	if pairs == nil {
		pairs = []dedup.Pair{}
	}
	writeJSON(w, http.StatusOK, pairs)
}

type resolveRequest struct {
	PairID string `json:"pair_id"`
	Reason string `json:"reason,omitempty"`
}

// MergeDuplicateHandler merges a flagged pair
// @Summary Merge a duplicate pair
// @Description Folds the duplicate candidate into the primary: observations, activity and documents move over, the duplicate is retired
// @Tags duplicates
// @Accept json
// @Produce json
// @Param request body resolveRequest true "Pair to merge"
// @Success 200 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /duplicates/merge [post]
func (a *API) MergeDuplicateHandler(w http.ResponseWriter, r *http.Request) {
	pairID, ok := a.resolvePairID(w, r)
	if !ok {
		return
	}
	if err := a.queue.Merge(r.Context(), pairID); err != nil {
		a.writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "merged", "pair_id": pairID})
}

// RejectDuplicateHandler rejects a flagged pair
// @Summary Reject a duplicate pair
// @Description Marks the pair as not-a-duplicate and suppresses it from future detection
// @Tags duplicates
// @Accept json
// @Produce json
// @Param request body resolveRequest true "Pair to reject, with optional reason"
// @Success 200 {object} map[string]string
// @Router /duplicates/reject [post]
func (a *API) RejectDuplicateHandler(w http.ResponseWriter, r *http.Request) {
	pairID, reason, ok := a.resolvePairRequest(w, r)
	if !ok {
		return
	}
	if err := a.queue.Reject(r.Context(), pairID, reason); err != nil {
		a.writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected", "pair_id": pairID})
}

// DeferDuplicateHandler defers a flagged pair
// @Summary Defer a duplicate pair
// @Description Sends the pair to the back of the review queue
// @Tags duplicates
// @Accept json
// @Produce json
// @Param request body resolveRequest true "Pair to defer"
// @Success 200 {object} map[string]string
// @Router /duplicates/defer [post]
func (a *API) DeferDuplicateHandler(w http.ResponseWriter, r *http.Request) {
	pairID, ok := a.resolvePairID(w, r)
	if !ok {
		return
	}
	if err := a.queue.Defer(r.Context(), pairID); err != nil {
		a.writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deferred", "pair_id": pairID})
}

type detectRequest struct {
	TenantID    string `json:"tenant_id"`
	CandidateID string `json:"candidate_id"` // empty sweeps the whole tenant
}

// DetectDuplicatesHandler runs detection on demand
// @Summary Run duplicate detection
// @Description Compares one candidate against its tenant pool, or sweeps the whole tenant pairwise
// @Tags duplicates
// @Accept json
// @Produce json
// @Param request body detectRequest true "Detection scope"
// @Success 200 {object} map[string]int
// @Failure 400 {object} map[string]string
// @Router /duplicates/detect [post]
func (a *API) DetectDuplicatesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req detectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.CandidateID != "" {
		pairs, err := a.detector.DetectForCandidate(r.Context(), req.CandidateID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("detection failed: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"pairs_surfaced": len(pairs)})
		return
	}

	if req.TenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id or candidate_id is required")
		return
	}
	surfaced, err := a.detector.SweepTenant(r.Context(), req.TenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("sweep failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"pairs_surfaced": surfaced})
}

func (a *API) resolvePairID(w http.ResponseWriter, r *http.Request) (string, bool) {
	pairID, _, ok := a.resolvePairRequest(w, r)
	return pairID, ok
}

func (a *API) resolvePairRequest(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return "", "", false
	}
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", "", false
	}
	if req.PairID == "" {
		writeError(w, http.StatusBadRequest, "pair_id is required")
		return "", "", false
	}
	return req.PairID, req.Reason, true
}

func (a *API) writeQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mergequeue.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, mergequeue.ErrTerminalState):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, mergequeue.ErrMergeConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
