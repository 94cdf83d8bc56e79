package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-match/internal/matching"
)

// testAPI wires only the recomputer. No worker loop runs, so anything
// the handlers do must happen without touching storage.
func testAPI() *API {
	return &API{recomputer: matching.NewRecomputer(nil, matching.NewScorer(nil, nil))}
}

func TestRecomputeHandlerAcceptsAndReturnsRunID(t *testing.T) {
	a := testAPI()

	req := httptest.NewRequest(http.MethodPost, "/api/matches/recompute",
		strings.NewReader(`{"tenant_id": "t1", "job_id": "job-1"}`))
	rec := httptest.NewRecorder()
	a.RecomputeMatchesHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var run matching.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "t1", run.TenantID)
	assert.Equal(t, matching.RunQueued, run.Status)

	// The returned id is immediately pollable.
	statusReq := httptest.NewRequest(http.MethodGet, "/api/matches/recompute/status?run_id="+run.ID, nil)
	statusRec := httptest.NewRecorder()
	a.RecomputeStatusHandler(statusRec, statusReq)
	require.Equal(t, http.StatusOK, statusRec.Code)
}

func TestRecomputeHandlerRejectsMissingTenant(t *testing.T) {
	a := testAPI()

	req := httptest.NewRequest(http.MethodPost, "/api/matches/recompute",
		strings.NewReader(`{"job_id": "job-1"}`))
	rec := httptest.NewRecorder()
	a.RecomputeMatchesHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecomputeHandlerRejectsConflictingScope(t *testing.T) {
	a := testAPI()

	req := httptest.NewRequest(http.MethodPost, "/api/matches/recompute",
		strings.NewReader(`{"tenant_id": "t1", "job_id": "job-1", "candidate_id": "cand-1"}`))
	rec := httptest.NewRecorder()
	a.RecomputeMatchesHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecomputeStatusHandlerUnknownRun(t *testing.T) {
	a := testAPI()

	req := httptest.NewRequest(http.MethodGet, "/api/matches/recompute/status?run_id=nope", nil)
	rec := httptest.NewRecorder()
	a.RecomputeStatusHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCandidateHandlersValidateInput(t *testing.T) {
	a := testAPI()

	cases := []struct {
		name    string
		handler http.HandlerFunc
		req     *http.Request
		want    int
	}{
		{"similar requires candidate_id", a.SimilarCandidatesHandler,
			httptest.NewRequest(http.MethodGet, "/api/candidates/similar", nil), http.StatusBadRequest},
		{"similar bounds top_k", a.SimilarCandidatesHandler,
			httptest.NewRequest(http.MethodGet, "/api/candidates/similar?candidate_id=c1&top_k=500", nil), http.StatusBadRequest},
		{"similar rejects post", a.SimilarCandidatesHandler,
			httptest.NewRequest(http.MethodPost, "/api/candidates/similar", nil), http.StatusMethodNotAllowed},
		{"documents requires candidate_id", a.CandidateDocumentsHandler,
			httptest.NewRequest(http.MethodGet, "/api/candidates/documents", nil), http.StatusBadRequest},
		{"retire requires candidate_id", a.RetireCandidateHandler,
			httptest.NewRequest(http.MethodPost, "/api/candidates/retire", strings.NewReader(`{}`)), http.StatusBadRequest},
		{"retire rejects get", a.RetireCandidateHandler,
			httptest.NewRequest(http.MethodGet, "/api/candidates/retire", nil), http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.handler(rec, tc.req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
