package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"

	"talent-match/internal/storage"
)

type similarCandidate struct {
	CandidateID string  `json:"candidate_id"`
	Similarity  float64 `json:"similarity"`
}

type similarCandidatesResponse struct {
	CandidateID string             `json:"candidate_id"`
	Neighbors   []similarCandidate `json:"neighbors"`
}

// SimilarCandidatesHandler nearest-neighbor lookup over profile embeddings
// @Summary Candidates with similar profiles
// @Description Nearest neighbors of a candidate's profile embedding within the tenant, most similar first
// @Tags candidates
// @Produce json
// @Param candidate_id query string true "Candidate ID"
// @Param top_k query int false "Neighbor count (default 10, max 50)"
// @Success 200 {object} similarCandidatesResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /candidates/similar [get]
func (a *API) SimilarCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	candidateID := r.URL.Query().Get("candidate_id")
	if candidateID == "" {
		writeError(w, http.StatusBadRequest, "candidate_id is required")
		return
	}
	topK := 10
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 50 {
			writeError(w, http.StatusBadRequest, "top_k must be an integer in [1,50]")
			return
		}
		topK = parsed
	}

	candidate, err := a.db.GetCandidate(r.Context(), candidateID)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, fmt.Sprintf("candidate %s not found", candidateID))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load candidate: %v", err))
		return
	}

	resp := similarCandidatesResponse{CandidateID: candidateID, Neighbors: []similarCandidate{}}
	vec, ok, err := a.db.Vector(r.Context(), "candidate", candidateID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load embedding: %v", err))
		return
	}
	if !ok {
		// No vector materialized yet; the embedding task may still be
		// queued. An empty neighbor list, not an error.
		writeJSON(w, http.StatusOK, resp)
		return
	}

	// Ask for one extra row: the candidate is its own nearest neighbor.
	ids, sims, err := a.db.SimilarCandidates(r.Context(), candidate.TenantID, vec, topK+1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("similarity query failed: %v", err))
		return
	}
	for i, id := range ids {
		if id == candidateID {
			continue
		}
		resp.Neighbors = append(resp.Neighbors, similarCandidate{CandidateID: id, Similarity: sims[i]})
		if len(resp.Neighbors) == topK {
			break
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CandidateDocumentsHandler lists a candidate's stored resumes
// @Summary Resume documents of a candidate
// @Description Stored resume files with parsed text, newest first
// @Tags candidates
// @Produce json
// @Param candidate_id query string true "Candidate ID"
// @Success 200 {array} storage.ResumeDocument
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /candidates/documents [get]
func (a *API) CandidateDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	candidateID := r.URL.Query().Get("candidate_id")
	if candidateID == "" {
		writeError(w, http.StatusBadRequest, "candidate_id is required")
		return
	}

	if _, err := a.db.GetCandidate(r.Context(), candidateID); err != nil {
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, fmt.Sprintf("candidate %s not found", candidateID))
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load candidate: %v", err))
		return
	}

	docs, err := a.db.ResumeDocuments(r.Context(), candidateID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load documents: %v", err))
		return
	}
	if docs == nil {
		docs = []storage.ResumeDocument{}
	}
	writeJSON(w, http.StatusOK, docs)
}

type retireCandidateRequest struct {
	CandidateID string `json:"candidate_id"`
}

// RetireCandidateHandler soft-deletes a candidate record
// @Summary Retire a candidate
// @Description Marks a candidate retired; retired candidates drop out of matching and duplicate detection
// @Tags candidates
// @Accept json
// @Produce json
// @Param request body retireCandidateRequest true "Retire request"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /candidates/retire [post]
func (a *API) RetireCandidateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req retireCandidateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CandidateID == "" {
		writeError(w, http.StatusBadRequest, "candidate_id is required")
		return
	}

	if err := a.db.RetireCandidate(r.Context(), req.CandidateID); err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("retire failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "retired", "candidate_id": req.CandidateID})
}
