package api

import (
	"fmt"
	"net/http"
	"time"

	"talent-match/internal/facts"
)

// observationView is an observation with its read-time derived fields.
// Relevance and labels are never stored; they are computed against the
// current clock on every read.
type observationView struct {
	facts.Observation
	ConfidenceLabel string              `json:"confidence_label"`
	AgeYears        float64             `json:"age_years"`
	Relevance       facts.RelevanceBand `json:"relevance"`
}

// CandidateObservationsHandler returns a candidate's facts
// @Summary Candidate fact observations
// @Description Current observations with confidence labels and age-derived relevance; pass field to get the full history of one field
// @Tags candidates
// @Produce json
// @Param candidate_id query string true "Candidate ID"
// @Param field query string false "Return full history for this field instead of the current set"
// @Success 200 {array} observationView
// @Failure 400 {object} map[string]string
// @Router /candidates/observations [get]
func (a *API) CandidateObservationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	candidateID := r.URL.Query().Get("candidate_id")
	if candidateID == "" {
		writeError(w, http.StatusBadRequest, "candidate_id is required")
		return
	}

	var (
		observations []facts.Observation
		err          error
	)
	if field := r.URL.Query().Get("field"); field != "" {
		observations, err = a.db.ObservationHistory(r.Context(), candidateID, field)
	} else {
		observations, err = a.db.CurrentObservations(r.Context(), candidateID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load observations: %v", err))
		return
	}

	now := time.Now()
	views := make([]observationView, 0, len(observations))
	for _, obs := range observations {
		views = append(views, observationView{
			Observation:     obs,
			ConfidenceLabel: facts.ConfidenceLabel(obs.Confidence),
			AgeYears:        facts.AgeYears(obs.ExtractedAt, now),
			Relevance:       facts.RelevanceAt(obs.ExtractedAt, now),
		})
	}
	writeJSON(w, http.StatusOK, views)
}
