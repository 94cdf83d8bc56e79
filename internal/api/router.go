package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

func NewRouter(a *API) http.Handler {
	mux := http.NewServeMux()

	// Swagger documentation - must be registered first
	mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// Health check (for Railway, k8s, etc.). Unhealthy when the DB is
	// unreachable.
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := a.db.GetConnection().PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Resume ingestion
	mux.HandleFunc("/api/resumes/upload", a.ResumeUploadHandler)

	// Candidates
	mux.HandleFunc("/api/candidates/observations", a.CandidateObservationsHandler)
	mux.HandleFunc("/api/candidates/similar", a.SimilarCandidatesHandler)
	mux.HandleFunc("/api/candidates/documents", a.CandidateDocumentsHandler)
	mux.HandleFunc("/api/candidates/retire", a.RetireCandidateHandler)

	// Matching
	mux.HandleFunc("/api/matches/job", a.JobMatchesHandler)
	mux.HandleFunc("/api/matches/candidate", a.CandidateMatchesHandler)
	mux.HandleFunc("/api/matches/recompute", a.RecomputeMatchesHandler)
	mux.HandleFunc("/api/matches/recompute/status", a.RecomputeStatusHandler)
	mux.HandleFunc("/api/matches/config", a.MatchConfigHandler)

	// Duplicate detection & merge queue
	mux.HandleFunc("/api/duplicates/queue", a.DuplicateQueueHandler)
	mux.HandleFunc("/api/duplicates/merge", a.MergeDuplicateHandler)
	mux.HandleFunc("/api/duplicates/reject", a.RejectDuplicateHandler)
	mux.HandleFunc("/api/duplicates/defer", a.DeferDuplicateHandler)
	mux.HandleFunc("/api/duplicates/detect", a.DetectDuplicatesHandler)

	// Embedding pipeline
	mux.HandleFunc("/api/embeddings/tasks", a.EmbeddingTasksHandler)
	mux.HandleFunc("/api/embeddings/tasks/retry", a.RetryEmbeddingTaskHandler)

	return mux
}
