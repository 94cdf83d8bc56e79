package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"talent-match/internal/config"
	"talent-match/internal/dedup"
	"talent-match/internal/embedding"
	"talent-match/internal/llm"
	"talent-match/internal/matching"
	"talent-match/internal/mergequeue"
	"talent-match/internal/resume"
	"talent-match/internal/storage"
)

type API struct {
	db         *storage.DB
	cfg        *config.Config
	parser     *resume.Parser
	llmService *llm.Service
	embeddings *embedding.Service
	scorer     *matching.Scorer
	recomputer *matching.Recomputer
	detector   *dedup.Detector
	queue      *mergequeue.Queue
	ingestor   *resume.Ingestor
}

func NewAPI(db *storage.DB, cfg *config.Config) *API {
	parser := resume.NewParser(cfg.UploadsDir)

	// LLM service (if configured)
	var llmSvc *llm.Service
	if cfg.LLMProvider != "" && cfg.LLMProvider != "none" && cfg.LLMAPIKey != "" {
		llmSvc = llm.NewService(cfg.LLMProvider, cfg.LLMAPIKey, cfg.LLMModel, cfg.EmbeddingModel)
	}

	embeddings := embedding.NewService(db)

	// The reranker is optional; scoring runs without it when no LLM is
	// configured.
	var reranker matching.Reranker
	if llmSvc != nil {
		reranker = matching.NewLLMReranker(llmSvc)
	}
	scorer := matching.NewScorer(db, reranker)
	recomputer := matching.NewRecomputer(db, scorer)

	detector := dedup.NewDetector(db, db)
	queue := mergequeue.New(db)

	api := &API{
		db:         db,
		cfg:        cfg,
		parser:     parser,
		llmService: llmSvc,
		embeddings: embeddings,
		scorer:     scorer,
		recomputer: recomputer,
		detector:   detector,
		queue:      queue,
	}
	if llmSvc != nil {
		api.ingestor = resume.NewIngestor(db, llmSvc, embeddings, detector)
	}

	return api
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
