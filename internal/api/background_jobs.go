package api

import (
	"context"
	"log"

	"talent-match/internal/embedding"
)

// StartBackgroundWorkers launches the recompute worker and the embedding
// worker. The embedding worker claims queued tasks, calls the embedding
// provider and stores the vectors; without a configured LLM it stays off
// and tasks simply wait. The recompute worker runs either way: scoring
// degrades to stage 1-3+5 without a reranker.
func (a *API) StartBackgroundWorkers(ctx context.Context) {
	go a.recomputer.Run(ctx)
	log.Println("[BackgroundJobs] Recompute worker started")

	if a.llmService == nil || !a.llmService.Configured() {
		log.Println("[BackgroundJobs] No LLM configured, embedding worker not started")
		return
	}

	worker := embedding.NewWorker(a.db, a.llmService, a.cfg.WorkerPollInterval, a.cfg.WorkerLease)
	go worker.Run(ctx)

	log.Println("[BackgroundJobs] Embedding worker started")
}
