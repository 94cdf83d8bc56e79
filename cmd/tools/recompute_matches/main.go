package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"talent-match/internal/matching"
	"talent-match/internal/storage"
)

// Rescores a tenant's open jobs from the command line. Useful after a
// weight change or when backfilling scores for a freshly imported pool.
func main() {
	var tenantID string
	var jobID string
	var dryRun bool
	var limit int
	flag.StringVar(&tenantID, "tenant", "", "Tenant to rescore (required)")
	flag.StringVar(&jobID, "job", "", "Rescore only this job (optional)")
	flag.BoolVar(&dryRun, "dry-run", true, "If true, do not persist scores; just print them")
	flag.IntVar(&limit, "limit", 0, "Max open jobs to process in one run (0 = all)")
	flag.Parse()

	if tenantID == "" {
		log.Fatal("-tenant is required")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	log.Printf("Connecting to DB...")
	db, err := storage.NewDB(dbURL)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	var jobs []matching.JobProfile
	if jobID != "" {
		job, err := db.JobProfile(ctx, jobID)
		if err != nil {
			log.Fatalf("load job %s: %v", jobID, err)
		}
		jobs = append(jobs, job)
	} else {
		jobs, err = db.OpenJobs(ctx, tenantID)
		if err != nil {
			log.Fatalf("load open jobs: %v", err)
		}
	}
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}

	pool, err := db.CandidateProfiles(ctx, tenantID)
	if err != nil {
		log.Fatalf("load candidate pool: %v", err)
	}
	log.Printf("Scoring %d jobs against %d candidates (dry-run=%t)", len(jobs), len(pool), dryRun)

	// No reranker here: the tool scores deterministically so a dry run
	// and the following real run agree.
	scorer := matching.NewScorer(db, nil)
	cfg, err := db.TenantMatchConfig(ctx, tenantID)
	if err != nil {
		log.Fatalf("load match config: %v", err)
	}
	now := time.Now()

	total := 0
	for _, job := range jobs {
		matches, err := scorer.ScoreJob(ctx, cfg, job, pool, now)
		if err != nil {
			log.Printf("scoring job %s failed: %v", job.ID, err)
			continue
		}

		for _, m := range matches {
			if m.Rank <= 5 {
				log.Printf("Job %s rank %d: candidate %s score %.4f recommended=%t",
					job.ID, m.Rank, m.CandidateID, m.Score, m.Recommended)
			}
		}

		if dryRun {
			log.Printf("[dry-run] Would save %d matches for job %s", len(matches), job.ID)
			continue
		}
		if err := db.SaveMatches(ctx, tenantID, matches); err != nil {
			log.Printf("saving matches for job %s failed: %v", job.ID, err)
			continue
		}
		total += len(matches)
	}

	log.Printf("Recompute run complete: %d matches saved", total)
}
