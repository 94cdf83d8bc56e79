package matching

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"talent-match/internal/facts"
)

// Scorer runs the five-stage match pipeline: hard filters, skill-tag
// intersection, vector similarity, best-effort external re-ranking, and
// the weighted final score. Stages progressively narrow the pool; only
// stage 1 eliminates outright.
type Scorer struct {
	vectors  VectorSource
	reranker Reranker // nil disables stage 4
}

func NewScorer(vectors VectorSource, reranker Reranker) *Scorer {
	return &Scorer{vectors: vectors, reranker: reranker}
}

// ScoreJob ranks a candidate pool against one job. now is passed in so a
// batch run applies one consistent decay evaluation across all pairs.
func (s *Scorer) ScoreJob(ctx context.Context, cfg Config, job JobProfile, pool []CandidateProfile, now time.Time) ([]Match, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid match config: %w", err)
	}

	// Stage 1: hard filters.
	eligible := make([]CandidateProfile, 0, len(pool))
	for _, c := range pool {
		ok, reason := passesHardFilters(c, job)
		if !ok {
			log.Printf("[MatchScorer] Candidate %s excluded for job %s: %s", c.ID, job.ID, reason)
			continue
		}
		eligible = append(eligible, c)
	}

	// Stage 2: skill-tag intersection bounds the pool before vectors.
	type staged struct {
		candidate CandidateProfile
		overlap   int
		ratio     float64
	}
	stagedPool := make([]staged, 0, len(eligible))
	for _, c := range eligible {
		count, ratio := skillOverlap(c.Skills, job.RequiredSkills)
		stagedPool = append(stagedPool, staged{candidate: c, overlap: count, ratio: ratio})
	}
	sort.SliceStable(stagedPool, func(i, j int) bool {
		if stagedPool[i].overlap != stagedPool[j].overlap {
			return stagedPool[i].overlap > stagedPool[j].overlap
		}
		return stagedPool[i].ratio > stagedPool[j].ratio
	})
	if cfg.SkillFilterTopK > 0 && len(stagedPool) > cfg.SkillFilterTopK {
		stagedPool = stagedPool[:cfg.SkillFilterTopK]
	}

	// Stage 3: vector similarity over the surviving pool.
	jobVec, jobVecOK, err := s.jobVector(ctx, job)
	if err != nil {
		log.Printf("[MatchScorer] Job %s vector lookup failed, scoring without embeddings: %v", job.ID, err)
		jobVecOK = false
	}

	matches := make([]Match, 0, len(stagedPool))
	for _, st := range stagedPool {
		sim, simOK := 0.0, false
		if jobVecOK {
			candVec, ok, err := s.vectors.Vector(ctx, string(entityCandidate), st.candidate.ID)
			if err != nil {
				log.Printf("[MatchScorer] Vector lookup failed for candidate %s: %v", st.candidate.ID, err)
			} else if ok {
				sim = clampUnit(Cosine(jobVec, candVec))
				simOK = true
			}
		}
		matches = append(matches, s.scorePair(cfg, st.candidate, job, st.ratio, sim, simOK, now))
	}

	// Stage 5 ordering before the best-effort rerank.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	// Stage 4: external re-ranking of the top N. Failure is caught and
	// logged; the batch proceeds on stage 1-3+5 results.
	s.applyRerank(ctx, cfg, job, matches)

	for i := range matches {
		matches[i].Rank = i + 1
	}
	return matches, nil
}

// ScoreCandidate ranks open jobs for one candidate. The skill-intersection
// bound is skipped: the job pool is already small.
func (s *Scorer) ScoreCandidate(ctx context.Context, cfg Config, candidate CandidateProfile, jobs []JobProfile, now time.Time) ([]Match, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid match config: %w", err)
	}

	candVec, candVecOK, err := s.vectors.Vector(ctx, string(entityCandidate), candidate.ID)
	if err != nil {
		log.Printf("[MatchScorer] Vector lookup failed for candidate %s: %v", candidate.ID, err)
		candVecOK = false
	}

	matches := make([]Match, 0, len(jobs))
	for _, job := range jobs {
		if job.Status != "" && job.Status != "open" {
			continue
		}
		ok, reason := passesHardFilters(candidate, job)
		if !ok {
			log.Printf("[MatchScorer] Candidate %s excluded for job %s: %s", candidate.ID, job.ID, reason)
			continue
		}
		_, ratio := skillOverlap(candidate.Skills, job.RequiredSkills)

		sim, simOK := 0.0, false
		if candVecOK {
			jobVec, ok, err := s.vectors.Vector(ctx, string(entityJob), job.ID)
			if err != nil {
				log.Printf("[MatchScorer] Vector lookup failed for job %s: %v", job.ID, err)
			} else if ok {
				sim = clampUnit(Cosine(candVec, jobVec))
				simOK = true
			}
		}
		matches = append(matches, s.scorePair(cfg, candidate, job, ratio, sim, simOK, now))
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	for i := range matches {
		matches[i].Rank = i + 1
	}
	return matches, nil
}

const (
	entityCandidate = "candidate"
	entityJob       = "job"
)

func (s *Scorer) jobVector(ctx context.Context, job JobProfile) ([]float32, bool, error) {
	if s.vectors == nil {
		return nil, false, nil
	}
	return s.vectors.Vector(ctx, entityJob, job.ID)
}

// scorePair computes the stage-5 weighted score with its full breakdown.
// The skills factor blends tag overlap with vector similarity when a
// vector pair exists, and falls back to overlap alone otherwise.
func (s *Scorer) scorePair(cfg Config, c CandidateProfile, j JobProfile, overlapRatio, vectorSim float64, vectorOK bool, now time.Time) Match {
	skillScore := overlapRatio
	if vectorOK {
		skillScore = 0.5*overlapRatio + 0.5*vectorSim
	}
	expScore := experienceScore(c, j)
	locScore := locationScore(c, j)
	eduScore := educationScore(c, j)
	recScore := recencyScore(c, now)

	total := cfg.Weights.Skills*skillScore +
		cfg.Weights.Experience*expScore +
		cfg.Weights.Location*locScore +
		cfg.Weights.Education*eduScore +
		cfg.Weights.Recency*recScore
	total = round4(total)

	breakdown := map[string]float64{
		FactorSkills:       round4(skillScore),
		FactorExperience:   round4(expScore),
		FactorLocation:     round4(locScore),
		FactorEducation:    round4(eduScore),
		FactorRecency:      round4(recScore),
		FactorSkillOverlap: round4(overlapRatio),
	}
	if vectorOK {
		breakdown[FactorVectorSim] = round4(vectorSim)
	}

	return Match{
		CandidateID:      c.ID,
		JobID:            j.ID,
		Score:            total,
		Breakdown:        breakdown,
		Recommended:      total >= cfg.RecommendThreshold,
		MatchedSkills:    matchedSkills(c.Skills, j.RequiredSkills),
		AlgorithmVersion: cfg.AlgorithmVersion,
		ComputedAt:       now,
	}
}

func experienceScore(c CandidateProfile, j JobProfile) float64 {
	if j.MinExperienceYears <= 0 && j.MaxExperienceYears <= 0 {
		return 1.0
	}
	// Hard filters already excluded out-of-range candidates; grade how
	// deep into the band the candidate sits.
	if j.MinExperienceYears > 0 && c.ExperienceYears >= j.MinExperienceYears {
		return 1.0
	}
	if j.MinExperienceYears > 0 {
		diff := j.MinExperienceYears - c.ExperienceYears
		v := 1.0 - float64(diff)*0.2
		if v < 0 {
			return 0
		}
		return v
	}
	return 1.0
}

func locationScore(c CandidateProfile, j JobProfile) float64 {
	if j.Location == "" {
		return 1.0
	}
	if looseMatch(c.Location, j.Location) {
		return 1.0
	}
	if j.RemoteOK && c.RemoteOK {
		return 0.8
	}
	if j.RemoteOK {
		return 0.6
	}
	return 0.0
}

func educationScore(c CandidateProfile, j JobProfile) float64 {
	if len(j.RequiredEducation) == 0 {
		return 1.0
	}
	for _, req := range j.RequiredEducation {
		for _, have := range c.Education {
			if looseMatch(have, req) {
				return 1.0
			}
		}
	}
	return 0.0
}

// recencyScore averages the stepped decay over the candidate's current
// skill observation timestamps. With no skill observations the candidate's
// own last-update age stands in.
func recencyScore(c CandidateProfile, now time.Time) float64 {
	if len(c.SkillObservedAt) == 0 {
		if c.UpdatedAt.IsZero() {
			return facts.RelevanceForAge(0).Multiplier
		}
		return facts.RelevanceAt(c.UpdatedAt, now).Multiplier
	}
	var sum float64
	for _, ts := range c.SkillObservedAt {
		sum += facts.RelevanceAt(ts, now).Multiplier
	}
	return sum / float64(len(c.SkillObservedAt))
}

func (s *Scorer) applyRerank(ctx context.Context, cfg Config, job JobProfile, matches []Match) {
	if s.reranker == nil || len(matches) == 0 {
		return
	}
	topN := cfg.RerankTopN
	if topN <= 0 || topN > len(matches) {
		topN = len(matches)
	}

	results, err := s.reranker.Rerank(ctx, job, matches[:topN])
	if err != nil {
		log.Printf("[MatchScorer] Rerank skipped for job %s: %v", job.ID, err)
		return
	}

	byID := make(map[string]RerankResult, len(results))
	for _, r := range results {
		byID[r.CandidateID] = r
	}

	head := matches[:topN]
	sort.SliceStable(head, func(i, j int) bool {
		ri, iOK := byID[head[i].CandidateID]
		rj, jOK := byID[head[j].CandidateID]
		if iOK && jOK {
			return ri.Rank < rj.Rank
		}
		return iOK && !jOK
	})
	for i := range head {
		if r, ok := byID[head[i].CandidateID]; ok {
			head[i].Explanation = r.Explanation
		}
	}
}
