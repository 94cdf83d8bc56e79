package matching

import (
	"context"
	"time"
)

// CandidateProfile is the scoring view of a candidate: identity attributes
// plus the denormalized facts the pipeline needs. ExperienceYears < 0 means
// the attribute is unknown.
type CandidateProfile struct {
	ID              string
	TenantID        string
	Name            string
	Skills          []string
	ExperienceYears int
	Location        string
	RemoteOK        bool
	WorkAuthorized  bool
	Education       []string
	// SkillObservedAt holds extraction timestamps of the candidate's
	// current skill/cert observations, feeding the recency factor.
	SkillObservedAt []time.Time
	UpdatedAt       time.Time
}

type JobProfile struct {
	ID                 string
	TenantID           string
	Title              string
	RequiredSkills     []string
	MinExperienceYears int
	MaxExperienceYears int // 0 means no upper bound
	Location           string
	RemoteOK           bool
	RequiresWorkAuth   bool
	RequiredEducation  []string
	Status             string
}

// Match is one scored (candidate, job) pair with its full factor breakdown,
// kept so the UI can always show why a score is what it is.
type Match struct {
	CandidateID      string             `json:"candidate_id"`
	JobID            string             `json:"job_id"`
	Score            float64            `json:"score"`
	Breakdown        map[string]float64 `json:"breakdown"`
	Recommended      bool               `json:"recommended"`
	Rank             int                `json:"rank"`
	AlgorithmVersion string             `json:"algorithm_version"`
	MatchedSkills    []string           `json:"matched_skills,omitempty"`
	Explanation      string             `json:"explanation,omitempty"`
	ComputedAt       time.Time          `json:"computed_at"`
}

// Breakdown keys.
const (
	FactorSkills       = "skills"
	FactorExperience   = "experience"
	FactorLocation     = "location"
	FactorEducation    = "education"
	FactorRecency      = "recency"
	FactorSkillOverlap = "skill_overlap"
	FactorVectorSim    = "vector_similarity"
)

// VectorSource yields the materialized profile embedding for an entity.
// Entities without a vector yet simply score on the non-embedding signals.
type VectorSource interface {
	Vector(ctx context.Context, entityType string, entityID string) ([]float32, bool, error)
}

// RerankResult is the external reasoning service's qualitative judgement
// for one candidate.
type RerankResult struct {
	CandidateID string `json:"candidate_id"`
	Rank        int    `json:"rank"`
	Explanation string `json:"explanation"`
}

// Reranker re-orders the top candidates for a job. Best-effort: a failing
// reranker never aborts the pipeline.
type Reranker interface {
	Rerank(ctx context.Context, job JobProfile, matches []Match) ([]RerankResult, error)
}
