package matching

import (
	"errors"
	"fmt"
	"math"
)

// weightTolerance is the floating-point slack allowed on the weight sum.
const weightTolerance = 1e-9

var ErrWeightSum = errors.New("factor weights must sum to 1.0")

// Weights are the tenant-configurable factor weights for the final score.
type Weights struct {
	Skills     float64 `json:"skill_weight"`
	Experience float64 `json:"experience_weight"`
	Location   float64 `json:"location_weight"`
	Education  float64 `json:"education_weight"`
	Recency    float64 `json:"recency_weight"`
}

func DefaultWeights() Weights {
	return Weights{
		Skills:     0.35,
		Experience: 0.25,
		Location:   0.15,
		Education:  0.10,
		Recency:    0.15,
	}
}

// Validate rejects a misconfigured weight set instead of normalizing it.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"skills":     w.Skills,
		"experience": w.Experience,
		"location":   w.Location,
		"education":  w.Education,
		"recency":    w.Recency,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s weight %v out of range [0,1]", name, v)
		}
	}
	sum := w.Skills + w.Experience + w.Location + w.Education + w.Recency
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: got %v", ErrWeightSum, sum)
	}
	return nil
}

// Config is the explicit, tenant-scoped scoring configuration passed into
// the scorer. No module-level mutable state: concurrent runs for different
// tenants or versions each carry their own Config.
type Config struct {
	TenantID           string  `json:"tenant_id"`
	Weights            Weights `json:"weights"`
	RecommendThreshold float64 `json:"recommend_threshold"`
	SkillFilterTopK    int     `json:"skill_filter_top_k"`
	RerankTopN         int     `json:"rerank_top_n"`
	AlgorithmVersion   string  `json:"algorithm_version"`
}

func DefaultConfig(tenantID string) Config {
	return Config{
		TenantID:           tenantID,
		Weights:            DefaultWeights(),
		RecommendThreshold: 0.70,
		SkillFilterTopK:    200,
		RerankTopN:         20,
		AlgorithmVersion:   "v2",
	}
}

func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.RecommendThreshold < 0 || c.RecommendThreshold > 1 {
		return fmt.Errorf("recommend threshold %v out of range [0,1]", c.RecommendThreshold)
	}
	if c.AlgorithmVersion == "" {
		return fmt.Errorf("algorithm version is required")
	}
	return nil
}
