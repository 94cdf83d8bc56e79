package matching

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeightsValid(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())
}

func TestWeightsRejectBadSum(t *testing.T) {
	w := Weights{Skills: 0.5, Experience: 0.3, Location: 0.1, Education: 0.1, Recency: 0.1}
	err := w.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWeightSum)
}

func TestWeightsAcceptFloatTolerance(t *testing.T) {
	// 0.1+0.2+... style float residue must not trip validation.
	w := Weights{Skills: 0.1 + 0.2, Experience: 0.3, Location: 0.2, Education: 0.1, Recency: 0.1}
	assert.NoError(t, w.Validate())
}

func TestWeightsRejectNegative(t *testing.T) {
	w := Weights{Skills: -0.2, Experience: 0.5, Location: 0.3, Education: 0.2, Recency: 0.2}
	assert.Error(t, w.Validate())
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig("tenant-1")
	require.NoError(t, cfg.Validate())

	cfg.AlgorithmVersion = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig("tenant-1")
	cfg.RecommendThreshold = 1.5
	assert.Error(t, cfg.Validate())
}

func TestConfigWireKeysAreSnakeCase(t *testing.T) {
	raw, err := json.Marshal(DefaultConfig("tenant-1"))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	for _, key := range []string{
		"tenant_id", "weights", "recommend_threshold",
		"skill_filter_top_k", "rerank_top_n", "algorithm_version",
	} {
		assert.Contains(t, decoded, key)
	}

	weights, ok := decoded["weights"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, weights, "skill_weight")
	assert.Contains(t, weights, "recency_weight")
}
