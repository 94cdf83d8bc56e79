package dedup

import "math"

// Tier bands over the aggregate score. Below the review floor a pair is
// not surfaced at all.
const (
	strongFloor = 0.90
	fuzzyFloor  = 0.80
	reviewFloor = 0.60
)

// Soft-signal weights for aggregation. The aggregate is the weighted mean
// over the signals that actually fired, with weights renormalized over the
// fired set — a stable formula the tier thresholds are calibrated against.
var softSignalWeights = map[string]float64{
	ReasonPhone:   0.45,
	ReasonName:    0.25,
	ReasonResume:  0.20,
	ReasonCompany: 0.10,
}

// Result is the classification of one candidate pair.
type Result struct {
	Score     float64
	MatchType MatchType
	Reasons   []Reason
}

// Compare scores two candidate identities across the independent signals
// and classifies the pair. resumeSimilarity is the cosine similarity of
// the profile embeddings; resumeSimOK is false when either vector is
// missing, in which case that signal simply does not participate.
func Compare(a, b Identity, resumeSimilarity float64, resumeSimOK bool) Result {
	var reasons []Reason

	// Hard identifiers: either alone classifies the pair as hard,
	// regardless of what the soft signals say.
	hard := false
	if r := emailSignal(a, b); r != nil {
		reasons = append(reasons, *r)
		hard = true
	}
	if r := linkedinSignal(a, b); r != nil {
		reasons = append(reasons, *r)
		hard = true
	}

	soft := []*Reason{
		phoneSignal(a, b),
		nameSignal(a, b),
		resumeSignal(resumeSimilarity, resumeSimOK),
		companySignal(a, b),
	}
	for _, r := range soft {
		if r != nil {
			reasons = append(reasons, *r)
		}
	}

	if hard {
		return Result{Score: 1.0, MatchType: MatchHard, Reasons: reasons}
	}

	score := aggregate(reasons)
	return Result{Score: score, MatchType: classify(score), Reasons: reasons}
}

func aggregate(reasons []Reason) float64 {
	var weightedSum, weightTotal float64
	for _, r := range reasons {
		w, ok := softSignalWeights[r.Type]
		if !ok {
			continue
		}
		weightedSum += w * r.Confidence
		weightTotal += w
	}
	if weightTotal == 0 {
		return 0
	}
	return round4(weightedSum / weightTotal)
}

func classify(score float64) MatchType {
	switch {
	case score >= strongFloor:
		return MatchStrong
	case score >= fuzzyFloor:
		return MatchFuzzy
	case score >= reviewFloor:
		return MatchReview
	default:
		return MatchNone
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
