package facts

import "time"

// Relevance decay and confidence labelling are the single source of truth
// for every caller that displays an age or a confidence number. Matching and
// deduplication both derive through these functions so they never disagree.

const yearHours = 365 * 24

// RelevanceBand is the stepped decay applied to an aging observation.
type RelevanceBand struct {
	Multiplier float64 `json:"multiplier"`
	Label      string  `json:"label"`
}

// AgeYears returns the fractional age of an observation at the given instant.
func AgeYears(extractedAt, now time.Time) float64 {
	return now.Sub(extractedAt).Hours() / yearHours
}

// RelevanceForAge maps an age in years onto the stepped decay bands.
func RelevanceForAge(ageYears float64) RelevanceBand {
	switch {
	case ageYears < 1:
		return RelevanceBand{Multiplier: 1.0, Label: "Current"}
	case ageYears < 3:
		return RelevanceBand{Multiplier: 0.9, Label: "Recent"}
	case ageYears < 5:
		return RelevanceBand{Multiplier: 0.75, Label: "Aging"}
	default:
		return RelevanceBand{Multiplier: 0.5, Label: "Outdated"}
	}
}

// RelevanceAt derives the decay band for an observation extracted at
// extractedAt, evaluated at now. Never persisted: always computed at read
// time so the band reflects the current age.
func RelevanceAt(extractedAt, now time.Time) RelevanceBand {
	return RelevanceForAge(AgeYears(extractedAt, now))
}

// ConfidenceLabel maps a numeric confidence in [0,1] onto its categorical
// label. Band lower bounds are inclusive.
func ConfidenceLabel(confidence float64) string {
	switch {
	case confidence >= 0.95:
		return "Explicit"
	case confidence >= 0.80:
		return "Very Likely"
	case confidence >= 0.65:
		return "Inferred"
	default:
		return "Uncertain"
	}
}
