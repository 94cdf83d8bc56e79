package matching

import "math"

// Cosine returns the cosine similarity of two vectors, or 0 when either is
// empty or the dimensions differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// clampUnit maps a cosine value onto a [0,1] factor score. Negative
// similarity carries no useful ranking signal here, so it floors at 0.
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// round4 fixes the stored score precision at 4 decimal places.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
