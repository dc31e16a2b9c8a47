package retriever

import "math"

// CosineSimilarity returns dot(a,b) / (|a|*|b|) in [-1, 1]. The second
// return is false when the vectors are empty or of mismatched length - the
// caller skips such chunks instead of ranking them. A zero-magnitude pair
// scores 0.0 rather than failing, which keeps ranking total and stable.
func CosineSimilarity(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	magnitude := math.Sqrt(normA) * math.Sqrt(normB)
	if magnitude == 0 {
		return 0.0, true
	}
	return dot / magnitude, true
}
