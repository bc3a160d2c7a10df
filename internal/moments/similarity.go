package moments

import "math"

// CosineDistance computes the cosine distance between two fingerprint
// vectors. Returns a value between 0 (identical) and 2 (opposite).
// Invalid input (length mismatch, empty, zero norm, NaN) returns the
// maximum distance so that a single bad fingerprint never aborts a run.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		return 2.0
	}
	// Clamp to [-1, 1] to handle floating point errors.
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}

	return 1 - sim
}

// Similarity maps cosine distance to a similarity score in [0,1].
// Symmetric and reflexive: Similarity(x, x) == 1 for any valid x.
// Malformed vectors score 0 against everything.
func Similarity(a, b []float32) float64 {
	return math.Max(0, 1-CosineDistance(a, b))
}
