package services

import "math"

// CosineDistance calculates the cosine distance between two embedding
// vectors. Returns a value in [0, 2] where 0 means identical direction.
// Mismatched lengths and zero vectors return the maximum distance.
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

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	// numerical drift can push the similarity slightly out of [-1, 1]
	if similarity > 1 {
		similarity = 1
	} else if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}
