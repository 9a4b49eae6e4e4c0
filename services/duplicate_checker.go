package services

import "github.com/calebwray/attendsysbackend/models"

const (
	// DuplicateDistanceThreshold is the cosine distance below which a new
	// embedding is considered a near duplicate of an existing one
	DuplicateDistanceThreshold = 0.15

	// MaxEnrollments caps the number of stored encodings per student,
	// adaptive encodings included
	MaxEnrollments = 10
)

// IsDuplicate reports whether the embedding is a near duplicate of any of
// the student's existing encodings
func IsDuplicate(embedding []float32, existing []models.FaceEncoding) bool {
	for i := range existing {
		stored := existing[i].GetEmbedding()
		if CosineDistance(embedding, stored) < DuplicateDistanceThreshold {
			return true
		}
	}
	return false
}

// CanEnrollMore reports whether the student has room for another encoding
func CanEnrollMore(currentCount int) bool {
	return currentCount < MaxEnrollments
}
