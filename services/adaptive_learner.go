package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/calebwray/attendsysbackend/models"
	"github.com/calebwray/attendsysbackend/repository"
)

const (
	// AdaptiveConfidenceThreshold is the minimum recognition confidence
	// for a match to count towards adaptive promotion
	AdaptiveConfidenceThreshold = 0.95

	// AdaptiveConsecutiveRequired is how many consecutive high-confidence
	// matches are needed before an embedding is promoted to the gallery
	AdaptiveConsecutiveRequired = 3
)

// AdaptiveLearner tracks consecutive high-confidence recognitions per
// student and decides when a live embedding should be promoted into the
// student's stored encodings
type AdaptiveLearner struct {
	candidateRepo repository.AdaptiveCandidateRepositoryInterface
}

func NewAdaptiveLearner(candidateRepo repository.AdaptiveCandidateRepositoryInterface) *AdaptiveLearner {
	return &AdaptiveLearner{candidateRepo: candidateRepo}
}

// RecordRecognition records a matched recognition for the student. When the
// confidence clears the adaptive threshold for the required number of
// consecutive recognitions, the candidate embedding is returned for
// promotion and the counter resets. A sub-threshold confidence resets the
// counter. Returns nil when no promotion happens.
func (al *AdaptiveLearner) RecordRecognition(studentID uint, embedding []float32, confidence float64) ([]float32, error) {
	if confidence <= AdaptiveConfidenceThreshold {
		if err := al.candidateRepo.DeleteByStudentID(studentID); err != nil {
			return nil, fmt.Errorf("failed to reset adaptive candidate for student %d: %w", studentID, err)
		}
		return nil, nil
	}

	candidate, err := al.candidateRepo.GetByStudentID(studentID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load adaptive candidate for student %d: %w", studentID, err)
		}
		candidate = &models.AdaptiveCandidate{StudentID: studentID}
	}

	candidate.ConsecutiveCount++
	candidate.LastConfidence = confidence
	candidate.UpdatedAt = time.Now().Unix()
	candidate.SetEmbedding(embedding)

	if candidate.ConsecutiveCount >= AdaptiveConsecutiveRequired {
		promoted := candidate.GetEmbedding()
		if err := al.candidateRepo.DeleteByStudentID(studentID); err != nil {
			return nil, fmt.Errorf("failed to clear promoted candidate for student %d: %w", studentID, err)
		}
		return promoted, nil
	}

	if err := al.candidateRepo.Upsert(candidate); err != nil {
		return nil, fmt.Errorf("failed to store adaptive candidate for student %d: %w", studentID, err)
	}
	return nil, nil
}

// Reset clears any tracked candidate for the student
func (al *AdaptiveLearner) Reset(studentID uint) error {
	return al.candidateRepo.DeleteByStudentID(studentID)
}
