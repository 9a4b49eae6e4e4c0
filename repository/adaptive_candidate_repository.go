package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/calebwray/attendsysbackend/models"
	"gorm.io/gorm"
)

// AdaptiveCandidateRepository handles database operations for AdaptiveCandidate entities
type AdaptiveCandidateRepository struct {
	DB *gorm.DB
}

// Ensure AdaptiveCandidateRepository implements AdaptiveCandidateRepositoryInterface
var _ AdaptiveCandidateRepositoryInterface = (*AdaptiveCandidateRepository)(nil)

// NewAdaptiveCandidateRepository creates a new instance of AdaptiveCandidateRepository
func NewAdaptiveCandidateRepository(db *gorm.DB) *AdaptiveCandidateRepository {
	return &AdaptiveCandidateRepository{DB: db}
}

// GetByStudentID retrieves the adaptive candidate state for a student
func (r *AdaptiveCandidateRepository) GetByStudentID(studentID uint) (*models.AdaptiveCandidate, error) {
	var candidate models.AdaptiveCandidate
	err := r.DB.Where("student_id = ?", studentID).First(&candidate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get adaptive candidate for student ID %d: %w", studentID, err)
	}
	return &candidate, nil
}

// Upsert inserts or replaces the adaptive candidate state for a student
func (r *AdaptiveCandidateRepository) Upsert(candidate *models.AdaptiveCandidate) error {
	candidate.UpdatedAt = time.Now().Unix()

	var existing models.AdaptiveCandidate
	err := r.DB.Where("student_id = ?", candidate.StudentID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if createErr := r.DB.Create(candidate).Error; createErr != nil {
				return fmt.Errorf("failed to create adaptive candidate for student ID %d: %w", candidate.StudentID, createErr)
			}
			return nil
		}
		return fmt.Errorf("failed to look up adaptive candidate for student ID %d: %w", candidate.StudentID, err)
	}

	candidate.ID = existing.ID
	if saveErr := r.DB.Save(candidate).Error; saveErr != nil {
		return fmt.Errorf("failed to update adaptive candidate for student ID %d: %w", candidate.StudentID, saveErr)
	}
	return nil
}

// DeleteByStudentID removes the adaptive candidate state for a student
func (r *AdaptiveCandidateRepository) DeleteByStudentID(studentID uint) error {
	result := r.DB.Where("student_id = ?", studentID).Delete(&models.AdaptiveCandidate{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete adaptive candidate for student ID %d: %w", studentID, result.Error)
	}
	return nil
}
