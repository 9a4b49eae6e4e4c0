package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/calebwray/attendsysbackend/models"
	"gorm.io/gorm"
)

// CentroidRepository handles database operations for UserCentroid entities
type CentroidRepository struct {
	DB *gorm.DB
}

// Ensure CentroidRepository implements CentroidRepositoryInterface
var _ CentroidRepositoryInterface = (*CentroidRepository)(nil)

// NewCentroidRepository creates a new instance of CentroidRepository
func NewCentroidRepository(db *gorm.DB) *CentroidRepository {
	return &CentroidRepository{DB: db}
}

// GetByStudentID retrieves the centroid for a student
func (r *CentroidRepository) GetByStudentID(studentID uint) (*models.UserCentroid, error) {
	var centroid models.UserCentroid
	err := r.DB.Where("student_id = ?", studentID).First(&centroid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get centroid for student ID %d: %w", studentID, err)
	}
	return &centroid, nil
}

// Upsert inserts or replaces the centroid record for a student
func (r *CentroidRepository) Upsert(centroid *models.UserCentroid) error {
	centroid.UpdatedAt = time.Now().Unix()

	var existing models.UserCentroid
	err := r.DB.Where("student_id = ?", centroid.StudentID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if createErr := r.DB.Create(centroid).Error; createErr != nil {
				return fmt.Errorf("failed to create centroid for student ID %d: %w", centroid.StudentID, createErr)
			}
			return nil
		}
		return fmt.Errorf("failed to look up centroid for student ID %d: %w", centroid.StudentID, err)
	}

	centroid.ID = existing.ID
	if saveErr := r.DB.Save(centroid).Error; saveErr != nil {
		return fmt.Errorf("failed to update centroid for student ID %d: %w", centroid.StudentID, saveErr)
	}
	return nil
}

// DeleteByStudentID removes the centroid record for a student, if present
func (r *CentroidRepository) DeleteByStudentID(studentID uint) error {
	result := r.DB.Where("student_id = ?", studentID).Delete(&models.UserCentroid{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete centroid for student ID %d: %w", studentID, result.Error)
	}
	return nil
}

// ListAll retrieves every stored centroid
func (r *CentroidRepository) ListAll() ([]models.UserCentroid, error) {
	var centroids []models.UserCentroid
	err := r.DB.Find(&centroids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list all centroids: %w", err)
	}
	return centroids, nil
}
