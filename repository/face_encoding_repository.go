package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/calebwray/attendsysbackend/models"
	"gorm.io/gorm"
)

// FaceEncodingRepository handles database operations for FaceEncoding entities
type FaceEncodingRepository struct {
	DB *gorm.DB
}

// Ensure FaceEncodingRepository implements FaceEncodingRepositoryInterface
var _ FaceEncodingRepositoryInterface = (*FaceEncodingRepository)(nil)

// NewFaceEncodingRepository creates a new instance of FaceEncodingRepository
func NewFaceEncodingRepository(db *gorm.DB) *FaceEncodingRepository {
	return &FaceEncodingRepository{DB: db}
}

// Create creates a new face encoding record in the database
func (r *FaceEncodingRepository) Create(encoding *models.FaceEncoding) error {
	now := time.Now().Unix()
	if encoding.CreatedAt == 0 {
		encoding.CreatedAt = now
	}
	encoding.UpdatedAt = now

	err := r.DB.Create(encoding).Error
	if err != nil {
		return fmt.Errorf("failed to create face encoding for student ID %d: %w", encoding.StudentID, err)
	}
	return nil
}

// GetByID retrieves a face encoding by its ID
func (r *FaceEncodingRepository) GetByID(id uint) (*models.FaceEncoding, error) {
	var encoding models.FaceEncoding
	err := r.DB.First(&encoding, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get face encoding by ID %d: %w", id, err)
	}
	return &encoding, nil
}

// ListByStudentID retrieves all face encodings for a given student,
// oldest first
func (r *FaceEncodingRepository) ListByStudentID(studentID uint) ([]models.FaceEncoding, error) {
	var encodings []models.FaceEncoding
	err := r.DB.Where("student_id = ?", studentID).
		Order("created_at ASC, id ASC").
		Find(&encodings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list face encodings for student ID %d: %w", studentID, err)
	}
	return encodings, nil
}

// CountByStudentID returns the number of stored encodings for a student
func (r *FaceEncodingRepository) CountByStudentID(studentID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&models.FaceEncoding{}).Where("student_id = ?", studentID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count face encodings for student ID %d: %w", studentID, err)
	}
	return count, nil
}

// ListAll retrieves every stored face encoding; used to build the in-memory
// candidate index at startup
func (r *FaceEncodingRepository) ListAll() ([]models.FaceEncoding, error) {
	var encodings []models.FaceEncoding
	err := r.DB.Find(&encodings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list all face encodings: %w", err)
	}
	return encodings, nil
}

// Delete removes a face encoding by its ID
func (r *FaceEncodingRepository) Delete(id uint) error {
	result := r.DB.Delete(&models.FaceEncoding{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete face encoding ID %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteByStudentID removes all face encodings for a student
func (r *FaceEncodingRepository) DeleteByStudentID(studentID uint) error {
	result := r.DB.Where("student_id = ?", studentID).Delete(&models.FaceEncoding{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete face encodings for student ID %d: %w", studentID, result.Error)
	}
	return nil
}
