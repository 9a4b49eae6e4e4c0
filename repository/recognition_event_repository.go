package repository

import (
	"fmt"
	"time"

	"github.com/calebwray/attendsysbackend/models"
	"gorm.io/gorm"
)

// RecognitionEventRepository handles database operations for RecognitionEvent entities
type RecognitionEventRepository struct {
	DB *gorm.DB
}

// Ensure RecognitionEventRepository implements RecognitionEventRepositoryInterface
var _ RecognitionEventRepositoryInterface = (*RecognitionEventRepository)(nil)

// NewRecognitionEventRepository creates a new instance of RecognitionEventRepository
func NewRecognitionEventRepository(db *gorm.DB) *RecognitionEventRepository {
	return &RecognitionEventRepository{DB: db}
}

// Create creates a new recognition event record
func (r *RecognitionEventRepository) Create(event *models.RecognitionEvent) error {
	if event.CreatedAt == 0 {
		event.CreatedAt = time.Now().Unix()
	}
	err := r.DB.Create(event).Error
	if err != nil {
		return fmt.Errorf("failed to create recognition event %s: %w", event.EventID, err)
	}
	return nil
}

// ListRecent retrieves the most recent recognition events, newest first
func (r *RecognitionEventRepository) ListRecent(limit int) ([]models.RecognitionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.RecognitionEvent
	err := r.DB.Preload("Student").Order("created_at DESC, id DESC").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent recognition events: %w", err)
	}
	return events, nil
}

// ListByStudentID retrieves the most recent recognition events for a student
func (r *RecognitionEventRepository) ListByStudentID(studentID uint, limit int) ([]models.RecognitionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.RecognitionEvent
	err := r.DB.Where("student_id = ?", studentID).
		Order("created_at DESC, id DESC").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recognition events for student ID %d: %w", studentID, err)
	}
	return events, nil
}
