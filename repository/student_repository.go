package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/calebwray/attendsysbackend/models"
	"gorm.io/gorm"
)

// StudentRepository handles database operations for Student entities
type StudentRepository struct {
	DB *gorm.DB
}

// Ensure StudentRepository implements StudentRepositoryInterface
var _ StudentRepositoryInterface = (*StudentRepository)(nil)

// NewStudentRepository creates a new instance of StudentRepository
func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{DB: db}
}

// Create creates a new student record in the database
func (r *StudentRepository) Create(student *models.Student) error {
	now := time.Now().Unix()
	if student.CreatedAt == 0 {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	err := r.DB.Create(student).Error
	if err != nil {
		return fmt.Errorf("failed to create student '%s': %w", student.Code, err)
	}
	return nil
}

// GetByID retrieves a student by ID
func (r *StudentRepository) GetByID(id uint) (*models.Student, error) {
	var student models.Student
	err := r.DB.First(&student, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get student by ID %d: %w", id, err)
	}
	return &student, nil
}

// GetByCode retrieves a student by external student code
func (r *StudentRepository) GetByCode(code string) (*models.Student, error) {
	var student models.Student
	err := r.DB.Where("code = ?", code).First(&student).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get student by code '%s': %w", code, err)
	}
	return &student, nil
}

// ListAll retrieves all students
func (r *StudentRepository) ListAll() ([]models.Student, error) {
	var students []models.Student
	err := r.DB.Find(&students).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

// Update updates an existing student
func (r *StudentRepository) Update(student *models.Student) error {
	student.UpdatedAt = time.Now().Unix()
	result := r.DB.Model(&models.Student{ID: student.ID}).Updates(models.Student{
		Code:      student.Code,
		FullName:  student.FullName,
		UpdatedAt: student.UpdatedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update student ID %d: %w", student.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a student by ID
func (r *StudentRepository) Delete(id uint) error {
	result := r.DB.Delete(&models.Student{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete student ID %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
