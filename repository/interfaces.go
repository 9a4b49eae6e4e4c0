package repository

import (
	"github.com/calebwray/attendsysbackend/models"
)

// StudentRepositoryInterface defines the methods for student data operations
type StudentRepositoryInterface interface {
	Create(student *models.Student) error
	GetByID(id uint) (*models.Student, error)
	GetByCode(code string) (*models.Student, error)
	ListAll() ([]models.Student, error)
	Update(student *models.Student) error
	Delete(id uint) error
}

// FaceEncodingRepositoryInterface defines the methods for face encoding data operations
type FaceEncodingRepositoryInterface interface {
	Create(encoding *models.FaceEncoding) error
	GetByID(id uint) (*models.FaceEncoding, error)
	ListByStudentID(studentID uint) ([]models.FaceEncoding, error)
	CountByStudentID(studentID uint) (int64, error)
	ListAll() ([]models.FaceEncoding, error)
	Delete(id uint) error
	DeleteByStudentID(studentID uint) error
}

// CentroidRepositoryInterface defines the methods for user centroid data operations
type CentroidRepositoryInterface interface {
	GetByStudentID(studentID uint) (*models.UserCentroid, error)
	Upsert(centroid *models.UserCentroid) error
	DeleteByStudentID(studentID uint) error
	ListAll() ([]models.UserCentroid, error)
}

// AdaptiveCandidateRepositoryInterface defines the methods for adaptive candidate state
type AdaptiveCandidateRepositoryInterface interface {
	GetByStudentID(studentID uint) (*models.AdaptiveCandidate, error)
	Upsert(candidate *models.AdaptiveCandidate) error
	DeleteByStudentID(studentID uint) error
}

// DeviceRepositoryInterface defines the methods for device data operations
type DeviceRepositoryInterface interface {
	Create(device *models.Device) error
	GetByID(id uint) (*models.Device, error)
	GetByName(name string) (*models.Device, error)
	ListAll() ([]models.Device, error)
	TouchLastSeen(id uint) error
	Delete(id uint) error
}

// RecognitionEventRepositoryInterface defines the methods for recognition event data operations
type RecognitionEventRepositoryInterface interface {
	Create(event *models.RecognitionEvent) error
	ListRecent(limit int) ([]models.RecognitionEvent, error)
	ListByStudentID(studentID uint, limit int) ([]models.RecognitionEvent, error)
}
