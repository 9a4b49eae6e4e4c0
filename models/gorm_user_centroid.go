package models

import "strings"

// UserCentroid holds the precomputed prototype embedding for a student.
// It corresponds to the 'user_centroids' table. There is at most one row
// per student; it is recomputed in full whenever that student's encodings
// change and deleted when the last encoding is removed. The stored vector
// is always unit-norm.
type UserCentroid struct {
	ID              uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID       uint    `gorm:"uniqueIndex;not null" json:"student_id"`
	CentroidData    []byte  `gorm:"not null;column:centroid_data" json:"-"`      // Unit-norm mean embedding as BLOB
	EmbeddingCount  int     `gorm:"not null" json:"embedding_count"`             // Number of encodings backing the centroid
	AvgQualityScore float64 `gorm:"not null" json:"avg_quality_score"`           // Mean quality of those encodings
	PoseCoverage    string  `gorm:"not null;default:''" json:"pose_coverage"`    // Comma-separated pose categories captured
	UpdatedAt       int64   `gorm:"not null" json:"updated_at"`                  // Stored as INTEGER in SQLite, Unix timestamp

	Student *Student `gorm:"foreignKey:StudentID" json:"student,omitempty"` // Belongs to Student
}

// TableName explicitly sets the table name for GORM.
func (UserCentroid) TableName() string {
	return "user_centroids"
}

// GetCentroid converts the BLOB data to []float32
func (uc *UserCentroid) GetCentroid() []float32 {
	return blobToEmbedding(uc.CentroidData)
}

// SetCentroid converts []float32 to BLOB data
func (uc *UserCentroid) SetCentroid(centroid []float32) {
	uc.CentroidData = embeddingToBlob(centroid)
}

// GetPoseCoverage returns the captured pose categories as a slice
func (uc *UserCentroid) GetPoseCoverage() []string {
	if uc.PoseCoverage == "" {
		return nil
	}
	return strings.Split(uc.PoseCoverage, ",")
}

// SetPoseCoverage stores the captured pose categories as a comma-separated string
func (uc *UserCentroid) SetPoseCoverage(categories []string) {
	uc.PoseCoverage = strings.Join(categories, ",")
}
