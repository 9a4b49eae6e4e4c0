package models

// FaceEncoding represents one accepted enrollment sample for a student.
// It corresponds to the 'face_encodings' table. The embedding vector is
// stored as a little-endian float32 BLOB. Records are never mutated after
// creation; they are only inserted and deleted.
type FaceEncoding struct {
	ID             uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID      uint    `gorm:"index;not null" json:"student_id"`                                         // Foreign key to students table
	EmbeddingData  []byte  `gorm:"not null;column:embedding_data" json:"-"`                                  // Face embedding vector as BLOB
	EmbeddingModel string  `gorm:"not null;column:embedding_model;default:'arcface'" json:"embedding_model"` // Name of the model used for embedding
	QualityScore   float64 `gorm:"not null;column:quality_score" json:"quality_score"`                       // Overall quality score in [0,1]
	PoseCategory   *string `gorm:"column:pose_category" json:"pose_category,omitempty"`                      // front, left_30, right_30, up_15, down_15
	IsAdaptive     bool    `gorm:"not null;default:false" json:"is_adaptive"`                                // true when inserted by adaptive learning
	CreatedAt      int64   `gorm:"not null" json:"created_at"`                                               // Stored as INTEGER in SQLite, Unix timestamp
	UpdatedAt      int64   `gorm:"not null" json:"updated_at"`                                               // Stored as INTEGER in SQLite, Unix timestamp

	Student *Student `gorm:"foreignKey:StudentID" json:"student,omitempty"` // Belongs to Student
}

// TableName explicitly sets the table name for GORM.
func (FaceEncoding) TableName() string {
	return "face_encodings"
}

// GetEmbedding converts the BLOB data to []float32
func (fe *FaceEncoding) GetEmbedding() []float32 {
	return blobToEmbedding(fe.EmbeddingData)
}

// SetEmbedding converts []float32 to BLOB data
func (fe *FaceEncoding) SetEmbedding(embedding []float32) {
	fe.EmbeddingData = embeddingToBlob(embedding)
}
