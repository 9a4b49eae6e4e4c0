package models

// AdaptiveCandidate tracks consecutive high-confidence recognitions for a
// student while adaptive learning is enabled. It corresponds to the
// 'adaptive_candidates' table. Only the most recent embedding/confidence
// pair is kept; the counter resets on any non-qualifying recognition and
// when an embedding is promoted.
type AdaptiveCandidate struct {
	ID               uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID        uint    `gorm:"uniqueIndex;not null" json:"student_id"`
	EmbeddingData    []byte  `gorm:"column:embedding_data" json:"-"` // Most recent qualifying embedding as BLOB
	LastConfidence   float64 `gorm:"not null" json:"last_confidence"`
	ConsecutiveCount int     `gorm:"not null;default:0" json:"consecutive_count"`
	UpdatedAt        int64   `gorm:"not null" json:"updated_at"` // Stored as INTEGER in SQLite, Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (AdaptiveCandidate) TableName() string {
	return "adaptive_candidates"
}

// GetEmbedding converts the BLOB data to []float32
func (ac *AdaptiveCandidate) GetEmbedding() []float32 {
	return blobToEmbedding(ac.EmbeddingData)
}

// SetEmbedding converts []float32 to BLOB data
func (ac *AdaptiveCandidate) SetEmbedding(embedding []float32) {
	ac.EmbeddingData = embeddingToBlob(embedding)
}
