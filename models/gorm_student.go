package models

// Student represents an enrolled student in the attendance system using GORM.
// It corresponds to the 'students' table.
type Student struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Code      string `gorm:"uniqueIndex;not null" json:"code"` // external student code, e.g. "S2024-17"
	FullName  string `gorm:"not null" json:"full_name"`
	CreatedAt int64  `gorm:"not null" json:"created_at"` // Stored as INTEGER in SQLite, Unix timestamp
	UpdatedAt int64  `gorm:"not null" json:"updated_at"` // Stored as INTEGER in SQLite, Unix timestamp

	// Relationships
	// omitempty will hide these if they are not preloaded or are empty
	Encodings []FaceEncoding `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"encodings,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Student) TableName() string {
	return "students"
}
