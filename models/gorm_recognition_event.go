package models

// RecognitionEvent is an audit record of one recognition attempt, matched
// or not. It corresponds to the 'recognition_events' table.
type RecognitionEvent struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID      string  `gorm:"uniqueIndex;not null" json:"event_id"` // UUID assigned at creation
	StudentID    *uint   `gorm:"index" json:"student_id,omitempty"`    // Nullable; set when a match was accepted
	DeviceID     *uint   `gorm:"index" json:"device_id,omitempty"`
	Matched      bool    `gorm:"not null" json:"matched"`
	Distance     float64 `gorm:"not null" json:"distance"`  // Final cosine distance of the best candidate
	Threshold    float64 `gorm:"not null" json:"threshold"` // Adaptive threshold applied
	CentroidUsed bool    `gorm:"not null" json:"centroid_used"`
	SnapshotPath *string `json:"snapshot_path,omitempty"` // Relative path in the media store, if saved
	CapturedAt   *int64  `json:"captured_at,omitempty"`   // EXIF capture time from the uploaded frame, when present
	CreatedAt    int64   `gorm:"not null" json:"created_at"` // Stored as INTEGER in SQLite, Unix timestamp

	Student *Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Device  *Device  `gorm:"foreignKey:DeviceID" json:"device,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (RecognitionEvent) TableName() string {
	return "recognition_events"
}
