package models

// Device represents a kiosk or camera client allowed to submit recognition
// requests. The API key is stored as a bcrypt hash; the plaintext key is
// shown once at creation time.
type Device struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string `gorm:"uniqueIndex;not null" json:"name"`
	Location   string `json:"location"`
	APIKeyHash string `gorm:"not null;column:api_key_hash" json:"-"`
	CreatedAt  int64  `gorm:"not null" json:"created_at"`     // Stored as INTEGER in SQLite, Unix timestamp
	LastSeenAt *int64 `json:"last_seen_at,omitempty"`         // Unix timestamp of the last authenticated request
}

// TableName explicitly sets the table name for GORM.
func (Device) TableName() string {
	return "devices"
}
