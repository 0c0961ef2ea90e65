package models

import (
	"time"

	"gorm.io/datatypes"
)

// MockTest stores a generated sectioned exam document.
// Records are immutable after creation.
type MockTest struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TestID  string `gorm:"type:varchar(36);not null;uniqueIndex"` // Internal document id (UUID).
	ShortID string `gorm:"type:varchar(12);not null;uniqueIndex"` // Externally visible lookup id.
	UserID  string `gorm:"type:varchar(128);not null;index"`      // Owning user identifier.

	Subject         string `gorm:"type:varchar(255);not null"` // Exam subject.
	DurationMinutes int    `gorm:"not null;default:0"`         // Suggested duration.
	TotalMarks      int    `gorm:"not null;default:0"`         // Total marks across sections.

	Sections datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Generated section list.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
