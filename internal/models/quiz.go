package models

import (
	"time"

	"gorm.io/datatypes"
)

// Quiz stores a generated quiz document together with its flashcards.
// Records are immutable after creation.
type Quiz struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	QuizID  string `gorm:"type:varchar(36);not null;uniqueIndex"` // Internal document id (UUID).
	ShortID string `gorm:"type:varchar(12);not null;uniqueIndex"` // Externally visible lookup id.
	UserID  string `gorm:"type:varchar(128);not null;index"`      // Owning user identifier.

	Title      string `gorm:"type:varchar(255);not null"` // Quiz title.
	SourceType string `gorm:"type:varchar(16);not null"`  // Input kind: topic, text, or pdf.
	Difficulty string `gorm:"type:varchar(16)"`           // Requested difficulty.

	Questions  datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Generated question list.
	Flashcards datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Generated flashcard list.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
