package models

import "time"

// ArtifactType identifies which kind of generated document a score refers to.
type ArtifactType string

// ArtifactType values.
const (
	// ArtifactQuiz refers to a quiz document.
	ArtifactQuiz ArtifactType = "quiz"
	// ArtifactMockTest refers to a mock test document.
	ArtifactMockTest ArtifactType = "mock_test"
)

// Score records a user's result for a generated quiz or mock test.
type Score struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID       string       `gorm:"type:varchar(128);not null;index"` // Owning user identifier.
	ArtifactType ArtifactType `gorm:"type:varchar(16);not null"`        // Scored document kind.
	ShortID      string       `gorm:"type:varchar(12);not null;index"`  // Scored document short id.

	Score int `gorm:"not null;default:0"` // Points achieved.
	Total int `gorm:"not null;default:0"` // Points achievable.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Submission timestamp.
}
