package models

import "time"

// GenerationEvent records a single content generation for auditing.
type GenerationEvent struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`                     // Event ID
	UserID       string    `gorm:"type:varchar(128);not null;index" json:"user_id"`       // Owning user
	ArtifactType string    `gorm:"type:varchar(16);not null" json:"artifact_type"`        // quiz or mock_test
	ShortID      string    `gorm:"type:varchar(12);not null" json:"short_id"`             // Artifact short ID
	SourceType   string    `gorm:"type:varchar(16);not null" json:"source_type"`          // topic, text or pdf
	Fallback     bool      `gorm:"not null;default:false" json:"fallback"`                // Placeholder content served
	DurationMS   int64     `gorm:"not null;default:0" json:"duration_ms"`                 // Generation wall time
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`                      // Creation time
}
