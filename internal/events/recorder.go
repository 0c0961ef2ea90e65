// Package events persists generation audit records.
package events

import (
	"context"
	"time"

	"github.com/quizforge/quizforge-api/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Recorder writes generation events without blocking the request path.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs a Recorder backed by GORM.
func NewRecorder(db *gorm.DB) *Recorder { return &Recorder{db: db} }

// Record persists one generation event. Failures are logged and swallowed
// so auditing never breaks content delivery.
func (r *Recorder) Record(userID, artifactType, shortID, sourceType string, fallback bool, duration time.Duration) {
	if r == nil || r.db == nil {
		return
	}
	dbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := models.GenerationEvent{
		UserID:       userID,
		ArtifactType: artifactType,
		ShortID:      shortID,
		SourceType:   sourceType,
		Fallback:     fallback,
		DurationMS:   duration.Milliseconds(),
		CreatedAt:    time.Now().UTC(),
	}
	if errCreate := r.db.WithContext(dbCtx).Create(&event).Error; errCreate != nil {
		log.WithError(errCreate).Warn("events: record generation event failed")
	}
}
