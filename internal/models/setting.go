package models

import (
	"encoding/json"
	"time"
)

// Setting stores a JSON-valued configuration entry keyed by name.
type Setting struct {
	Key   string          `gorm:"primaryKey;type:varchar(64)"` // Setting name.
	Value json.RawMessage `gorm:"type:jsonb;not null"`         // JSON payload.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
