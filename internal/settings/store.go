package settings

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/quizforge/quizforge-api/internal/models"
	"gorm.io/gorm"
)

// Store reads JSON-valued settings rows from the database.
type Store struct {
	db *gorm.DB
}

// NewStore constructs a Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Value returns the raw JSON value for a key.
func (s *Store) Value(key string) (json.RawMessage, bool) {
	if s == nil || s.db == nil || strings.TrimSpace(key) == "" {
		return nil, false
	}
	var row models.Setting
	if errFind := s.db.Where("key = ?", key).First(&row).Error; errFind != nil {
		return nil, false
	}
	if len(row.Value) == 0 {
		return nil, false
	}
	return row.Value, true
}

// Int returns an integer setting, falling back when absent or malformed.
func (s *Store) Int(key string, fallback int) int {
	raw, ok := s.Value(key)
	if !ok {
		return fallback
	}
	if parsed, okParse := parseNonNegativeInt(raw); okParse {
		return parsed
	}
	return fallback
}

// Bool returns a boolean setting, falling back when absent or malformed.
func (s *Store) Bool(key string, fallback bool) bool {
	raw, ok := s.Value(key)
	if !ok {
		return fallback
	}
	if parsed, okParse := parseBool(raw); okParse {
		return parsed
	}
	return fallback
}

// String returns a string setting, falling back when absent or malformed.
func (s *Store) String(key string, fallback string) string {
	raw, ok := s.Value(key)
	if !ok {
		return fallback
	}
	if parsed, okParse := parseString(raw); okParse && parsed != "" {
		return parsed
	}
	return fallback
}

func parseBool(raw json.RawMessage) (bool, bool) {
	var parsedBool bool
	if errUnmarshalBool := json.Unmarshal(raw, &parsedBool); errUnmarshalBool == nil {
		return parsedBool, true
	}
	var parsedString string
	if errUnmarshalString := json.Unmarshal(raw, &parsedString); errUnmarshalString == nil {
		switch strings.ToLower(strings.TrimSpace(parsedString)) {
		case "1", "true", "yes", "on":
			return true, true
		case "0", "false", "no", "off":
			return false, true
		}
	}
	return false, false
}

func parseString(raw json.RawMessage) (string, bool) {
	var parsedString string
	if errUnmarshal := json.Unmarshal(raw, &parsedString); errUnmarshal == nil {
		return strings.TrimSpace(parsedString), true
	}
	return "", false
}

func parseNonNegativeInt(raw json.RawMessage) (int, bool) {
	var parsedInt int
	if errUnmarshalInt := json.Unmarshal(raw, &parsedInt); errUnmarshalInt == nil {
		return parsedInt, parsedInt >= 0
	}
	var parsedString string
	if errUnmarshalString := json.Unmarshal(raw, &parsedString); errUnmarshalString == nil {
		parsed, errParse := strconv.Atoi(strings.TrimSpace(parsedString))
		if errParse != nil || parsed < 0 {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}
