package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quizforge/quizforge-api/internal/models"
	internalsettings "github.com/quizforge/quizforge-api/internal/settings"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite, DialectPostgres, "":
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.Entitlement{},
		&models.Quiz{},
		&models.MockTest{},
		&models.Score{},
		&models.GenerationEvent{},
		&models.Setting{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errSeed := ensureFreeGenerationsSetting(conn); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureRateLimitSetting(conn); errSeed != nil {
		return errSeed
	}

	// ddl defines an index statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_quizzes_user_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_quizzes_user_id_created_at
				ON quizzes (user_id, created_at DESC)
			`,
		},
		{
			name: "idx_mock_tests_user_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_mock_tests_user_id_created_at
				ON mock_tests (user_id, created_at DESC)
			`,
		},
		{
			name: "idx_scores_user_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_scores_user_id_created_at
				ON scores (user_id, created_at DESC)
			`,
		},
		{
			name: "idx_entitlements_status_expiry",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_entitlements_status_expiry
				ON entitlements (subscription_status, subscription_expiry)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	if !IsSQLite(conn) {
		if errTitle := ensurePostgresTitleIndex(conn); errTitle != nil {
			return errTitle
		}
	}

	return nil
}

// ensurePostgresTitleIndex creates a trigram index on quiz titles, falling
// back to a lowercase btree index when pg_trgm is unavailable.
func ensurePostgresTitleIndex(conn *gorm.DB) error {
	_ = conn.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`).Error

	trgmSQL := `
		CREATE INDEX IF NOT EXISTS idx_quizzes_title_trgm
		ON quizzes USING gin (LOWER(title) gin_trgm_ops)
	`
	if errTrgm := conn.Exec(trgmSQL).Error; errTrgm != nil {
		lowerSQL := `
			CREATE INDEX IF NOT EXISTS idx_quizzes_title_lower
			ON quizzes (LOWER(title))
		`
		if errLower := conn.Exec(lowerSQL).Error; errLower != nil {
			return fmt.Errorf("db: create index idx_quizzes_title: %w", errLower)
		}
	}
	return nil
}

// ensureFreeGenerationsSetting ensures FREE_GENERATIONS exists with its default.
func ensureFreeGenerationsSetting(conn *gorm.DB) error {
	return ensureIntSetting(
		conn,
		internalsettings.FreeGenerationsKey,
		internalsettings.DefaultFreeGenerations,
	)
}

// ensureRateLimitSetting ensures RATE_LIMIT exists with its default.
func ensureRateLimitSetting(conn *gorm.DB) error {
	return ensureIntSetting(conn, internalsettings.RateLimitKey, internalsettings.DefaultRateLimit)
}

// ensureIntSetting ensures an integer setting exists and defaults when empty.
func ensureIntSetting(conn *gorm.DB, key string, value int) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	rawValue := json.RawMessage(payload)

	var existing models.Setting
	if errFind := conn.Where("key = ?", key).First(&existing).Error; errFind == nil {
		trimmed := strings.TrimSpace(string(existing.Value))
		if len(existing.Value) == 0 || trimmed == "" || trimmed == "null" {
			if errUpdate := conn.Model(&existing).Updates(map[string]any{
				"value":      rawValue,
				"updated_at": time.Now().UTC(),
			}).Error; errUpdate != nil {
				return fmt.Errorf("db: update %s setting: %w", key, errUpdate)
			}
		}
		return nil
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: query %s setting: %w", key, errFind)
	}

	setting := models.Setting{
		Key:       key,
		Value:     rawValue,
		UpdatedAt: time.Now().UTC(),
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("db: create %s setting: %w", key, errCreate)
	}
	return nil
}
