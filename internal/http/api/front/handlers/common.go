// Package handlers implements the public API endpoint handlers.
package handlers

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ContextUserIDKey is the gin context key carrying the authenticated user ID.
const ContextUserIDKey = "userID"

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

const shortIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const shortIDLength = 8

// resolveUserID picks the effective user ID for a request. An authenticated
// identity always wins over a payload-supplied ID.
func resolveUserID(c *gin.Context, payloadUserID string) string {
	if v, ok := c.Get(ContextUserIDKey); ok {
		if userID, okStr := v.(string); okStr && strings.TrimSpace(userID) != "" {
			return strings.TrimSpace(userID)
		}
	}
	return strings.TrimSpace(payloadUserID)
}

// pathUserID reads the user_id path parameter, preferring the authenticated
// identity when it is present.
func pathUserID(c *gin.Context) string {
	return resolveUserID(c, c.Param("user_id"))
}

// parseListParams extracts limit and offset query parameters with bounds.
func parseListParams(c *gin.Context) (limit, offset int) {
	limit = defaultListLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if parsed, errAtoi := strconv.Atoi(raw); errAtoi == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		if parsed, errAtoi := strconv.Atoi(raw); errAtoi == nil && parsed > 0 {
			offset = parsed
		}
	}
	return limit, offset
}

// newShortID generates a random lowercase alphanumeric short ID that does
// not collide with an existing row in the given table.
func newShortID(db *gorm.DB, table string) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		id, errGen := randomShortID()
		if errGen != nil {
			return "", errGen
		}
		var count int64
		if errCount := db.Table(table).Where("short_id = ?", id).Count(&count).Error; errCount != nil {
			return "", fmt.Errorf("handlers: check short id: %w", errCount)
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("handlers: short id space exhausted for %s", table)
}

func randomShortID() (string, error) {
	buf := make([]byte, shortIDLength)
	if _, errRead := rand.Read(buf); errRead != nil {
		return "", fmt.Errorf("handlers: generate short id: %w", errRead)
	}
	out := make([]byte, shortIDLength)
	for i, b := range buf {
		out[i] = shortIDAlphabet[int(b)%len(shortIDAlphabet)]
	}
	return string(out), nil
}
