package ratelimit

import "strings"

// KeyForUser builds a limiter key scoped to a single user.
func KeyForUser(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ""
	}
	return "u:" + userID
}
