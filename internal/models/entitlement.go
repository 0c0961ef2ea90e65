package models

import (
	"strings"
	"time"
)

// SubscriptionStatus identifies a user's entitlement tier.
type SubscriptionStatus string

// SubscriptionStatus values. Paid tiers carry an expiry timestamp.
const (
	// SubscriptionFree marks a user on the free quota.
	SubscriptionFree SubscriptionStatus = "free"
	// SubscriptionMonthly marks an active monthly plan.
	SubscriptionMonthly SubscriptionStatus = "monthly"
	// SubscriptionQuarterly marks an active quarterly plan.
	SubscriptionQuarterly SubscriptionStatus = "quarterly"
	// SubscriptionYearly marks an active yearly plan.
	SubscriptionYearly SubscriptionStatus = "yearly"
)

// ParsePlan maps a plan name to its paid subscription status.
// Unknown names report false; "free" is not a purchasable plan.
func ParsePlan(name string) (SubscriptionStatus, bool) {
	switch SubscriptionStatus(strings.ToLower(strings.TrimSpace(name))) {
	case SubscriptionMonthly:
		return SubscriptionMonthly, true
	case SubscriptionQuarterly:
		return SubscriptionQuarterly, true
	case SubscriptionYearly:
		return SubscriptionYearly, true
	default:
		return "", false
	}
}

// Entitlement tracks per-user free quota and subscription state.
// Invariant: SubscriptionStatus == free implies SubscriptionExpiry == nil.
type Entitlement struct {
	UserID string `gorm:"primaryKey;type:varchar(128)"` // Externally supplied user identifier.

	FreeGenerationsRemaining int                `gorm:"not null;default:10"`                   // Free-tier generations left.
	SubscriptionStatus       SubscriptionStatus `gorm:"type:varchar(16);not null;default:'free'"` // Current tier.
	SubscriptionExpiry       *time.Time         // Paid plan expiry; nil on free tier.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // First-touch timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
