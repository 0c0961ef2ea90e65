// Package entitlement decides whether a user may generate content and
// advances the free-quota counter after confirmed generations.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quizforge/quizforge-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrMissingUserID indicates an empty user identifier was supplied.
var ErrMissingUserID = errors.New("entitlement: missing user id")

// ErrInvalidPlan indicates an unknown subscription plan name.
var ErrInvalidPlan = errors.New("entitlement: invalid plan")

// Decision reports whether a user may generate content right now.
type Decision struct {
	Allowed       bool
	RemainingFree int
	Status        models.SubscriptionStatus
	Expiry        *time.Time
}

// Engine is the single source of truth for generation entitlement.
type Engine struct {
	db        *gorm.DB
	freeQuota int
	nowFn     func() time.Time
}

// NewEngine constructs an Engine. A non-positive freeQuota falls back to 10;
// a nil nowFn falls back to time.Now.
func NewEngine(db *gorm.DB, freeQuota int, nowFn func() time.Time) *Engine {
	if freeQuota <= 0 {
		freeQuota = 10
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Engine{db: db, freeQuota: freeQuota, nowFn: nowFn}
}

// Evaluate reports whether the user may generate content, creating the
// entitlement record on first touch and lazily normalizing lapsed
// subscriptions. Re-running on an already-created or already-normalized
// record yields the same result with no further mutation.
func (e *Engine) Evaluate(ctx context.Context, userID string) (Decision, error) {
	record, err := e.Lookup(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	if record.SubscriptionStatus != models.SubscriptionFree {
		// Lookup already normalized lapsed records, so a non-free status
		// here is an active subscription: the free counter does not apply.
		return Decision{
			Allowed:       true,
			RemainingFree: 0,
			Status:        record.SubscriptionStatus,
			Expiry:        record.SubscriptionExpiry,
		}, nil
	}

	if record.FreeGenerationsRemaining > 0 {
		return Decision{
			Allowed:       true,
			RemainingFree: record.FreeGenerationsRemaining,
			Status:        models.SubscriptionFree,
		}, nil
	}
	return Decision{Allowed: false, RemainingFree: 0, Status: models.SubscriptionFree}, nil
}

// Lookup returns the user's entitlement record, creating it when absent and
// normalizing a lapsed subscription back to the free tier.
func (e *Engine) Lookup(ctx context.Context, userID string) (models.Entitlement, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.Entitlement{}, ErrMissingUserID
	}

	now := e.nowFn().UTC()

	// Create-if-absent is a single conditional insert so two concurrent
	// first touches cannot both seed the record.
	seed := models.Entitlement{
		UserID:                   userID,
		FreeGenerationsRemaining: e.freeQuota,
		SubscriptionStatus:       models.SubscriptionFree,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if errCreate := e.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&seed).Error; errCreate != nil {
		return models.Entitlement{}, fmt.Errorf("entitlement: create record: %w", errCreate)
	}

	var record models.Entitlement
	if errFind := e.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error; errFind != nil {
		return models.Entitlement{}, fmt.Errorf("entitlement: load record: %w", errFind)
	}

	if record.SubscriptionStatus == models.SubscriptionFree {
		return record, nil
	}
	if record.SubscriptionExpiry != nil && record.SubscriptionExpiry.After(now) {
		return record, nil
	}

	// The subscription has lapsed (or never carried an expiry): rewrite it
	// to the free tier, preserving the stored free counter. The status guard
	// keeps a concurrent re-subscribe from being clobbered.
	res := e.db.WithContext(ctx).Model(&models.Entitlement{}).
		Where("user_id = ? AND subscription_status = ?", userID, record.SubscriptionStatus).
		Updates(map[string]any{
			"subscription_status": models.SubscriptionFree,
			"subscription_expiry": nil,
			"updated_at":          now,
		})
	if res.Error != nil {
		return models.Entitlement{}, fmt.Errorf("entitlement: normalize record: %w", res.Error)
	}

	if errReload := e.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error; errReload != nil {
		return models.Entitlement{}, fmt.Errorf("entitlement: reload record: %w", errReload)
	}
	return record, nil
}

// Consume deducts one free generation after a confirmed success and returns
// the remaining free count. Callers invoke it only when the prior Evaluate
// reported the free tier; it re-checks state so a subscription activated in
// between, or an already-exhausted counter, results in no change.
func (e *Engine) Consume(ctx context.Context, userID string) (int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, ErrMissingUserID
	}

	now := e.nowFn().UTC()

	// Conditional decrement: the counter guard makes the read-modify-write
	// atomic per record, so two requests racing on the last free unit
	// cannot both succeed.
	res := e.db.WithContext(ctx).Model(&models.Entitlement{}).
		Where("user_id = ? AND subscription_status = ? AND free_generations_remaining > 0",
			userID, models.SubscriptionFree).
		Updates(map[string]any{
			"free_generations_remaining": gorm.Expr("free_generations_remaining - 1"),
			"updated_at":                 now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("entitlement: consume: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, nil
	}

	var record models.Entitlement
	if errFind := e.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error; errFind != nil {
		return 0, fmt.Errorf("entitlement: reload record: %w", errFind)
	}
	if record.FreeGenerationsRemaining < 0 {
		return 0, nil
	}
	return record.FreeGenerationsRemaining, nil
}

// Subscribe activates a paid plan for the user, creating the record when
// absent. The expiry is computed with calendar arithmetic from the current
// time. Existing free credits are left untouched.
func (e *Engine) Subscribe(ctx context.Context, userID, plan string) (models.SubscriptionStatus, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, ErrMissingUserID
	}
	status, ok := models.ParsePlan(plan)
	if !ok {
		return "", time.Time{}, ErrInvalidPlan
	}

	now := e.nowFn().UTC()
	var expiry time.Time
	switch status {
	case models.SubscriptionMonthly:
		expiry = now.AddDate(0, 1, 0)
	case models.SubscriptionQuarterly:
		expiry = now.AddDate(0, 3, 0)
	case models.SubscriptionYearly:
		expiry = now.AddDate(1, 0, 0)
	}

	record := models.Entitlement{
		UserID:                   userID,
		FreeGenerationsRemaining: e.freeQuota,
		SubscriptionStatus:       status,
		SubscriptionExpiry:       &expiry,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if errUpsert := e.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"subscription_status", "subscription_expiry", "updated_at",
		}),
	}).Create(&record).Error; errUpsert != nil {
		return "", time.Time{}, fmt.Errorf("entitlement: subscribe: %w", errUpsert)
	}
	return status, expiry, nil
}
