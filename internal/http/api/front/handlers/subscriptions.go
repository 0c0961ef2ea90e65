package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizforge/quizforge-api/internal/entitlement"
	"github.com/quizforge/quizforge-api/internal/models"
)

// SubscriptionHandler serves entitlement lookup and plan purchase endpoints.
type SubscriptionHandler struct {
	meter *entitlement.Engine
}

// NewSubscriptionHandler constructs a SubscriptionHandler.
func NewSubscriptionHandler(meter *entitlement.Engine) *SubscriptionHandler {
	return &SubscriptionHandler{meter: meter}
}

// Info returns the user's current subscription state, creating the
// entitlement record on first touch.
func (h *SubscriptionHandler) Info(c *gin.Context) {
	userID := pathUserID(c)
	record, errLookup := h.meter.Lookup(c.Request.Context(), userID)
	if errLookup != nil {
		if errors.Is(errLookup, entitlement.ErrMissingUserID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query subscription failed"})
		return
	}

	remaining := record.FreeGenerationsRemaining
	if record.SubscriptionStatus != models.SubscriptionFree {
		remaining = 0
	}
	out := gin.H{
		"user_id":             record.UserID,
		"subscription_status": record.SubscriptionStatus,
		"remaining_free":      remaining,
	}
	if record.SubscriptionExpiry != nil {
		out["subscription_expiry"] = record.SubscriptionExpiry
	}
	c.JSON(http.StatusOK, out)
}

type subscribeRequest struct {
	UserID string `json:"user_id"`
	Plan   string `json:"plan"`
}

// Subscribe activates a paid plan for the user.
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	userID := resolveUserID(c, req.UserID)

	status, expiry, errSub := h.meter.Subscribe(c.Request.Context(), userID, req.Plan)
	if errSub != nil {
		switch {
		case errors.Is(errSub, entitlement.ErrMissingUserID):
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		case errors.Is(errSub, entitlement.ErrInvalidPlan):
			c.JSON(http.StatusBadRequest, gin.H{"error": "plan must be monthly, quarterly, or yearly"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "subscribe failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":             userID,
		"subscription_status": status,
		"subscription_expiry": expiry,
	})
}
