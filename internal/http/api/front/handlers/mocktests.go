package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizforge/quizforge-api/internal/entitlement"
	"github.com/quizforge/quizforge-api/internal/events"
	"github.com/quizforge/quizforge-api/internal/generator"
	"github.com/quizforge/quizforge-api/internal/models"
	"github.com/quizforge/quizforge-api/internal/ratelimit"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MockTestHandler serves mock test generation and retrieval endpoints.
type MockTestHandler struct {
	db        *gorm.DB
	generator generator.Client
	meter     *entitlement.Engine
	limiter   *ratelimit.Manager
	recorder  *events.Recorder
}

// NewMockTestHandler constructs a MockTestHandler.
func NewMockTestHandler(database *gorm.DB, client generator.Client, meter *entitlement.Engine, limiter *ratelimit.Manager, recorder *events.Recorder) *MockTestHandler {
	return &MockTestHandler{db: database, generator: client, meter: meter, limiter: limiter, recorder: recorder}
}

type createMockTestRequest struct {
	UserID        string   `json:"user_id"`
	Subject       string   `json:"subject"`
	Topics        []string `json:"topics"`
	Difficulty    string   `json:"difficulty"`
	QuestionCount int      `json:"question_count"`
}

// Create generates a sectioned mock test for a subject.
func (h *MockTestHandler) Create(c *gin.Context) {
	start := time.Now()

	var req createMockTestRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	userID := resolveUserID(c, req.UserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject is required"})
		return
	}

	key := ratelimit.KeyForUser(userID)
	limited, errLimit := h.limiter.Allow(c.Request.Context(), key)
	if errLimit != nil {
		// Fail open, but keep limiter faults visible.
		log.WithError(errLimit).WithField("user_id", userID).Warn("mock test: rate limit check failed, allowing request")
	} else if !limited.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	decision, errEval := h.meter.Evaluate(c.Request.Context(), userID)
	if errEval != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "evaluate entitlement failed"})
		return
	}
	if !decision.Allowed {
		c.JSON(http.StatusForbidden, gin.H{
			"error":               "free generation limit reached",
			"subscription_status": decision.Status,
			"remaining_free":      0,
		})
		return
	}

	payload, usedFallback := h.generateMockTest(c, userID, subject, req.Topics, req.Difficulty, req.QuestionCount)
	cleaned, errSanitize := generator.SanitizeMockTest(payload, subject)
	if errSanitize != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generation produced no valid questions"})
		return
	}

	sectionsJSON, errMarshal := json.Marshal(cleaned.Sections)
	if errMarshal != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode mock test failed"})
		return
	}

	shortID, errShort := newShortID(h.db.WithContext(c.Request.Context()), "mock_tests")
	if errShort != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "allocate mock test id failed"})
		return
	}
	test := models.MockTest{
		TestID:          uuid.NewString(),
		ShortID:         shortID,
		UserID:          userID,
		Subject:         cleaned.Subject,
		DurationMinutes: cleaned.DurationMinutes,
		TotalMarks:      cleaned.TotalMarks,
		Sections:        datatypes.JSON(sectionsJSON),
		CreatedAt:       time.Now().UTC(),
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&test).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save mock test failed"})
		return
	}

	remaining := decision.RemainingFree
	if decision.Status == models.SubscriptionFree {
		left, errConsume := h.meter.Consume(c.Request.Context(), userID)
		if errConsume != nil {
			log.WithError(errConsume).WithField("user_id", userID).Warn("mock test: consume free generation failed")
		} else {
			remaining = left
		}
	} else {
		remaining = 0
	}

	h.recorder.Record(userID, string(models.ArtifactMockTest), shortID, "topic", usedFallback, time.Since(start))

	c.JSON(http.StatusCreated, gin.H{
		"mock_test":           formatMockTest(&test),
		"subscription_status": decision.Status,
		"remaining_free":      remaining,
	})
}

func (h *MockTestHandler) generateMockTest(c *gin.Context, userID, subject string, topics []string, difficulty string, questionCount int) (generator.MockTestPayload, bool) {
	prompt := generator.BuildMockTestPrompt(subject, topics, difficulty, questionCount)
	raw, errGen := h.generator.Generate(c.Request.Context(), prompt)
	if errGen != nil {
		log.WithError(errGen).WithField("user_id", userID).Warn("mock test: generation failed, serving placeholder")
		return generator.FallbackMockTest(subject), true
	}
	payload, errParse := generator.ParseMockTestPayload(raw)
	if errParse != nil {
		log.WithError(errParse).WithField("user_id", userID).Warn("mock test: unparseable model output, serving placeholder")
		return generator.FallbackMockTest(subject), true
	}
	return payload, false
}

// Get returns a mock test by its short ID.
func (h *MockTestHandler) Get(c *gin.Context) {
	shortID := strings.TrimSpace(c.Param("short_id"))
	var test models.MockTest
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("short_id = ?", shortID).First(&test).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "mock test not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query mock test failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mock_test": formatMockTest(&test)})
}

// ListByUser returns a user's mock tests, newest first.
func (h *MockTestHandler) ListByUser(c *gin.Context) {
	userID := pathUserID(c)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	limit, offset := parseListParams(c)

	var rows []models.MockTest
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list mock tests failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, gin.H{
			"short_id":         rows[i].ShortID,
			"subject":          rows[i].Subject,
			"duration_minutes": rows[i].DurationMinutes,
			"total_marks":      rows[i].TotalMarks,
			"created_at":       rows[i].CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"mock_tests": out})
}

func formatMockTest(test *models.MockTest) gin.H {
	return gin.H{
		"short_id":         test.ShortID,
		"user_id":          test.UserID,
		"subject":          test.Subject,
		"duration_minutes": test.DurationMinutes,
		"total_marks":      test.TotalMarks,
		"sections":         json.RawMessage(test.Sections),
		"created_at":       test.CreatedAt,
	}
}
