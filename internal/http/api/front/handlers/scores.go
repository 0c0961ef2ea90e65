package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizforge/quizforge-api/internal/models"
	"gorm.io/gorm"
)

// ScoreHandler serves score submission and history endpoints.
type ScoreHandler struct {
	db *gorm.DB
}

// NewScoreHandler constructs a ScoreHandler.
func NewScoreHandler(database *gorm.DB) *ScoreHandler {
	return &ScoreHandler{db: database}
}

type createScoreRequest struct {
	UserID       string `json:"user_id"`
	ArtifactType string `json:"artifact_type"`
	ShortID      string `json:"short_id"`
	Score        int    `json:"score"`
	Total        int    `json:"total"`
}

// Create records a score against an existing quiz or mock test.
func (h *ScoreHandler) Create(c *gin.Context) {
	var req createScoreRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	userID := resolveUserID(c, req.UserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	artifactType := models.ArtifactType(strings.TrimSpace(req.ArtifactType))
	var table string
	switch artifactType {
	case models.ArtifactQuiz:
		table = "quizzes"
	case models.ArtifactMockTest:
		table = "mock_tests"
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "artifact_type must be quiz or mock_test"})
		return
	}

	shortID := strings.TrimSpace(req.ShortID)
	if shortID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "short_id is required"})
		return
	}
	if req.Total <= 0 || req.Score < 0 || req.Score > req.Total {
		c.JSON(http.StatusBadRequest, gin.H{"error": "score must be between 0 and total"})
		return
	}

	var count int64
	if errCount := h.db.WithContext(c.Request.Context()).Table(table).
		Where("short_id = ?", shortID).Count(&count).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query artifact failed"})
		return
	}
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": string(artifactType) + " not found"})
		return
	}

	score := models.Score{
		UserID:       userID,
		ArtifactType: artifactType,
		ShortID:      shortID,
		Score:        req.Score,
		Total:        req.Total,
		CreatedAt:    time.Now().UTC(),
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&score).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save score failed"})
		return
	}
	c.JSON(http.StatusCreated, formatScore(&score))
}

// ListByUser returns a user's scores, newest first.
func (h *ScoreHandler) ListByUser(c *gin.Context) {
	userID := pathUserID(c)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	limit, offset := parseListParams(c)

	query := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID)
	if raw := strings.TrimSpace(c.Query("artifact_type")); raw != "" {
		query = query.Where("artifact_type = ?", raw)
	}

	var rows []models.Score
	if errFind := query.Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list scores failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatScore(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"scores": out})
}

func formatScore(score *models.Score) gin.H {
	return gin.H{
		"id":            score.ID,
		"user_id":       score.UserID,
		"artifact_type": score.ArtifactType,
		"short_id":      score.ShortID,
		"score":         score.Score,
		"total":         score.Total,
		"created_at":    score.CreatedAt,
	}
}
