package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizforge/quizforge-api/internal/db"
	"github.com/quizforge/quizforge-api/internal/entitlement"
	"github.com/quizforge/quizforge-api/internal/events"
	"github.com/quizforge/quizforge-api/internal/generator"
	"github.com/quizforge/quizforge-api/internal/models"
	"github.com/quizforge/quizforge-api/internal/pdftext"
	"github.com/quizforge/quizforge-api/internal/ratelimit"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxUploadBytes = 16 << 20

// QuizHandler serves quiz generation and retrieval endpoints.
type QuizHandler struct {
	db        *gorm.DB
	generator generator.Client
	meter     *entitlement.Engine
	limiter   *ratelimit.Manager
	recorder  *events.Recorder
}

// NewQuizHandler constructs a QuizHandler.
func NewQuizHandler(database *gorm.DB, client generator.Client, meter *entitlement.Engine, limiter *ratelimit.Manager, recorder *events.Recorder) *QuizHandler {
	return &QuizHandler{db: database, generator: client, meter: meter, limiter: limiter, recorder: recorder}
}

type createQuizRequest struct {
	UserID        string `json:"user_id"`
	Topic         string `json:"topic"`
	Text          string `json:"text"`
	Difficulty    string `json:"difficulty"`
	QuestionCount int    `json:"question_count"`
}

// quizInput is the normalized creation input regardless of transport.
type quizInput struct {
	userID        string
	source        string
	sourceType    string
	label         string
	difficulty    string
	questionCount int
}

// Create generates a quiz from a topic, pasted text, or an uploaded file.
func (h *QuizHandler) Create(c *gin.Context) {
	start := time.Now()

	input, ok := h.parseCreateInput(c)
	if !ok {
		return
	}

	key := ratelimit.KeyForUser(input.userID)
	limited, errLimit := h.limiter.Allow(c.Request.Context(), key)
	if errLimit != nil {
		// Fail open, but keep limiter faults visible.
		log.WithError(errLimit).WithField("user_id", input.userID).Warn("quiz: rate limit check failed, allowing request")
	} else if !limited.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	decision, errEval := h.meter.Evaluate(c.Request.Context(), input.userID)
	if errEval != nil {
		if errors.Is(errEval, entitlement.ErrMissingUserID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}
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

	payload, usedFallback := h.generateQuiz(c, input)
	cleaned, errSanitize := generator.SanitizeQuiz(payload, input.label)
	if errSanitize != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generation produced no valid questions"})
		return
	}

	questionsJSON, errQ := json.Marshal(cleaned.Questions)
	if errQ != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode quiz failed"})
		return
	}
	flashcardsJSON, errF := json.Marshal(cleaned.Flashcards)
	if errF != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode quiz failed"})
		return
	}

	shortID, errShort := newShortID(h.db.WithContext(c.Request.Context()), "quizzes")
	if errShort != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "allocate quiz id failed"})
		return
	}
	quiz := models.Quiz{
		QuizID:     uuid.NewString(),
		ShortID:    shortID,
		UserID:     input.userID,
		Title:      cleaned.Title,
		SourceType: input.sourceType,
		Difficulty: input.difficulty,
		Questions:  datatypes.JSON(questionsJSON),
		Flashcards: datatypes.JSON(flashcardsJSON),
		CreatedAt:  time.Now().UTC(),
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&quiz).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save quiz failed"})
		return
	}

	// The artifact is saved before the quota moves so a decrement can never
	// pay for content the user did not receive.
	remaining := decision.RemainingFree
	if decision.Status == models.SubscriptionFree {
		left, errConsume := h.meter.Consume(c.Request.Context(), input.userID)
		if errConsume != nil {
			log.WithError(errConsume).WithField("user_id", input.userID).Warn("quiz: consume free generation failed")
		} else {
			remaining = left
		}
	} else {
		remaining = 0
	}

	h.recorder.Record(input.userID, string(models.ArtifactQuiz), shortID, input.sourceType, usedFallback, time.Since(start))

	c.JSON(http.StatusCreated, gin.H{
		"quiz":                formatQuiz(&quiz),
		"subscription_status": decision.Status,
		"remaining_free":      remaining,
	})
}

// parseCreateInput decodes a JSON or multipart creation request. It writes
// the error response itself and reports false on failure.
func (h *QuizHandler) parseCreateInput(c *gin.Context) (quizInput, bool) {
	contentType := c.GetHeader("Content-Type")
	if strings.Contains(contentType, "multipart/form-data") {
		return h.parseMultipartInput(c)
	}

	var req createQuizRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return quizInput{}, false
	}
	userID := resolveUserID(c, req.UserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return quizInput{}, false
	}

	topic := strings.TrimSpace(req.Topic)
	text := strings.TrimSpace(req.Text)
	if (topic == "") == (text == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of topic or text is required"})
		return quizInput{}, false
	}

	input := quizInput{
		userID:        userID,
		difficulty:    req.Difficulty,
		questionCount: req.QuestionCount,
	}
	if topic != "" {
		input.source = topic
		input.sourceType = "topic"
		input.label = topic
	} else {
		input.source = text
		input.sourceType = "text"
		input.label = "Quiz from pasted text"
	}
	return input, true
}

func (h *QuizHandler) parseMultipartInput(c *gin.Context) (quizInput, bool) {
	userID := resolveUserID(c, c.PostForm("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return quizInput{}, false
	}

	fileHeader, errFile := c.FormFile("file")
	if errFile != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return quizInput{}, false
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return quizInput{}, false
	}
	file, errOpen := fileHeader.Open()
	if errOpen != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read file failed"})
		return quizInput{}, false
	}
	defer file.Close()
	data, errRead := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read file failed"})
		return quizInput{}, false
	}

	text, errExtract := pdftext.FromUpload(fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
	if errExtract != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errExtract.Error()})
		return quizInput{}, false
	}

	questionCount := 0
	if raw := strings.TrimSpace(c.PostForm("question_count")); raw != "" {
		if parsed, errAtoi := strconv.Atoi(raw); errAtoi == nil {
			questionCount = parsed
		}
	}

	return quizInput{
		userID:        userID,
		source:        text,
		sourceType:    "pdf",
		label:         "Quiz from " + fileHeader.Filename,
		difficulty:    c.PostForm("difficulty"),
		questionCount: questionCount,
	}, true
}

// generateQuiz calls the generator and falls back to placeholder content on
// failure. The second return value reports whether the fallback was used.
func (h *QuizHandler) generateQuiz(c *gin.Context, input quizInput) (generator.QuizPayload, bool) {
	prompt := generator.BuildQuizPrompt(input.source, input.difficulty, input.questionCount, input.sourceType != "topic")
	raw, errGen := h.generator.Generate(c.Request.Context(), prompt)
	if errGen != nil {
		log.WithError(errGen).WithField("user_id", input.userID).Warn("quiz: generation failed, serving placeholder")
		return generator.FallbackQuiz(input.label), true
	}
	payload, errParse := generator.ParseQuizPayload(raw)
	if errParse != nil {
		log.WithError(errParse).WithField("user_id", input.userID).Warn("quiz: unparseable model output, serving placeholder")
		return generator.FallbackQuiz(input.label), true
	}
	return payload, false
}

// Get returns a quiz by its short ID.
func (h *QuizHandler) Get(c *gin.Context) {
	shortID := strings.TrimSpace(c.Param("short_id"))
	var quiz models.Quiz
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("short_id = ?", shortID).First(&quiz).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "quiz not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query quiz failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"quiz": formatQuiz(&quiz)})
}

// ListByUser returns a user's quizzes, newest first, with optional title
// search.
func (h *QuizHandler) ListByUser(c *gin.Context) {
	userID := pathUserID(c)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	limit, offset := parseListParams(c)

	query := h.db.WithContext(c.Request.Context()).Model(&models.Quiz{}).
		Where("user_id = ?", userID)
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := db.NormalizeLikePattern(h.db, "%"+search+"%")
		query = query.Where(db.CaseInsensitiveLikeExpr(h.db, "title"), pattern)
	}

	var rows []models.Quiz
	if errFind := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list quizzes failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatQuizSummary(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"quizzes": out})
}

func formatQuiz(quiz *models.Quiz) gin.H {
	return gin.H{
		"short_id":    quiz.ShortID,
		"user_id":     quiz.UserID,
		"title":       quiz.Title,
		"source_type": quiz.SourceType,
		"difficulty":  quiz.Difficulty,
		"questions":   json.RawMessage(quiz.Questions),
		"flashcards":  json.RawMessage(quiz.Flashcards),
		"created_at":  quiz.CreatedAt,
	}
}

func formatQuizSummary(quiz *models.Quiz) gin.H {
	return gin.H{
		"short_id":    quiz.ShortID,
		"title":       quiz.Title,
		"source_type": quiz.SourceType,
		"difficulty":  quiz.Difficulty,
		"created_at":  quiz.CreatedAt,
	}
}
