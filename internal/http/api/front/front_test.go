package front

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizforge/quizforge-api/internal/auth"
	"github.com/quizforge/quizforge-api/internal/config"
	"github.com/quizforge/quizforge-api/internal/db"
	"github.com/quizforge/quizforge-api/internal/entitlement"
	"github.com/quizforge/quizforge-api/internal/events"
	"github.com/quizforge/quizforge-api/internal/ratelimit"
	"gorm.io/gorm"
)

const testJWTSecret = "front-test-secret"

type fakeGenerator struct {
	output string
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

const validQuizOutput = `{"title":"Go Basics","questions":[{"question":"What declares a variable?","options":["var","int","func","go"],"answer":"var","explanation":"var starts a declaration"}],"flashcards":[{"front":"var","back":"declares a variable"}]}`

func newTestRouter(t *testing.T, gen *fakeGenerator, freeQuota int) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + filepath.Join(t.TempDir(), "qfa-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate database: %v", err)
	}

	meter := entitlement.NewEngine(conn, freeQuota, nil)
	limiter := ratelimit.NewManager(func() ratelimit.SettingsConfig {
		return ratelimit.SettingsConfig{Limit: 0}
	}, nil, nil)

	r := gin.New()
	RegisterFrontRoutes(r, conn, Deps{
		Generator: gen,
		Meter:     meter,
		Limiter:   limiter,
		Recorder:  events.NewRecorder(conn),
		JWT:       config.JWTConfig{Secret: testJWTSecret, Expiry: time.Hour},
	})
	return r, conn
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal request: %v", errMarshal)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		if errDecode := json.Unmarshal(w.Body.Bytes(), &out); errDecode != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), errDecode)
		}
	}
	return w, out
}

func TestCreateQuizFromTopic(t *testing.T) {
	r, _ := newTestRouter(t, &fakeGenerator{output: validQuizOutput}, 10)

	w, out := doJSON(t, r, http.MethodPost, "/v0/quizzes", map[string]any{
		"user_id": "alice",
		"topic":   "Go Basics",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if out["subscription_status"] != "free" {
		t.Fatalf("expected free status, got %v", out["subscription_status"])
	}
	if out["remaining_free"] != float64(9) {
		t.Fatalf("expected 9 remaining, got %v", out["remaining_free"])
	}
	quiz, ok := out["quiz"].(map[string]any)
	if !ok {
		t.Fatalf("expected quiz object, got %v", out["quiz"])
	}
	if quiz["title"] != "Go Basics" {
		t.Fatalf("unexpected title %v", quiz["title"])
	}
	shortID, _ := quiz["short_id"].(string)
	if len(shortID) != 8 {
		t.Fatalf("unexpected short id %q", shortID)
	}
}

func TestCreateQuizQuotaGate(t *testing.T) {
	r, _ := newTestRouter(t, &fakeGenerator{output: validQuizOutput}, 1)

	body := map[string]any{"user_id": "bob", "topic": "History"}
	w, out := doJSON(t, r, http.MethodPost, "/v0/quizzes", body, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected first request 201, got %d", w.Code)
	}
	if out["remaining_free"] != float64(0) {
		t.Fatalf("expected 0 remaining, got %v", out["remaining_free"])
	}

	w, out = doJSON(t, r, http.MethodPost, "/v0/quizzes", body, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected second request 403, got %d", w.Code)
	}
	if out["subscription_status"] != "free" {
		t.Fatalf("expected free status in denial, got %v", out["subscription_status"])
	}
}

func TestCreateQuizGeneratorFailureServesPlaceholder(t *testing.T) {
	r, _ := newTestRouter(t, &fakeGenerator{err: errors.New("upstream down")}, 10)

	w, out := doJSON(t, r, http.MethodPost, "/v0/quizzes", map[string]any{
		"user_id": "carol",
		"topic":   "Biology",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 with placeholder, got %d: %s", w.Code, w.Body.String())
	}
	// Placeholder delivery still consumes a free generation.
	if out["remaining_free"] != float64(9) {
		t.Fatalf("expected 9 remaining, got %v", out["remaining_free"])
	}
	quiz := out["quiz"].(map[string]any)
	title, _ := quiz["title"].(string)
	if !strings.Contains(title, "Biology") {
		t.Fatalf("expected topic in placeholder title, got %q", title)
	}
}

func TestCreateQuizAllQuestionsInvalid(t *testing.T) {
	// Parseable JSON whose questions all fail validation must not be saved.
	bad := `{"title":"Bad","questions":[{"question":"x","options":["a"],"answer":"b"}],"flashcards":[]}`
	r, conn := newTestRouter(t, &fakeGenerator{output: bad}, 10)

	w, _ := doJSON(t, r, http.MethodPost, "/v0/quizzes", map[string]any{
		"user_id": "dave",
		"topic":   "Math",
	}, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}

	var count int64
	if err := conn.Table("quizzes").Count(&count).Error; err != nil {
		t.Fatalf("count quizzes: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no quiz saved, got %d", count)
	}

	// The failed attempt must not consume quota.
	w, out := doJSON(t, r, http.MethodGet, "/v0/users/dave/subscription", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if out["remaining_free"] != float64(10) {
		t.Fatalf("expected 10 remaining after failed generation, got %v", out["remaining_free"])
	}
}

func TestCreateQuizInputValidation(t *testing.T) {
	r, _ := newTestRouter(t, &fakeGenerator{output: validQuizOutput}, 10)

	w, _ := doJSON(t, r, http.MethodPost, "/v0/quizzes", map[string]any{"topic": "Go"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing user_id, got %d", w.Code)
	}

	w, _ = doJSON(t, r, http.MethodPost, "/v0/quizzes", map[string]any{"user_id": "erin"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing source, got %d", w.Code)
	}

	w, _ = doJSON(t, r, http.MethodPost, "/v0/quizzes", map[string]any{
		"user_id": "erin", "topic": "Go", "text": "both",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for both topic and text, got %d", w.Code)
	}
}

func TestGetQuizNotFound(t *testing.T) {
	r, _ := newTestRouter(t, &fakeGenerator{output: validQuizOutput}, 10)
	w, _ := doJSON(t, r, http.MethodGet, "/v0/quizzes/zzzzzzzz", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestSubscriptionInfoFirstTouch(t *testing.T) {
	r, _ := newTestRouter(t, &fakeGenerator{output: validQuizOutput}, 10)

	w, out := doJSON(t, r, http.MethodGet, "/v0/users/frank/subscription", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if out["subscription_status"] != "free" {
		t.Fatalf("expected free, got %v", out["subscription_status"])
	}
	if out["remaining_free"] != float64(10) {
		t.Fatalf("expected 10 remaining, got %v", out["remaining_free"])
	}
}

func TestSubscribeAndBypassQuota(t *testing.T) {
	r, _ := newTestRouter(t, &fakeGenerator{output: validQuizOutput}, 1)

	w, out := doJSON(t, r, http.MethodPost, "/v0/subscriptions", map[string]any{
		"user_id": "grace", "plan": "monthly",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if out["subscription_status"] != "monthly" {
		t.Fatalf("expected monthly, got %v", out["subscription_status"])
	}
	if out["subscription_expiry"] == nil {
		t.Fatalf("expected expiry in response")
	}

	// A subscriber generates past the free quota.
	body := map[string]any{"user_id": "grace", "topic": "Go"}
	for i := 0; i < 3; i++ {
		w, out = doJSON(t, r, http.MethodPost, "/v0/quizzes", body, nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201 on request %d, got %d", i, w.Code)
		}
		if out["subscription_status"] != "monthly" {
			t.Fatalf("expected monthly status, got %v", out["subscription_status"])
		}
	}
}

func TestSubscribeInvalidPlan(t *testing.T) {
	r, _ := newTestRouter(t, &fakeGenerator{output: validQuizOutput}, 10)
	w, _ := doJSON(t, r, http.MethodPost, "/v0/subscriptions", map[string]any{
		"user_id": "henry", "plan": "weekly",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestBearerTokenPinsIdentity(t *testing.T) {
	r, _ := newTestRouter(t, &fakeGenerator{output: validQuizOutput}, 10)

	token, err := auth.IssueUserToken(testJWTSecret, "iris", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	// The payload claims another user; the token identity must win.
	w, out := doJSON(t, r, http.MethodPost, "/v0/quizzes", map[string]any{
		"user_id": "impostor", "topic": "Go",
	}, map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	quiz := out["quiz"].(map[string]any)
	if quiz["user_id"] != "iris" {
		t.Fatalf("expected token identity iris, got %v", quiz["user_id"])
	}
}

func TestInvalidBearerTokenRejected(t *testing.T) {
	r, _ := newTestRouter(t, &fakeGenerator{output: validQuizOutput}, 10)
	w, _ := doJSON(t, r, http.MethodPost, "/v0/quizzes", map[string]any{
		"user_id": "jill", "topic": "Go",
	}, map[string]string{"Authorization": "Bearer not-a-token"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCreateMockTest(t *testing.T) {
	output := `{"subject":"Physics","duration_minutes":30,"total_marks":2,"sections":[{"name":"Mechanics","questions":[{"question":"Unit of force?","options":["newton","joule","watt","pascal"],"answer":"newton"},{"question":"Unit of work?","options":["newton","joule","watt","pascal"],"answer":"joule"}]}]}`
	r, _ := newTestRouter(t, &fakeGenerator{output: output}, 10)

	w, out := doJSON(t, r, http.MethodPost, "/v0/mock-tests", map[string]any{
		"user_id": "kate", "subject": "Physics",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	test := out["mock_test"].(map[string]any)
	if test["subject"] != "Physics" {
		t.Fatalf("unexpected subject %v", test["subject"])
	}
	if out["remaining_free"] != float64(9) {
		t.Fatalf("expected 9 remaining, got %v", out["remaining_free"])
	}

	shortID := test["short_id"].(string)
	w, out = doJSON(t, r, http.MethodGet, "/v0/mock-tests/"+shortID, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on get, got %d", w.Code)
	}
}

func TestScoreLifecycle(t *testing.T) {
	r, _ := newTestRouter(t, &fakeGenerator{output: validQuizOutput}, 10)

	_, out := doJSON(t, r, http.MethodPost, "/v0/quizzes", map[string]any{
		"user_id": "liam", "topic": "Go",
	}, nil)
	quiz := out["quiz"].(map[string]any)
	shortID := quiz["short_id"].(string)

	w, _ := doJSON(t, r, http.MethodPost, "/v0/scores", map[string]any{
		"user_id": "liam", "artifact_type": "quiz", "short_id": shortID,
		"score": 1, "total": 1,
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w, _ = doJSON(t, r, http.MethodPost, "/v0/scores", map[string]any{
		"user_id": "liam", "artifact_type": "quiz", "short_id": "missing01",
		"score": 1, "total": 1,
	}, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown artifact, got %d", w.Code)
	}

	w, _ = doJSON(t, r, http.MethodPost, "/v0/scores", map[string]any{
		"user_id": "liam", "artifact_type": "quiz", "short_id": shortID,
		"score": 5, "total": 1,
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for score above total, got %d", w.Code)
	}

	w, out = doJSON(t, r, http.MethodGet, "/v0/users/liam/scores", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	scores := out["scores"].([]any)
	if len(scores) != 1 {
		t.Fatalf("expected 1 score, got %d", len(scores))
	}
}

func TestListQuizzesWithSearch(t *testing.T) {
	r, _ := newTestRouter(t, &fakeGenerator{output: validQuizOutput}, 10)

	for i := 0; i < 2; i++ {
		w, _ := doJSON(t, r, http.MethodPost, "/v0/quizzes", map[string]any{
			"user_id": "mona", "topic": "Go",
		}, nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("seed quiz %d: got %d", i, w.Code)
		}
	}

	w, out := doJSON(t, r, http.MethodGet, "/v0/users/mona/quizzes?search=go+basics", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	quizzes := out["quizzes"].([]any)
	if len(quizzes) != 2 {
		t.Fatalf("expected 2 quizzes, got %d", len(quizzes))
	}

	w, out = doJSON(t, r, http.MethodGet, "/v0/users/mona/quizzes?search=chemistry", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	quizzes = out["quizzes"].([]any)
	if len(quizzes) != 0 {
		t.Fatalf("expected 0 quizzes for non-matching search, got %d", len(quizzes))
	}
}

func TestGenerationRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dsn := "file:" + filepath.Join(t.TempDir(), "qfa-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate database: %v", err)
	}

	// A frozen clock keeps both requests inside the same limiter window.
	frozen := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	limiter := ratelimit.NewManager(func() ratelimit.SettingsConfig {
		return ratelimit.SettingsConfig{Limit: 1}
	}, func() time.Time { return frozen }, nil)

	r := gin.New()
	RegisterFrontRoutes(r, conn, Deps{
		Generator: &fakeGenerator{output: validQuizOutput},
		Meter:     entitlement.NewEngine(conn, 10, nil),
		Limiter:   limiter,
		Recorder:  events.NewRecorder(conn),
		JWT:       config.JWTConfig{Secret: testJWTSecret, Expiry: time.Hour},
	})

	body := map[string]any{"user_id": "pete", "topic": "Go"}
	w, _ := doJSON(t, r, http.MethodPost, "/v0/quizzes", body, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected first request 201, got %d: %s", w.Code, w.Body.String())
	}
	w, out := doJSON(t, r, http.MethodPost, "/v0/quizzes", body, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request 429, got %d", w.Code)
	}
	if out["error"] != "rate limit exceeded" {
		t.Fatalf("unexpected error payload %v", out["error"])
	}
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t, &fakeGenerator{output: validQuizOutput}, 10)
	w, out := doJSON(t, r, http.MethodGet, "/healthz", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if out["status"] != "ok" {
		t.Fatalf("expected ok, got %v", out["status"])
	}
}
