package generator

import (
	"errors"
	"strings"
	"testing"
)

func TestParseQuizPayloadPlainJSON(t *testing.T) {
	raw := `{"title":"Go Basics","questions":[{"question":"What declares a variable?","options":["var","int","func","go"],"answer":"var"}],"flashcards":[{"front":"var","back":"declares a variable"}]}`
	payload, err := ParseQuizPayload(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if payload.Title != "Go Basics" {
		t.Fatalf("unexpected title %q", payload.Title)
	}
	if len(payload.Questions) != 1 || len(payload.Flashcards) != 1 {
		t.Fatalf("unexpected payload shape: %+v", payload)
	}
}

func TestParseQuizPayloadFencedOutput(t *testing.T) {
	raw := "```json\n{\"title\":\"Fenced\",\"questions\":[],\"flashcards\":[]}\n```"
	payload, err := ParseQuizPayload(raw)
	if err != nil {
		t.Fatalf("parse fenced: %v", err)
	}
	if payload.Title != "Fenced" {
		t.Fatalf("unexpected title %q", payload.Title)
	}
}

func TestParseQuizPayloadSurroundingProse(t *testing.T) {
	raw := "Here is your quiz:\n{\"title\":\"Prose\",\"questions\":[],\"flashcards\":[]}\nEnjoy!"
	payload, err := ParseQuizPayload(raw)
	if err != nil {
		t.Fatalf("parse with prose: %v", err)
	}
	if payload.Title != "Prose" {
		t.Fatalf("unexpected title %q", payload.Title)
	}
}

func TestParseQuizPayloadNotJSON(t *testing.T) {
	if _, err := ParseQuizPayload("I cannot help with that."); err == nil {
		t.Fatalf("expected error for non-json output")
	}
}

func TestSanitizeQuizDropsInvalidQuestions(t *testing.T) {
	payload := QuizPayload{
		Title: "  Mixed  ",
		Questions: []Question{
			{Question: "Valid?", Options: []string{"yes", "no"}, Answer: "yes"},
			{Question: "", Options: []string{"a", "b"}, Answer: "a"},
			{Question: "One option", Options: []string{"only"}, Answer: "only"},
			{Question: "Answer mismatch", Options: []string{"a", "b"}, Answer: "c"},
		},
		Flashcards: []Flashcard{
			{Front: "keep", Back: "me"},
			{Front: "", Back: "dropped"},
		},
	}
	cleaned, err := SanitizeQuiz(payload, "fallback")
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if len(cleaned.Questions) != 1 {
		t.Fatalf("expected 1 surviving question, got %d", len(cleaned.Questions))
	}
	if len(cleaned.Flashcards) != 1 {
		t.Fatalf("expected 1 surviving flashcard, got %d", len(cleaned.Flashcards))
	}
	if cleaned.Title != "Mixed" {
		t.Fatalf("expected trimmed title, got %q", cleaned.Title)
	}
}

func TestSanitizeQuizAllInvalid(t *testing.T) {
	payload := QuizPayload{Questions: []Question{{Question: "x", Options: []string{"a"}, Answer: "a"}}}
	if _, err := SanitizeQuiz(payload, "fallback"); !errors.Is(err, ErrNoValidQuestions) {
		t.Fatalf("expected ErrNoValidQuestions, got %v", err)
	}
}

func TestSanitizeMockTestFillsDefaults(t *testing.T) {
	payload := MockTestPayload{
		Sections: []Section{
			{Name: "", Questions: []Question{{Question: "Q1?", Options: []string{"a", "b"}, Answer: "a"}}},
			{Name: "Empty", Questions: []Question{{Question: "", Options: nil, Answer: ""}}},
		},
	}
	cleaned, err := SanitizeMockTest(payload, "Physics")
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if len(cleaned.Sections) != 1 {
		t.Fatalf("expected empty section dropped, got %d sections", len(cleaned.Sections))
	}
	if cleaned.Sections[0].Name != "Section 1" {
		t.Fatalf("expected default section name, got %q", cleaned.Sections[0].Name)
	}
	if cleaned.Subject != "Physics" {
		t.Fatalf("expected fallback subject, got %q", cleaned.Subject)
	}
	if cleaned.DurationMinutes <= 0 || cleaned.TotalMarks <= 0 {
		t.Fatalf("expected positive defaults, got %d/%d", cleaned.DurationMinutes, cleaned.TotalMarks)
	}
}

func TestFallbackQuizIsValid(t *testing.T) {
	payload := FallbackQuiz("History")
	cleaned, err := SanitizeQuiz(payload, "History")
	if err != nil {
		t.Fatalf("fallback quiz must survive sanitization: %v", err)
	}
	if !strings.Contains(cleaned.Title, "History") {
		t.Fatalf("expected topic in title, got %q", cleaned.Title)
	}
}

func TestClampQuestionCount(t *testing.T) {
	if got := ClampQuestionCount(0); got != DefaultQuestionCount {
		t.Fatalf("expected default count, got %d", got)
	}
	if got := ClampQuestionCount(500); got != MaxQuestionCount {
		t.Fatalf("expected capped count, got %d", got)
	}
	if got := ClampQuestionCount(7); got != 7 {
		t.Fatalf("expected passthrough, got %d", got)
	}
}
