package generator

import (
	"fmt"
	"strings"
)

// DefaultQuestionCount is used when the request does not specify one.
const DefaultQuestionCount = 10

// MaxQuestionCount caps the per-request question count.
const MaxQuestionCount = 30

// MaxSourceChars bounds how much extracted source text reaches the prompt.
const MaxSourceChars = 20000

// ClampQuestionCount normalizes a requested question count into range.
func ClampQuestionCount(n int) int {
	if n <= 0 {
		return DefaultQuestionCount
	}
	if n > MaxQuestionCount {
		return MaxQuestionCount
	}
	return n
}

// BuildQuizPrompt renders the generation prompt for a quiz. The source is
// either a bare topic or a block of extracted text.
func BuildQuizPrompt(source, difficulty string, questionCount int, fromText bool) string {
	questionCount = ClampQuestionCount(questionCount)
	difficulty = normalizeDifficulty(difficulty)
	source = clampSource(source)

	var sb strings.Builder
	sb.WriteString("You are a quiz author. Produce strictly valid JSON with this shape:\n")
	sb.WriteString(`{"title": string, "questions": [{"question": string, "options": [string, ...], "answer": string, "explanation": string}], "flashcards": [{"front": string, "back": string}]}` + "\n")
	fmt.Fprintf(&sb, "Write %d multiple-choice questions at %s difficulty, each with exactly 4 options where \"answer\" matches one option verbatim, plus %d flashcards covering the key facts.\n", questionCount, difficulty, questionCount)
	sb.WriteString("Return only the JSON object with no surrounding prose or markdown fences.\n")
	if fromText {
		sb.WriteString("Base every question only on the following source material:\n\n")
		sb.WriteString(source)
	} else {
		sb.WriteString("Topic: ")
		sb.WriteString(source)
	}
	return sb.String()
}

// BuildMockTestPrompt renders the generation prompt for an exam-style mock
// test with multiple sections. Topics, when present, constrain coverage.
func BuildMockTestPrompt(subject string, topics []string, difficulty string, questionCount int) string {
	questionCount = ClampQuestionCount(questionCount)
	difficulty = normalizeDifficulty(difficulty)

	var sb strings.Builder
	sb.WriteString("You are an exam author. Produce strictly valid JSON with this shape:\n")
	sb.WriteString(`{"subject": string, "duration_minutes": number, "total_marks": number, "sections": [{"name": string, "questions": [{"question": string, "options": [string, ...], "answer": string, "explanation": string}]}]}` + "\n")
	fmt.Fprintf(&sb, "Write a timed mock test on %q at %s difficulty with %d questions split across 2 or 3 named sections. Each question has exactly 4 options and \"answer\" matches one option verbatim.\n", subject, difficulty, questionCount)
	if cleaned := cleanTopics(topics); len(cleaned) > 0 {
		fmt.Fprintf(&sb, "Cover only these topics: %s.\n", strings.Join(cleaned, ", "))
	}
	sb.WriteString("Return only the JSON object with no surrounding prose or markdown fences.\n")
	return sb.String()
}

func cleanTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, topic := range topics {
		if topic = strings.TrimSpace(topic); topic != "" {
			out = append(out, topic)
		}
	}
	return out
}

func normalizeDifficulty(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "easy":
		return "easy"
	case "hard":
		return "hard"
	default:
		return "medium"
	}
}

func clampSource(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > MaxSourceChars {
		return s[:MaxSourceChars]
	}
	return s
}
