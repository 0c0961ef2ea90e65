package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Question is a single multiple-choice question.
type Question struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

// Flashcard is a front/back study card.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// QuizPayload is the normalized quiz content ready for persistence.
type QuizPayload struct {
	Title      string      `json:"title"`
	Questions  []Question  `json:"questions"`
	Flashcards []Flashcard `json:"flashcards"`
}

// Section groups questions inside a mock test.
type Section struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// MockTestPayload is the normalized mock-test content ready for persistence.
type MockTestPayload struct {
	Subject         string    `json:"subject"`
	DurationMinutes int       `json:"duration_minutes"`
	TotalMarks      int       `json:"total_marks"`
	Sections        []Section `json:"sections"`
}

// ErrNoValidQuestions indicates every generated question failed validation.
var ErrNoValidQuestions = errors.New("generator: no valid questions")

// ParseQuizPayload decodes raw model output into a quiz payload, tolerating
// markdown fences and surrounding prose. It returns an error when no JSON
// object can be recovered; callers decide whether to fall back.
func ParseQuizPayload(raw string) (QuizPayload, error) {
	body, err := extractJSONObject(raw)
	if err != nil {
		return QuizPayload{}, err
	}
	var payload QuizPayload
	if errDecode := json.Unmarshal([]byte(body), &payload); errDecode != nil {
		return QuizPayload{}, fmt.Errorf("generator: decode quiz payload: %w", errDecode)
	}
	return payload, nil
}

// ParseMockTestPayload decodes raw model output into a mock-test payload.
func ParseMockTestPayload(raw string) (MockTestPayload, error) {
	body, err := extractJSONObject(raw)
	if err != nil {
		return MockTestPayload{}, err
	}
	var payload MockTestPayload
	if errDecode := json.Unmarshal([]byte(body), &payload); errDecode != nil {
		return MockTestPayload{}, fmt.Errorf("generator: decode mock test payload: %w", errDecode)
	}
	return payload, nil
}

// SanitizeQuiz drops malformed questions and returns the cleaned payload.
// A question survives when it has text, at least two options, and an answer
// matching one of its options. ErrNoValidQuestions is returned when nothing
// survives, in which case the payload must not be persisted.
func SanitizeQuiz(payload QuizPayload, fallbackTitle string) (QuizPayload, error) {
	kept := make([]Question, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		if sanitizeQuestion(&q) {
			kept = append(kept, q)
		}
	}
	if len(kept) == 0 {
		return QuizPayload{}, ErrNoValidQuestions
	}
	payload.Questions = kept

	cards := make([]Flashcard, 0, len(payload.Flashcards))
	for _, card := range payload.Flashcards {
		card.Front = strings.TrimSpace(card.Front)
		card.Back = strings.TrimSpace(card.Back)
		if card.Front != "" && card.Back != "" {
			cards = append(cards, card)
		}
	}
	payload.Flashcards = cards

	payload.Title = strings.TrimSpace(payload.Title)
	if payload.Title == "" {
		payload.Title = fallbackTitle
	}
	return payload, nil
}

// SanitizeMockTest cleans every section and drops empty sections.
func SanitizeMockTest(payload MockTestPayload, fallbackSubject string) (MockTestPayload, error) {
	sections := make([]Section, 0, len(payload.Sections))
	total := 0
	for _, section := range payload.Sections {
		kept := make([]Question, 0, len(section.Questions))
		for _, q := range section.Questions {
			if sanitizeQuestion(&q) {
				kept = append(kept, q)
			}
		}
		if len(kept) == 0 {
			continue
		}
		section.Name = strings.TrimSpace(section.Name)
		if section.Name == "" {
			section.Name = fmt.Sprintf("Section %d", len(sections)+1)
		}
		section.Questions = kept
		total += len(kept)
		sections = append(sections, section)
	}
	if total == 0 {
		return MockTestPayload{}, ErrNoValidQuestions
	}
	payload.Sections = sections

	payload.Subject = strings.TrimSpace(payload.Subject)
	if payload.Subject == "" {
		payload.Subject = fallbackSubject
	}
	if payload.DurationMinutes <= 0 {
		payload.DurationMinutes = total * 2
	}
	if payload.TotalMarks <= 0 {
		payload.TotalMarks = total
	}
	return payload, nil
}

// FallbackQuiz is the locally produced placeholder used when generation
// fails outright. It is still a valid, persistable quiz.
func FallbackQuiz(topic string) QuizPayload {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = "General knowledge"
	}
	return QuizPayload{
		Title: topic + " (placeholder)",
		Questions: []Question{{
			Question:    "Which subject does this quiz cover?",
			Options:     []string{topic, "Unrelated topic A", "Unrelated topic B", "Unrelated topic C"},
			Answer:      topic,
			Explanation: "Placeholder content produced while the generator was unavailable.",
		}},
		Flashcards: []Flashcard{{
			Front: topic,
			Back:  "Generator was unavailable; retry to get full content.",
		}},
	}
}

// FallbackMockTest mirrors FallbackQuiz for mock tests.
func FallbackMockTest(subject string) MockTestPayload {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "General knowledge"
	}
	quiz := FallbackQuiz(subject)
	return MockTestPayload{
		Subject:         subject,
		DurationMinutes: 10,
		TotalMarks:      len(quiz.Questions),
		Sections:        []Section{{Name: "Section 1", Questions: quiz.Questions}},
	}
}

func sanitizeQuestion(q *Question) bool {
	q.Question = strings.TrimSpace(q.Question)
	q.Answer = strings.TrimSpace(q.Answer)
	q.Explanation = strings.TrimSpace(q.Explanation)

	options := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		opt = strings.TrimSpace(opt)
		if opt != "" {
			options = append(options, opt)
		}
	}
	q.Options = options

	if q.Question == "" || len(q.Options) < 2 || q.Answer == "" {
		return false
	}
	for _, opt := range q.Options {
		if opt == q.Answer {
			return true
		}
	}
	return false
}

// extractJSONObject recovers the outermost JSON object from model output
// that may be wrapped in markdown fences or prose.
func extractJSONObject(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("generator: empty model output")
	}
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx >= 0 {
			raw = raw[:idx]
		}
		raw = strings.TrimSpace(raw)
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", errors.New("generator: no json object in model output")
	}
	return raw[start : end+1], nil
}
