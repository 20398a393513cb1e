package study

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/clients/llm"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/logger"
)

// cannedInvoker returns pre-built JSON payloads in order, recording every
// request.
type cannedInvoker struct {
	payloads []string
	calls    []llm.Request
}

func (f *cannedInvoker) Invoke(_ context.Context, req llm.Request) (*llm.Message, error) {
	f.calls = append(f.calls, req)
	idx := len(f.calls) - 1
	if idx >= len(f.payloads) {
		return nil, fmt.Errorf("no payload for call %d", idx+1)
	}
	return &llm.Message{Role: llm.RoleAssistant, Content: f.payloads[idx]}, nil
}

func newTestGenerator(inv llm.Invoker) *Generator {
	g := NewGenerator(logger.NewNop(), inv, DefaultConfig())
	g.sleep = func(time.Duration) {}
	return g
}

func validQuestion(n int) map[string]any {
	return map[string]any{
		"question":    fmt.Sprintf("What is concept %d?", n),
		"options":     []any{"A", "B", "C", "D"},
		"answer":      "B",
		"explanation": "B is defined in the lesson.",
	}
}

func questionsPayload(t *testing.T, items []map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"questions": items})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return string(raw)
}

func TestGenerateQuestionsFirstAttemptSuccess(t *testing.T) {
	items := make([]map[string]any, 10)
	for i := range items {
		items[i] = validQuestion(i + 1)
	}
	inv := &cannedInvoker{payloads: []string{questionsPayload(t, items)}}
	g := newTestGenerator(inv)

	questions := g.GenerateQuestions(context.Background(), "# Lesson\nbody")
	if len(questions) != 10 {
		t.Fatalf("questions = %d, want 10", len(questions))
	}
	if len(inv.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(inv.calls))
	}
	if q := questions[0]; q.Answer != "B" || len(q.Options) != 4 {
		t.Fatalf("question[0] = %+v", q)
	}
	if inv.calls[0].Schema == nil || inv.calls[0].SchemaName != "questions" {
		t.Fatal("request missing json_schema constraint")
	}
}

func TestGenerateQuestionsAnswerMismatchFeedsBack(t *testing.T) {
	bad := make([]map[string]any, 10)
	for i := range bad {
		bad[i] = validQuestion(i + 1)
	}
	bad[4] = map[string]any{
		"question":    "What is concept 5?",
		"options":     []any{"A", "B", "C", "D"},
		"answer":      "E",
		"explanation": "E is correct.",
	}
	good := make([]map[string]any, 10)
	for i := range good {
		good[i] = validQuestion(i + 1)
	}
	inv := &cannedInvoker{payloads: []string{
		questionsPayload(t, bad),
		questionsPayload(t, good),
	}}
	g := newTestGenerator(inv)

	questions := g.GenerateQuestions(context.Background(), "lesson body")
	if len(questions) != 10 {
		t.Fatalf("questions = %d, want 10", len(questions))
	}
	if len(inv.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(inv.calls))
	}

	retry := inv.calls[1].User
	if !strings.Contains(retry, "This is attempt 2 of 3") {
		t.Fatalf("retry prompt missing attempt header:\n%s", retry)
	}
	if !strings.Contains(retry, "does not exactly match any of its options") {
		t.Fatalf("retry prompt missing drop reason:\n%s", retry)
	}
	if !strings.Contains(retry, "only 9 valid items were produced") {
		t.Fatalf("retry prompt missing shortfall:\n%s", retry)
	}
}

func TestGenerateQuestionsExhaustionReturnsEmpty(t *testing.T) {
	short := make([]map[string]any, 9)
	for i := range short {
		short[i] = validQuestion(i + 1)
	}
	payload := questionsPayload(t, short)
	inv := &cannedInvoker{payloads: []string{payload, payload, payload}}
	g := newTestGenerator(inv)

	questions := g.GenerateQuestions(context.Background(), "lesson body")
	if len(questions) != 0 {
		t.Fatalf("questions = %d, want 0 after exhaustion", len(questions))
	}
	if len(inv.calls) != 3 {
		t.Fatalf("calls = %d, want exactly MaxAttempts", len(inv.calls))
	}
}

func TestGenerateQuestionsFinalAttemptKeepsValidSurplus(t *testing.T) {
	// 11 items where one is always malformed: every attempt yields 10 valid
	// questions plus a drop. The dropped record must not discard the
	// conforming set once attempts are spent.
	items := make([]map[string]any, 0, 11)
	for i := 0; i < 10; i++ {
		items = append(items, validQuestion(i+1))
	}
	items = append(items, map[string]any{"question": "incomplete"})
	payload := questionsPayload(t, items)
	inv := &cannedInvoker{payloads: []string{payload, payload, payload}}
	g := newTestGenerator(inv)

	questions := g.GenerateQuestions(context.Background(), "lesson body")
	if len(questions) != 10 {
		t.Fatalf("questions = %d, want the 10 valid records", len(questions))
	}
	if len(inv.calls) != 3 {
		t.Fatalf("calls = %d, want all attempts before accepting drops", len(inv.calls))
	}
}

func TestFilterRecordsIsPure(t *testing.T) {
	raw := []any{
		validQuestion(1),
		"not an object",
		map[string]any{"question": "incomplete"},
	}

	valid1, issues1 := filterRecords(raw, validateQuestion)
	valid2, issues2 := filterRecords(raw, validateQuestion)

	if len(valid1) != 1 || len(issues1) != 2 {
		t.Fatalf("valid=%d issues=%v", len(valid1), issues1)
	}
	if len(valid2) != len(valid1) || len(issues2) != len(issues1) {
		t.Fatal("filterRecords is not deterministic")
	}
	if !strings.Contains(issues1[0], "item 2 is not an object") {
		t.Fatalf("issues[0] = %q", issues1[0])
	}
}

func TestValidateQuestionRules(t *testing.T) {
	if reason := validateQuestion(validQuestion(1)); reason != "" {
		t.Fatalf("valid question rejected: %s", reason)
	}

	threeOpts := validQuestion(1)
	threeOpts["options"] = []any{"A", "B", "C"}
	if reason := validateQuestion(threeOpts); !strings.Contains(reason, "exactly 4 options") {
		t.Fatalf("reason = %q", reason)
	}

	// Membership is case-exact.
	caseMismatch := validQuestion(1)
	caseMismatch["options"] = []any{"a", "B", "C", "D"}
	caseMismatch["answer"] = "A"
	if reason := validateQuestion(caseMismatch); reason == "" {
		t.Fatal("case-mismatched answer accepted")
	}
}

func flashcardsPayload(t *testing.T, n int) string {
	t.Helper()
	items := make([]map[string]any, n)
	for i := range items {
		items[i] = map[string]any{
			"question": fmt.Sprintf("Define term %d", i+1),
			"answer":   fmt.Sprintf("Definition %d", i+1),
		}
	}
	raw, err := json.Marshal(map[string]any{"flashcards": items})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return string(raw)
}

func TestGenerateFlashcardsTruncatesExtras(t *testing.T) {
	inv := &cannedInvoker{payloads: []string{flashcardsPayload(t, 13)}}
	g := newTestGenerator(inv)

	cards := g.GenerateFlashcards(context.Background(), "lesson body")
	if len(cards) != 10 {
		t.Fatalf("cards = %d, want exactly 10", len(cards))
	}
	if cards[0].Question != "Define term 1" || cards[9].Answer != "Definition 10" {
		t.Fatalf("cards order wrong: first=%+v last=%+v", cards[0], cards[9])
	}
}

func TestGenerateFlashcardsModelFailureExhausts(t *testing.T) {
	inv := &cannedInvoker{payloads: []string{"not json", "{}", `{"flashcards": "wrong type"}`}}
	g := newTestGenerator(inv)

	cards := g.GenerateFlashcards(context.Background(), "lesson body")
	if len(cards) != 0 {
		t.Fatalf("cards = %d, want 0", len(cards))
	}
	if len(inv.calls) != 3 {
		t.Fatalf("calls = %d, want 3", len(inv.calls))
	}

	second := inv.calls[1].User
	if !strings.Contains(second, "was not valid JSON") {
		t.Fatalf("retry prompt missing parse feedback:\n%s", second)
	}
	third := inv.calls[2].User
	if !strings.Contains(third, `missing the "flashcards" array`) {
		t.Fatalf("third prompt missing array feedback:\n%s", third)
	}
}
