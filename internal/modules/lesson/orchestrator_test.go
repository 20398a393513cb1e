package lesson

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/clients/llm"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/domain"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/logger"
)

// scriptedInvoker answers controller calls (requests carrying tools) from a
// fixed script and sub-agent calls with canned content.
type scriptedInvoker struct {
	script          []llm.Message
	controllerCalls []llm.Request
	subAgentCalls   []llm.Request
	controllerErr   error
}

func (f *scriptedInvoker) Invoke(_ context.Context, req llm.Request) (*llm.Message, error) {
	if len(req.Tools) > 0 {
		f.controllerCalls = append(f.controllerCalls, req)
		if f.controllerErr != nil {
			return nil, f.controllerErr
		}
		idx := len(f.controllerCalls) - 1
		if idx >= len(f.script) {
			return nil, fmt.Errorf("script exhausted at controller turn %d", idx+1)
		}
		msg := f.script[idx]
		return &msg, nil
	}
	f.subAgentCalls = append(f.subAgentCalls, req)
	return &llm.Message{Role: llm.RoleAssistant, Content: "Generated body with several words inside."}, nil
}

func toolCallTurn(id, name, args string) llm.Message {
	return llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{{
			ID:       id,
			Type:     "function",
			Function: llm.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func testPlan() *domain.CoursePlan {
	return &domain.CoursePlan{
		CourseID:    "c1",
		Title:       "Signals and Systems",
		Description: "Introductory signal processing.",
		Chapters: []domain.Chapter{{
			ID:          "ch1",
			Title:       "Fourier Basics",
			Description: "Transforms and spectra.",
			Lessons: []domain.Lesson{{
				ID:          "l1",
				Title:       "The Fourier Series",
				Description: "Periodic signals as sums of sinusoids.",
				Topics:      []string{"periodicity", "harmonics"},
			}},
		}},
	}
}

func newTestService(inv llm.Invoker, mutate func(*Config)) *Service {
	cfg := DefaultConfig()
	cfg.InvokeRetryDelay = 0
	if mutate != nil {
		mutate(&cfg)
	}
	svc := NewService(logger.NewNop(), inv, cfg)
	svc.sleep = func(time.Duration) {}
	return svc
}

func TestRunCompletesLesson(t *testing.T) {
	inv := &scriptedInvoker{script: []llm.Message{
		toolCallTurn("call_1", toolNameGenerate, `{"prompt":"write it","section_id":"1"}`),
		toolCallTurn("call_2", toolNameAssess, `{"prompt":"check length"}`),
		toolCallTurn("call_3", toolNameComplete, `{"reason":"approved after one round"}`),
	}}
	svc := newTestService(inv, nil)

	res, err := svc.Run(context.Background(), testPlan(), "ch1", "l1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.CourseID != "c1" || res.ChapterID != "ch1" || res.LessonID != "l1" {
		t.Fatalf("result ids: %+v", res)
	}
	if res.Sections["1"] == "" || res.Counts["1"] != 1 {
		t.Fatalf("sections=%v counts=%v", res.Sections, res.Counts)
	}

	// The second controller turn must see the first turn's tool result paired
	// by id after the assistant message that requested it.
	second := inv.controllerCalls[1]
	if len(second.Messages) != 2 {
		t.Fatalf("turn 2 history length = %d, want 2", len(second.Messages))
	}
	if second.Messages[0].Role != llm.RoleAssistant || second.Messages[0].ToolCalls[0].ID != "call_1" {
		t.Fatalf("turn 2 history[0]: %+v", second.Messages[0])
	}
	if second.Messages[1].Role != llm.RoleTool || second.Messages[1].ToolCallID != "call_1" {
		t.Fatalf("turn 2 history[1]: %+v", second.Messages[1])
	}
	if !strings.Contains(second.Messages[1].Content, "Successfully generated content for section 1") {
		t.Fatalf("tool result: %q", second.Messages[1].Content)
	}
}

func TestRunFreshSessionPerTask(t *testing.T) {
	script := []llm.Message{
		toolCallTurn("call_1", toolNameGenerate, `{"prompt":"write","section_id":"1"}`),
		toolCallTurn("call_2", toolNameComplete, `{"reason":"done"}`),
	}
	inv := &scriptedInvoker{script: append(append([]llm.Message{}, script...), script...)}
	svc := newTestService(inv, nil)

	for run := 0; run < 2; run++ {
		if _, err := svc.Run(context.Background(), testPlan(), "ch1", "l1"); err != nil {
			t.Fatalf("run %d: %v", run+1, err)
		}
	}

	// Run 2's first prompt must not know about run 1's sections.
	first := inv.controllerCalls[2]
	if !strings.Contains(first.System, "There are no lesson sections yet.") {
		t.Fatal("second task inherited sections from the first")
	}
	if len(first.Messages) != 0 {
		t.Fatalf("second task inherited %d messages", len(first.Messages))
	}
}

func TestRunRewriteCapAdvisory(t *testing.T) {
	gen := `{"prompt":"again","section_id":"2"}`
	inv := &scriptedInvoker{script: []llm.Message{
		toolCallTurn("call_1", toolNameGenerate, gen),
		toolCallTurn("call_2", toolNameGenerate, gen),
		toolCallTurn("call_3", toolNameGenerate, gen),
		toolCallTurn("call_4", toolNameComplete, `{"reason":"done"}`),
	}}
	svc := newTestService(inv, nil)

	res, err := svc.Run(context.Background(), testPlan(), "ch1", "l1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Counts["2"] != 3 {
		t.Fatalf("counts[2] = %d, want 3", res.Counts["2"])
	}

	fourth := inv.controllerCalls[3].System
	if !strings.Contains(fourth, `Do not regenerate section "2" any further.`) {
		t.Fatalf("turn 4 prompt missing rewrite-cap advisory:\n%s", fourth)
	}
	third := inv.controllerCalls[2].System
	if strings.Contains(third, `Do not regenerate section "2" any further.`) {
		t.Fatal("advisory appeared before the cap was reached")
	}
}

func TestRunCriticalDeadlineDirective(t *testing.T) {
	inv := &scriptedInvoker{script: []llm.Message{
		toolCallTurn("call_1", toolNameComplete, `{"reason":"forced"}`),
	}}
	svc := newTestService(inv, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := svc.Run(ctx, testPlan(), "ch1", "l1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(inv.controllerCalls[0].System, "CRITICAL:") {
		t.Fatal("prompt missing critical directive with imminent deadline")
	}
}

func TestRunNoToolCallReprompts(t *testing.T) {
	chatter := llm.Message{Role: llm.RoleAssistant, Content: "Let me think about the structure."}
	inv := &scriptedInvoker{script: []llm.Message{
		chatter,
		toolCallTurn("call_1", toolNameGenerate, `{"prompt":"write","section_id":"1"}`),
		chatter,
		toolCallTurn("call_2", toolNameAssess, `{"prompt":"check"}`),
		chatter,
		toolCallTurn("call_3", toolNameComplete, `{"reason":"done"}`),
	}}
	svc := newTestService(inv, nil)

	if _, err := svc.Run(context.Background(), testPlan(), "ch1", "l1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := inv.controllerCalls[1].User; got != promptInsistGenerate {
		t.Fatalf("after no-op turn with no sections, user = %q", got)
	}
	if got := inv.controllerCalls[3].User; got != promptInsistAssess {
		t.Fatalf("after no-op turn with unassessed sections, user = %q", got)
	}
	if got := inv.controllerCalls[5].User; got != promptContinue {
		t.Fatalf("after no-op turn post-assessment, user = %q", got)
	}
}

func TestRunUnknownToolRejected(t *testing.T) {
	inv := &scriptedInvoker{script: []llm.Message{
		toolCallTurn("call_1", "delete_lesson", `{}`),
		toolCallTurn("call_2", toolNameComplete, `{"reason":"done"}`),
	}}
	svc := newTestService(inv, nil)

	if _, err := svc.Run(context.Background(), testPlan(), "ch1", "l1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	second := inv.controllerCalls[1]
	result := second.Messages[len(second.Messages)-1]
	if result.Role != llm.RoleTool || result.ToolCallID != "call_1" {
		t.Fatalf("unexpected tool result message: %+v", result)
	}
	if !strings.Contains(result.Content, `unknown tool "delete_lesson"`) {
		t.Fatalf("tool result: %q", result.Content)
	}
}

func TestRunAssessWithoutSections(t *testing.T) {
	inv := &scriptedInvoker{script: []llm.Message{
		toolCallTurn("call_1", toolNameAssess, `{"prompt":"check"}`),
		toolCallTurn("call_2", toolNameComplete, `{"reason":"done"}`),
	}}
	svc := newTestService(inv, nil)

	if _, err := svc.Run(context.Background(), testPlan(), "ch1", "l1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	second := inv.controllerCalls[1]
	result := second.Messages[len(second.Messages)-1]
	if !strings.Contains(result.Content, "no lesson content yet to assess") {
		t.Fatalf("tool result: %q", result.Content)
	}
	// The empty-lesson short circuit must not call the assessor model.
	if len(inv.subAgentCalls) != 0 {
		t.Fatalf("assessor invoked %d times on an empty lesson", len(inv.subAgentCalls))
	}
}

func TestRunEmptyAssessmentDoesNotCountAsAssessed(t *testing.T) {
	chatter := llm.Message{Role: llm.RoleAssistant, Content: "Reviewing the outline."}
	inv := &scriptedInvoker{script: []llm.Message{
		toolCallTurn("call_1", toolNameAssess, `{"prompt":"check"}`),
		toolCallTurn("call_2", toolNameGenerate, `{"prompt":"write","section_id":"1"}`),
		chatter,
		toolCallTurn("call_3", toolNameAssess, `{"prompt":"check"}`),
		toolCallTurn("call_4", toolNameComplete, `{"reason":"done"}`),
	}}
	svc := newTestService(inv, nil)

	if _, err := svc.Run(context.Background(), testPlan(), "ch1", "l1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The short-circuited assessment of an empty lesson must not satisfy the
	// re-prompt policy's "has been assessed" condition.
	if got := inv.controllerCalls[3].User; got != promptInsistAssess {
		t.Fatalf("after no-op turn, user = %q, want insist-assess", got)
	}
}

func TestRunCompletesDespiteMalformedCompletionArgs(t *testing.T) {
	inv := &scriptedInvoker{script: []llm.Message{
		toolCallTurn("call_1", toolNameGenerate, `{"prompt":"write","section_id":"1"}`),
		toolCallTurn("call_2", toolNameComplete, `not json`),
	}}
	svc := newTestService(inv, nil)

	res, err := svc.Run(context.Background(), testPlan(), "ch1", "l1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Sections["1"] == "" {
		t.Fatalf("sections = %v", res.Sections)
	}
}

func TestRunControllerFailureIsFatal(t *testing.T) {
	inv := &scriptedInvoker{controllerErr: errors.New("provider down")}
	svc := newTestService(inv, func(cfg *Config) { cfg.InvokeRetries = 2 })

	_, err := svc.Run(context.Background(), testPlan(), "ch1", "l1")
	if err == nil || !strings.Contains(err.Error(), "cannot make progress") {
		t.Fatalf("err = %v", err)
	}
	if len(inv.controllerCalls) != 2 {
		t.Fatalf("controller invocations = %d, want 2", len(inv.controllerCalls))
	}
}

func TestRunIterationCap(t *testing.T) {
	chatter := llm.Message{Role: llm.RoleAssistant, Content: "Still thinking."}
	inv := &scriptedInvoker{script: []llm.Message{chatter, chatter, chatter}}
	svc := newTestService(inv, func(cfg *Config) { cfg.MaxIterations = 3 })

	_, err := svc.Run(context.Background(), testPlan(), "ch1", "l1")
	if err == nil || !strings.Contains(err.Error(), "did not complete within 3 controller turns") {
		t.Fatalf("err = %v", err)
	}
}

func TestRunValidatesTarget(t *testing.T) {
	svc := newTestService(&scriptedInvoker{}, nil)

	if _, err := svc.Run(context.Background(), nil, "ch1", "l1"); err == nil {
		t.Fatal("expected error for nil plan")
	}
	if _, err := svc.Run(context.Background(), testPlan(), "missing", "l1"); err == nil {
		t.Fatal("expected error for unknown chapter")
	}
	if _, err := svc.Run(context.Background(), testPlan(), "ch1", "missing"); err == nil {
		t.Fatal("expected error for unknown lesson")
	}
}
