package lesson

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/clients/llm"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/domain"
	apperrors "github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/errors"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/logger"
)

type Config struct {
	ControllerModel string
	ContentModel    string
	AssessorModel   string

	// MaxIterations caps controller turns independent of the clock, so a
	// controller that never calls a tool cannot loop until the deadline.
	MaxIterations int

	// RewriteCap is advisory: once a section's generation count reaches it,
	// every following prompt tells the controller to leave that section alone.
	RewriteCap int

	// TargetDuration and AdvisoryAt drive the elapsed-time urgency tiers;
	// CriticalWindow is measured against the hosting deadline on the context.
	TargetDuration time.Duration
	AdvisoryAt     time.Duration
	CriticalWindow time.Duration

	// InvokeRetries and InvokeRetryDelay govern the controller-loop retry on
	// failed invocations. This is distinct from the transport-level retries
	// inside the model client: a failure here means the client itself gave up.
	InvokeRetries    int
	InvokeRetryDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		ControllerModel:  "gemini-2.5-flash",
		ContentModel:     "gemini-2.5-flash",
		AssessorModel:    "gemini-2.5-flash",
		MaxIterations:    60,
		RewriteCap:       3,
		TargetDuration:   10 * time.Minute,
		AdvisoryAt:       9 * time.Minute,
		CriticalWindow:   60 * time.Second,
		InvokeRetries:    3,
		InvokeRetryDelay: 2 * time.Second,
	}
}

// Service coordinates a controller LLM through a tool-calling loop until it
// declares a complete lesson or the task's budgets run out.
type Service struct {
	log *logger.Logger
	llm llm.Invoker
	cfg Config

	sleep func(time.Duration)
	now   func() time.Time
}

func NewService(log *logger.Logger, invoker llm.Invoker, cfg Config) *Service {
	return &Service{
		log:   log.With("service", "LessonService"),
		llm:   invoker,
		cfg:   cfg,
		sleep: time.Sleep,
		now:   time.Now,
	}
}

// Result is the outcome of one lesson-generation task. Sections are returned
// as stored; AssembleSections orders them for the final document.
type Result struct {
	CourseID  string            `json:"course_id"`
	ChapterID string            `json:"chapter_id"`
	LessonID  string            `json:"lesson_id"`
	Sections  map[string]string `json:"sections"`
	Counts    map[string]int    `json:"counts"`
}

// Run executes one lesson-generation task. All task state is scoped to this
// call; nothing survives into the next task even when the process is reused.
// Failure to make progress is fatal and propagated: a silently truncated
// lesson must never reach persistence.
func (s *Service) Run(ctx context.Context, plan *domain.CoursePlan, chapterID, lessonID string) (*Result, error) {
	if plan == nil {
		return nil, fmt.Errorf("course plan required: %w", apperrors.ErrInvalidArgument)
	}
	chapter := plan.FindChapter(chapterID)
	if chapter == nil {
		return nil, fmt.Errorf("chapter %s: %w", chapterID, apperrors.ErrNotFound)
	}
	less := chapter.FindLesson(lessonID)
	if less == nil {
		return nil, fmt.Errorf("lesson %s: %w", lessonID, apperrors.ErrNotFound)
	}

	log := s.log.With("course_id", plan.CourseID, "chapter_id", chapterID, "lesson_id", lessonID)
	log.Info("Starting lesson generation task")

	sess := newSession(s.now())
	user := promptProceed
	completed := false

	for iter := 0; iter < s.cfg.MaxIterations && !completed; iter++ {
		tier := s.urgencyTier(ctx, sess.startedAt)
		system := renderControllerPrompt(plan, chapter, less, sess, tier, s.cfg.RewriteCap)

		msg, err := s.invokeController(ctx, llm.Request{
			System:   system,
			User:     user,
			Messages: sess.messages,
			Tools:    controllerTools(),
			Model:    s.cfg.ControllerModel,
		})
		if err != nil {
			return nil, fmt.Errorf("lesson controller cannot make progress: %w", err)
		}
		sess.messages = append(sess.messages, *msg)
		user = promptProceed

		if len(msg.ToolCalls) == 0 {
			// A commentary-only turn must not end the task. Steer the
			// controller toward whichever step is missing.
			switch {
			case len(sess.sections) == 0:
				user = promptInsistGenerate
			case sess.assessments == 0:
				user = promptInsistAssess
			default:
				user = promptContinue
			}
			continue
		}

		for _, tc := range msg.ToolCalls {
			result, done := s.dispatch(ctx, sess, tc)
			sess.messages = append(sess.messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    result,
				ToolCallID: tc.ID,
			})
			if done {
				completed = true
				break
			}
		}
	}

	if !completed {
		return nil, fmt.Errorf("lesson generation did not complete within %d controller turns", s.cfg.MaxIterations)
	}

	// The controller's completion is trusted as-is; this is only a
	// non-blocking sanity signal for operators.
	if len(sess.sections) == 0 {
		log.Warn("Controller declared completion with no sections")
	}

	log.Info("Lesson generation task complete",
		"sections", len(sess.sections),
		"words", sess.wordCount(),
		"assessments", sess.assessments,
	)

	return &Result{
		CourseID:  plan.CourseID,
		ChapterID: chapterID,
		LessonID:  lessonID,
		Sections:  sess.sections,
		Counts:    sess.counts,
	}, nil
}

// invokeController retries a failed controller-turn invocation a fixed number
// of times with a fixed delay before declaring the task unrecoverable.
func (s *Service) invokeController(ctx context.Context, req llm.Request) (*llm.Message, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.InvokeRetries; attempt++ {
		msg, err := s.llm.Invoke(ctx, req)
		if err == nil && msg != nil {
			return msg, nil
		}
		lastErr = err
		if lastErr == nil {
			lastErr = fmt.Errorf("model returned empty response")
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < s.cfg.InvokeRetries {
			s.log.Warn("Controller invocation failed, retrying", "attempt", attempt, "error", lastErr.Error())
			s.sleep(s.cfg.InvokeRetryDelay)
		}
	}
	return nil, fmt.Errorf("controller invocation failed after %d attempts: %w", s.cfg.InvokeRetries, lastErr)
}

// dispatch runs one tool call and returns the tool-result text plus whether
// the controller declared completion.
func (s *Service) dispatch(ctx context.Context, sess *session, tc llm.ToolCall) (string, bool) {
	switch toolKindFor(tc.Function.Name) {
	case toolGenerate:
		var args generateArgs
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return fmt.Sprintf("invalid arguments for %s: %v", toolNameGenerate, err), false
		}
		return s.generateSection(ctx, sess, args.Prompt, args.SectionID), false
	case toolAssess:
		var args assessArgs
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return fmt.Sprintf("invalid arguments for %s: %v", toolNameAssess, err), false
		}
		return s.assessLesson(ctx, sess, args.Prompt), false
	case toolComplete:
		var args completeArgs
		// Completion is honored regardless; the reason is informational only.
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			s.log.Warn("Malformed completion arguments", "error", err.Error())
		}
		s.log.Info("Controller declared lesson complete", "reason", args.Reason)
		return fmt.Sprintf("lesson generation completed: %s", args.Reason), true
	default:
		return fmt.Sprintf("unknown tool %q; available tools are %s, %s, %s",
			tc.Function.Name, toolNameGenerate, toolNameAssess, toolNameComplete), false
	}
}

// urgencyTier classifies the task's two clocks: elapsed time since start
// against the soft target, and remaining time before the hosting
// environment's hard deadline. The critical tier wins unconditionally.
func (s *Service) urgencyTier(ctx context.Context, startedAt time.Time) urgencyTier {
	if deadline, ok := ctx.Deadline(); ok {
		if deadline.Sub(s.now()) < s.cfg.CriticalWindow {
			return tierCritical
		}
	}
	elapsed := s.now().Sub(startedAt)
	switch {
	case elapsed > s.cfg.TargetDuration:
		return tierWarning
	case elapsed > s.cfg.AdvisoryAt:
		return tierAdvisory
	default:
		return tierNormal
	}
}
