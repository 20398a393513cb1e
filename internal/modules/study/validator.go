package study

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/clients/llm"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/logger"
)

type Config struct {
	Model          string
	MaxAttempts    int
	QuestionCount  int
	FlashcardCount int
}

func DefaultConfig() Config {
	return Config{
		Model:          "gemini-2.5-flash",
		MaxAttempts:    3,
		QuestionCount:  10,
		FlashcardCount: 10,
	}
}

// Generator produces schema-validated question and flashcard sets, steering
// the model with itemized feedback when an attempt comes back malformed or
// short.
type Generator struct {
	log *logger.Logger
	llm llm.Invoker
	cfg Config

	sleep func(time.Duration)
}

func NewGenerator(log *logger.Logger, invoker llm.Invoker, cfg Config) *Generator {
	return &Generator{
		log:   log.With("service", "StudyGenerator"),
		llm:   invoker,
		cfg:   cfg,
		sleep: time.Sleep,
	}
}

// recordValidator inspects one decoded record and returns a reason string
// when the record must be dropped.
type recordValidator func(rec map[string]any) string

// filterRecords applies the validator to every raw record, returning the
// valid ones and an itemized issue list for the dropped ones. It is a pure
// function of its inputs: identical model output always yields the same
// filtered set.
func filterRecords(raw []any, validate recordValidator) ([]map[string]any, []string) {
	var valid []map[string]any
	var issues []string
	for i, item := range raw {
		rec, ok := item.(map[string]any)
		if !ok {
			issues = append(issues, fmt.Sprintf("item %d is not an object", i+1))
			continue
		}
		if reason := validate(rec); reason != "" {
			issues = append(issues, fmt.Sprintf("item %d: %s", i+1, reason))
			continue
		}
		valid = append(valid, rec)
	}
	return valid, issues
}

// generateValidated runs the schema-constrained generation loop: up to
// MaxAttempts invocations, each validated record-by-record, with the next
// attempt's prompt prefixed by what went wrong in the previous one. On
// exhaustion it returns an empty list, never a partial set below minCount —
// the caller decides whether empty is fatal.
func (g *Generator) generateValidated(ctx context.Context, system, user, schemaName string, schema map[string]any, listKey string, minCount int, validate recordValidator) []map[string]any {
	var feedback []string

	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		prompt := user
		if len(feedback) > 0 {
			prompt = fmt.Sprintf(
				"This is attempt %d of %d. The previous attempt had the following problems:\n- %s\n\nPlease correct all of them.\n\n%s",
				attempt, g.cfg.MaxAttempts, strings.Join(feedback, "\n- "), user,
			)
		}

		valid, issues := g.attemptOnce(ctx, system, prompt, schemaName, schema, listKey, validate)

		if len(valid) >= minCount && len(issues) == 0 {
			return valid
		}
		// Dropped records only matter while retries remain: once attempts are
		// spent, enough valid records is a conforming result.
		if attempt == g.cfg.MaxAttempts && len(valid) >= minCount {
			g.log.Warn("Accepting final attempt with dropped records",
				"valid", len(valid),
				"min_count", minCount,
				"dropped", len(issues),
			)
			return valid
		}

		if len(valid) < minCount {
			issues = append(issues, fmt.Sprintf("only %d valid items were produced; at least %d are required", len(valid), minCount))
		}
		feedback = issues
		g.log.Warn("Validated generation attempt came up short",
			"attempt", attempt,
			"max_attempts", g.cfg.MaxAttempts,
			"valid", len(valid),
			"min_count", minCount,
			"issues", len(issues),
		)

		if attempt < g.cfg.MaxAttempts {
			// Validation-level pacing, separate from transport retries.
			g.sleep(time.Duration(1+attempt) * time.Second)
		}
	}

	g.log.Warn("Validated generation exhausted all attempts", "min_count", minCount)
	return []map[string]any{}
}

func (g *Generator) attemptOnce(ctx context.Context, system, prompt, schemaName string, schema map[string]any, listKey string, validate recordValidator) ([]map[string]any, []string) {
	msg, err := g.llm.Invoke(ctx, llm.Request{
		System:     system,
		User:       prompt,
		SchemaName: schemaName,
		Schema:     schema,
		Model:      g.cfg.Model,
	})
	if err != nil || msg == nil {
		if err != nil {
			g.log.Warn("Validated generation call failed", "error", err.Error())
		}
		return nil, []string{"the model call failed and produced no output"}
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(msg.Content), &parsed); err != nil {
		return nil, []string{fmt.Sprintf("the output was not valid JSON: %v", err)}
	}
	raw, ok := parsed[listKey].([]any)
	if !ok {
		return nil, []string{fmt.Sprintf("the output was missing the %q array", listKey)}
	}

	return filterRecords(raw, validate)
}

func stringField(rec map[string]any, key string) (string, bool) {
	v, ok := rec[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}
