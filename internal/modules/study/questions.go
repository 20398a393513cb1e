package study

import (
	"context"
	"fmt"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/domain"
)

const questionsSystemPrompt = `You are an expert in creating educational assessments. Based on the provided lesson content, generate multiple-choice questions. Each question must have exactly 4 options, a single correct answer that exactly matches one of the options, and a brief explanation of why that answer is correct. Ensure the questions accurately test understanding of the key concepts in the lesson. Output the questions in the specified JSON format.`

func questionsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{"type": "string", "description": "The text of the multiple-choice question."},
						"options": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"minItems":    4,
							"maxItems":    4,
							"description": "An array of exactly 4 potential answer strings.",
						},
						"answer":      map[string]any{"type": "string", "description": "The correct answer, which must exactly match one of the strings in the options array."},
						"explanation": map[string]any{"type": "string", "description": "A brief explanation of why the answer is correct."},
					},
					"required": []string{"question", "options", "answer", "explanation"},
				},
			},
		},
		"required": []string{"questions"},
	}
}

// validateQuestion enforces the multiple-choice contract: all fields present
// and non-empty, exactly 4 options, and an answer that case-exactly matches
// one of them.
func validateQuestion(rec map[string]any) string {
	question, ok := stringField(rec, "question")
	if !ok {
		return "missing or empty question text"
	}
	answer, ok := stringField(rec, "answer")
	if !ok {
		return fmt.Sprintf("question %q is missing its answer", question)
	}
	if _, ok := stringField(rec, "explanation"); !ok {
		return fmt.Sprintf("question %q is missing its explanation", question)
	}

	rawOptions, ok := rec["options"].([]any)
	if !ok || len(rawOptions) != 4 {
		return fmt.Sprintf("question %q must have exactly 4 options", question)
	}
	found := false
	for _, o := range rawOptions {
		s, ok := o.(string)
		if !ok {
			return fmt.Sprintf("question %q has a non-string option", question)
		}
		if s == answer {
			found = true
		}
	}
	if !found {
		return fmt.Sprintf("question %q has answer %q which does not exactly match any of its options", question, answer)
	}
	return ""
}

// GenerateQuestions produces the validated multiple-choice question set for
// one lesson. An empty result means generation failed, not that zero
// questions is acceptable content.
func (g *Generator) GenerateQuestions(ctx context.Context, lessonMarkdown string) []domain.Question {
	user := fmt.Sprintf(
		"Here is the lesson content:\n\n%s\n\nPlease generate %d multiple-choice questions based on this content.",
		lessonMarkdown, g.cfg.QuestionCount,
	)

	records := g.generateValidated(ctx, questionsSystemPrompt, user, "questions", questionsSchema(), "questions", g.cfg.QuestionCount, validateQuestion)

	out := make([]domain.Question, 0, len(records))
	for _, rec := range records {
		rawOptions := rec["options"].([]any)
		options := make([]string, 0, len(rawOptions))
		for _, o := range rawOptions {
			options = append(options, o.(string))
		}
		out = append(out, domain.Question{
			Question:    rec["question"].(string),
			Options:     options,
			Answer:      rec["answer"].(string),
			Explanation: rec["explanation"].(string),
		})
	}
	return out
}
