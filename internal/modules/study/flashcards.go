package study

import (
	"context"
	"fmt"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/domain"
)

const flashcardsSystemPrompt = `You are an expert in creating study materials. Based on the provided lesson content, generate flashcards. Each flashcard has a question side prompting recall of one key term, definition, or concept from the lesson, and an answer side with the concise correct answer. Output the flashcards in the specified JSON format.`

func flashcardsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"flashcards": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{"type": "string", "description": "The prompt side of the flashcard."},
						"answer":   map[string]any{"type": "string", "description": "The answer side of the flashcard."},
					},
					"required": []string{"question", "answer"},
				},
			},
		},
		"required": []string{"flashcards"},
	}
}

func validateFlashcard(rec map[string]any) string {
	if _, ok := stringField(rec, "question"); !ok {
		return "missing or empty question side"
	}
	if _, ok := stringField(rec, "answer"); !ok {
		return "missing or empty answer side"
	}
	return ""
}

// GenerateFlashcards produces exactly FlashcardCount validated flashcards
// for one lesson, or an empty set when generation fails.
func (g *Generator) GenerateFlashcards(ctx context.Context, lessonMarkdown string) []domain.Flashcard {
	user := fmt.Sprintf(
		"Here is the lesson content:\n\n%s\n\nPlease generate exactly %d flashcards based on this content.",
		lessonMarkdown, g.cfg.FlashcardCount,
	)

	records := g.generateValidated(ctx, flashcardsSystemPrompt, user, "flashcards", flashcardsSchema(), "flashcards", g.cfg.FlashcardCount, validateFlashcard)
	if len(records) > g.cfg.FlashcardCount {
		records = records[:g.cfg.FlashcardCount]
	}

	out := make([]domain.Flashcard, 0, len(records))
	for _, rec := range records {
		out = append(out, domain.Flashcard{
			Question: rec["question"].(string),
			Answer:   rec["answer"].(string),
		})
	}
	return out
}
