package lesson

import (
	"context"
	"fmt"
	"strings"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/clients/llm"
)

// generateSection runs the content sub-agent for one section. A failed
// generation is recoverable: the controller gets a descriptive error string
// as its tool result and can re-attempt, so the task itself never dies here.
func (s *Service) generateSection(ctx context.Context, sess *session, prompt, sectionID string) string {
	sectionID = strings.TrimSpace(sectionID)
	if sectionID == "" {
		return "error generating lesson content: section_id is required"
	}

	msg, err := s.llm.Invoke(ctx, llm.Request{
		System: renderContentPrompt(sess.sections[sectionID]),
		User:   prompt,
		Model:  s.cfg.ContentModel,
	})
	if err != nil {
		s.log.Warn("Section generation failed", "section_id", sectionID, "error", err.Error())
		return fmt.Sprintf("error generating lesson content for section %s: %v", sectionID, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		s.log.Warn("Section generation returned empty content", "section_id", sectionID)
		return fmt.Sprintf("error generating lesson content for section %s: model returned no content", sectionID)
	}

	sess.setSection(sectionID, msg.Content)

	return fmt.Sprintf(
		"Successfully generated content for section %s and saved it; please call the assessor. The total word count of the lesson is now %d.",
		sectionID, sess.wordCount(),
	)
}
