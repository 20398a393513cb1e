package lesson

import (
	"context"
	"strings"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/clients/llm"
)

// RepairMarkdown runs each section through a single formatting-repair call.
// A section whose repair fails keeps its original text; a cosmetic pass must
// never lose content.
func (s *Service) RepairMarkdown(ctx context.Context, sections map[string]string) map[string]string {
	out := make(map[string]string, len(sections))
	for _, id := range sortedSectionIDs(sections) {
		body := sections[id]
		out[id] = body

		msg, err := s.llm.Invoke(ctx, llm.Request{
			System: renderMarkdownFixPrompt(),
			User:   body,
			Model:  s.cfg.ContentModel,
		})
		if err != nil || msg == nil || strings.TrimSpace(msg.Content) == "" {
			if err != nil {
				s.log.Warn("Markdown repair failed, keeping original section", "section_id", id, "error", err.Error())
			}
			continue
		}
		out[id] = msg.Content
	}
	return out
}
