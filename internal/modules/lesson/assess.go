package lesson

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/clients/llm"
)

// assessmentErrorSentinel is returned in place of feedback when the
// underlying call fails, so the controller loop can react instead of the
// task crashing.
const assessmentErrorSentinel = "error during assessment"

// assessLesson runs the assessment sub-agent over the full current section
// map. The assessor is read-only: its tool contract has no mutation
// capability, and it sees no prior assessment rounds.
func (s *Service) assessLesson(ctx context.Context, sess *session, prompt string) string {
	if len(sess.sections) == 0 {
		return "There is no lesson content yet to assess. Generate at least one section first."
	}
	sess.assessments++

	msg, err := s.llm.Invoke(ctx, llm.Request{
		System: prompt,
		User:   serializeSections(sess),
		Model:  s.cfg.AssessorModel,
	})
	if err != nil || msg == nil {
		if err != nil {
			s.log.Warn("Assessment failed", "error", err.Error())
		}
		return assessmentErrorSentinel
	}
	return msg.Content
}

// serializeSections renders the full section map as a JSON object whose keys
// appear in numeric id order, so the assessor reads the lesson as a student
// would.
func serializeSections(sess *session) string {
	var b strings.Builder
	b.WriteString("{")
	for i, id := range sess.sectionIDs() {
		if i > 0 {
			b.WriteString(",")
		}
		key, _ := json.Marshal(id)
		val, _ := json.Marshal(sess.sections[id])
		b.Write(key)
		b.WriteString(":")
		b.Write(val)
	}
	b.WriteString("}")
	return b.String()
}
