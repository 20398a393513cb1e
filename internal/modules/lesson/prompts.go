package lesson

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/domain"
)

// urgencyTier is the escalating time-budget state injected into the
// controller's prompt to bias it toward finishing.
type urgencyTier int

const (
	tierNormal urgencyTier = iota
	tierAdvisory
	tierWarning
	tierCritical
)

func (t urgencyTier) directive() string {
	switch t {
	case tierAdvisory:
		return "NOTE: you are approaching the time budget for this lesson. Prioritize finishing the remaining sections over further polish, and plan to call " + toolNameComplete + " soon."
	case tierWarning:
		return "WARNING: you have exceeded the target time budget for this lesson. Stop revising existing sections, finish anything strictly necessary, and call " + toolNameComplete + "."
	case tierCritical:
		return "CRITICAL: the task is about to be forcibly terminated. Call " + toolNameComplete + " NOW with the lesson in its current state. This instruction overrides all other guidance."
	default:
		return ""
	}
}

const (
	promptInsistGenerate = "You have not generated any lesson content yet. Use the " + toolNameGenerate + " tool to begin generating the first section now."
	promptInsistAssess   = "The lesson has sections but has never been assessed. Use the " + toolNameAssess + " tool to request an assessment now."
	promptContinue       = "Continue coordinating the lesson, or call " + toolNameComplete + " if every section is finalized to your satisfaction."
	promptProceed        = "Please proceed."
)

// renderControllerPrompt rebuilds the controller's system prompt for one
// iteration: lesson context, current section ids (keys only, to bound prompt
// size), revision counts, cap advisories, and the urgency directive.
func renderControllerPrompt(plan *domain.CoursePlan, chapter *domain.Chapter, less *domain.Lesson, sess *session, tier urgencyTier, rewriteCap int) string {
	var b strings.Builder

	b.WriteString(`You are a world-class teacher responsible for creating a lesson for a student.
You will first determine the requirements of the lesson topic in context of the full course, which may include example problems, equations, or historical background. In general, encourage long-form content as much as possible; emphasize this to both the lesson generator and the assessor.

Tell the assessor to be relatively critical, watching out for content length (longer is preferred, to align with a textbook or blog format). We do not want excessively concise or bulleted output.

You have three tools:
1. ` + toolNameGenerate + `: another LLM generates or revises one section of the lesson per your instructions.
2. ` + toolNameAssess + `: another LLM assesses the full current lesson and reports back.
3. ` + toolNameComplete + `: submits the finished lesson.

You cannot edit lesson content directly. Only the generator can modify sections, and only the assessor can read them in full. The assessor has no memory of previous rounds and cannot edit anything.

Your procedure:
1. Break the lesson into a set of numbered sections ("1", "2", "3", ...) covering all of its aspects.
2. Use ` + toolNameGenerate + ` to produce each section.
3. Use ` + toolNameAssess + ` to have the full lesson evaluated against your requirements.
4. If the assessment finds a section lacking, have the generator revise that section based on the feedback.
5. Repeat until the FULL lesson (not just one section) meets your requirements, then call ` + toolNameComplete + `. Avoid regenerating and re-assessing the same section repeatedly.
`)

	fmt.Fprintf(&b, "\nThe course is called %q. Course description: %s\n", plan.Title, plan.Description)
	fmt.Fprintf(&b, "The chapter is called %q, described as: %s\n", chapter.Title, chapter.Description)

	lessonJSON, _ := json.Marshal(less)
	fmt.Fprintf(&b, "\nThis is the lesson you are creating content for: %s\nEnsure all aspects of the lesson are addressed. Only call %s after ALL portions of the lesson are complete.\n", lessonJSON, toolNameComplete)

	ids := sess.sectionIDs()
	if len(ids) == 0 {
		b.WriteString("\nThere are no lesson sections yet.\n")
	} else {
		fmt.Fprintf(&b, "\nThe current lesson sections are: %s\n", strings.Join(ids, ", "))
	}

	if len(sess.counts) > 0 {
		countsJSON, _ := json.Marshal(sess.counts)
		fmt.Fprintf(&b, "\nThis is the number of times each section has been written or rewritten. Do not exceed %d rewrites for any section.\n%s\n", rewriteCap, countsJSON)
		for _, id := range ids {
			if sess.counts[id] >= rewriteCap {
				fmt.Fprintf(&b, "Section %q has reached its rewrite limit. Do not regenerate section %q any further.\n", id, id)
			}
		}
	}

	if d := tier.directive(); d != "" {
		b.WriteString("\n" + d + "\n")
	}

	return b.String()
}

// renderContentPrompt is the content sub-agent's system prompt. It embeds the
// current body of the addressed section so revision requests read as
// edits-with-feedback rather than generation from scratch.
func renderContentPrompt(existing string) string {
	var b strings.Builder
	b.WriteString(`You are an expert educator. Generate one portion of a lesson based on the instructions and topic the user provides.
You may be asked to modify an existing portion of a lesson based on feedback. If so, this is the existing content of that section:

`)
	b.WriteString("```\n")
	b.WriteString(existing)
	b.WriteString("\n```\n\n")
	b.WriteString("Output only the lesson content in markdown, with no additional niceties or metadata.")
	return b.String()
}

// renderMarkdownFixPrompt asks for formatting repair without content changes.
func renderMarkdownFixPrompt() string {
	return `You are a markdown formatting expert. The user will give you one section of a lesson. Fix any malformed markdown (broken headings, unclosed code fences, mangled lists or tables) without changing the content itself. Output only the corrected markdown.`
}
