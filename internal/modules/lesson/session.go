package lesson

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/clients/llm"
)

// session is the per-task scratch state shared by the controller loop and
// both sub-agents. A fresh session is built for every task invocation so
// nothing leaks across tasks when the process is reused.
type session struct {
	sections    map[string]string
	counts      map[string]int
	messages    []llm.Message
	startedAt   time.Time
	assessments int
}

func newSession(now time.Time) *session {
	return &session{
		sections:  map[string]string{},
		counts:    map[string]int{},
		startedAt: now,
	}
}

func (s *session) setSection(id, body string) {
	s.sections[id] = body
	s.counts[id]++
}

// wordCount is the running total across all sections, reported back to the
// controller so it can judge completeness without re-reading every body.
func (s *session) wordCount() int {
	total := 0
	for _, body := range s.sections {
		total += len(strings.Fields(body))
	}
	return total
}

func (s *session) sectionIDs() []string {
	return sortedSectionIDs(s.sections)
}

// sortedSectionIDs orders ids ascending by their numeric value. Section ids
// are numeric-looking strings; map iteration order must never decide document
// order. Ids that fail to parse sort after the numeric ones, by string.
func sortedSectionIDs(sections map[string]string) []string {
	ids := make([]string, 0, len(sections))
	for id := range sections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, aErr := strconv.Atoi(strings.TrimSpace(ids[i]))
		b, bErr := strconv.Atoi(strings.TrimSpace(ids[j]))
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
	return ids
}

// AssembleSections concatenates section bodies in ascending numeric id order
// into the final lesson document.
func AssembleSections(sections map[string]string) string {
	ids := sortedSectionIDs(sections)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, sections[id])
	}
	return strings.Join(parts, "\n")
}
