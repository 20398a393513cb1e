package lesson

import (
	"testing"
	"time"
)

func TestAssembleSectionsNumericOrder(t *testing.T) {
	sections := map[string]string{
		"10": "ten",
		"2":  "two",
		"1":  "one",
	}
	got := AssembleSections(sections)
	want := "one\ntwo\nten"
	if got != want {
		t.Fatalf("AssembleSections = %q, want %q", got, want)
	}
}

func TestAssembleSectionsDeterministic(t *testing.T) {
	sections := map[string]string{"3": "c", "1": "a", "2": "b"}
	first := AssembleSections(sections)
	for i := 0; i < 20; i++ {
		if got := AssembleSections(sections); got != first {
			t.Fatalf("iteration %d: got %q, want %q", i, got, first)
		}
	}
}

func TestSortedSectionIDsNonNumericLast(t *testing.T) {
	sections := map[string]string{"summary": "s", "2": "b", "1": "a"}
	ids := sortedSectionIDs(sections)
	if len(ids) != 3 || ids[0] != "1" || ids[1] != "2" || ids[2] != "summary" {
		t.Fatalf("sortedSectionIDs = %v", ids)
	}
}

func TestSessionCountsRewrites(t *testing.T) {
	sess := newSession(time.Now())
	sess.setSection("1", "first draft")
	sess.setSection("1", "second draft")
	sess.setSection("2", "other")

	if sess.counts["1"] != 2 || sess.counts["2"] != 1 {
		t.Fatalf("counts = %v", sess.counts)
	}
	if sess.sections["1"] != "second draft" {
		t.Fatalf("rewrite did not overwrite: %q", sess.sections["1"])
	}
	if got := sess.wordCount(); got != 3 {
		t.Fatalf("wordCount = %d, want 3", got)
	}
}
