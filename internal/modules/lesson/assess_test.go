package lesson

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSerializeSectionsNumericKeyOrder(t *testing.T) {
	sess := newSession(time.Now())
	sess.setSection("10", "tenth")
	sess.setSection("2", "second")
	sess.setSection("1", "first")

	got := serializeSections(sess)
	want := `{"1":"first","2":"second","10":"tenth"}`
	if got != want {
		t.Fatalf("serializeSections = %s, want %s", got, want)
	}

	// Still valid JSON despite the manual ordering.
	var decoded map[string]string
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["10"] != "tenth" {
		t.Fatalf("decoded = %v", decoded)
	}
}

func TestSerializeSectionsEscapesContent(t *testing.T) {
	sess := newSession(time.Now())
	sess.setSection("1", "line with \"quotes\"\nand a newline")

	var decoded map[string]string
	if err := json.Unmarshal([]byte(serializeSections(sess)), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["1"] != "line with \"quotes\"\nand a newline" {
		t.Fatalf("round trip lost content: %q", decoded["1"])
	}
}
