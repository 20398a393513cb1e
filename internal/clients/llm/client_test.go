package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/logger"
)

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	t.Setenv("GOOGLE_API_KEY", "test-key")
	c, err := NewClient(logger.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.endpointOverride = endpoint
	c.sleep = func(time.Duration) {}
	return c
}

func TestInvokeSuccess(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.MaxTokens != maxOutputTokens {
			t.Errorf("max_tokens = %d, want %d", req.MaxTokens, maxOutputTokens)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != RoleSystem || req.Messages[1].Role != RoleUser {
			t.Errorf("unexpected message layout: %+v", req.Messages)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": "hello"}}},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	msg, err := c.Invoke(context.Background(), Request{System: "sys", User: "usr", Model: "gemini-2.5-flash"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if msg.Content != "hello" {
		t.Fatalf("content = %q, want %q", msg.Content, "hello")
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("authorization = %q", gotAuth)
	}
}

func TestInvokeRetriesTransientAndFallsBack(t *testing.T) {
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		models = append(models, req.Model)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Invoke(context.Background(), Request{System: "s", User: "u", Model: "gemini-2.5-flash"})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}

	// 1 initial attempt + 5 retries.
	if len(models) != 6 {
		t.Fatalf("attempts = %d, want 6", len(models))
	}
	fallback, _ := ResolveModel(FallbackModelID)
	if last := models[len(models)-1]; last != fallback.Name {
		t.Fatalf("final attempt model = %q, want fallback %q", last, fallback.Name)
	}
	for _, m := range models[:len(models)-1] {
		if m == fallback.Name {
			t.Fatalf("fallback used before final attempt: %v", models)
		}
	}
}

func TestInvokeFailsFastOnClientError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Invoke(context.Background(), Request{System: "s", User: "u", Model: "gemini-2.5-flash"})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("attempts = %d, want 1 (4xx must not retry)", calls)
	}
}

func TestInvokeRetriesRateLimit(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": "ok"}}},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	msg, err := c.Invoke(context.Background(), Request{System: "s", User: "u", Model: "gemini-2.5-flash"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if msg.Content != "ok" || calls != 3 {
		t.Fatalf("content=%q calls=%d", msg.Content, calls)
	}
}

func TestInvokeUnknownModel(t *testing.T) {
	c := newTestClient(t, "http://unused")
	_, err := c.Invoke(context.Background(), Request{System: "s", User: "u", Model: "gpt-oss"})
	if err == nil || !strings.Contains(err.Error(), "unsupported model") {
		t.Fatalf("expected unsupported model error, got %v", err)
	}
}

func TestInvokePriorMessagesVerbatim(t *testing.T) {
	var got []Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		got = req.Messages
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": "ok"}}},
		})
	}))
	defer srv.Close()

	prior := []Message{
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_1", Type: "function", Function: FunctionCall{Name: "f", Arguments: "{}"}}}},
		{Role: RoleTool, Content: "result", ToolCallID: "call_1"},
	}
	c := newTestClient(t, srv.URL)
	if _, err := c.Invoke(context.Background(), Request{System: "s", User: "u", Messages: prior, Model: "gemini-2.5-flash"}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if len(got) != 4 {
		t.Fatalf("messages = %d, want 4", len(got))
	}
	if got[1].ToolCalls[0].ID != "call_1" || got[2].ToolCallID != "call_1" {
		t.Fatalf("prior messages not sent verbatim: %+v", got)
	}
}
