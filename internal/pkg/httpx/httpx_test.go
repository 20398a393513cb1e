package httpx

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

type statusErr struct{ code int }

func (e *statusErr) Error() string       { return fmt.Sprintf("http %d", e.code) }
func (e *statusErr) HTTPStatusCode() int { return e.code }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryableHTTPStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 599} {
		if !IsRetryableHTTPStatus(code) {
			t.Fatalf("expected %d to be retryable", code)
		}
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		if IsRetryableHTTPStatus(code) {
			t.Fatalf("expected %d to not be retryable", code)
		}
	}
}

func TestIsRetryableError(t *testing.T) {
	if IsRetryableError(nil) {
		t.Fatal("nil error must not be retryable")
	}
	if !IsRetryableError(&statusErr{code: 503}) {
		t.Fatal("503 must be retryable")
	}
	if IsRetryableError(&statusErr{code: 400}) {
		t.Fatal("400 must not be retryable")
	}
	if !IsRetryableError(fmt.Errorf("wrapped: %w", &statusErr{code: 429})) {
		t.Fatal("wrapped 429 must be retryable")
	}
	if !IsRetryableError(timeoutErr{}) {
		t.Fatal("network errors must be retryable")
	}
	if IsRetryableError(errors.New("plain")) {
		t.Fatal("plain errors must not be retryable")
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	base := time.Second
	max := 10 * time.Second

	prev := time.Duration(0)
	for attempt := 0; attempt < 3; attempt++ {
		d := Backoff(attempt, 5, base, max)
		if d <= prev {
			t.Fatalf("attempt %d: expected growth, got %v after %v", attempt, d, prev)
		}
		prev = d
	}

	// Deep attempts hit the cap; the final attempt has zero jitter.
	if d := Backoff(5, 5, base, max); d != max {
		t.Fatalf("final attempt: expected exactly %v, got %v", max, d)
	}
	if d := Backoff(4, 5, base, max); d < max || d > max+max/10 {
		t.Fatalf("capped attempt: expected within 10%% above %v, got %v", max, d)
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	base := time.Second
	d := Backoff(0, 5, base, 10*time.Second)
	if d < base || d > base+base/10 {
		t.Fatalf("first attempt: expected between %v and %v, got %v", base, base+base/10, d)
	}
}
