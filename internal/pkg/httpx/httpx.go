package httpx

import (
	"errors"
	"net"
	"time"
)

// HTTPStatusCoder is implemented by transport errors that carry an HTTP
// status code.
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// IsRetryableHTTPStatus reports whether a status code represents a transient
// failure: rate limiting (429) or a server-side error (5xx). Other 4xx codes
// are client errors and must not be retried.
func IsRetryableHTTPStatus(code int) bool {
	if code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

// Backoff computes the sleep before retry attempt+1 out of maxRetries+1 total
// attempts: exponential from base, capped at max, plus a jitter of up to 10%
// that shrinks linearly to zero as attempts progress. Early attempts spread
// out to avoid thundering herds; late attempts converge on the plain
// exponential schedule.
func Backoff(attempt, maxRetries int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	delay := base << uint(attempt)
	if max > 0 && delay > max {
		delay = max
	}
	if maxRetries <= 0 {
		return delay
	}
	jitter := time.Duration(float64(delay) * 0.1 * (0.5 - 0.5*float64(attempt)/float64(maxRetries)))
	return delay + jitter
}
