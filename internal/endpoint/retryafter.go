package endpoint

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// retryAfterTransport wraps the SDK's HTTP transport to capture the
// Retry-After header off a 429 response, since go-openai's typed
// errors don't surface raw response headers. ai_batch_processor.py's
// _call_with_retry honors this value verbatim on a rate limit
// (falling back to exponential backoff only when the header is
// absent); this is the Go-side equivalent capture point.
type retryAfterTransport struct {
	base http.RoundTripper

	mu         sync.Mutex
	retryAfter time.Duration
}

func newRetryAfterTransport(base http.RoundTripper) *retryAfterTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &retryAfterTransport{base: base}
}

func (t *retryAfterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err == nil && resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		if d, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			t.mu.Lock()
			t.retryAfter = d
			t.mu.Unlock()
		}
	}
	return resp, err
}

// take returns and clears the most recently captured Retry-After
// delay, or zero if none is pending.
func (t *retryAfterTransport) take() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.retryAfter
	t.retryAfter = 0
	return d
}

// parseRetryAfter accepts both forms the header allows: a delay in
// seconds, or an HTTP-date to wait until.
func parseRetryAfter(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if when, err := http.ParseTime(v); err == nil {
		if d := time.Until(when); d > 0 {
			return d, true
		}
	}
	return 0, false
}
