package endpoint

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bridgify/batchdispatch/internal/domain"
)

// classify maps a go-openai error (or context error) to the closed
// ErrorKind taxonomy, grounded on worker_server's retry condition in
// worker_sync_retry.go: rate limits and server/timeout errors are
// retryable, other client errors are terminal.
func classify(err error) domain.ErrorKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return domain.ErrCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return domain.ErrRateLimited
		case apiErr.HTTPStatusCode >= 500:
			return domain.ErrServerError
		case apiErr.HTTPStatusCode >= 400:
			return domain.ErrClientError
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch {
		case reqErr.HTTPStatusCode == http.StatusTooManyRequests:
			return domain.ErrRateLimited
		case reqErr.HTTPStatusCode >= 500:
			return domain.ErrServerError
		case reqErr.HTTPStatusCode >= 400:
			return domain.ErrClientError
		}
	}

	return domain.ErrServerError
}

// retryable reports whether a classified failure is worth a retry.
// missing_in_batch_response, parse_error, cancelled and queue_full
// never reach here; client_error is terminal by definition.
func retryable(kind domain.ErrorKind) bool {
	switch kind {
	case domain.ErrRateLimited, domain.ErrTimeout, domain.ErrServerError:
		return true
	default:
		return false
	}
}
