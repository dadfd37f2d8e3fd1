package domain

// ErrorKind is the closed taxonomy of terminal failures surfaced to
// callers via Response.Error. It is comparable with ==, and each kind
// has a matching sentinel error in errors.go for errors.Is use.
type ErrorKind string

const (
	ErrRateLimited         ErrorKind = "rate_limited"
	ErrTimeout             ErrorKind = "timeout"
	ErrServerError         ErrorKind = "server_error"
	ErrClientError         ErrorKind = "client_error"
	ErrParseError          ErrorKind = "parse_error"
	ErrMissingInBatch      ErrorKind = "missing_in_batch_response"
	ErrCancelled           ErrorKind = "cancelled"
	ErrQueueFull           ErrorKind = "queue_full"
)

// Response is the exactly-once terminal outcome of a Request.
//
// Invariant: Success && Error == "" , or !Success && Error != "" and
// Data == nil. Never both, never neither.
type Response struct {
	RequestID        string
	Success          bool
	Data             map[string]any
	Error            ErrorKind
	ProcessingTimeMs float64
	TokensUsed       int
	CostEstimate     float64
}

// NewSuccess builds a successful Response carrying data.
func NewSuccess(requestID string, data map[string]any, tokensUsed int, cost float64, elapsedMs float64) Response {
	return Response{
		RequestID:        requestID,
		Success:          true,
		Data:             data,
		ProcessingTimeMs: elapsedMs,
		TokensUsed:       tokensUsed,
		CostEstimate:     cost,
	}
}

// NewFailure builds a failed Response carrying an ErrorKind.
func NewFailure(requestID string, kind ErrorKind, elapsedMs float64) Response {
	return Response{
		RequestID:        requestID,
		Success:          false,
		Error:            kind,
		ProcessingTimeMs: elapsedMs,
	}
}
