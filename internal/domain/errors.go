package domain

import "errors"

// Sentinel errors mirroring each ErrorKind, for callers that want
// errors.Is semantics instead of comparing ErrorKind strings.
var (
	ErrSentinelRateLimited    = errors.New(string(ErrRateLimited))
	ErrSentinelTimeout        = errors.New(string(ErrTimeout))
	ErrSentinelServerError    = errors.New(string(ErrServerError))
	ErrSentinelClientError    = errors.New(string(ErrClientError))
	ErrSentinelParseError     = errors.New(string(ErrParseError))
	ErrSentinelMissingInBatch = errors.New(string(ErrMissingInBatch))
	ErrSentinelCancelled      = errors.New(string(ErrCancelled))
	ErrSentinelQueueFull      = errors.New(string(ErrQueueFull))
)

// Sentinel returns the error matching an ErrorKind, for use with
// errors.Is in places that receive a plain error rather than a
// Response.
func (k ErrorKind) Sentinel() error {
	switch k {
	case ErrRateLimited:
		return ErrSentinelRateLimited
	case ErrTimeout:
		return ErrSentinelTimeout
	case ErrServerError:
		return ErrSentinelServerError
	case ErrClientError:
		return ErrSentinelClientError
	case ErrParseError:
		return ErrSentinelParseError
	case ErrMissingInBatch:
		return ErrSentinelMissingInBatch
	case ErrCancelled:
		return ErrSentinelCancelled
	case ErrQueueFull:
		return ErrSentinelQueueFull
	default:
		return errors.New(string(k))
	}
}
