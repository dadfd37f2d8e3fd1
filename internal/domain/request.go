// Package domain holds the core types shared by every stage of the
// batch dispatch pipeline: requests, responses, batches and errors.
package domain

import "time"

// RequestType is the closed set of request shapes the dispatcher
// understands. It determines which PromptComposer strategy applies.
type RequestType string

const (
	TypeClassification RequestType = "classification"
	TypeTaskExtraction RequestType = "task_extraction"
	TypeDraftGeneration RequestType = "draft_generation"
	TypeGeneric         RequestType = "generic"
)

// Bundled reports whether this type is composed by merging multiple
// requests into one endpoint call.
func (t RequestType) Bundled() bool {
	return t == TypeClassification || t == TypeTaskExtraction
}

// Payload is the opaque, value-typed request body. Keys recognized per
// type are documented in spec.md section 6; the map is never mutated
// after a Request is constructed.
type Payload map[string]any

// Callback is a one-shot sink invoked with exactly one Response per
// Request. It may suspend; re-entrant Submit calls from inside a
// Callback must not deadlock, so callbacks always run outside every
// internal lock.
type Callback func(Response)

// Request is a single admitted unit of work.
type Request struct {
	ID          string
	Type        RequestType
	Payload     Payload
	Priority    int // 1..10, higher served sooner within a collection pass
	SubmittedAt time.Time
	RetryCount  int
	Callback    Callback
	DedupKey    string
}

// ClampPriority normalizes an out-of-range priority to the nearest
// valid bound instead of rejecting the submission.
func ClampPriority(p int) int {
	if p < 1 {
		return 1
	}
	if p > 10 {
		return 10
	}
	return p
}
