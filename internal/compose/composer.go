// Package compose implements the PromptComposer of spec.md section
// 4.5: deterministic transformation of request payloads into bundled
// prompts, and back-mapping of bundled responses to per-request
// results. Per-type strategies are grounded on
// worker_server/core/agent/llm/worker_llm_batch.go's
// buildBatchClassifyPrompt/CleanEmailBody/truncateText and the
// chunk-of-5 task-extraction shape implied by spec.md section 4.5.
package compose

import (
	"github.com/bridgify/batchdispatch/internal/domain"
)

// Call is one outbound request to the EndpointClient: a fully built
// prompt plus the model parameters to send with it.
type Call struct {
	Model          string
	Messages       []Message
	Temperature    float32
	MaxTokens      int
	ExpectJSONMode bool
	// Requests is the ordered set of domain requests this Call answers,
	// needed by Decompose to map the response back.
	Requests []*domain.Request
}

// Message mirrors the provider-agnostic {role, content} wire shape; it
// is translated to the concrete SDK type inside internal/endpoint.
type Message struct {
	Role    string
	Content string
}

// Composer turns a same-type batch of requests into one or more Calls,
// and turns each Call's raw text reply back into per-request
// Responses. Implementations never share mutable state across calls.
type Composer interface {
	// Compose splits requests into Calls. For bundled types this may
	// produce more than one Call (task_extraction chunks of 5); for
	// non-bundled types it always produces one Call per request.
	Compose(requests []*domain.Request) []Call

	// Decompose maps one Call's raw reply back to exactly one Response
	// per request in call.Requests. Decomposition is total: every
	// input request is paired with exactly one Response, even on
	// parse failure.
	Decompose(call Call, rawReply string, usage Usage) []domain.Response
}

// Usage is the token/cost accounting reported by one endpoint call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CostEstimate     float64
}

// ForType returns the Composer strategy bound to a request type.
func ForType(t domain.RequestType) Composer {
	switch t {
	case domain.TypeClassification:
		return classificationComposer{}
	case domain.TypeTaskExtraction:
		return taskExtractionComposer{}
	case domain.TypeDraftGeneration:
		return draftGenerationComposer{}
	default:
		return genericComposer{}
	}
}

// splitTokensAndCost implements spec.md's "⌊T/k⌋ each, cost_estimate =
// estimated_total_cost / k" token accounting rule, shared by every
// bundled composer's Decompose.
func splitTokensAndCost(usage Usage, k int) (tokensEach int, costEach float64) {
	if k <= 0 {
		return 0, 0
	}
	tokensEach = usage.TotalTokens / k
	costEach = usage.CostEstimate / float64(k)
	return
}
