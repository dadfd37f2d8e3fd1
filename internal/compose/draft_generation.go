package compose

import (
	"fmt"

	"github.com/bridgify/batchdispatch/internal/domain"
)

// draftGenerationComposer never bundles: each draft depends on enough
// request-specific context (tone, recipient, thread history) that
// merging them into one prompt would blow past any reasonable token
// budget, so spec.md section 4.2 keeps this type at one call per
// request. BatchWorker runs these calls one after another.
type draftGenerationComposer struct{}

func (draftGenerationComposer) Compose(requests []*domain.Request) []Call {
	calls := make([]Call, len(requests))
	for i, r := range requests {
		subject := stringField(r.Payload, "subject")
		context := stringField(r.Payload, "context")
		tone := stringField(r.Payload, "tone")
		if tone == "" {
			tone = "neutral"
		}

		prompt := fmt.Sprintf(`Draft a reply email.
Subject: %s
Tone: %s
Context: %s`, subject, tone, context)

		model := stringField(r.Payload, "model")
		if model == "" {
			model = "gpt-4o"
		}

		calls[i] = Call{
			Model:       model,
			Messages:    []Message{{Role: "user", Content: prompt}},
			Temperature: floatField(r.Payload, "temperature", 0.7),
			MaxTokens:   intField(r.Payload, "max_tokens", 500),
			Requests:    []*domain.Request{r},
		}
	}
	return calls
}

func (draftGenerationComposer) Decompose(call Call, rawReply string, usage Usage) []domain.Response {
	r := call.Requests[0]
	return []domain.Response{
		domain.NewSuccess(r.ID, map[string]any{"draft": rawReply}, usage.TotalTokens, usage.CostEstimate, 0),
	}
}
