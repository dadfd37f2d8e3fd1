package compose

import (
	"github.com/bridgify/batchdispatch/internal/domain"
)

// genericComposer is the fallback strategy for any request type that
// doesn't get a dedicated composer: one call per request, free-form
// prompt text taken verbatim from the payload.
type genericComposer struct{}

func (genericComposer) Compose(requests []*domain.Request) []Call {
	calls := make([]Call, len(requests))
	for i, r := range requests {
		prompt := stringField(r.Payload, "prompt")

		model := stringField(r.Payload, "model")
		if model == "" {
			model = "gpt-4o-mini"
		}

		calls[i] = Call{
			Model:       model,
			Messages:    []Message{{Role: "user", Content: prompt}},
			Temperature: floatField(r.Payload, "temperature", 0.5),
			MaxTokens:   intField(r.Payload, "max_tokens", 300),
			Requests:    []*domain.Request{r},
		}
	}
	return calls
}

func (genericComposer) Decompose(call Call, rawReply string, usage Usage) []domain.Response {
	r := call.Requests[0]
	return []domain.Response{
		domain.NewSuccess(r.ID, map[string]any{"text": rawReply}, usage.TotalTokens, usage.CostEstimate, 0),
	}
}
