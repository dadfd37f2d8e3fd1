package compose

import (
	"testing"

	"github.com/bridgify/batchdispatch/internal/domain"
)

func classificationRequests(n int) []*domain.Request {
	out := make([]*domain.Request, n)
	for i := 0; i < n; i++ {
		out[i] = &domain.Request{
			ID:   string(rune('a' + i)),
			Type: domain.TypeClassification,
			Payload: domain.Payload{
				"subject": "subject",
				"sender":  "sender@example.com",
				"body":    "body text",
			},
		}
	}
	return out
}

func TestClassificationComposeBundlesIntoOneCall(t *testing.T) {
	requests := classificationRequests(3)
	calls := classificationComposer{}.Compose(requests)
	if len(calls) != 1 {
		t.Fatalf("expected one bundled call, got %d", len(calls))
	}
	if len(calls[0].Requests) != 3 {
		t.Fatalf("expected all 3 requests in the one call, got %d", len(calls[0].Requests))
	}
	if !calls[0].ExpectJSONMode {
		t.Error("expected classification calls to request JSON mode")
	}
}

func TestClassificationDecomposeIsTotal(t *testing.T) {
	requests := classificationRequests(3)
	call := classificationComposer{}.Compose(requests)[0]

	reply := `{"classifications":[{"index":0,"category":"work"},{"index":2,"category":"spam"}]}`
	responses := classificationComposer{}.Decompose(call, reply, Usage{TotalTokens: 30, CostEstimate: 0.03})

	if len(responses) != 3 {
		t.Fatalf("expected exactly 3 responses for 3 requests, got %d", len(responses))
	}
	if !responses[0].Success || responses[0].Data["category"] != "work" {
		t.Errorf("expected request 0 to succeed with category work, got %+v", responses[0])
	}
	if responses[1].Success || responses[1].Error != domain.ErrMissingInBatch {
		t.Errorf("expected request 1 (missing index) to fail with missing_in_batch_response, got %+v", responses[1])
	}
	if !responses[2].Success {
		t.Errorf("expected request 2 to succeed, got %+v", responses[2])
	}
}

func TestClassificationDecomposeHandlesParseFailure(t *testing.T) {
	requests := classificationRequests(2)
	call := classificationComposer{}.Compose(requests)[0]

	responses := classificationComposer{}.Decompose(call, "not json", Usage{})
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses even on parse failure, got %d", len(responses))
	}
	for _, r := range responses {
		if r.Success || r.Error != domain.ErrParseError {
			t.Errorf("expected parse_error failure for every request, got %+v", r)
		}
	}
}

func TestClassificationTokenSplitFloorsEvenly(t *testing.T) {
	requests := classificationRequests(3)
	call := classificationComposer{}.Compose(requests)[0]
	reply := `{"classifications":[{"index":0},{"index":1},{"index":2}]}`

	responses := classificationComposer{}.Decompose(call, reply, Usage{TotalTokens: 10, CostEstimate: 0.9})
	for _, r := range responses {
		if r.TokensUsed != 3 {
			t.Errorf("expected floor(10/3)=3 tokens per response, got %d", r.TokensUsed)
		}
	}
}
