package compose

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/bridgify/batchdispatch/internal/domain"
)

const classificationBodyTruncate = 500

type classificationEmailEntry struct {
	Index   int    `json:"index"`
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Body    string `json:"body"`
}

type classificationReply struct {
	Classifications []classificationResult `json:"classifications"`
}

type classificationResult struct {
	Index int            `json:"index"`
	Data  map[string]any `json:"-"`
}

// UnmarshalJSON captures the whole object so every model-provided
// field (category, priority, tags, ...) survives into Response.Data,
// not just the index used for back-mapping.
func (c *classificationResult) UnmarshalJSON(b []byte) error {
	raw := make(map[string]any)
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if idx, ok := raw["index"]; ok {
		switch v := idx.(type) {
		case float64:
			c.Index = int(v)
		case int:
			c.Index = v
		}
	}
	c.Data = raw
	return nil
}

// classificationComposer bundles up to batch_size requests into one
// prompt, grounded on buildBatchClassifyPrompt /
// BatchClassifyInput/Response in worker_llm_batch.go.
type classificationComposer struct{}

func (classificationComposer) Compose(requests []*domain.Request) []Call {
	if len(requests) == 0 {
		return nil
	}

	entries := make([]classificationEmailEntry, len(requests))
	for i, r := range requests {
		entries[i] = classificationEmailEntry{
			Index:   i,
			Subject: stringField(r.Payload, "subject"),
			Sender:  stringField(r.Payload, "sender"),
			Body:    truncate(stringField(r.Payload, "body"), classificationBodyTruncate),
		}
	}

	body, _ := json.Marshal(entries)
	prompt := fmt.Sprintf(`Classify each email below. Respond with a JSON object: {"classifications":[{"index":<int>,"category":"...","priority":<1-5>,"tags":[...]}]}.

Emails:
%s`, string(body))

	model := stringField(requests[0].Payload, "model")
	if model == "" {
		model = "gpt-4o-mini"
	}

	return []Call{{
		Model:          model,
		Messages:       []Message{{Role: "user", Content: prompt}},
		Temperature:    0.3,
		MaxTokens:      150 * len(requests),
		ExpectJSONMode: true,
		Requests:       requests,
	}}
}

func (classificationComposer) Decompose(call Call, rawReply string, usage Usage) []domain.Response {
	return decomposeIndexed(call, rawReply, usage, func(raw string) (map[int]map[string]any, error) {
		var reply classificationReply
		if err := json.Unmarshal([]byte(raw), &reply); err != nil {
			return nil, err
		}
		out := make(map[int]map[string]any, len(reply.Classifications))
		for _, c := range reply.Classifications {
			out[c.Index] = c.Data
		}
		return out, nil
	})
}

// decomposeIndexed is the shared back-mapping logic for every bundled
// composer: parse the raw reply into an index->data map, then pair
// every input request (in order) with its entry or a
// missing_in_batch_response failure. Decomposition is total by
// construction: the loop always emits len(call.Requests) responses.
func decomposeIndexed(call Call, rawReply string, usage Usage, parse func(string) (map[int]map[string]any, error)) []domain.Response {
	byIndex, err := parse(rawReply)
	if err != nil {
		out := make([]domain.Response, len(call.Requests))
		for i, r := range call.Requests {
			out[i] = domain.NewFailure(r.ID, domain.ErrParseError, 0)
		}
		return out
	}

	tokensEach, costEach := splitTokensAndCost(usage, len(call.Requests))

	out := make([]domain.Response, len(call.Requests))
	for i, r := range call.Requests {
		data, ok := byIndex[i]
		if !ok {
			out[i] = domain.NewFailure(r.ID, domain.ErrMissingInBatch, 0)
			continue
		}
		out[i] = domain.NewSuccess(r.ID, data, tokensEach, costEach, 0)
	}
	return out
}
