package compose

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/bridgify/batchdispatch/internal/domain"
)

const (
	taskExtractionChunkSize    = 5
	taskExtractionBodyTruncate = 800
)

type taskEmailEntry struct {
	Index int    `json:"index"`
	Body  string `json:"body"`
}

type taskExtractionReply struct {
	EmailTasks []classificationResult `json:"email_tasks"` // reuses the same capture-everything shape
}

// taskExtractionComposer further sub-partitions the batch into chunks
// of 5 to bound output size, per spec.md section 4.5.
type taskExtractionComposer struct{}

func (taskExtractionComposer) Compose(requests []*domain.Request) []Call {
	var calls []Call
	for start := 0; start < len(requests); start += taskExtractionChunkSize {
		end := start + taskExtractionChunkSize
		if end > len(requests) {
			end = len(requests)
		}
		chunk := requests[start:end]

		entries := make([]taskEmailEntry, len(chunk))
		for i, r := range chunk {
			entries[i] = taskEmailEntry{
				Index: i,
				Body:  truncate(stringField(r.Payload, "body"), taskExtractionBodyTruncate),
			}
		}
		body, _ := json.Marshal(entries)
		prompt := fmt.Sprintf(`Extract action items from each email below. Respond with a JSON object: {"email_tasks":[{"index":<int>,"tasks":[...]}]}.

Emails:
%s`, string(body))

		model := stringField(chunk[0].Payload, "model")
		if model == "" {
			model = "gpt-4o-mini"
		}

		calls = append(calls, Call{
			Model:          model,
			Messages:       []Message{{Role: "user", Content: prompt}},
			Temperature:    0.3,
			MaxTokens:      150 * len(chunk),
			ExpectJSONMode: true,
			Requests:       chunk,
		})
	}
	return calls
}

func (taskExtractionComposer) Decompose(call Call, rawReply string, usage Usage) []domain.Response {
	return decomposeIndexed(call, rawReply, usage, func(raw string) (map[int]map[string]any, error) {
		var reply taskExtractionReply
		if err := json.Unmarshal([]byte(raw), &reply); err != nil {
			return nil, err
		}
		out := make(map[int]map[string]any, len(reply.EmailTasks))
		for _, t := range reply.EmailTasks {
			out[t.Index] = t.Data
		}
		return out, nil
	})
}
