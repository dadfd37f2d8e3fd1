// Package idgen derives stable identifiers from request content.
//
// Unlike the teacher's pkg/snowflake (a sequence-based generator meant
// for globally ordered, coordination-free IDs), request identity here
// must be a pure function of (type, payload, submit time) so that two
// processes hashing the same content agree without talking to each
// other — snowflake's per-process worker/sequence state would defeat
// that, so it is not reused; only its "one small package, one job"
// shape is.
package idgen

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	json "github.com/goccy/go-json"
)

// volatileKeys are stripped from a payload before it contributes to a
// dedup fingerprint, since they vary between otherwise-identical
// submissions without changing intent.
var volatileKeys = map[string]bool{
	"timestamp": true,
	"id":        true,
	"request_id": true,
}

// canonicalize produces a deterministic JSON encoding of a map by
// sorting keys, so identical content always hashes identically.
func canonicalize(m map[string]any) []byte {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]keyValue, 0, len(keys))
	for _, k := range keys {
		ordered = append(ordered, keyValue{Key: k, Value: m[k]})
	}
	b, _ := json.Marshal(ordered)
	return b
}

type keyValue struct {
	Key   string `json:"k"`
	Value any    `json:"v"`
}

func hash(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0}) // separator so concatenation can't collide across parts
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// RequestID derives a globally-unique identifier from the request
// type, its full payload, and the submission instant. Two calls with
// identical arguments (including the timestamp) produce the same ID,
// but real submissions always carry distinct submission instants, so
// collisions only happen for genuine duplicates of the same call.
func RequestID(reqType string, payload map[string]any, submittedAt time.Time) string {
	return hash([]byte(reqType), canonicalize(payload), []byte(submittedAt.Format(time.RFC3339Nano)))
}

// DedupKey derives a content fingerprint used for cache and dedup
// lookup: the request type plus the payload with volatile fields
// stripped. It deliberately excludes the submission instant so that
// repeated submissions of the same content collide.
func DedupKey(reqType string, payload map[string]any) string {
	clean := make(map[string]any, len(payload))
	for k, v := range payload {
		if volatileKeys[k] {
			continue
		}
		clean[k] = v
	}
	return hash([]byte(reqType), canonicalize(clean))
}
