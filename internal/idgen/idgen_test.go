package idgen

import (
	"testing"
	"time"
)

func TestRequestIDDeterministic(t *testing.T) {
	payload := map[string]any{"subject": "hello", "body": "world"}
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := RequestID("classification", payload, ts)
	b := RequestID("classification", payload, ts)
	if a != b {
		t.Fatalf("expected deterministic id, got %q and %q", a, b)
	}
}

func TestRequestIDDiffersOnTimestamp(t *testing.T) {
	payload := map[string]any{"subject": "hello"}
	a := RequestID("classification", payload, time.Unix(0, 0))
	b := RequestID("classification", payload, time.Unix(1, 0))
	if a == b {
		t.Fatal("expected different ids for different submission instants")
	}
}

func TestRequestIDKeyOrderIndependent(t *testing.T) {
	ts := time.Unix(100, 0)
	a := RequestID("classification", map[string]any{"a": 1, "b": 2}, ts)
	b := RequestID("classification", map[string]any{"b": 2, "a": 1}, ts)
	if a != b {
		t.Fatal("expected key order in the payload map to not affect the id")
	}
}

func TestDedupKeyIgnoresVolatileFields(t *testing.T) {
	a := DedupKey("classification", map[string]any{"subject": "hi", "timestamp": "2026-01-01"})
	b := DedupKey("classification", map[string]any{"subject": "hi", "timestamp": "2026-06-01"})
	if a != b {
		t.Fatal("expected dedup key to ignore the volatile timestamp field")
	}
}

func TestDedupKeyDiffersOnContent(t *testing.T) {
	a := DedupKey("classification", map[string]any{"subject": "hi"})
	b := DedupKey("classification", map[string]any{"subject": "bye"})
	if a == b {
		t.Fatal("expected different dedup keys for different content")
	}
}

func TestDedupKeyDiffersFromRequestID(t *testing.T) {
	ts := time.Unix(0, 0)
	payload := map[string]any{"subject": "hi"}
	id := RequestID("classification", payload, ts)
	dedup := DedupKey("classification", payload)
	if id == dedup {
		t.Fatal("expected request id and dedup key to diverge (different hashed inputs)")
	}
}
