package domain

// Batch is a transient, non-empty grouping of Requests sharing one
// Type, capped at the configured batch size. It is produced by the
// BatchAssembler and consumed by exactly one BatchWorker invocation.
type Batch struct {
	Type     RequestType
	Requests []*Request
}

// Len reports the number of requests in the batch.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Requests)
}

// Partition splits a (possibly mixed-type) batch into one sub-batch
// per type, preserving relative order within each type. Batches
// produced by the BatchAssembler are already single-type (every
// strategy collects one request type at a time), in which case
// Partition returns a single-element slice.
func (b *Batch) Partition() []*Batch {
	if b == nil || len(b.Requests) == 0 {
		return nil
	}

	order := make([]RequestType, 0, 4)
	groups := make(map[RequestType][]*Request)
	for _, r := range b.Requests {
		if _, ok := groups[r.Type]; !ok {
			order = append(order, r.Type)
		}
		groups[r.Type] = append(groups[r.Type], r)
	}

	out := make([]*Batch, 0, len(order))
	for _, t := range order {
		out = append(out, &Batch{Type: t, Requests: groups[t]})
	}
	return out
}
