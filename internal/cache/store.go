package cache

import (
	"time"

	"github.com/bridgify/batchdispatch/internal/domain"
)

// Store is the shape both Cache (L1-only) and RedisMirror (L1+L2)
// satisfy, letting Processor and BatchWorker depend on whichever
// backend a deployment wires in without caring which one it is.
type Store interface {
	Get(key string) (domain.Response, bool)
	Put(key string, value domain.Response, ttl time.Duration)
	Clear()
	Len() int
}
