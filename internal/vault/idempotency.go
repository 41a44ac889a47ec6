package vault

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"TokenVault/internal/observability"
)

// OpOutcome is the recorded result of one completed operation: enough to
// reproduce the response a retried request should receive. Amounts are
// decimal strings so entries never alias live uint256 values.
type OpOutcome struct {
	OperationID uuid.UUID
	Asset       AssetID
	Received    string
	Snapshot    string
	Recipient   Address
	Amount      string

	// RequestDigest fingerprints the request that produced this outcome.
	// A cache hit whose digest differs means the key was reused for a
	// different request.
	RequestDigest string
}

// ReplayCache is an LRU of completed operation outcomes keyed by a
// client-supplied idempotency key. A retried request with the same key
// gets the recorded outcome back instead of running the operation again.
//
// Unlike a durable dedup store, the cache only smooths retries: an entry
// evicted under memory pressure means the retry re-executes, and callers
// own that decision. Safe for concurrent use; transport handlers run in
// parallel.
type ReplayCache struct {
	mu       sync.Mutex
	capacity int
	cache    map[string]*list.Element
	order    *list.List

	metrics *observability.Metrics
}

type replayEntry struct {
	key     string
	outcome OpOutcome
}

func NewReplayCache(capacity int, metrics *observability.Metrics) *ReplayCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &ReplayCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		metrics:  metrics,
	}
}

// Get looks up the outcome recorded for (op, key) and promotes it to most
// recently used. The op name is part of the key, so the same client key
// used against two different operations never collides.
func (c *ReplayCache) Get(op, key string) (OpOutcome, bool) {
	composite := compositeKey(op, key)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[composite]
	if !ok {
		return OpOutcome{}, false
	}
	c.order.MoveToFront(elem)
	if c.metrics != nil {
		c.metrics.IdempotentReplays.Inc()
	}
	return elem.Value.(*replayEntry).outcome, true
}

// Put records the outcome for (op, key), evicting the least recently used
// entry when the cache is full.
func (c *ReplayCache) Put(op, key string, outcome OpOutcome) {
	composite := compositeKey(op, key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[composite]; ok {
		elem.Value.(*replayEntry).outcome = outcome
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&replayEntry{key: composite, outcome: outcome})
	c.cache[composite] = elem

	if c.order.Len() > c.capacity {
		c.evictOldest()
	}
	if c.metrics != nil {
		c.metrics.ReplayLRUSize.Set(float64(c.order.Len()))
	}
}

func (c *ReplayCache) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	c.order.Remove(elem)
	delete(c.cache, elem.Value.(*replayEntry).key)
	if c.metrics != nil {
		c.metrics.ReplayLRUEvictions.Inc()
	}
}

// Size returns the current number of entries.
func (c *ReplayCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func compositeKey(op, key string) string {
	return fmt.Sprintf("%s:%s", op, key)
}
