// Package market implements the cross-venue price cache and spread
// detection engine.
//
// Cache holds the latest PricePoint per (venue, symbol) key, overwriting on
// every update — no history is retained. It is read by the strategy loop
// and written concurrently by many independent stream tasks; the contract
// is "last write wins per key, atomic per entry." A sharded map (one mutex
// per shard, keyed by a hash of venue+symbol) is used instead of a single
// global lock so writers for different venues never contend, following the
// teacher's per-resource RWMutex convention (internal/market/book.go) but
// generalized to many independent keys instead of one.
package market

import (
	"hash/fnv"
	"sync"

	"arbitrage/pkg/types"
)

const shardCount = 32

type shard struct {
	mu     sync.RWMutex
	points map[string]types.PricePoint
}

// Cache is a concurrency-safe store of the latest price per (venue, symbol).
// Reads never block on writes to a different key's shard.
type Cache struct {
	shards [shardCount]*shard
}

// NewCache creates an empty price cache.
func NewCache() *Cache {
	c := &Cache{}
	for i := range c.shards {
		c.shards[i] = &shard{points: make(map[string]types.PricePoint)}
	}
	return c
}

func cacheKey(venue, symbol string) string {
	return venue + "\x00" + symbol
}

func (c *Cache) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return c.shards[h.Sum32()%shardCount]
}

// UpdatePrice unconditionally overwrites the cached point for (venue,
// symbol). O(1), safe for concurrent use from any number of goroutines.
func (c *Cache) UpdatePrice(venue, symbol string, price types.PricePoint) {
	key := cacheKey(venue, symbol)
	s := c.shardFor(key)
	s.mu.Lock()
	s.points[key] = price
	s.mu.Unlock()
}

// GetPrice returns the most recent point for (venue, symbol). ok is false
// if no update has ever been recorded — callers must never treat the zero
// value as a real price.
func (c *Cache) GetPrice(venue, symbol string) (types.PricePoint, bool) {
	key := cacheKey(venue, symbol)
	s := c.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[key]
	return p, ok
}
