package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// resultCache stores assembled result sets for repeated identical
// queries. It is invalidated wholesale on every index rebuild, so a hit
// can never serve results from a stale corpus generation.
type resultCache struct {
	lru *expirable.LRU[string, []*Result]
}

// newResultCache creates a result cache. size <= 0 disables caching and
// returns a cache whose operations are no-ops.
func newResultCache(size int, ttl time.Duration) *resultCache {
	if size <= 0 {
		return &resultCache{}
	}
	return &resultCache{
		lru: expirable.NewLRU[string, []*Result](size, nil, ttl),
	}
}

// cacheKey builds the lookup key from the normalized query text and the
// effective constraints.
func cacheKey(query string, cons Constraints) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return fmt.Sprintf("%s|%d|%d|%d", normalized, cons.YearMin, cons.YearMax, cons.TopK)
}

func (c *resultCache) Get(key string) ([]*Result, bool) {
	if c.lru == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

func (c *resultCache) Add(key string, results []*Result) {
	if c.lru == nil {
		return
	}
	c.lru.Add(key, results)
}

// Purge drops every cached entry.
func (c *resultCache) Purge() {
	if c.lru == nil {
		return
	}
	c.lru.Purge()
}
