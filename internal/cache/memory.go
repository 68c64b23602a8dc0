package cache

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache holds raw call results in a size-bounded LRU. Entries expire
// ttl after they were stored; a hit does not extend their lifetime.
type MemoryCache struct {
	results *expirable.LRU[string, []byte]
}

// NewMemoryCache creates a cache holding at most size results
func NewMemoryCache(size int, ttl time.Duration) (*MemoryCache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", size)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	return &MemoryCache{
		results: expirable.NewLRU[string, []byte](size, nil, ttl),
	}, nil
}

// Get returns the stored result for key unless it is missing or expired
func (mc *MemoryCache) Get(key string) ([]byte, bool) {
	return mc.results.Get(key)
}

// Set stores result under key, evicting the least recently used entry when full
func (mc *MemoryCache) Set(key string, result []byte) {
	mc.results.Add(key, result)
}

// Len returns the number of stored results, expired ones included until swept
func (mc *MemoryCache) Len() int {
	return mc.results.Len()
}

// Close drops every stored result
func (mc *MemoryCache) Close() {
	mc.results.Purge()
}
