package risk

import (
	"fmt"
	"sync"
	"time"
)

// DefaultCacheTTL bounds how long a prediction stays fresh.
const DefaultCacheTTL = time.Hour

// Cache memoizes predictions per (user, product, context-discriminator)
// key with lazy TTL expiry: entries are checked on read, never swept in
// the background.
//
// Concurrency: Get and Put serialize through an RWMutex. Two goroutines
// racing on the same cold key may both compute the prediction; that is
// acceptable because predictions are deterministic for identical inputs,
// so the duplicate work is wasted but never inconsistent.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry

	// now is swappable for tests.
	now func() time.Time
}

type cacheEntry struct {
	pred      *RiskPrediction
	createdAt time.Time
}

// NewCache creates a prediction cache. A non-positive ttl falls back to
// DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// CacheKey builds the memoization key. The key is deliberately coarse:
// it carries only the context fields that materially move the score
// (device type, new-customer flag) and omits price, promotion, and the
// rest. That trades precision for hit rate; the product ID must stay in
// the key or distinct products for the same user would collide.
func CacheKey(userID, productID, deviceType string, isNewCustomer bool) string {
	return fmt.Sprintf("%s:%s:%s:%t", userID, productID, deviceType, isNewCustomer)
}

// Get returns the cached prediction for key, or nil when absent or
// expired. Expired entries are deleted on observation.
func (c *Cache) Get(key string) *RiskPrediction {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil
	}
	if c.now().Sub(entry.createdAt) > c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; a Put may have refreshed it.
		if current, still := c.entries[key]; still && c.now().Sub(current.createdAt) > c.ttl {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil
	}
	return entry.pred
}

// Put stores a prediction under key, resetting its TTL.
func (c *Cache) Put(key string, pred *RiskPrediction) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{pred: pred, createdAt: c.now()}
	c.mu.Unlock()
}

// Len reports the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops every entry. Used by operational tooling after a policy
// version change.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
