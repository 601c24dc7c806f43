// Package respcache maps normalized request fingerprints to previously
// computed completion results, so semantically equal requests within the
// TTL window cost nothing.
package respcache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pitchlens/pitchlens/internal/models"
)

// entry is owned exclusively by the cache. Created on miss, read on hit
// until expiry, evicted by the TTL sweep or by oldest-created eviction
// under capacity pressure.
type entry struct {
	payload   *models.CompletionResult
	createdAt time.Time
	expiresAt time.Time
	hitCount  int
}

// Stats reports cache occupancy and cumulative hit accounting since the
// last explicit Clear.
type Stats struct {
	Size     int     `json:"size"`
	Capacity int     `json:"capacity"`
	Hits     int     `json:"hits"`
	Misses   int     `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
}

// Cache is a bounded in-memory response cache with TTL expiry.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	maxEntries int
	defaultTTL time.Duration
	hits       int
	misses     int
	now        func() time.Time
	logger     *slog.Logger
}

// New constructs a cache holding at most maxEntries results, each living
// for defaultTTL unless overridden per Set call.
func New(maxEntries int, defaultTTL time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
		now:        time.Now,
		logger:     logger,
	}
}

// Get returns the cached payload for a fingerprint, or nil on miss.
// An expired entry is removed on access and counts as a miss.
func (c *Cache) Get(fingerprint string) *models.CompletionResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[fingerprint]
	if !ok {
		c.misses++
		return nil
	}

	if !c.now().Before(e.expiresAt) {
		delete(c.entries, fingerprint)
		c.misses++
		return nil
	}

	e.hitCount++
	c.entries[fingerprint] = e
	c.hits++
	return e.payload
}

// Set stores a payload under a fingerprint. An optional ttl overrides
// the cache default for this entry only.
func (c *Cache) Set(fingerprint string, payload *models.CompletionResult, ttl ...time.Duration) {
	entryTTL := c.defaultTTL
	if len(ttl) > 0 && ttl[0] > 0 {
		entryTTL = ttl[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	// Make room before inserting: drop the entry with the oldest
	// creation timestamp, not the least recently used one.
	if _, exists := c.entries[fingerprint]; !exists {
		for len(c.entries) >= c.maxEntries {
			oldestKey := ""
			var oldestAt time.Time
			for k, e := range c.entries {
				if oldestKey == "" || e.createdAt.Before(oldestAt) {
					oldestKey = k
					oldestAt = e.createdAt
				}
			}
			if oldestKey == "" {
				break
			}
			delete(c.entries, oldestKey)
			c.logger.Debug("evicted oldest cache entry", "created_at", oldestAt)
		}
	}

	c.entries[fingerprint] = entry{
		payload:   payload,
		createdAt: now,
		expiresAt: now.Add(entryTTL),
	}
}

// Sweep removes all expired entries. Run periodically so memory does
// not grow without traffic; safe against concurrent Get/Set.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debug("cache sweep removed expired entries", "count", removed)
	}
	return removed
}

// Clear drops every entry and resets the hit/miss counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
	c.hits = 0
	c.misses = 0
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetStats reports size, capacity, and hit rate (0 with no requests).
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	requests := c.hits + c.misses
	rate := 0.0
	if requests > 0 {
		rate = float64(c.hits) / float64(requests)
	}

	return Stats{
		Size:     len(c.entries),
		Capacity: c.maxEntries,
		Hits:     c.hits,
		Misses:   c.misses,
		HitRate:  rate,
	}
}
