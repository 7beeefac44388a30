// Package cache provides the bounded TTL cache fronting short code lookups.
// It is an accelerator only, never the source of truth: a fault here
// degrades to a miss.
package cache

import (
	"log"
	"sync"
	"time"

	"shorturl/internal/models"
)

// Stats describes the cache's current occupancy.
type Stats struct {
	Size        int           `json:"size"`
	MaxSize     int           `json:"max_size"`
	TTL         time.Duration `json:"ttl"`
	Utilization float64       `json:"utilization_percent"`
}

type entry struct {
	value     *models.ShortURL
	storedAt  time.Time
	expiresAt time.Time
}

// Cache is a bounded key→record cache with per-entry TTL.
//
// Eviction is strictly insertion-order FIFO, not LRU: when full, the
// oldest-inserted entry is evicted regardless of how recently it was read.
// Re-setting a live key refreshes its value and expiry but keeps its queue
// position. This is the documented behavior; do not "fix" it to LRU.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	queue   []string // keys in insertion order, oldest first

	maxSize int
	ttl     time.Duration
	clock   models.Clock

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a cache with the given capacity and TTL. When sweepInterval is
// positive a background sweeper removes expired entries on that period, so
// memory stays bounded even without reads. Close stops the sweeper.
func New(maxSize int, ttl, sweepInterval time.Duration, clock models.Clock) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		maxSize: maxSize,
		ttl:     ttl,
		clock:   clock,
		stop:    make(chan struct{}),
	}
	if sweepInterval > 0 {
		go c.sweeper(sweepInterval)
	}
	return c
}

// Set stores value under key with expiry now + TTL. When the cache is at
// capacity and key is new, the single oldest-inserted entry is evicted first.
func (c *Cache) Set(key string, value *models.ShortURL) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		// Live key keeps its queue position.
		e.value = value
		e.storedAt = now
		e.expiresAt = now.Add(c.ttl)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}

	c.entries[key] = &entry{
		value:     value,
		storedAt:  now,
		expiresAt: now.Add(c.ttl),
	}
	c.queue = append(c.queue, key)
}

// Get returns the cached record for key, or a miss when absent or expired.
// Expired entries are deleted lazily on read.
func (c *Cache) Get(key string) (*models.ShortURL, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock.Now().After(e.expiresAt) {
		c.deleteLocked(key)
		return nil, false
	}
	return e.value, true
}

// Has reports whether key is present and not expired, without returning
// the value. Like Get it lazily deletes an expired entry.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key. It reports whether an entry was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	c.deleteLocked(key)
	return true
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.queue = c.queue[:0]
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the cache occupancy snapshot.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	utilization := 0.0
	if c.maxSize > 0 {
		utilization = float64(len(c.entries)) / float64(c.maxSize) * 100
	}
	return Stats{
		Size:        len(c.entries),
		MaxSize:     c.maxSize,
		TTL:         c.ttl,
		Utilization: utilization,
	}
}

// Close stops the background sweeper. Safe to call more than once.
func (c *Cache) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// evictOldestLocked removes the oldest-inserted entry. Caller holds the lock.
func (c *Cache) evictOldestLocked() {
	if len(c.queue) == 0 {
		return
	}
	oldest := c.queue[0]
	c.queue = c.queue[1:]
	delete(c.entries, oldest)
}

// deleteLocked removes key from both the map and the queue. Caller holds
// the lock.
func (c *Cache) deleteLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.queue {
		if k == key {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			break
		}
	}
}

// sweeper proactively removes expired entries on a fixed period.
func (c *Cache) sweeper(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := c.removeExpired(); removed > 0 {
				log.Printf("[CACHE] sweep removed %d expired entries", removed)
			}
		case <-c.stop:
			return
		}
	}
}

// removeExpired deletes every expired entry and returns how many went.
func (c *Cache) removeExpired() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	kept := c.queue[:0]
	for _, key := range c.queue {
		e, ok := c.entries[key]
		if !ok {
			continue
		}
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
			continue
		}
		kept = append(kept, key)
	}
	c.queue = kept
	return removed
}
