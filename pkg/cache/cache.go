package cache

import (
	"sync"
	"time"
)

// entry is a cached payload. A zero expiresAt never expires.
type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Options configures an in-memory Cache
type Options struct {
	DefaultExpiration time.Duration
	CleanupInterval   time.Duration
	MaxItems          int
}

// Cache is a bounded in-memory byte cache with per-entry expiration.
// Values are copied on the way in and on the way out.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	maxItems   int
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewCache creates a cache. Expired entries are purged every
// CleanupInterval when it is positive; Close stops the purge loop.
func NewCache(opts Options) *Cache {
	c := &Cache{
		entries:    make(map[string]entry),
		defaultTTL: opts.DefaultExpiration,
		maxItems:   opts.MaxItems,
		now:        time.Now,
		stop:       make(chan struct{}),
	}

	if opts.CleanupInterval > 0 {
		go c.purgeLoop(opts.CleanupInterval)
	}
	return c
}

// Set stores value under key. A non-positive ttl uses the default
// expiration; a zero default never expires.
func (c *Cache) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxItems > 0 && len(c.entries) >= c.maxItems {
		c.evict()
	}
	c.entries[key] = e
}

// Get returns a copy of the value stored under key
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, found := c.entries[key]
	c.mu.RUnlock()

	if !found || e.expired(c.now()) {
		return nil, false
	}
	return append([]byte(nil), e.value...), true
}

// Delete removes key
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the purge loop
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) purgeLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.purgeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) purgeExpired() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
		}
	}
}

// evict drops an expired entry if there is one, otherwise the entry that
// expires soonest. Entries without an expiration go last. Caller holds mu.
func (c *Cache) evict() {
	now := c.now()
	victim, found := "", false
	var soonest time.Time

	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			return
		}
		if e.expiresAt.IsZero() {
			if !found {
				victim, found = k, true
			}
			continue
		}
		if !found || soonest.IsZero() || e.expiresAt.Before(soonest) {
			victim, soonest, found = k, e.expiresAt, true
		}
	}

	if found {
		delete(c.entries, victim)
	}
}
