// Package statcache answers "has this file changed?" while keeping
// filesystem metadata queries off the hot path. Each path gets a token
// bucket; between refills Changed returns false without touching the
// filesystem at all.
package statcache

import (
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"retune/internal/observability"
)

type Cache struct {
	interval time.Duration

	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	limiter *rate.Limiter

	mu      sync.Mutex
	force   bool
	known   bool
	modTime time.Time
}

// New creates a cache that performs at most one real metadata query per
// path per interval.
func New(interval time.Duration) *Cache {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Cache{
		interval: interval,
		entries:  make(map[string]*entry),
	}
}

// Changed reports whether path's change stamp differs from the last one
// this cache definitively observed. Throttled calls and stat failures
// both report false; a tweak lookup must never become an error because
// the file is briefly unavailable.
func (c *Cache) Changed(path string) bool {
	e := c.get(path)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.force && !e.limiter.Allow() {
		return false
	}
	e.force = false

	observability.StatChecksTotal.Inc()
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	mod := info.ModTime()
	if !e.known {
		e.known = true
		e.modTime = mod
		return false
	}
	if mod.Equal(e.modTime) {
		return false
	}
	e.modTime = mod
	return true
}

// Expire lets the next Changed call for path bypass the throttle. The
// fsnotify assist uses this so an observed write is picked up on the
// very next lookup instead of after the interval.
func (c *Cache) Expire(path string) {
	e := c.get(path)
	e.mu.Lock()
	e.force = true
	e.mu.Unlock()
}

// Forget drops the per-path state, so the next Changed call
// re-establishes the baseline stamp.
func (c *Cache) Forget(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

func (c *Cache) get(path string) *entry {
	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()
	if ok {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok = c.entries[path]; ok {
		return e
	}
	e = &entry{limiter: rate.NewLimiter(rate.Every(c.interval), 1)}
	c.entries[path] = e
	return e
}
