// README: Bounded, time-expiring cache of measured distance lookups.
package distance

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"
)

const (
	// DefaultTTL is how long a measured distance stays trustworthy. Road
	// networks change slowly; a month keeps repeat lookups nearly free.
	DefaultTTL = 30 * 24 * time.Hour
	// DefaultCapacity bounds in-process memory. When full, the oldest tenth
	// of entries is dropped to make room.
	DefaultCapacity = 10000
)

// Cache stores measured distance results keyed by an unordered address pair.
// A→B and B→A share one entry. Implementations must tolerate concurrent use.
type Cache interface {
	Get(ctx context.Context, origin, destination string) (Result, bool)
	Set(ctx context.Context, origin, destination string, r Result)
	// Cleanup removes expired entries and reports how many were dropped.
	Cleanup(ctx context.Context) int
}

// MemoryCache is the per-process Cache. Entries are disposable: they expire
// after TTL, are evicted under capacity pressure, and vanish on restart.
type MemoryCache struct {
	mu       sync.Mutex
	entries  map[string]entry
	order    []string // insertion order; may hold keys already deleted
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:  make(map[string]entry),
		ttl:      DefaultTTL,
		capacity: DefaultCapacity,
		now:      time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, origin, destination string) (Result, bool) {
	key, _, _ := pairKey(origin, destination)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	if c.now().Sub(e.StoredAt) > c.ttl {
		delete(c.entries, key)
		return Result{}, false
	}
	return e.Result, true
}

func (c *MemoryCache) Set(_ context.Context, origin, destination string, r Result) {
	key, o, d := pairKey(origin, destination)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.entries) >= c.capacity {
			c.evictOldestLocked(c.capacity / 10)
		}
		// Expired reads delete entries but leave their keys in order; under
		// heavy churn that tail would grow without bound, so compact once it
		// doubles the live set.
		if len(c.order) > 2*c.capacity {
			c.compactOrderLocked()
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = entry{
		Result:     r,
		OriginNorm: o,
		DestNorm:   d,
		StoredAt:   c.now(),
	}
}

func (c *MemoryCache) Cleanup(_ context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := c.now()
	for key, e := range c.entries {
		if now.Sub(e.StoredAt) > c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	c.compactOrderLocked()
	return removed
}

// Len reports the number of live entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldestLocked drops up to n of the oldest live entries by insertion
// order. Keys already deleted (expired reads) are skipped for free.
func (c *MemoryCache) evictOldestLocked(n int) {
	if n < 1 {
		n = 1
	}
	evicted := 0
	i := 0
	for ; i < len(c.order) && evicted < n; i++ {
		if _, ok := c.entries[c.order[i]]; ok {
			delete(c.entries, c.order[i])
			evicted++
		}
	}
	c.order = c.order[i:]
}

func (c *MemoryCache) compactOrderLocked() {
	live := c.order[:0]
	for _, key := range c.order {
		if _, ok := c.entries[key]; ok {
			live = append(live, key)
		}
	}
	c.order = live
}

// pairKey builds the commutative cache key for an unordered address pair and
// returns the normalized forms of both addresses.
func pairKey(origin, destination string) (key, originNorm, destNorm string) {
	originNorm = normalizeAddress(origin)
	destNorm = normalizeAddress(destination)
	a, b := originNorm, destNorm
	if a > b {
		a, b = b, a
	}
	return a + "|" + b, originNorm, destNorm
}

// normalizeAddress case-folds, collapses runs of whitespace, and strips
// leading/trailing punctuation so trivially different spellings of the same
// address share a cache entry.
func normalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	addr = strings.Join(strings.Fields(addr), " ")
	return strings.TrimFunc(addr, func(r rune) bool {
		return unicode.IsPunct(r)
	})
}
