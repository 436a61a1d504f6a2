package readingcache

import (
	"context"
	"sync"
	"time"

	"github.com/hydrotwin/hydrotwin-api/internal/domain/piezometry"
)

type entry struct {
	series    piezometry.Series
	expiresAt time.Time
}

// MemoryCache keeps series in process memory for tests and local dev.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryCache constructs an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]entry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (piezometry.Series, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	out := make(piezometry.Series, len(e.series))
	copy(out, e.series)
	return out, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, series piezometry.Series, ttl time.Duration) error {
	stored := make(piezometry.Series, len(series))
	copy(stored, series)
	exp := time.Time{}
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = entry{series: stored, expiresAt: exp}
	c.mu.Unlock()
	return nil
}

var _ piezometry.ReadingCache = (*MemoryCache)(nil)
