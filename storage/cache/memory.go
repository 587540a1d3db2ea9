package cache

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/classroom/core"
)

type entry struct {
	val       []byte
	expiresAt time.Time // zero: never
}

// Memory is a process-local cache, used in tests and when no redis is configured.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

var _ core.Cache = (*Memory)(nil) // interface compliance check

// NewMemory returns an empty cache. now defaults to core.NowFunc.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = func() time.Time { return core.NowFunc() }
	}
	return &Memory{entries: make(map[string]entry), now: now}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if c.expired(e) {
		c.mu.Lock()
		// the key may have been set again since it was read
		if e, ok = c.entries[key]; ok && c.expired(e) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	val := make([]byte, len(e.val))
	copy(val, e.val)
	return val, true, nil
}

func (c *Memory) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}

// Set stores a copy of val. A non-positive ttl keeps the key forever.
func (c *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	e := entry{val: make([]byte, len(val))}
	copy(e.val, val)
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Flush drops every key.
func (c *Memory) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}
