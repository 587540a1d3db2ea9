package cache

import (
	"context"
	"strings"
	"time"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/services/metrics"
)

// Instrumented counts the lookups of the wrapped cache by key prefix.
type Instrumented struct {
	core.Cache
}

func NewInstrumented(c core.Cache) *Instrumented {
	return &Instrumented{Cache: c}
}

func (c *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, ok, err := c.Cache.Get(ctx, key)
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case ok:
		result = "hit"
	}
	metrics.RecordCacheRequest(keyPrefix(key), result)
	return val, ok, err
}

func (c *Instrumented) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.Cache.Set(ctx, key, val, ttl)
}

// keyPrefix returns the part of key before "::".
func keyPrefix(key string) string {
	if i := strings.Index(key, "::"); i >= 0 {
		return key[:i]
	}
	return key
}
