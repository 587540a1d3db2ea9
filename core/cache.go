package core

import (
	"context"
	"time"
)

// Cache is a shared key-value store with per-entry expiry.
// Concurrent writes on the same key are last-write-wins.
type Cache interface {
	// Get returns ok=false when the key is absent or expired.
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}
