// Package tiered layers an in-process cache in front of a shared one.
package tiered

import (
	"context"
	"log/slog"
	"time"

	"github.com/Strob0t/standardhub/internal/port/cache"
)

var _ cache.Cache = (*Cache)(nil)

// Cache reads L1 then L2, backfilling L1 on an L2 hit. L2 failures degrade
// to a miss on reads; writes and deletes must reach both levels.
type Cache struct {
	l1       cache.Cache
	l2       cache.Cache
	l1Expire time.Duration
}

// New creates a tiered cache. l1Expire bounds how long backfilled entries
// stay in L1, which also bounds cross-replica staleness.
func New(l1, l2 cache.Cache, l1Expire time.Duration) *Cache {
	return &Cache{l1: l1, l2: l2, l1Expire: l1Expire}
}

// Get checks L1, then L2.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, found, err := c.l1.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return val, true, nil
	}

	val, found, err = c.l2.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "l2 cache read failed", "key", key, "error", err)
		return nil, false, nil
	}
	if !found {
		return nil, false, nil
	}
	_ = c.l1.Set(ctx, key, val, c.l1Expire)
	return val, true, nil
}

// Set writes L2 first so a failed write never leaves L1 ahead of L2.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l2.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.l1.Set(ctx, key, value, min(ttl, c.l1Expire))
}

// Delete removes from both levels, L1 even when L2 fails.
func (c *Cache) Delete(ctx context.Context, key string) error {
	l1Err := c.l1.Delete(ctx, key)
	if err := c.l2.Delete(ctx, key); err != nil {
		return err
	}
	return l1Err
}
