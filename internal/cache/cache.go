package cache

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ignite/crm-backoffice/internal/pkg/logger"
)

// Store is the raw byte-level backend behind ResultCache. Implementations
// must be safe for concurrent use.
type Store interface {
	// Get returns the cached bytes for key and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores val under key with the given TTL.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}

// DefaultTTL mirrors the 300-second window the dashboards were built
// around; override per cache via NewResultCache.
const DefaultTTL = 300 * time.Second

// ResultCache memoizes computed statistics under fingerprint keys with a
// fixed TTL. Concurrent callers that miss on the same key share a single
// computation; callers on different keys never block each other.
type ResultCache struct {
	store  Store
	ttl    time.Duration
	flight singleflight.Group
}

// NewResultCache creates a result cache over the given store. A ttl <= 0
// falls back to DefaultTTL.
func NewResultCache(store Store, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResultCache{
		store: store,
		ttl:   ttl,
	}
}

// TTL returns the cache's time-to-live.
func (c *ResultCache) TTL() time.Duration { return c.ttl }

// Invalidate drops the cached entry for key.
func (c *ResultCache) Invalidate(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// GetOrCompute returns the cached value for key, or runs compute, caches
// its JSON encoding, and returns it. Concurrent misses on the same key are
// deduplicated through singleflight, so one compute runs and every caller
// receives the winner's result (including its error). Backend failures are
// logged and degrade to a recompute; only compute errors surface to the
// caller.
func GetOrCompute[T any](ctx context.Context, c *ResultCache, key string, compute func(context.Context) (T, error)) (T, error) {
	var zero T

	if raw, ok := c.lookup(ctx, key); ok {
		var out T
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
		// A corrupt entry falls through to recompute and gets overwritten.
		logger.Warn("cache entry corrupt, recomputing", "key", key)
	}

	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		// Another process may have filled the key while we queued for
		// leadership; check once more before doing the expensive work.
		if raw, ok := c.lookup(ctx, key); ok {
			return raw, nil
		}

		out, err := compute(ctx)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(out)
		if err != nil {
			return nil, err
		}
		if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
			logger.Warn("cache write failed", "key", key, "error", err.Error())
		}
		return raw, nil
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(v.([]byte), &out); err != nil {
		return zero, err
	}
	return out, nil
}

func (c *ResultCache) lookup(ctx context.Context, key string) ([]byte, bool) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		logger.Warn("cache read failed", "key", key, "error", err.Error())
		return nil, false
	}
	return raw, ok
}
