// Package cache provides a Redis-backed result cache for expensive
// lookups. Misses repopulate through a bounded semaphore with a second
// existence check after acquisition, so a stampede of identical misses
// costs one computation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// maxConcurrentLoads bounds how many loaders may run at once across all
// keys.
const maxConcurrentLoads = 8

// Loader computes the value for a missing key.
type Loader func(ctx context.Context) (interface{}, error)

type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	sem    chan struct{}
}

func New(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		sem:    make(chan struct{}, maxConcurrentLoads),
	}
}

// GetOrLoad fetches key into dst, running loader on a miss. The loaded
// value is stored and also unmarshalled into dst so every caller sees the
// cached representation, not the loader's in-memory one.
func (c *Cache) GetOrLoad(ctx context.Context, key string, dst interface{}, loader Loader) error {
	full := c.prefix + ":" + key

	if ok, err := c.get(ctx, full, dst); err != nil {
		return err
	} else if ok {
		return nil
	}

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.sem }()

	// Another loader may have filled the key while this one waited.
	if ok, err := c.get(ctx, full, dst); err != nil {
		return err
	} else if ok {
		return nil
	}

	value, err := loader(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, full, raw, c.ttl).Err(); err != nil {
		// Failing to store is not failing to answer.
		log.Warn().Err(err).Str("key", full).Msg("cache: store failed")
	}
	return json.Unmarshal(raw, dst)
}

// get returns (true, nil) on a hit with dst populated.
func (c *Cache) get(ctx context.Context, fullKey string, dst interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, fullKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", fullKey, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// A corrupt entry behaves like a miss and gets overwritten.
		log.Warn().Err(err).Str("key", fullKey).Msg("cache: corrupt entry, treating as miss")
		return false, nil
	}
	return true, nil
}

// Invalidate drops one key.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+":"+key).Err()
}

// InvalidatePrefix drops every key under the cache's prefix.
func (c *Cache) InvalidatePrefix(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
