package files

import (
	"context"
	"fmt"
	"time"

	errors "github.com/Laisky/errors/v2"
	gredis "github.com/Laisky/go-redis/v2"
	"github.com/redis/go-redis/v9"
)

// ListingCache caches serialized listings per invalidation path.
//
// Load also reports the generation of path it looked under. Store writes
// under that generation, so a listing queried before an Invalidate that
// finished meanwhile is never served. Invalidate makes every entry stored
// under path unreachable.
type ListingCache interface {
	Load(ctx context.Context, path, key string) (payload []byte, gen int64, ok bool, err error)
	Store(ctx context.Context, path, key string, gen int64, payload []byte) error
	Invalidate(ctx context.Context, path string) error
}

// NopListingCache disables caching.
type NopListingCache struct{}

// Load always misses.
func (NopListingCache) Load(context.Context, string, string) ([]byte, int64, bool, error) {
	return nil, 0, false, nil
}

// Store discards the payload.
func (NopListingCache) Store(context.Context, string, string, int64, []byte) error { return nil }

// Invalidate does nothing.
func (NopListingCache) Invalidate(context.Context, string) error { return nil }

// RedisListingCache keys entries by a per-path generation counter.
// Invalidating a path bumps its generation, so stale entries simply expire.
type RedisListingCache struct {
	rdb    *redis.Client
	utils  *gredis.Utils
	prefix string
	ttl    time.Duration
}

// NewRedisListingCache constructs a redis-backed listing cache.
func NewRedisListingCache(rdb *redis.Client, utils *gredis.Utils, prefix string, ttl time.Duration) *RedisListingCache {
	return &RedisListingCache{rdb: rdb, utils: utils, prefix: prefix, ttl: ttl}
}

func (c *RedisListingCache) generationKey(path string) string {
	return fmt.Sprintf("%s:gen:%s", c.prefix, path)
}

func (c *RedisListingCache) entryKey(path string, gen int64, key string) string {
	return fmt.Sprintf("%s:entry:%s:%d:%s", c.prefix, path, gen, key)
}

func (c *RedisListingCache) generation(ctx context.Context, path string) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.generationKey(path)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "get generation for %q", path)
	}
	return gen, nil
}

// Load returns the cached payload for key under the current generation of path.
func (c *RedisListingCache) Load(ctx context.Context, path, key string) ([]byte, int64, bool, error) {
	gen, err := c.generation(ctx, path)
	if err != nil {
		return nil, 0, false, err
	}

	payload, err := c.utils.GetItem(ctx, c.entryKey(path, gen, key))
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, errors.Wrap(err, "get cached listing")
	}
	return []byte(payload), gen, true, nil
}

// Store caches payload for key under generation gen of path.
// Nothing is written once path has moved past gen.
func (c *RedisListingCache) Store(ctx context.Context, path, key string, gen int64, payload []byte) error {
	current, err := c.generation(ctx, path)
	if err != nil {
		return err
	}
	if current != gen {
		return nil
	}

	// an Invalidate racing with this write moves readers to a newer generation
	if err = c.utils.SetItem(ctx, c.entryKey(path, gen, key), string(payload), c.ttl); err != nil {
		return errors.Wrap(err, "set cached listing")
	}
	return nil
}

// Invalidate bumps the generation of path.
func (c *RedisListingCache) Invalidate(ctx context.Context, path string) error {
	if err := c.rdb.Incr(ctx, c.generationKey(path)).Err(); err != nil {
		return errors.Wrapf(err, "invalidate %q", path)
	}
	return nil
}
