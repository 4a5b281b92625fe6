// README: Redis-backed distance cache shared across API instances.
package distance

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "distance:pair:"

// RedisCache shares measured distances across processes. Expiry is enforced
// by per-key TTL; capacity is redis's problem (maxmemory policy), not ours.
// Redis errors are swallowed as misses so a cache outage degrades to extra
// matrix calls instead of failed scoring requests.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, ttl: DefaultTTL}
}

func (c *RedisCache) Get(ctx context.Context, origin, destination string) (Result, bool) {
	key, _, _ := pairKey(origin, destination)
	raw, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		return Result{}, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Result{}, false
	}
	return e.Result, true
}

func (c *RedisCache) Set(ctx context.Context, origin, destination string, r Result) {
	key, o, d := pairKey(origin, destination)
	e := entry{
		Result:     r,
		OriginNorm: o,
		DestNorm:   d,
		StoredAt:   time.Now(),
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, redisKeyPrefix+key, raw, c.ttl).Err()
}

// Cleanup is a no-op: redis evicts expired keys itself.
func (c *RedisCache) Cleanup(_ context.Context) int {
	return 0
}
