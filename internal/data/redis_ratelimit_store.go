package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/boostd/internal/core"
)

// RedisRateLimitStore keeps fixed-window counters in Redis so several processes
// share one submission budget per identity. Keys expire with their window, so
// stale identities need no sweep.
type RedisRateLimitStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisRateLimitStore returns a store using client. keyPrefix namespaces counters.
func NewRedisRateLimitStore(client redis.UniversalClient, keyPrefix string) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client, keyPrefix: keyPrefix}
}

// hitScript increments the counter, starting the window on the first hit, and
// returns the count and remaining TTL in milliseconds.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// Hit implements core.RateLimitStore.
func (s *RedisRateLimitStore) Hit(
	ctx context.Context,
	identity string,
	_ time.Time,
	limit int,
	window time.Duration,
) (core.RateLimitDecision, error) {
	if identity == "" {
		return core.RateLimitDecision{}, errors.New("identity cannot be empty")
	}

	res, err := hitScript.Run(ctx, s.client, []string{s.keyPrefix + identity}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return core.RateLimitDecision{}, fmt.Errorf("redis rate limit hit: %w", err)
	}
	if len(res) != 2 {
		return core.RateLimitDecision{}, fmt.Errorf("redis rate limit hit: unexpected reply length %d", len(res))
	}

	count := int(res[0])
	if count > limit {
		return core.RateLimitDecision{
			Allowed:    false,
			Count:      count,
			RetryAfter: time.Duration(res[1]) * time.Millisecond,
		}, nil
	}
	return core.RateLimitDecision{Allowed: true, Count: count}, nil
}

// Sweep is a no-op; counters expire through their TTL.
func (s *RedisRateLimitStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}

var _ core.RateLimitStore = (*RedisRateLimitStore)(nil)
