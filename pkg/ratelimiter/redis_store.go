package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript performs the same refill-then-consume step as MemoryStore,
// executed atomically on the Redis server. The server clock keeps buckets
// consistent across application instances.
var consumeScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local time = redis.call('TIME')
local now_ms = time[1] * 1000 + math.floor(time[2] / 1000)

local state = redis.call('HMGET', key, 'tokens', 'last_refill')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

local max_intervals = math.floor(capacity / refill_rate) + 1
local intervals = math.floor((now_ms - last_refill) / interval_ms)
if intervals > max_intervals then
  intervals = max_intervals
end

if intervals > 0 then
  tokens = math.min(tokens + intervals * refill_rate, capacity)
  last_refill = now_ms
end

tokens = tokens - requested

redis.call('HSET', key, 'tokens', tokens, 'last_refill', last_refill)
redis.call('PEXPIRE', key, interval_ms * (max_intervals + 1))

return {tokens, last_refill + interval_ms}
`)

// defaultRedisKeyPrefix namespaces limiter state away from other keys
// sharing the Redis database.
const defaultRedisKeyPrefix = "ratelimit:"

// RedisStore implements Store on Redis so rate limits hold across multiple
// application instances. Bucket state expires on its own once a key has
// been idle long enough to fully refill.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisKeyPrefix overrides the namespace prepended to bucket keys.
func WithRedisKeyPrefix(prefix string) RedisStoreOption {
	return func(rs *RedisStore) {
		if prefix != "" {
			rs.keyPrefix = prefix
		}
	}
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is required", ErrInvalidConfig)
	}

	rs := &RedisStore{
		client:    client,
		keyPrefix: defaultRedisKeyPrefix,
	}
	for _, opt := range opts {
		opt(rs)
	}
	return rs, nil
}

// ConsumeTokens runs the atomic refill-then-consume script for key.
func (rs *RedisStore) ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (int, time.Time, error) {
	vals, err := consumeScript.Run(ctx, rs.client, []string{rs.key(key)},
		config.Capacity,
		config.RefillRate,
		config.RefillInterval.Milliseconds(),
		tokens,
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, storeErr(err)
	}
	if len(vals) != 2 {
		return 0, time.Time{}, fmt.Errorf("%w: unexpected script reply length %d", ErrStoreUnavailable, len(vals))
	}

	return int(vals[0]), time.UnixMilli(vals[1]), nil
}

// Reset drops the bucket for key.
func (rs *RedisStore) Reset(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, rs.key(key)).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

// Healthcheck verifies Redis connectivity.
func (rs *RedisStore) Healthcheck(ctx context.Context) error {
	if err := rs.client.Ping(ctx).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

func (rs *RedisStore) key(key string) string {
	return rs.keyPrefix + key
}

// storeErr keeps context errors recognizable while flagging backend trouble
// as ErrStoreUnavailable.
func storeErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.Join(ErrStoreUnavailable, err)
}
