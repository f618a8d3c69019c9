// Package ratelimiter provides token bucket rate limiting with pluggable
// storage backends.
//
// The limiter shields expensive downstream work, such as provider render
// submissions, from bursty callers: each key owns a bucket with a fixed
// capacity that refills at a constant rate, so short bursts are absorbed
// while the average rate stays bounded.
//
// # Token Bucket Algorithm
//
// Every check first refills the key's bucket according to how much time has
// passed, then subtracts the requested tokens. The balance is allowed to go
// negative: a denied burst leaves the bucket in debt that must refill before
// further requests pass, which naturally penalizes hammering.
//
// # Core Types
//
// RateLimiter is the consumer-facing contract:
//   - Allow(ctx, key): consume 1 token
//   - AllowN(ctx, key, n): consume n tokens
//   - Status(ctx, key): inspect state without consuming
//   - Reset(ctx, key): administrative override restoring a full bucket
//
// Bucket implements RateLimiter on top of a Store. Result carries the
// outcome: Allowed(), Remaining, Limit, ResetAt, RetryAfter(), and Err()
// for callers that prefer error flow (it yields ErrRateLimitExceeded on
// denial).
//
// # Usage
//
//	store := ratelimiter.NewMemoryStore()
//
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       10,          // absorb bursts of up to 10 submissions
//		RefillRate:     1,           // then 1 more
//		RefillInterval: time.Minute, // per minute
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := limiter.Allow(ctx, "user:"+userID)
//	if err != nil {
//		return err
//	}
//	if !result.Allowed() {
//		return fmt.Errorf("try again in %s", result.RetryAfter())
//	}
//
// Or with error flow:
//
//	if err := result.Err(); err != nil {
//		return err // errors.Is(err, ratelimiter.ErrRateLimitExceeded)
//	}
//
// # Storage Backends
//
// MemoryStore keeps buckets in a process-local map. It is fast and has no
// external dependencies, but state is lost on restart and not shared across
// instances. Start its eviction loop so idle keys do not accumulate:
//
//	store := ratelimiter.NewMemoryStore(
//		ratelimiter.WithCleanupInterval(5*time.Minute),
//		ratelimiter.WithStaleThreshold(time.Hour),
//	)
//	go func() { _ = store.Start(ctx) }()
//	defer store.Stop()
//
// RedisStore executes the refill-then-consume step atomically in a Lua
// script using the Redis server clock, so limits hold across a fleet of
// application instances:
//
//	store, err := ratelimiter.NewRedisStore(redisClient)
//	if err != nil {
//		log.Fatal(err)
//	}
//	limiter, err := ratelimiter.NewBucket(store, cfg)
//
// Redis bucket state carries a TTL long enough to fully refill, so idle
// keys expire without any cleanup process.
//
// # Configuration Examples
//
// Strict limiting, one request per second with no burst:
//
//	ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second}
//
// API-style limiting, 100 requests per minute with full burst:
//
//	ratelimiter.Config{Capacity: 100, RefillRate: 100, RefillInterval: time.Minute}
//
// # Error Handling
//
//   - ErrInvalidConfig: unusable bucket parameters or missing store
//   - ErrInvalidTokenCount: AllowN called with a non-positive count
//   - ErrStoreUnavailable: the backend could not be reached
//   - ErrRateLimitExceeded: returned by Result.Err on denial
//
// Context cancellation errors pass through unchanged so callers can
// distinguish their own timeouts from backend failures.
package ratelimiter
