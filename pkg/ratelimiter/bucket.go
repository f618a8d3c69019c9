package ratelimiter

import (
	"context"
	"fmt"
	"time"
)

// Config defines the token bucket shape shared by every key of a limiter.
type Config struct {
	Capacity       int           // Maximum tokens the bucket holds (burst size)
	RefillRate     int           // Tokens added per refill interval
	RefillInterval time.Duration // How often tokens are added
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive, got %v", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}

// Store persists token bucket state per key. Implementations assume config
// has already been validated by the limiter; they do not re-check it.
type Store interface {
	// ConsumeTokens refills the bucket for key according to config, then
	// unconditionally subtracts tokens. Remaining may go negative; the
	// caller decides whether the request was allowed. A zero token count
	// performs the refill and reports state without consuming.
	ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error)
	// Reset drops all state for key, restoring a full bucket.
	Reset(ctx context.Context, key string) error
}

// RateLimiter is the consumer-facing rate limiting contract.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
	AllowN(ctx context.Context, key string, n int) (*Result, error)
	Status(ctx context.Context, key string) (*Result, error)
	Reset(ctx context.Context, key string) error
}

// Result reports the outcome of a single rate limit check.
type Result struct {
	Limit     int       // Bucket capacity
	Remaining int       // Tokens left after the check; negative when over budget
	ResetAt   time.Time // When the next refill lands
}

// Allowed reports whether the request fit within the budget.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long to wait before another attempt may succeed.
// Zero when the request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	if wait := time.Until(r.ResetAt); wait > 0 {
		return wait
	}
	return 0
}

// Err returns ErrRateLimitExceeded when the request was denied, nil
// otherwise. Convenience for callers that prefer error flow over checking
// Allowed.
func (r *Result) Err() error {
	if r.Allowed() {
		return nil
	}
	return fmt.Errorf("%w: retry after %s", ErrRateLimitExceeded, r.RetryAfter().Round(time.Millisecond))
}

// Bucket implements RateLimiter on top of a pluggable Store.
type Bucket struct {
	store  Store
	config Config
}

// NewBucket returns a token bucket limiter backed by store.
func NewBucket(store Store, config Config) (*Bucket, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Bucket{store: store, config: config}, nil
}

// Allow consumes one token for key.
func (b *Bucket) Allow(ctx context.Context, key string) (*Result, error) {
	return b.AllowN(ctx, key, 1)
}

// AllowN consumes n tokens for key. Requests larger than the bucket
// capacity can never succeed.
func (b *Bucket) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTokenCount, n)
	}
	return b.consume(ctx, key, n)
}

// Status reports the bucket state for key without consuming tokens.
func (b *Bucket) Status(ctx context.Context, key string) (*Result, error) {
	return b.consume(ctx, key, 0)
}

// Reset restores a full bucket for key. Administrative override; storage
// errors are propagated as-is.
func (b *Bucket) Reset(ctx context.Context, key string) error {
	return b.store.Reset(ctx, key)
}

func (b *Bucket) consume(ctx context.Context, key string, n int) (*Result, error) {
	remaining, resetAt, err := b.store.ConsumeTokens(ctx, key, n, b.config)
	if err != nil {
		return nil, err
	}
	return &Result{
		Limit:     b.config.Capacity,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
