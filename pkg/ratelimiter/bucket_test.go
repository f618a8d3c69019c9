package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renderkit/pkg/ratelimiter"
)

func newLimiter(t *testing.T, cfg ratelimiter.Config) *ratelimiter.Bucket {
	t.Helper()

	tb, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), cfg)
	require.NoError(t, err)
	return tb
}

func TestNewBucket_Validation(t *testing.T) {
	t.Parallel()

	valid := ratelimiter.Config{Capacity: 10, RefillRate: 1, RefillInterval: time.Second}

	t.Run("nil store", func(t *testing.T) {
		t.Parallel()

		tb, err := ratelimiter.NewBucket(nil, valid)
		assert.Nil(t, tb)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
	})

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()

		cases := []ratelimiter.Config{
			{Capacity: 0, RefillRate: 1, RefillInterval: time.Second},
			{Capacity: -1, RefillRate: 1, RefillInterval: time.Second},
			{Capacity: 10, RefillRate: 0, RefillInterval: time.Second},
			{Capacity: 10, RefillRate: 1, RefillInterval: 0},
		}
		for _, cfg := range cases {
			tb, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), cfg)
			assert.Nil(t, tb)
			assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
		}
	})
}

func TestBucket_Allow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("allows until capacity is spent", func(t *testing.T) {
		t.Parallel()

		tb := newLimiter(t, ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Hour})

		for want := 2; want >= 0; want-- {
			result, err := tb.Allow(ctx, "user:1")
			require.NoError(t, err)
			assert.True(t, result.Allowed())
			assert.Equal(t, want, result.Remaining)
			assert.Equal(t, 3, result.Limit)
			assert.NoError(t, result.Err())
			assert.Zero(t, result.RetryAfter())
		}

		result, err := tb.Allow(ctx, "user:1")
		require.NoError(t, err)
		assert.False(t, result.Allowed())
		assert.Negative(t, result.Remaining)
		assert.Positive(t, result.RetryAfter())
		assert.ErrorIs(t, result.Err(), ratelimiter.ErrRateLimitExceeded)
	})

	t.Run("keys are independent", func(t *testing.T) {
		t.Parallel()

		tb := newLimiter(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Hour})

		first, err := tb.Allow(ctx, "user:a")
		require.NoError(t, err)
		assert.True(t, first.Allowed())

		denied, err := tb.Allow(ctx, "user:a")
		require.NoError(t, err)
		assert.False(t, denied.Allowed())

		other, err := tb.Allow(ctx, "user:b")
		require.NoError(t, err)
		assert.True(t, other.Allowed())
	})
}

func TestBucket_AllowN(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("consumes n tokens", func(t *testing.T) {
		t.Parallel()

		tb := newLimiter(t, ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Hour})

		result, err := tb.AllowN(ctx, "batch", 2)
		require.NoError(t, err)
		assert.True(t, result.Allowed())
		assert.Equal(t, 1, result.Remaining)

		result, err = tb.AllowN(ctx, "batch", 2)
		require.NoError(t, err)
		assert.False(t, result.Allowed())
		assert.Equal(t, -1, result.Remaining)
	})

	t.Run("rejects non-positive counts", func(t *testing.T) {
		t.Parallel()

		tb := newLimiter(t, ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Hour})

		for _, n := range []int{0, -5} {
			result, err := tb.AllowN(ctx, "batch", n)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
		}
	})
}

func TestBucket_Status(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tb := newLimiter(t, ratelimiter.Config{Capacity: 5, RefillRate: 1, RefillInterval: time.Hour})

	_, err := tb.Allow(ctx, "user:1")
	require.NoError(t, err)

	status, err := tb.Status(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, 4, status.Remaining, "status must not consume tokens")

	again, err := tb.Status(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, 4, again.Remaining)

	result, err := tb.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Remaining)
}

func TestBucket_Reset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tb := newLimiter(t, ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Hour})

	for range 3 {
		_, err := tb.Allow(ctx, "user:1")
		require.NoError(t, err)
	}

	denied, err := tb.Status(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, denied.Allowed())

	require.NoError(t, tb.Reset(ctx, "user:1"))

	result, err := tb.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, result.Allowed())
	assert.Equal(t, 1, result.Remaining)
}

func TestBucket_Refill(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tb := newLimiter(t, ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: 50 * time.Millisecond})

	for range 2 {
		result, err := tb.Allow(ctx, "user:1")
		require.NoError(t, err)
		assert.True(t, result.Allowed())
	}

	time.Sleep(60 * time.Millisecond)

	result, err := tb.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, result.Allowed(), "refill must restore a token after the interval")
}
