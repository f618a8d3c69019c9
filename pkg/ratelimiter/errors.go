package ratelimiter

import "errors"

// Sentinel errors for bucket construction and token consumption. Result.Err
// wraps ErrRateLimitExceeded with a retry-after hint; store implementations
// wrap backend failures in ErrStoreUnavailable.
var (
	ErrInvalidConfig     = errors.New("invalid rate limiter configuration")
	ErrInvalidTokenCount = errors.New("token count must be positive")
	ErrStoreUnavailable  = errors.New("rate limit store unavailable")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)
