package poller

import (
	"log/slog"
	"time"
)

// Option configures a Poller at construction.
type Option func(*settings)

// WithInitialInterval sets the delay before the second probe; the first
// probe always fires immediately. Non-positive values are ignored.
func WithInitialInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.initialInterval = d
		}
	}
}

// WithBackoffMultiplier sets the factor the interval grows by after each
// continuing probe. Values below 1 are ignored so delays never shrink.
func WithBackoffMultiplier(m float64) Option {
	return func(s *settings) {
		if m >= 1 {
			s.backoffMultiplier = m
		}
	}
}

// WithMaxInterval caps the delay between probes. Non-positive values are
// ignored.
func WithMaxInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.maxInterval = d
		}
	}
}

// WithMaxAttempts bounds how many continuing probes an operation may make
// before it stops with ErrAttemptsExhausted. Non-positive values are
// ignored.
func WithMaxAttempts(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithLogger sets the logger for operation lifecycle events. The default
// logger discards everything.
func WithLogger(log *slog.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}

// startConfig carries per-operation settings assembled by Start.
type startConfig[T any] struct {
	interval    time.Duration
	maxAttempts int
	onComplete  func(T)
	onError     func(error)
}

// StartOption adjusts a single operation.
type StartOption[T any] func(*startConfig[T])

// WithOnComplete registers fn to receive the final probe value when the
// operation completes. It is invoked at most once, on the operation's
// goroutine.
func WithOnComplete[T any](fn func(T)) StartOption[T] {
	return func(c *startConfig[T]) {
		c.onComplete = fn
	}
}

// WithOnError registers fn to receive the terminal error when the operation
// fails or exhausts its attempt budget. A stopped or replaced operation
// stays silent. Invoked at most once, on the operation's goroutine.
func WithOnError[T any](fn func(error)) StartOption[T] {
	return func(c *startConfig[T]) {
		c.onError = fn
	}
}

// WithInterval overrides the initial probe interval for this operation only.
// Non-positive values are ignored.
func WithInterval[T any](d time.Duration) StartOption[T] {
	return func(c *startConfig[T]) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithAttemptBudget overrides the attempt cap for this operation only.
// Non-positive values are ignored.
func WithAttemptBudget[T any](n int) StartOption[T] {
	return func(c *startConfig[T]) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}
