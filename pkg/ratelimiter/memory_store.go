package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// bucketState tracks one key's token balance.
type bucketState struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time // Used by eviction to identify stale buckets
}

// MemoryStore implements Store with an in-process map. State is lost on
// restart and not shared between instances; use RedisStore when submissions
// must be limited across a fleet.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]*bucketState

	cleanupInterval time.Duration
	staleThreshold  time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool
	wg      sync.WaitGroup

	bucketsCreated atomic.Int64
	bucketsRemoved atomic.Int64
}

// MemoryStoreStats provides observability metrics for monitoring.
type MemoryStoreStats struct {
	BucketsCreated int64 // Total buckets created
	BucketsRemoved int64 // Total stale buckets evicted
	ActiveBuckets  int   // Current bucket count
	IsRunning      bool  // Whether the eviction goroutine is running
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often stale buckets are evicted. Set to 0 to
// disable background eviction entirely.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithStaleThreshold sets how long a bucket may go untouched before the
// eviction pass removes it.
func WithStaleThreshold(threshold time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if threshold > 0 {
			ms.staleThreshold = threshold
		}
	}
}

// WithMemoryStoreShutdownTimeout sets the graceful shutdown timeout.
func WithMemoryStoreShutdownTimeout(timeout time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if timeout > 0 {
			ms.shutdownTimeout = timeout
		}
	}
}

// WithMemoryStoreLogger sets the logger for internal operations.
func WithMemoryStoreLogger(logger *slog.Logger) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if logger != nil {
			ms.logger = logger
		}
	}
}

// NewMemoryStore creates an in-memory store. Call Start to begin background
// eviction of stale buckets.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		buckets:         make(map[string]*bucketState),
		cleanupInterval: 5 * time.Minute,
		staleThreshold:  time.Hour,
		shutdownTimeout: 30 * time.Second,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(ms)
	}

	return ms
}

// ConsumeTokens refills the bucket for key, then subtracts tokens. The
// balance may go negative; callers interpret that as a denied request.
func (ms *MemoryStore) ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	b, exists := ms.buckets[key]

	if !exists {
		b = &bucketState{
			tokens:     config.Capacity,
			lastRefill: now,
			lastAccess: now,
		}
		ms.buckets[key] = b
		ms.bucketsCreated.Add(1)
	}

	// Cap the interval count so a bucket idle for a long time cannot
	// overflow tokensToAdd; one extra interval is enough to refill any
	// bucket from empty.
	elapsed := now.Sub(b.lastRefill)
	maxIntervals := int64(config.Capacity/config.RefillRate + 1)
	intervalsElapsed := int(min(int64(elapsed/config.RefillInterval), maxIntervals))

	if intervalsElapsed > 0 {
		b.tokens = min(b.tokens+intervalsElapsed*config.RefillRate, config.Capacity)
		b.lastRefill = now // Prevent time drift accumulation
	}

	b.tokens -= tokens
	b.lastAccess = now

	return b.tokens, b.lastRefill.Add(config.RefillInterval), nil
}

// Reset drops the bucket for key, restoring full capacity on next use.
func (ms *MemoryStore) Reset(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.buckets, key)
	return nil
}

// Start runs the background eviction loop until the context is cancelled.
// It blocks; use Run for errgroup coordination or call it in a goroutine.
func (ms *MemoryStore) Start(ctx context.Context) error {
	ms.mu.Lock()
	if ms.cancel != nil {
		ms.mu.Unlock()
		return fmt.Errorf("memory store already started")
	}
	if ms.cleanupInterval <= 0 {
		ms.mu.Unlock()
		return fmt.Errorf("cleanup not configured: set WithCleanupInterval to enable background eviction")
	}

	ms.ctx, ms.cancel = context.WithCancel(ctx)
	ms.mu.Unlock()

	ms.running.Store(true)
	defer ms.running.Store(false)

	ms.logger.InfoContext(ms.ctx, "rate limit bucket eviction started",
		slog.Duration("cleanup_interval", ms.cleanupInterval),
		slog.Duration("stale_threshold", ms.staleThreshold))

	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ms.ctx.Done():
			ms.logger.InfoContext(context.Background(), "rate limit bucket eviction stopping")
			return ms.ctx.Err()
		case <-ticker.C:
			ms.evictWithWait()
		}
	}
}

// Stop gracefully shuts down background eviction, waiting up to the
// shutdown timeout for an in-progress pass to finish.
func (ms *MemoryStore) Stop() error {
	ms.mu.Lock()
	if ms.cancel == nil {
		ms.mu.Unlock()
		return fmt.Errorf("memory store not started")
	}

	cancel := ms.cancel
	ms.cancel = nil
	ms.mu.Unlock()

	cancel()

	ctx, ctxCancel := context.WithTimeout(context.Background(), ms.shutdownTimeout)
	defer ctxCancel()

	done := make(chan struct{})
	go func() {
		ms.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		ms.logger.InfoContext(context.Background(), "memory store stopped cleanly")
		return nil
	case <-ctx.Done():
		ms.logger.WarnContext(context.Background(), "memory store shutdown timeout exceeded",
			slog.Duration("timeout", ms.shutdownTimeout))
		return fmt.Errorf("shutdown timeout exceeded after %s", ms.shutdownTimeout)
	}
}

// Run provides errgroup compatibility: it starts eviction, watches for
// context cancellation, and shuts down gracefully.
func (ms *MemoryStore) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- ms.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			_ = ms.Stop() // Ignore stop error in normal shutdown
			<-errCh       // Wait for Start() to exit
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// evictWithWait tracks the eviction pass with the WaitGroup so Stop can
// drain it.
func (ms *MemoryStore) evictWithWait() {
	ms.mu.RLock()
	if ms.cancel == nil {
		ms.mu.RUnlock()
		return
	}
	ms.wg.Add(1)
	ms.mu.RUnlock()

	defer ms.wg.Done()
	ms.evictStale()
}

// evictStale removes buckets untouched for longer than the stale threshold
// so idle keys do not accumulate forever.
func (ms *MemoryStore) evictStale() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, b := range ms.buckets {
		if now.Sub(b.lastAccess) > ms.staleThreshold {
			delete(ms.buckets, key)
			removed++
		}
	}

	if removed > 0 {
		ms.bucketsRemoved.Add(int64(removed))
		ms.logger.Debug("evicted stale rate limit buckets", slog.Int("count", removed))
	}
}

// Stats returns current store metrics. Safe to call at any time.
func (ms *MemoryStore) Stats() MemoryStoreStats {
	ms.mu.RLock()
	isRunning := ms.cancel != nil
	activeBuckets := len(ms.buckets)
	ms.mu.RUnlock()

	return MemoryStoreStats{
		BucketsCreated: ms.bucketsCreated.Load(),
		BucketsRemoved: ms.bucketsRemoved.Load(),
		ActiveBuckets:  activeBuckets,
		IsRunning:      isRunning,
	}
}

// Healthcheck reports an error when eviction is configured but the
// background loop is not running.
func (ms *MemoryStore) Healthcheck(ctx context.Context) error {
	stats := ms.Stats()
	if ms.cleanupInterval > 0 && !stats.IsRunning {
		return fmt.Errorf("cleanup is configured but not running")
	}
	return nil
}
