package renderqueue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements the queue Storage interface in memory for
// testing and local development. Call Start() to begin the lock-expiry
// sweeper.
type MemoryStorage struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job

	// Status index for efficient claim scans
	byStatus map[Status][]uuid.UUID

	lockCheckInterval time.Duration
	shutdownTimeout   time.Duration
	logger            *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	expiredLocksFreed atomic.Int64
}

// MemoryStorageOption configures a MemoryStorage.
type MemoryStorageOption func(*MemoryStorage)

// WithLockCheckInterval sets how often the sweeper reclaims jobs whose
// worker lock has expired.
func WithLockCheckInterval(interval time.Duration) MemoryStorageOption {
	return func(ms *MemoryStorage) {
		if interval > 0 {
			ms.lockCheckInterval = interval
		}
	}
}

// WithMemoryStorageShutdownTimeout bounds how long Stop waits for an
// in-progress sweep.
func WithMemoryStorageShutdownTimeout(timeout time.Duration) MemoryStorageOption {
	return func(ms *MemoryStorage) {
		if timeout > 0 {
			ms.shutdownTimeout = timeout
		}
	}
}

// WithMemoryStorageLogger sets the logger for sweeper activity.
func WithMemoryStorageLogger(logger *slog.Logger) MemoryStorageOption {
	return func(ms *MemoryStorage) {
		if logger != nil {
			ms.logger = logger
		}
	}
}

// NewMemoryStorage creates a new in-memory queue storage.
func NewMemoryStorage(opts ...MemoryStorageOption) *MemoryStorage {
	ms := &MemoryStorage{
		jobs:              make(map[uuid.UUID]*Job),
		byStatus:          make(map[Status][]uuid.UUID),
		lockCheckInterval: time.Second,
		shutdownTimeout:   30 * time.Second,
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(ms)
	}

	return ms
}

// CreateJob stores a new pending job.
func (ms *MemoryStorage) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.jobs[job.ID]; exists {
		return fmt.Errorf("%w: %s", ErrJobExists, job.ID)
	}

	jobCopy := *job
	ms.jobs[job.ID] = &jobCopy
	ms.byStatus[job.Status] = append(ms.byStatus[job.Status], job.ID)

	return nil
}

// ClaimJob atomically claims the earliest due pending job. Within the
// pending set, jobs run in scheduled order, earliest first.
func (ms *MemoryStorage) ClaimJob(ctx context.Context, workerID uuid.UUID, lockDuration time.Duration) (*Job, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var best *Job

	for _, jobID := range ms.byStatus[StatusPending] {
		job := ms.jobs[jobID]

		if job.ScheduledAt.After(now) {
			continue
		}
		// Skip jobs with unexpired locks left over from a stale state.
		if job.LockedUntil != nil && job.LockedUntil.After(now) {
			continue
		}

		if best == nil || job.ScheduledAt.Before(best.ScheduledAt) {
			best = job
		}
	}

	if best == nil {
		return nil, ErrNoJobToClaim
	}

	lockUntil := now.Add(lockDuration)
	best.Status = StatusProcessing
	best.LockedUntil = &lockUntil
	best.LockedBy = &workerID

	ms.removeFromStatusIndex(best.ID, StatusPending)
	ms.byStatus[StatusProcessing] = append(ms.byStatus[StatusProcessing], best.ID)

	jobCopy := *best
	return &jobCopy, nil
}

// CompleteJob marks a processing job as completed with its output.
func (ms *MemoryStorage) CompleteJob(ctx context.Context, jobID uuid.UUID, result Result) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status != StatusProcessing {
		return fmt.Errorf("%w: %s", ErrJobNotProcessing, jobID)
	}

	now := time.Now()
	job.Status = StatusCompleted
	job.OutputKey = result.OutputKey
	job.OutputURL = result.OutputURL
	job.ProcessedAt = &now
	job.LockedUntil = nil
	job.LockedBy = nil

	ms.removeFromStatusIndex(jobID, StatusProcessing)
	ms.byStatus[StatusCompleted] = append(ms.byStatus[StatusCompleted], jobID)

	return nil
}

// FailJob records a failed attempt. The job returns to pending with a
// linear backoff while attempts remain, and becomes failed once they are
// exhausted.
func (ms *MemoryStorage) FailJob(ctx context.Context, jobID uuid.UUID, errorMsg string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status != StatusProcessing {
		return fmt.Errorf("%w: %s", ErrJobNotProcessing, jobID)
	}

	job.Attempts++
	job.Error = &errorMsg
	job.LockedUntil = nil
	job.LockedBy = nil

	ms.removeFromStatusIndex(jobID, StatusProcessing)

	if job.Attempts >= job.MaxAttempts {
		job.Status = StatusFailed
		ms.byStatus[StatusFailed] = append(ms.byStatus[StatusFailed], jobID)
	} else {
		// Linear backoff (30s, 60s, 90s...) keeps retries prompt for
		// transient provider errors without hammering a failing one.
		job.Status = StatusPending
		job.ScheduledAt = time.Now().Add(time.Duration(job.Attempts) * 30 * time.Second)
		ms.byStatus[StatusPending] = append(ms.byStatus[StatusPending], jobID)
	}

	return nil
}

// MoveToDeadLetter parks an exhausted job in the dead status. Calling it
// on an already dead job is a no-op.
func (ms *MemoryStorage) MoveToDeadLetter(ctx context.Context, jobID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status == StatusDead {
		return nil
	}

	now := time.Now()
	ms.removeFromStatusIndex(jobID, job.Status)
	job.Status = StatusDead
	job.ProcessedAt = &now
	job.LockedUntil = nil
	job.LockedBy = nil
	ms.byStatus[StatusDead] = append(ms.byStatus[StatusDead], jobID)

	return nil
}

// ExtendLock extends the lock duration for a processing job.
func (ms *MemoryStorage) ExtendLock(ctx context.Context, jobID uuid.UUID, duration time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status != StatusProcessing {
		return fmt.Errorf("%w: %s", ErrJobNotProcessing, jobID)
	}

	lockUntil := time.Now().Add(duration)
	job.LockedUntil = &lockUntil

	return nil
}

// ReleaseExpiredLocks returns processing jobs with lapsed locks to pending
// so they can be claimed again after a worker crash.
func (ms *MemoryStorage) ReleaseExpiredLocks(ctx context.Context) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	freed := 0
	// Clone: removeFromStatusIndex mutates the slice being ranged.
	for _, jobID := range slices.Clone(ms.byStatus[StatusProcessing]) {
		job := ms.jobs[jobID]
		if job.LockedUntil != nil && job.LockedUntil.Before(now) {
			job.Status = StatusPending
			job.LockedUntil = nil
			job.LockedBy = nil

			ms.removeFromStatusIndex(jobID, StatusProcessing)
			ms.byStatus[StatusPending] = append(ms.byStatus[StatusPending], jobID)
			freed++
		}
	}

	if freed > 0 {
		ms.expiredLocksFreed.Add(int64(freed))
	}

	return freed, nil
}

// GetJob returns a copy of the job with the given ID.
func (ms *MemoryStorage) GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	jobCopy := *job
	return &jobCopy, nil
}

// Stats reports per-status job counts and sweeper state.
func (ms *MemoryStorage) Stats(ctx context.Context) (QueueStats, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return QueueStats{
		Pending:           len(ms.byStatus[StatusPending]),
		Processing:        len(ms.byStatus[StatusProcessing]),
		Completed:         len(ms.byStatus[StatusCompleted]),
		Failed:            len(ms.byStatus[StatusFailed]),
		Dead:              len(ms.byStatus[StatusDead]),
		ExpiredLocksFreed: ms.expiredLocksFreed.Load(),
		SweeperRunning:    ms.cancel != nil,
	}, nil
}

// DeleteCompletedBefore removes completed jobs processed before the cutoff.
func (ms *MemoryStorage) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	deleted := 0
	for _, jobID := range slices.Clone(ms.byStatus[StatusCompleted]) {
		job := ms.jobs[jobID]
		if job.ProcessedAt != nil && job.ProcessedAt.Before(cutoff) {
			ms.removeFromStatusIndex(jobID, StatusCompleted)
			delete(ms.jobs, jobID)
			deleted++
		}
	}

	return deleted, nil
}

func (ms *MemoryStorage) removeFromStatusIndex(jobID uuid.UUID, status Status) {
	ms.byStatus[status] = slices.DeleteFunc(ms.byStatus[status], func(id uuid.UUID) bool {
		return id == jobID
	})
}

// Start begins the lock-expiry sweeper. This is a blocking operation that
// runs until the context is cancelled. Use Run() for errgroup pattern or
// call this in a goroutine.
func (ms *MemoryStorage) Start(ctx context.Context) error {
	ms.mu.Lock()
	if ms.cancel != nil {
		ms.mu.Unlock()
		return fmt.Errorf("memory storage already started")
	}
	ms.ctx, ms.cancel = context.WithCancel(ctx)
	ms.mu.Unlock()

	ms.logger.InfoContext(ms.ctx, "render queue lock sweeper started",
		slog.Duration("check_interval", ms.lockCheckInterval))

	ticker := time.NewTicker(ms.lockCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ms.ctx.Done():
			ms.logger.InfoContext(context.Background(), "render queue storage stopping")
			return ms.ctx.Err()
		case <-ticker.C:
			select {
			case <-ms.ctx.Done():
				return ms.ctx.Err()
			default:
				ms.sweepExpiredLocks()
			}
		}
	}
}

// Stop gracefully shuts down the lock-expiry sweeper with a timeout.
func (ms *MemoryStorage) Stop() error {
	ms.mu.Lock()
	if ms.cancel == nil {
		ms.mu.Unlock()
		return fmt.Errorf("memory storage not started")
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
		ms.logger.InfoContext(context.Background(), "render queue storage stopped cleanly")
		return nil
	case <-ctx.Done():
		ms.logger.WarnContext(context.Background(), "render queue storage shutdown timeout exceeded",
			slog.Duration("timeout", ms.shutdownTimeout))
		return fmt.Errorf("shutdown timeout exceeded after %s", ms.shutdownTimeout)
	}
}

// Run provides errgroup compatibility: the returned function starts the
// sweeper and shuts it down when the context is cancelled.
func (ms *MemoryStorage) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- ms.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			_ = ms.Stop()
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// sweepExpiredLocks wraps ReleaseExpiredLocks with WaitGroup tracking for
// graceful shutdown.
func (ms *MemoryStorage) sweepExpiredLocks() {
	ms.mu.RLock()
	if ms.cancel == nil {
		ms.mu.RUnlock()
		return
	}
	ms.wg.Add(1)
	ms.mu.RUnlock()

	defer ms.wg.Done()

	freed, _ := ms.ReleaseExpiredLocks(context.Background())
	if freed > 0 {
		ms.logger.InfoContext(context.Background(), "released expired job locks",
			slog.Int("count", freed))
	}
}

// Healthcheck validates that the lock-expiry sweeper is running.
func (ms *MemoryStorage) Healthcheck(ctx context.Context) error {
	stats, err := ms.Stats(ctx)
	if err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	if !stats.SweeperRunning {
		return errors.Join(ErrHealthcheckFailed, ErrQueueNotRunning)
	}

	return nil
}
