package renderqueue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Handler runs one claimed render job. On success it returns the artifact
// references to record on the job; on failure the job is retried until its
// attempts are exhausted.
type Handler func(ctx context.Context, job Job) (Result, error)

// Worker claims render jobs and runs them through the injected handler.
type Worker struct {
	repo     WorkerRepository
	handler  Handler
	workerID uuid.UUID
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex

	pollInterval    time.Duration
	lockTimeout     time.Duration
	jobTimeout      time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool

	jobsProcessed atomic.Int64
	jobsFailed    atomic.Int64
	activeJobs    atomic.Int32
}

// WorkerStats provides observability metrics for monitoring and debugging.
type WorkerStats struct {
	JobsProcessed int64 // Total number of successfully completed jobs
	JobsFailed    int64 // Total number of failed job attempts
	ActiveJobs    int32 // Number of jobs currently being processed
	IsRunning     bool  // Whether the worker is currently running
}

// NewWorker creates a render job worker.
func NewWorker(repo WorkerRepository, handler Handler, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrStorageNil
	}
	if handler == nil {
		return nil, ErrHandlerNil
	}

	options := &workerOptions{
		pollInterval:      2 * time.Second,
		lockTimeout:       2 * time.Minute,
		jobTimeout:        30 * time.Minute,
		shutdownTimeout:   30 * time.Second,
		maxConcurrentJobs: 1,
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Worker{
		repo:            repo,
		handler:         handler,
		workerID:        uuid.New(),
		sem:             make(chan struct{}, options.maxConcurrentJobs),
		pollInterval:    options.pollInterval,
		lockTimeout:     options.lockTimeout,
		jobTimeout:      options.jobTimeout,
		shutdownTimeout: options.shutdownTimeout,
		logger:          options.logger,
	}, nil
}

// NewWorkerFromConfig builds a Worker with its tunables taken from cfg.
// Additional options override config values.
func NewWorkerFromConfig(cfg Config, repo WorkerRepository, handler Handler, opts ...WorkerOption) (*Worker, error) {
	allOpts := append([]WorkerOption{
		WithPollInterval(cfg.PollInterval),
		WithLockTimeout(cfg.LockTimeout),
		WithJobTimeout(cfg.JobTimeout),
		WithShutdownTimeout(cfg.ShutdownTimeout),
		WithMaxConcurrentJobs(cfg.MaxConcurrentJobs),
	}, opts...)

	return NewWorker(repo, handler, allOpts...)
}

// Start begins processing jobs. This is a blocking operation that runs until
// the context is cancelled. Use Run() for errgroup pattern or call this in a
// goroutine.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return fmt.Errorf("worker already started")
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.stopping.Store(false)

	w.logger.InfoContext(w.ctx, "render worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Int("max_concurrent", cap(w.sem)))

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.InfoContext(context.Background(), "render worker stopping")
			return w.ctx.Err()
		case <-ticker.C:
			select {
			case w.sem <- struct{}{}:
				// Must verify the worker is still running AND add to the
				// waitgroup under the same lock, otherwise Stop() might
				// wait on an incomplete count.
				w.mu.RLock()
				if w.cancel == nil {
					w.mu.RUnlock()
					<-w.sem
					return nil
				}
				w.wg.Add(1)
				w.mu.RUnlock()

				go func() {
					defer w.wg.Done()
					defer func() { <-w.sem }()

					if err := w.claimAndProcess(); err != nil {
						w.logger.ErrorContext(w.ctx, "failed to process render job",
							slog.String("worker_id", w.workerID.String()),
							slog.String("error", err.Error()))
					}
				}()
			default:
				w.logger.DebugContext(w.ctx, "all worker slots busy, skipping tick",
					slog.String("worker_id", w.workerID.String()))
			}
		}
	}
}

// Stop drains in-flight renders, waiting up to the shutdown timeout before
// reporting an error. Jobs still running after that keep their lock until
// the sweeper reclaims them.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return fmt.Errorf("worker not started")
	}

	w.stopping.Store(true)
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	w.logger.InfoContext(context.Background(), "render worker stopping, waiting for active jobs",
		slog.String("worker_id", w.workerID.String()),
		slog.Duration("timeout", w.shutdownTimeout))

	ctx, ctxCancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
	defer ctxCancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.InfoContext(context.Background(), "render worker stopped cleanly",
			slog.String("worker_id", w.workerID.String()))
		return nil
	case <-ctx.Done():
		w.logger.WarnContext(context.Background(), "render worker shutdown timeout exceeded, some jobs may be reclaimed later",
			slog.String("worker_id", w.workerID.String()),
			slog.Duration("timeout", w.shutdownTimeout))
		return fmt.Errorf("shutdown timeout exceeded after %s", w.shutdownTimeout)
	}
}

// Run provides errgroup compatibility: the returned function starts the
// worker, watches for context cancellation, and shuts down gracefully.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- w.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			_ = w.Stop()
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

// claimAndProcess claims the next due job and runs it.
func (w *Worker) claimAndProcess() error {
	job, err := w.repo.ClaimJob(w.ctx, w.workerID, w.lockTimeout)
	if err != nil {
		if errors.Is(err, ErrNoJobToClaim) {
			return nil
		}
		return fmt.Errorf("failed to claim job: %w", err)
	}

	if job == nil {
		return nil
	}

	w.logger.DebugContext(w.ctx, "claimed render job",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("provider", job.Provider))

	return w.processJob(job)
}

// processJob executes a claimed job with the handler. Panics are treated
// as job failures so one bad render cannot take the worker down.
func (w *Worker) processJob(job *Job) (retErr error) {
	start := time.Now()

	w.activeJobs.Add(1)
	defer w.activeJobs.Add(-1)

	// Renders keep running through worker shutdown: the job context comes
	// from Background, bounded by jobTimeout rather than the worker context.
	ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in render handler: %v", r)
			w.logger.ErrorContext(ctx, "render handler panicked",
				slog.String("worker_id", w.workerID.String()),
				slog.String("job_id", job.ID.String()),
				slog.Any("panic", r))
			_ = w.handleJobFailure(ctx, job, retErr, time.Since(start))
		}
	}()

	stopHeartbeat := w.startLockHeartbeat(ctx, job.ID)
	defer stopHeartbeat()

	result, err := w.handler(ctx, *job)
	duration := time.Since(start)
	stopHeartbeat()

	if err != nil {
		return w.handleJobFailure(ctx, job, err, duration)
	}

	return w.handleJobSuccess(ctx, job, result, duration)
}

// startLockHeartbeat extends the job lock at half the lock timeout until
// the returned stop function is called or the job context ends. Renders
// routinely outlive a single lock window.
func (w *Worker) startLockHeartbeat(ctx context.Context, jobID uuid.UUID) func() {
	done := make(chan struct{})
	var once sync.Once
	stop := func() { once.Do(func() { close(done) }) }

	go func() {
		ticker := time.NewTicker(w.lockTimeout / 2)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.repo.ExtendLock(ctx, jobID, w.lockTimeout); err != nil {
					w.logger.WarnContext(ctx, "failed to extend job lock",
						slog.String("worker_id", w.workerID.String()),
						slog.String("job_id", jobID.String()),
						slog.String("error", err.Error()))
				}
			}
		}
	}()

	return stop
}

// handleJobFailure records the failed attempt and dead-letters the job
// once its attempts are exhausted. The claimed snapshot carries the
// pre-increment attempt count, so this run is attempt Attempts+1.
func (w *Worker) handleJobFailure(ctx context.Context, job *Job, execErr error, duration time.Duration) error {
	w.jobsFailed.Add(1)

	w.logger.ErrorContext(ctx, "render job failed",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("provider", job.Provider),
		slog.Int("attempt", job.Attempts+1),
		slog.Int("max_attempts", job.MaxAttempts),
		slog.Duration("duration", duration),
		slog.String("error", execErr.Error()))

	if err := w.repo.FailJob(ctx, job.ID, execErr.Error()); err != nil {
		return fmt.Errorf("failed to record failure for job %s: %w", job.ID, err)
	}

	if job.Attempts+1 >= job.MaxAttempts {
		if err := w.repo.MoveToDeadLetter(ctx, job.ID); err != nil {
			return fmt.Errorf("failed to dead-letter job %s: %w", job.ID, err)
		}

		w.logger.WarnContext(ctx, "render job moved to dead letter",
			slog.String("worker_id", w.workerID.String()),
			slog.String("job_id", job.ID.String()),
			slog.String("provider", job.Provider))
	}

	return nil
}

// handleJobSuccess marks the job completed with its artifact references.
// Completion uses the job context so a worker shutdown cannot strand a
// finished render in the processing state.
func (w *Worker) handleJobSuccess(ctx context.Context, job *Job, result Result, duration time.Duration) error {
	if err := w.repo.CompleteJob(ctx, job.ID, result); err != nil {
		return fmt.Errorf("failed to mark job %s as completed: %w", job.ID, err)
	}

	w.jobsProcessed.Add(1)

	w.logger.InfoContext(ctx, "render job completed",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("provider", job.Provider),
		slog.String("output_key", result.OutputKey),
		slog.Duration("duration", duration))

	return nil
}

// ExtendLockForJob extends the lock timeout for a long-running job.
// The worker already heartbeats claimed jobs; this is for callers that
// manage their own claims.
func (w *Worker) ExtendLockForJob(ctx context.Context, jobID uuid.UUID, extension time.Duration) error {
	return w.repo.ExtendLock(ctx, jobID, extension)
}

// WorkerInfo identifies this worker instance for logs and dashboards.
func (w *Worker) WorkerInfo() (id string, hostname string, pid int) {
	hostname, _ = os.Hostname()
	return w.workerID.String(), hostname, os.Getpid()
}

// Stats returns current worker metrics. Safe to call at any time.
func (w *Worker) Stats() WorkerStats {
	w.mu.RLock()
	isRunning := w.cancel != nil
	w.mu.RUnlock()

	return WorkerStats{
		JobsProcessed: w.jobsProcessed.Load(),
		JobsFailed:    w.jobsFailed.Load(),
		ActiveJobs:    w.activeJobs.Load(),
		IsRunning:     isRunning,
	}
}

// Healthcheck reports whether the worker is running with spare capacity.
// The returned error can be checked with errors.Is against
// ErrWorkerNotRunning and ErrWorkerOverloaded.
func (w *Worker) Healthcheck(ctx context.Context) error {
	stats := w.Stats()

	if !stats.IsRunning {
		return errors.Join(ErrHealthcheckFailed, ErrWorkerNotRunning)
	}

	maxConcurrent := int32(cap(w.sem))
	if stats.ActiveJobs >= maxConcurrent {
		return errors.Join(ErrHealthcheckFailed, ErrWorkerOverloaded,
			fmt.Errorf("%d/%d slots busy", stats.ActiveJobs, maxConcurrent))
	}

	return nil
}
