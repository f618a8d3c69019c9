package renderqueue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/renderkit/integration/database/pg"
)

// querier is the subset of pgx operations shared by pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const jobColumns = `id, provider, prompt, model, aspect_ratio, duration_sec,
	session_token, project_id, status, attempts, max_attempts,
	output_key, output_url, error, scheduled_at, locked_until, locked_by,
	processed_at, created_at`

// PgStorage implements the queue Storage interface on PostgreSQL. Claims
// use FOR UPDATE SKIP LOCKED so concurrent workers never contend on the
// same row. All operations join a transaction carried in the context via
// pg.WithTx, falling back to the pool otherwise.
type PgStorage struct {
	pool *pgxpool.Pool

	// Configuration
	lockCheckInterval time.Duration
	shutdownTimeout   time.Duration
	logger            *slog.Logger

	// State management
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Observability metrics
	expiredLocksFreed atomic.Int64
}

// PgStorageOption configures a PgStorage.
type PgStorageOption func(*PgStorage)

// WithPgLockCheckInterval sets the interval for sweeping expired locks.
func WithPgLockCheckInterval(interval time.Duration) PgStorageOption {
	return func(s *PgStorage) {
		if interval > 0 {
			s.lockCheckInterval = interval
		}
	}
}

// WithPgShutdownTimeout sets the graceful shutdown timeout.
func WithPgShutdownTimeout(timeout time.Duration) PgStorageOption {
	return func(s *PgStorage) {
		if timeout > 0 {
			s.shutdownTimeout = timeout
		}
	}
}

// WithPgStorageLogger sets the logger for internal operations.
func WithPgStorageLogger(logger *slog.Logger) PgStorageOption {
	return func(s *PgStorage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewPgStorage creates a PostgreSQL-backed queue storage on the given pool.
// The render_jobs table must exist; see the migrations directory.
func NewPgStorage(pool *pgxpool.Pool, opts ...PgStorageOption) (*PgStorage, error) {
	if pool == nil {
		return nil, ErrStorageNil
	}

	s := &PgStorage{
		pool:              pool,
		lockCheckInterval: 15 * time.Second,
		shutdownTimeout:   30 * time.Second,
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// conn returns the transaction carried in the context, or the pool.
func (s *PgStorage) conn(ctx context.Context) querier {
	if tx, ok := pg.TxFromContext(ctx); ok {
		return tx
	}
	return s.pool
}

// CreateJob inserts a new job row.
func (s *PgStorage) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}

	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO render_jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		job.ID, job.Provider, job.Prompt, job.Model, job.AspectRatio, job.DurationSec,
		job.SessionToken, job.ProjectID, string(job.Status), job.Attempts, job.MaxAttempts,
		job.OutputKey, job.OutputURL, job.Error, job.ScheduledAt, job.LockedUntil, job.LockedBy,
		job.ProcessedAt, job.CreatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrJobExists, job.ID)
		}
		return fmt.Errorf("failed to insert job %s: %w", job.ID, err)
	}

	return nil
}

// ClaimJob atomically claims the earliest due pending job. SKIP LOCKED
// lets concurrent claimers pass over rows another transaction holds.
func (s *PgStorage) ClaimJob(ctx context.Context, workerID uuid.UUID, lockDuration time.Duration) (*Job, error) {
	row := s.conn(ctx).QueryRow(ctx, `
		UPDATE render_jobs
		SET status = 'processing', locked_until = $1, locked_by = $2
		WHERE id = (
			SELECT id FROM render_jobs
			WHERE status = 'pending' AND scheduled_at <= now()
			ORDER BY scheduled_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns,
		time.Now().Add(lockDuration), workerID)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoJobToClaim
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	return job, nil
}

// CompleteJob marks a processing job completed and records its output.
func (s *PgStorage) CompleteJob(ctx context.Context, jobID uuid.UUID, result Result) error {
	tag, err := s.conn(ctx).Exec(ctx, `
		UPDATE render_jobs
		SET status = 'completed', output_key = $2, output_url = $3,
			processed_at = now(), locked_until = NULL, locked_by = NULL
		WHERE id = $1 AND status = 'processing'`,
		jobID, result.OutputKey, result.OutputURL)
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return s.resolveMissing(ctx, jobID)
	}

	return nil
}

// FailJob records a failed attempt: retry with linear backoff while
// attempts remain, terminal failed status once they are exhausted.
func (s *PgStorage) FailJob(ctx context.Context, jobID uuid.UUID, errorMsg string) error {
	tag, err := s.conn(ctx).Exec(ctx, `
		UPDATE render_jobs
		SET attempts = attempts + 1,
			error = $2,
			locked_until = NULL,
			locked_by = NULL,
			status = CASE WHEN attempts + 1 >= max_attempts THEN 'failed' ELSE 'pending' END,
			scheduled_at = CASE WHEN attempts + 1 >= max_attempts
				THEN scheduled_at
				ELSE now() + make_interval(secs => (attempts + 1) * 30)
			END
		WHERE id = $1 AND status = 'processing'`,
		jobID, errorMsg)
	if err != nil {
		return fmt.Errorf("failed to record failure for job %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return s.resolveMissing(ctx, jobID)
	}

	return nil
}

// MoveToDeadLetter parks an exhausted job in the dead status. Calling it
// on an already dead job is a no-op.
func (s *PgStorage) MoveToDeadLetter(ctx context.Context, jobID uuid.UUID) error {
	tag, err := s.conn(ctx).Exec(ctx, `
		UPDATE render_jobs
		SET status = 'dead', processed_at = now(), locked_until = NULL, locked_by = NULL
		WHERE id = $1 AND status <> 'dead'`,
		jobID)
	if err != nil {
		return fmt.Errorf("failed to dead-letter job %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.conn(ctx).QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM render_jobs WHERE id = $1)`, jobID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to look up job %s: %w", jobID, err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
	}

	return nil
}

// ExtendLock pushes out the lock expiry of a processing job.
func (s *PgStorage) ExtendLock(ctx context.Context, jobID uuid.UUID, duration time.Duration) error {
	tag, err := s.conn(ctx).Exec(ctx, `
		UPDATE render_jobs SET locked_until = $2
		WHERE id = $1 AND status = 'processing'`,
		jobID, time.Now().Add(duration))
	if err != nil {
		return fmt.Errorf("failed to extend lock for job %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return s.resolveMissing(ctx, jobID)
	}

	return nil
}

// ReleaseExpiredLocks returns processing jobs with lapsed locks to pending.
func (s *PgStorage) ReleaseExpiredLocks(ctx context.Context) (int, error) {
	tag, err := s.conn(ctx).Exec(ctx, `
		UPDATE render_jobs
		SET status = 'pending', locked_until = NULL, locked_by = NULL
		WHERE status = 'processing' AND locked_until < now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to release expired locks: %w", err)
	}

	freed := int(tag.RowsAffected())
	if freed > 0 {
		s.expiredLocksFreed.Add(int64(freed))
	}

	return freed, nil
}

// GetJob returns a job by ID.
func (s *PgStorage) GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	row := s.conn(ctx).QueryRow(ctx,
		`SELECT `+jobColumns+` FROM render_jobs WHERE id = $1`, jobID)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}

	return job, nil
}

// Stats reports per-status job counts and sweeper state.
func (s *PgStorage) Stats(ctx context.Context) (QueueStats, error) {
	rows, err := s.conn(ctx).Query(ctx,
		`SELECT status, count(*) FROM render_jobs GROUP BY status`)
	if err != nil {
		return QueueStats{}, fmt.Errorf("failed to query queue stats: %w", err)
	}
	defer rows.Close()

	stats := QueueStats{
		ExpiredLocksFreed: s.expiredLocksFreed.Load(),
		SweeperRunning:    s.sweeperRunning(),
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return QueueStats{}, fmt.Errorf("failed to scan queue stats: %w", err)
		}
		switch Status(status) {
		case StatusPending:
			stats.Pending = count
		case StatusProcessing:
			stats.Processing = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		case StatusDead:
			stats.Dead = count
		}
	}
	if err := rows.Err(); err != nil {
		return QueueStats{}, fmt.Errorf("failed to read queue stats: %w", err)
	}

	return stats, nil
}

// DeleteCompletedBefore removes completed jobs processed before the cutoff.
func (s *PgStorage) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.conn(ctx).Exec(ctx, `
		DELETE FROM render_jobs
		WHERE status = 'completed' AND processed_at < $1`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete completed jobs: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// resolveMissing distinguishes a missing job from one in the wrong state
// after an update matched no rows.
func (s *PgStorage) resolveMissing(ctx context.Context, jobID uuid.UUID) error {
	var exists bool
	if err := s.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM render_jobs WHERE id = $1)`, jobID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up job %s: %w", jobID, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return fmt.Errorf("%w: %s", ErrJobNotProcessing, jobID)
}

// scanJob reads one job row.
func scanJob(row pgx.Row) (*Job, error) {
	var job Job
	var status string
	if err := row.Scan(
		&job.ID, &job.Provider, &job.Prompt, &job.Model, &job.AspectRatio, &job.DurationSec,
		&job.SessionToken, &job.ProjectID, &status, &job.Attempts, &job.MaxAttempts,
		&job.OutputKey, &job.OutputURL, &job.Error, &job.ScheduledAt, &job.LockedUntil, &job.LockedBy,
		&job.ProcessedAt, &job.CreatedAt,
	); err != nil {
		return nil, err
	}
	job.Status = Status(status)

	return &job, nil
}

// Start begins the lock-expiry sweeper. This is a blocking operation that
// runs until the context is cancelled. Use Run() for errgroup pattern or
// call this in a goroutine.
func (s *PgStorage) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return fmt.Errorf("pg storage already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.InfoContext(s.ctx, "render queue lock sweeper started",
		slog.Duration("check_interval", s.lockCheckInterval))

	ticker := time.NewTicker(s.lockCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.InfoContext(context.Background(), "render queue storage stopping")
			return s.ctx.Err()
		case <-ticker.C:
			select {
			case <-s.ctx.Done():
				return s.ctx.Err()
			default:
				s.sweepExpiredLocks()
			}
		}
	}
}

// Stop gracefully shuts down the lock-expiry sweeper with a timeout.
func (s *PgStorage) Stop() error {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return fmt.Errorf("pg storage not started")
	}

	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()

	ctx, ctxCancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer ctxCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.InfoContext(context.Background(), "render queue storage stopped cleanly")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(context.Background(), "render queue storage shutdown timeout exceeded",
			slog.Duration("timeout", s.shutdownTimeout))
		return fmt.Errorf("shutdown timeout exceeded after %s", s.shutdownTimeout)
	}
}

// Run provides errgroup compatibility for coordinated lifecycle management.
func (s *PgStorage) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			_ = s.Stop()
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

func (s *PgStorage) sweeperRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancel != nil
}

// sweepExpiredLocks wraps ReleaseExpiredLocks with WaitGroup tracking for
// graceful shutdown.
func (s *PgStorage) sweepExpiredLocks() {
	s.mu.RLock()
	if s.cancel == nil {
		s.mu.RUnlock()
		return
	}
	s.wg.Add(1)
	ctx := s.ctx
	s.mu.RUnlock()

	defer s.wg.Done()

	freed, err := s.ReleaseExpiredLocks(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to release expired job locks",
			slog.String("error", err.Error()))
		return
	}
	if freed > 0 {
		s.logger.InfoContext(ctx, "released expired job locks",
			slog.Int("count", freed))
	}
}

// Healthcheck validates that the sweeper is running and the database is
// reachable.
func (s *PgStorage) Healthcheck(ctx context.Context) error {
	if !s.sweeperRunning() {
		return errors.Join(ErrHealthcheckFailed, ErrQueueNotRunning)
	}
	if err := s.pool.Ping(ctx); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}

	return nil
}
