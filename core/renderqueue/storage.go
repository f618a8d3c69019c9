package renderqueue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EnqueuerRepository defines the interface for job creation.
type EnqueuerRepository interface {
	CreateJob(ctx context.Context, job *Job) error
}

// WorkerRepository defines the interface for claiming and resolving jobs.
type WorkerRepository interface {
	// ClaimJob atomically claims the next due pending job, locking it for
	// lockDuration. Returns ErrNoJobToClaim when nothing is due.
	ClaimJob(ctx context.Context, workerID uuid.UUID, lockDuration time.Duration) (*Job, error)

	// ExtendLock pushes out the lock expiry of a processing job.
	ExtendLock(ctx context.Context, jobID uuid.UUID, duration time.Duration) error

	// CompleteJob marks a processing job completed and records its output.
	CompleteJob(ctx context.Context, jobID uuid.UUID, result Result) error

	// FailJob records a failure: the attempt counter is incremented and the
	// job is rescheduled as pending with backoff while attempts remain,
	// or marked failed once they are exhausted.
	FailJob(ctx context.Context, jobID uuid.UUID, errorMsg string) error

	// MoveToDeadLetter parks an exhausted job in the dead status for
	// manual inspection. Already-dead jobs are left as they are.
	MoveToDeadLetter(ctx context.Context, jobID uuid.UUID) error

	// ReleaseExpiredLocks returns processing jobs with lapsed locks to
	// pending and reports how many were freed.
	ReleaseExpiredLocks(ctx context.Context) (int, error)
}

// Storage is the combined backend interface required to run the queue:
// job creation, worker processing, and inspection/retention.
type Storage interface {
	EnqueuerRepository
	WorkerRepository

	// GetJob returns a job by ID, or ErrJobNotFound.
	GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error)

	// Stats reports per-status job counts and sweeper state.
	Stats(ctx context.Context) (QueueStats, error)

	// DeleteCompletedBefore removes completed jobs processed before the
	// cutoff and reports how many were deleted.
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
