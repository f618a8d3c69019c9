// Package renderqueue provides a persistent job queue for video render
// requests. Jobs carry the full render request (provider, prompt, model,
// aspect ratio, duration) plus a session token referencing the ephemeral
// credential session, so provider API keys never touch the queue or its
// storage.
//
// # Features
//
//   - At-least-once delivery with per-job locks and a lock-expiry sweeper
//   - Lock heartbeat so long renders survive beyond the initial lock window
//   - Retry with linear backoff, then a terminal dead status once attempts
//     are exhausted
//   - Background worker with a concurrency cap and panic recovery
//   - In-memory storage for testing and development
//   - PostgreSQL storage using FOR UPDATE SKIP LOCKED claims
//   - Graceful shutdown that lets in-flight renders finish
//
// # Basic Usage
//
// Create storage, an enqueuer, and a worker with a render handler:
//
//	import "github.com/dmitrymomot/renderkit/core/renderqueue"
//
//	// Create storage (in-memory for development)
//	storage := renderqueue.NewMemoryStorage()
//
//	// Create enqueuer for submitting render jobs
//	enqueuer, err := renderqueue.NewEnqueuer(storage)
//
//	// Create worker with the handler that performs the render
//	worker, err := renderqueue.NewWorker(storage, func(ctx context.Context, job renderqueue.Job) (renderqueue.Result, error) {
//		url, key, err := renderVideo(ctx, job)
//		if err != nil {
//			return renderqueue.Result{}, err
//		}
//		return renderqueue.Result{OutputKey: key, OutputURL: url}, nil
//	}, renderqueue.WithMaxConcurrentJobs(4))
//
//	// Run everything under an errgroup
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(storage.Run(ctx))
//	g.Go(worker.Run(ctx))
//
//	// Enqueue render jobs
//	jobID, err := enqueuer.Enqueue(ctx, renderqueue.EnqueueParams{
//		Provider:     "veo",
//		Prompt:       "a lighthouse at dawn, slow aerial pull-back",
//		DurationSec:  8,
//		SessionToken: session.Token,
//	})
//
// # Job Lifecycle
//
// A claimed job moves from pending to processing. Success marks it
// completed. A failed attempt reschedules it as pending with linear
// backoff (30s, 60s, 90s...) while attempts remain; once they are
// exhausted the job becomes failed and the worker parks it in the dead
// status, where it stays visible for inspection instead of being retried
// or deleted. If a worker dies without completing or failing the job, the
// lock-expiry sweeper returns the row to pending for another worker to
// claim.
//
// # Locks and Long Renders
//
// Claiming a job sets a lock that expires after the worker's lock timeout.
// The worker heartbeats the lock at half that interval while the handler
// runs, so a 20-minute render holds a 2-minute lock safely. If a worker
// dies mid-render, the heartbeat stops and the storage sweeper returns the
// job to pending after the lock lapses.
//
// # Delayed Jobs
//
// Schedule renders for future execution:
//
//	// Enqueue with delay
//	enqueuer.EnqueueWithDelay(ctx, params, time.Hour)
//
//	// Enqueue at a specific time
//	enqueuer.EnqueueAt(ctx, params, time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC))
//
// # PostgreSQL Storage
//
// For production use, back the queue with PostgreSQL:
//
//	pool, err := pg.Connect(ctx, pg.Config{ConnectionString: dsn})
//	storage, err := renderqueue.NewPgStorage(pool)
//
// Claims run as a single UPDATE with FOR UPDATE SKIP LOCKED, so any number
// of worker processes can share one table without double-claiming. All
// storage methods join a transaction carried in the context via pg.WithTx.
// The render_jobs schema ships in the migrations directory and is applied
// with pg.Migrate.
//
// # Storage Interfaces
//
// The package defines repository interfaces per component:
//
//   - EnqueuerRepository: CreateJob
//   - WorkerRepository: ClaimJob, ExtendLock, CompleteJob, FailJob,
//     MoveToDeadLetter, ReleaseExpiredLocks
//   - Storage: both of the above plus GetJob, Stats, and
//     DeleteCompletedBefore
//
// Use NewMemoryStorage for development and tests, NewPgStorage in
// production, or implement the interfaces for a custom backend.
package renderqueue
