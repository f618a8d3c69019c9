package renderqueue

import "errors"

var (
	// ErrStorageNil indicates a queue component was constructed without storage.
	ErrStorageNil = errors.New("storage cannot be nil")

	// ErrHandlerNil indicates a worker was constructed without a job handler.
	ErrHandlerNil = errors.New("job handler cannot be nil")

	// ErrNoJobToClaim indicates no pending job is due for processing.
	ErrNoJobToClaim = errors.New("no job to claim")

	// ErrJobNotFound indicates the referenced job does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotProcessing indicates a worker operation targeted a job that
	// is not in the processing state.
	ErrJobNotProcessing = errors.New("job is not processing")

	// ErrJobExists indicates a job with the same ID is already stored.
	ErrJobExists = errors.New("job already exists")

	// ErrInvalidProvider indicates an enqueue request without a provider name.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrEmptyPrompt indicates an enqueue request without a prompt.
	ErrEmptyPrompt = errors.New("empty prompt")

	// ErrEmptySessionToken indicates an enqueue request without a secret
	// session token.
	ErrEmptySessionToken = errors.New("empty session token")

	// ErrQueueNotRunning indicates the storage lock-expiry sweeper is not running.
	ErrQueueNotRunning = errors.New("queue sweeper is not running")

	// ErrWorkerNotRunning indicates the worker has not been started.
	ErrWorkerNotRunning = errors.New("worker is not running")

	// ErrWorkerOverloaded indicates all worker slots are busy.
	ErrWorkerOverloaded = errors.New("worker is overloaded")

	// ErrHealthcheckFailed indicates a queue component failed its health check.
	ErrHealthcheckFailed = errors.New("healthcheck failed")
)
