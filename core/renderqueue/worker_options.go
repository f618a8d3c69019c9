package renderqueue

import (
	"log/slog"
	"time"
)

// WorkerOption is a functional option for configuring a worker.
type WorkerOption func(*workerOptions)

type workerOptions struct {
	pollInterval      time.Duration
	lockTimeout       time.Duration
	jobTimeout        time.Duration
	shutdownTimeout   time.Duration
	maxConcurrentJobs int
	logger            *slog.Logger
}

func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

func WithLockTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

func WithJobTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.jobTimeout = d
		}
	}
}

func WithShutdownTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

func WithMaxConcurrentJobs(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.maxConcurrentJobs = n
		}
	}
}

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
