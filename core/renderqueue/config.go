package renderqueue

import "time"

// Config holds the configuration for the queue worker and storage sweeper.
// Designed for environment-based configuration using popular env parsing
// libraries.
type Config struct {
	// Worker configuration. LockTimeout bounds how long a claim holds
	// without a heartbeat; JobTimeout bounds the whole render, which can
	// run far longer than a single lock window.
	PollInterval      time.Duration `env:"RENDER_QUEUE_POLL_INTERVAL" envDefault:"2s"`
	LockTimeout       time.Duration `env:"RENDER_QUEUE_LOCK_TIMEOUT" envDefault:"2m"`
	JobTimeout        time.Duration `env:"RENDER_QUEUE_JOB_TIMEOUT" envDefault:"30m"`
	ShutdownTimeout   time.Duration `env:"RENDER_QUEUE_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MaxConcurrentJobs int           `env:"RENDER_QUEUE_MAX_CONCURRENT_JOBS" envDefault:"4"`

	// Enqueuer configuration.
	MaxAttempts int `env:"RENDER_QUEUE_MAX_ATTEMPTS" envDefault:"3"`

	// Storage sweeper configuration.
	LockCheckInterval time.Duration `env:"RENDER_QUEUE_LOCK_CHECK_INTERVAL" envDefault:"15s"`
}

// DefaultConfig returns sensible defaults for production use.
func DefaultConfig() Config {
	return Config{
		PollInterval:      2 * time.Second,
		LockTimeout:       2 * time.Minute,
		JobTimeout:        30 * time.Minute,
		ShutdownTimeout:   30 * time.Second,
		MaxConcurrentJobs: 4,
		MaxAttempts:       3,
		LockCheckInterval: 15 * time.Second,
	}
}
