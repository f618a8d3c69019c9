package poller

import "time"

// Defaults applied by New: fast first checks, slow bounded steady state.
const (
	DefaultInitialInterval   = 2 * time.Second
	DefaultBackoffMultiplier = 1.5
	DefaultMaxInterval       = 30 * time.Second
	DefaultMaxAttempts       = 60
)

// Config holds poller settings loaded from environment variables.
type Config struct {
	InitialInterval   time.Duration `env:"POLLER_INITIAL_INTERVAL" envDefault:"2s"`
	BackoffMultiplier float64       `env:"POLLER_BACKOFF_MULTIPLIER" envDefault:"1.5"`
	MaxInterval       time.Duration `env:"POLLER_MAX_INTERVAL" envDefault:"30s"`
	MaxAttempts       int           `env:"POLLER_MAX_ATTEMPTS" envDefault:"60"`
}

// NewFromConfig builds a poller from cfg. Explicit opts take precedence over
// config values.
func NewFromConfig[T any](cfg Config, opts ...Option) *Poller[T] {
	configOpts := make([]Option, 0, len(opts)+4)
	if cfg.InitialInterval > 0 {
		configOpts = append(configOpts, WithInitialInterval(cfg.InitialInterval))
	}
	if cfg.BackoffMultiplier >= 1 {
		configOpts = append(configOpts, WithBackoffMultiplier(cfg.BackoffMultiplier))
	}
	if cfg.MaxInterval > 0 {
		configOpts = append(configOpts, WithMaxInterval(cfg.MaxInterval))
	}
	if cfg.MaxAttempts > 0 {
		configOpts = append(configOpts, WithMaxAttempts(cfg.MaxAttempts))
	}
	return New[T](append(configOpts, opts...)...)
}
