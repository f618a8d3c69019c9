package keysession

import (
	"encoding/hex"
	"errors"
	"log/slog"
	"time"
)

// Defaults chosen for credential handoff: long enough to cover a render job
// from submission to completion, short enough that a leaked token goes stale
// quickly.
const (
	DefaultTTL           = 30 * time.Minute
	DefaultSweepInterval = 5 * time.Minute

	defaultShutdownTimeout = 10 * time.Second
)

// Config holds environment-driven store settings. The encryption key is
// hex-encoded and required: the store refuses to run without one.
type Config struct {
	TTL             time.Duration `env:"KEYSESSION_TTL" envDefault:"30m"`
	SweepInterval   time.Duration `env:"KEYSESSION_SWEEP_INTERVAL" envDefault:"5m"`
	ShutdownTimeout time.Duration `env:"KEYSESSION_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	EncryptionKey   string        `env:"KEYSESSION_ENCRYPTION_KEY,required"`
}

// NewFromConfig creates a Store from Config; explicit options are applied
// after the config and win on conflict.
func NewFromConfig(cfg Config, opts ...Option) (*Store, error) {
	key, err := hex.DecodeString(cfg.EncryptionKey)
	if err != nil {
		return nil, errors.Join(ErrEncryptionKeyInvalid, err)
	}

	base := make([]Option, 0, len(opts)+3)
	if cfg.TTL > 0 {
		base = append(base, WithTTL(cfg.TTL))
	}
	if cfg.SweepInterval > 0 {
		base = append(base, WithSweepInterval(cfg.SweepInterval))
	}
	if cfg.ShutdownTimeout > 0 {
		base = append(base, WithShutdownTimeout(cfg.ShutdownTimeout))
	}

	return New(key, append(base, opts...)...)
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSweepInterval sets how often the periodic sweeper runs.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *Store) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithShutdownTimeout sets the graceful shutdown timeout for Stop.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.shutdownTimeout = timeout
		}
	}
}

// WithLogger sets the logger for internal operations.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.logger = log
		}
	}
}

type createOptions struct {
	projectID string
}

// CreateOption configures a single Create call.
type CreateOption func(*createOptions)

// WithProjectID attaches a provider-specific project identifier to the
// session (e.g. a Vertex AI project for Veo credentials).
func WithProjectID(id string) CreateOption {
	return func(o *createOptions) {
		o.projectID = id
	}
}
