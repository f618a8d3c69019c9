package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection parameters.
// All fields are populated from environment variables for deployment convenience.
type Config struct {
	// Redis connection URL (redis:// or rediss:// for TLS)
	ConnectionURL string `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"`

	// Retry configuration for handling transient network issues during startup.
	RetryAttempts int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`

	// Overall timeout for the entire connection process including retries.
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`

	// Batch size for SCAN operations, tunable per dataset size.
	ScanBatchSize int `env:"REDIS_SCAN_BATCH_SIZE" envDefault:"1000"`
}

// Connect creates a Redis client with retry logic and connection verification.
// The URL is validated before dialing; connectivity is verified with a ping
// so callers get a working client or an error, never a lazily broken one.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}
	if !strings.HasPrefix(cfg.ConnectionURL, "redis://") && !strings.HasPrefix(cfg.ConnectionURL, "rediss://") {
		return nil, ErrFailedToParseRedisConnString
	}

	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	// Attempt 1 waits RetryInterval, attempt 2 waits 2x, and so on. Linear
	// growth avoids thundering herd when multiple services restart at once.
	attempts := max(cfg.RetryAttempts, 1)
	for i := range attempts {
		client := redis.NewClient(opts)

		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}

		_ = client.Close()

		if waitErr := wait(ctx, time.Duration(i+1)*cfg.RetryInterval); waitErr != nil {
			return nil, errors.Join(ErrRedisNotReady, waitErr)
		}
	}

	return nil, ErrRedisNotReady
}

// Healthcheck returns a closure that validates Redis connectivity for health
// endpoints. Compatible with standard health check interfaces that expect
// func(context.Context) error.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return ErrHealthcheckFailed
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

func wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
