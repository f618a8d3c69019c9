package logger

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// SentryConfig enables forwarding warn/error records to Sentry alongside the
// primary output. An empty DSN disables forwarding, which keeps local
// development configuration-free.
type SentryConfig struct {
	DSN         string `env:"SENTRY_DSN"`
	Environment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	// MinLevel controls which records are stored as Sentry logs. Errors
	// always create Sentry issues.
	MinLevel slog.Level
}

// newSentryHandler initializes the Sentry SDK and returns a handler for it.
// Returns false when Sentry is disabled or initialization fails; the caller
// falls back to its primary handler so logging never breaks over a telemetry
// misconfiguration.
func newSentryHandler(cfg SentryConfig, fallback slog.Handler) (slog.Handler, bool) {
	if cfg.DSN == "" {
		return nil, false
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		EnableLogs:  true,
	}); err != nil {
		slog.New(fallback).Error("failed to initialize Sentry", Error(err), Component("logger"))
		return nil, false
	}

	logLevel := []slog.Level{slog.LevelWarn, slog.LevelError}
	if cfg.MinLevel == slog.LevelError {
		logLevel = []slog.Level{slog.LevelError}
	}

	handler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   logLevel,
	}.NewSentryHandler(context.Background())

	return handler, true
}
