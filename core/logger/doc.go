// Package logger builds structured slog loggers with environment presets,
// context-aware attribute extraction and typed attribute helpers.
//
// # Construction
//
//	log := logger.New(
//		logger.WithProduction("renderkit"),
//		logger.WithLevel(slog.LevelInfo),
//	)
//
//	log.Info("worker started",
//		logger.Component("renderqueue"),
//		logger.Event("startup"),
//	)
//
// Presets: WithDevelopment (text, debug), WithStaging and WithProduction
// (JSON, info). Individual knobs (WithLevel, WithJSONFormatter, WithOutput,
// WithAttr) override preset choices. SetAsDefault installs the result as the
// process-wide slog default.
//
// NewFromConfig builds the same logger from env-tagged Config
// (LOG_ENVIRONMENT, LOG_LEVEL, LOG_FORMAT, APP_NAME).
//
// # Context extraction
//
// Extractors run per log call, pulling request- or job-scoped values out of
// the context:
//
//	log := logger.New(
//		logger.WithProduction("renderkit"),
//		logger.WithContextValue("job_id", jobIDContextKey),
//	)
//
//	log.InfoContext(ctx, "render completed") // includes job_id when present
//
// Custom extractors receive the context and return (slog.Attr, bool).
//
// # Sentry forwarding
//
// WithSentry fans warn/error records out to Sentry in addition to the
// primary output. An empty DSN disables forwarding, so the same construction
// works unchanged in local development.
//
// # Attribute helpers
//
// Helpers cover errors (Error, Errors), timing (Duration, Elapsed),
// identifiers (ID, JobID, Provider, TokenPrefix) and metadata (Component,
// Event, Action, Result, Count, RetryCount). Helpers are nil-safe: passing a
// nil error or empty string yields an attribute that slog drops. TokenPrefix
// exists because session tokens stand in for credentials: only a truncated
// prefix is ever loggable.
package logger
