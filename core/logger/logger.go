package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config carries environment-driven logger settings.
type Config struct {
	Environment string `env:"LOG_ENVIRONMENT" envDefault:"development"`
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Format      string `env:"LOG_FORMAT" envDefault:"text"`
	App         string `env:"APP_NAME"`
}

type options struct {
	level      slog.Level
	json       bool
	output     io.Writer
	attrs      []slog.Attr
	extractors []ContextExtractor
	sentry     *SentryConfig
	setDefault bool
}

// Option configures logger construction.
type Option func(*options)

// WithDevelopment selects text output at debug level, tagged with the app name.
func WithDevelopment(app string) Option {
	return func(o *options) {
		o.json = false
		o.level = slog.LevelDebug
		o.attrs = append(o.attrs, appAttrs(app, "development")...)
	}
}

// WithStaging selects JSON output at info level, tagged with the app name.
func WithStaging(app string) Option {
	return func(o *options) {
		o.json = true
		o.level = slog.LevelInfo
		o.attrs = append(o.attrs, appAttrs(app, "staging")...)
	}
}

// WithProduction selects JSON output at info level, tagged with the app name.
func WithProduction(app string) Option {
	return func(o *options) {
		o.json = true
		o.level = slog.LevelInfo
		o.attrs = append(o.attrs, appAttrs(app, "production")...)
	}
}

// WithLevel overrides the minimum log level.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithJSONFormatter forces JSON output regardless of environment preset.
func WithJSONFormatter() Option {
	return func(o *options) {
		o.json = true
	}
}

// WithTextFormatter forces text output regardless of environment preset.
func WithTextFormatter() Option {
	return func(o *options) {
		o.json = false
	}
}

// WithOutput redirects log output. Default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithAttr attaches static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(o *options) {
		o.attrs = append(o.attrs, attrs...)
	}
}

// WithContextValue extracts ctx.Value(ctxKey) on every log call and logs it
// under attrKey when present.
func WithContextValue(attrKey string, ctxKey any) Option {
	return func(o *options) {
		o.extractors = append(o.extractors, func(ctx context.Context) (slog.Attr, bool) {
			if v := ctx.Value(ctxKey); v != nil {
				return slog.Any(attrKey, v), true
			}
			return slog.Attr{}, false
		})
	}
}

// WithContextExtractors registers custom context extractors.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(o *options) {
		o.extractors = append(o.extractors, extractors...)
	}
}

// WithSentry forwards warn/error records to Sentry in addition to the
// primary output. A zero-value config (empty DSN) is a no-op.
func WithSentry(cfg SentryConfig) Option {
	return func(o *options) {
		o.sentry = &cfg
	}
}

// SetAsDefault installs the constructed logger as the process-wide slog
// default.
func SetAsDefault() Option {
	return func(o *options) {
		o.setDefault = true
	}
}

// New builds a *slog.Logger. Without options it logs text at info level to
// stdout.
func New(opts ...Option) *slog.Logger {
	o := options{
		level:  slog.LevelInfo,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	handlerOpts := &slog.HandlerOptions{Level: o.level}
	var base slog.Handler
	if o.json {
		base = slog.NewJSONHandler(o.output, handlerOpts)
	} else {
		base = slog.NewTextHandler(o.output, handlerOpts)
	}
	if len(o.attrs) > 0 {
		base = base.WithAttrs(o.attrs)
	}

	if o.sentry != nil {
		if sentryHandler, ok := newSentryHandler(*o.sentry, base); ok {
			base = newMultiHandler(base, sentryHandler)
		}
	}

	log := slog.New(newContextHandler(base, o.extractors...))
	if o.setDefault {
		slog.SetDefault(log)
	}
	return log
}

// NewFromConfig builds a logger from environment-driven Config; explicit
// options are applied after the config and win on conflict.
func NewFromConfig(cfg Config, opts ...Option) *slog.Logger {
	base := make([]Option, 0, len(opts)+2)

	switch strings.ToLower(cfg.Environment) {
	case "production":
		base = append(base, WithProduction(cfg.App))
	case "staging":
		base = append(base, WithStaging(cfg.App))
	default:
		base = append(base, WithDevelopment(cfg.App))
	}

	base = append(base, WithLevel(parseLevel(cfg.Level)))
	switch strings.ToLower(cfg.Format) {
	case "json":
		base = append(base, WithJSONFormatter())
	case "text":
		base = append(base, WithTextFormatter())
	}

	return New(append(base, opts...)...)
}

func appAttrs(app, env string) []slog.Attr {
	attrs := []slog.Attr{slog.String("env", env)}
	if app != "" {
		attrs = append(attrs, slog.String("app", app))
	}
	return attrs
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
