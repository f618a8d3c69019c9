package render

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/renderkit/core/poller"
	"github.com/dmitrymomot/renderkit/core/renderqueue"
	"github.com/dmitrymomot/renderkit/pkg/ratelimiter"
	"github.com/dmitrymomot/renderkit/pkg/storyboard"
	"github.com/dmitrymomot/renderkit/pkg/videogen"
)

// GeneratorFactory builds a provider client bound to one render's
// credential. The secret and project ID come from the job's redeemed
// session, so each render runs under the credential its submitter handed
// in, never a service-wide key.
type GeneratorFactory func(ctx context.Context, secret, projectID string) (videogen.Generator, error)

// StaticGenerator wraps an already-constructed generator into a factory
// that ignores the per-render credential. Useful for providers that
// authenticate at the environment level (e.g. Vertex AI with ambient
// credentials) and in tests.
func StaticGenerator(gen videogen.Generator) GeneratorFactory {
	return func(context.Context, string, string) (videogen.Generator, error) {
		return gen, nil
	}
}

// Option configures a Service instance.
type Option func(*Service) error

// WithGenerator registers a generator factory for a provider. At least one
// registration is required; registering the same provider twice replaces
// the earlier factory.
func WithGenerator(provider string, factory GeneratorFactory) Option {
	return func(s *Service) error {
		if provider == "" {
			return fmt.Errorf("generator provider name is empty")
		}
		if factory == nil {
			return fmt.Errorf("generator factory for %q is nil", provider)
		}
		s.generators[provider] = factory
		return nil
	}
}

// WithRateLimiter installs a per-caller render budget. Submissions check
// the limiter before any session or job is created; without one, no
// limiting is applied.
func WithRateLimiter(limiter ratelimiter.RateLimiter) Option {
	return func(s *Service) error {
		s.limiter = limiter
		return nil
	}
}

// WithDrafter installs the storyboard drafter used by SubmitStoryboard.
func WithDrafter(drafter *storyboard.Drafter) Option {
	return func(s *Service) error {
		s.drafter = drafter
		return nil
	}
}

// WithLogger sets the service logger. Components keep their own loggers
// (discard by default).
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithPoller replaces the default status poller. The poller decides how
// often provider status is checked and when a render is declared stuck.
func WithPoller(p *poller.Poller[videogen.RenderStatus]) Option {
	return func(s *Service) error {
		if p != nil {
			s.poller = p
		}
		return nil
	}
}

// WithArtifactPrefix sets the key prefix finished videos are stored under.
func WithArtifactPrefix(prefix string) Option {
	return func(s *Service) error {
		if prefix != "" {
			s.artifactPrefix = prefix
		}
		return nil
	}
}

// WithWorkerOptions applies options to the queue worker the service builds.
func WithWorkerOptions(opts ...renderqueue.WorkerOption) Option {
	return func(s *Service) error {
		s.workerOpts = append(s.workerOpts, opts...)
		return nil
	}
}

// WithEnqueuerOptions applies options to the enqueuer the service builds.
func WithEnqueuerOptions(opts ...renderqueue.EnqueuerOption) Option {
	return func(s *Service) error {
		s.enqueuerOpts = append(s.enqueuerOpts, opts...)
		return nil
	}
}
