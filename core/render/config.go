package render

import (
	"github.com/dmitrymomot/renderkit/core/artifact"
	"github.com/dmitrymomot/renderkit/core/keysession"
	"github.com/dmitrymomot/renderkit/core/poller"
	"github.com/dmitrymomot/renderkit/core/renderqueue"
	"github.com/dmitrymomot/renderkit/pkg/videogen"
)

// Config holds environment-driven settings for the render service and the
// components it builds. Injected dependencies (session store, storages)
// carry their own configs.
type Config struct {
	// Queue configures the worker and enqueuer built by the service.
	Queue renderqueue.Config

	// Poll configures the provider status poller. The attempt budget
	// bounds how long a render is watched before it is declared stuck.
	Poll poller.Config

	// ArtifactPrefix is the key prefix finished videos are stored under.
	ArtifactPrefix string `env:"RENDER_ARTIFACT_PREFIX" envDefault:"renders"`
}

// NewFromConfig creates a render service from cfg. Explicit options are
// applied after the config and win on conflict.
func NewFromConfig(cfg Config, sessions *keysession.Store, queue renderqueue.Storage, artifacts artifact.Storage, opts ...Option) (*Service, error) {
	configOpts := []Option{
		WithPoller(poller.NewFromConfig[videogen.RenderStatus](cfg.Poll)),
		WithWorkerOptions(
			renderqueue.WithPollInterval(cfg.Queue.PollInterval),
			renderqueue.WithLockTimeout(cfg.Queue.LockTimeout),
			renderqueue.WithJobTimeout(cfg.Queue.JobTimeout),
			renderqueue.WithShutdownTimeout(cfg.Queue.ShutdownTimeout),
			renderqueue.WithMaxConcurrentJobs(cfg.Queue.MaxConcurrentJobs),
		),
		WithEnqueuerOptions(
			renderqueue.WithDefaultMaxAttempts(cfg.Queue.MaxAttempts),
		),
		WithArtifactPrefix(cfg.ArtifactPrefix),
	}

	return New(sessions, queue, artifacts, append(configOpts, opts...)...)
}
