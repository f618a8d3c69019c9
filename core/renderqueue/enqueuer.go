package renderqueue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EnqueuerOption is a functional option for configuring an Enqueuer.
type EnqueuerOption func(*enqueuerOptions)

type enqueuerOptions struct {
	defaultMaxAttempts int
}

// WithDefaultMaxAttempts sets how many attempts a job gets when the
// enqueue request does not say.
func WithDefaultMaxAttempts(n int) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if n > 0 {
			o.defaultMaxAttempts = n
		}
	}
}

// EnqueueParams describes a render to queue. SessionToken must reference
// an existing secret session; the provider credential itself is never
// part of the job.
type EnqueueParams struct {
	Provider     string
	Prompt       string
	Model        string
	AspectRatio  string
	DurationSec  int
	SessionToken string
	ProjectID    string

	// MaxAttempts overrides the enqueuer default when positive.
	MaxAttempts int
}

// Enqueuer validates render requests and creates pending jobs.
type Enqueuer struct {
	repo               EnqueuerRepository
	defaultMaxAttempts int
}

// NewEnqueuer returns an Enqueuer writing jobs through repo.
func NewEnqueuer(repo EnqueuerRepository, opts ...EnqueuerOption) (*Enqueuer, error) {
	if repo == nil {
		return nil, ErrStorageNil
	}

	options := &enqueuerOptions{
		defaultMaxAttempts: 3,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Enqueuer{
		repo:               repo,
		defaultMaxAttempts: options.defaultMaxAttempts,
	}, nil
}

// NewEnqueuerFromConfig builds an Enqueuer with its tunables taken from cfg.
// Additional options override config values.
func NewEnqueuerFromConfig(cfg Config, repo EnqueuerRepository, opts ...EnqueuerOption) (*Enqueuer, error) {
	allOpts := append([]EnqueuerOption{
		WithDefaultMaxAttempts(cfg.MaxAttempts),
	}, opts...)

	return NewEnqueuer(repo, allOpts...)
}

// Enqueue queues a render for immediate processing and returns the job ID.
func (e *Enqueuer) Enqueue(ctx context.Context, params EnqueueParams) (uuid.UUID, error) {
	return e.EnqueueAt(ctx, params, time.Now())
}

// EnqueueWithDelay queues a render that becomes due after the delay.
func (e *Enqueuer) EnqueueWithDelay(ctx context.Context, params EnqueueParams, delay time.Duration) (uuid.UUID, error) {
	at := time.Now()
	if delay > 0 {
		at = at.Add(delay)
	}
	return e.EnqueueAt(ctx, params, at)
}

// EnqueueAt queues a render that becomes due at the given time.
func (e *Enqueuer) EnqueueAt(ctx context.Context, params EnqueueParams, at time.Time) (uuid.UUID, error) {
	job, err := e.buildJob(params, at)
	if err != nil {
		return uuid.Nil, err
	}

	if err := e.repo.CreateJob(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create render job for provider %q: %w", job.Provider, err)
	}

	return job.ID, nil
}

// buildJob validates params and constructs a pending Job.
func (e *Enqueuer) buildJob(params EnqueueParams, at time.Time) (*Job, error) {
	provider := strings.TrimSpace(params.Provider)
	if provider == "" {
		return nil, ErrInvalidProvider
	}

	prompt := strings.TrimSpace(params.Prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	if params.SessionToken == "" {
		return nil, ErrEmptySessionToken
	}

	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = e.defaultMaxAttempts
	}

	return &Job{
		ID:           uuid.New(),
		Provider:     provider,
		Prompt:       prompt,
		Model:        params.Model,
		AspectRatio:  params.AspectRatio,
		DurationSec:  params.DurationSec,
		SessionToken: params.SessionToken,
		ProjectID:    params.ProjectID,
		Status:       StatusPending,
		Attempts:     0,
		MaxAttempts:  maxAttempts,
		ScheduledAt:  at,
		CreatedAt:    time.Now(),
	}, nil
}
