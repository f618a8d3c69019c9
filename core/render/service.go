package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/renderkit/core/artifact"
	"github.com/dmitrymomot/renderkit/core/keysession"
	"github.com/dmitrymomot/renderkit/core/logger"
	"github.com/dmitrymomot/renderkit/core/poller"
	"github.com/dmitrymomot/renderkit/core/renderqueue"
	"github.com/dmitrymomot/renderkit/pkg/async"
	"github.com/dmitrymomot/renderkit/pkg/ratelimiter"
	"github.com/dmitrymomot/renderkit/pkg/slug"
	"github.com/dmitrymomot/renderkit/pkg/storyboard"
	"github.com/dmitrymomot/renderkit/pkg/videogen"
)

const defaultArtifactPrefix = "renders"

// queueRunner is implemented by queue storages that run a background lock
// sweeper. Storages without one still work; the service just has nothing
// extra to supervise.
type queueRunner interface {
	Run(ctx context.Context) func() error
}

// queueHealthchecker is implemented by queue storages that can report on
// their own health.
type queueHealthchecker interface {
	Healthcheck(ctx context.Context) error
}

// Service ties the render pipeline together: submissions create a
// credential session and enqueue a job, the queue worker redeems the
// session, drives the provider render through the status poller, and
// stores the finished video as an artifact.
//
// Provider secrets live only in the session store. Job records, logs, and
// artifacts carry tokens and outputs, never credentials.
type Service struct {
	sessions  *keysession.Store
	queue     renderqueue.Storage
	artifacts artifact.Storage

	generators map[string]GeneratorFactory
	limiter    ratelimiter.RateLimiter
	drafter    *storyboard.Drafter
	poller     *poller.Poller[videogen.RenderStatus]

	worker   *renderqueue.Worker
	enqueuer *renderqueue.Enqueuer

	workerOpts   []renderqueue.WorkerOption
	enqueuerOpts []renderqueue.EnqueuerOption

	artifactPrefix string
	logger         *slog.Logger
}

// New creates a render service on top of the given session store, queue
// storage, and artifact storage. At least one generator factory must be
// registered via WithGenerator.
//
// Example usage:
//
//	store, err := keysession.New(encryptionKey)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	queue := renderqueue.NewMemoryStorage()
//	artifacts := artifact.NewMemoryStorage()
//
//	svc, err := render.New(store, queue, artifacts,
//	    render.WithGenerator("veo", func(ctx context.Context, secret, projectID string) (videogen.Generator, error) {
//	        return videogen.NewVeo(ctx, secret)
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	go func() {
//	    if err := svc.Run(ctx); err != nil {
//	        log.Printf("render service: %v", err)
//	    }
//	}()
//
//	jobID, err := svc.Submit(ctx, render.SubmitParams{
//	    UserKey:  "user-42",
//	    Provider: "veo",
//	    Secret:   apiKey,
//	    Prompt:   "a lighthouse at dawn, drone shot",
//	})
func New(sessions *keysession.Store, queue renderqueue.Storage, artifacts artifact.Storage, opts ...Option) (*Service, error) {
	if sessions == nil {
		return nil, ErrSessionStoreNil
	}
	if queue == nil {
		return nil, ErrQueueStorageNil
	}
	if artifacts == nil {
		return nil, ErrArtifactStorageNil
	}

	s := &Service{
		sessions:       sessions,
		queue:          queue,
		artifacts:      artifacts,
		generators:     make(map[string]GeneratorFactory),
		artifactPrefix: defaultArtifactPrefix,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to apply service option: %w", err)
		}
	}

	if len(s.generators) == 0 {
		return nil, ErrNoGenerators
	}

	if s.poller == nil {
		s.poller = poller.New[videogen.RenderStatus]()
	}

	// The worker is built last: its handler closes over the fully
	// configured service.
	worker, err := renderqueue.NewWorker(queue, s.processJob, s.workerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker: %w", err)
	}
	s.worker = worker

	enqueuer, err := renderqueue.NewEnqueuer(queue, s.enqueuerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create enqueuer: %w", err)
	}
	s.enqueuer = enqueuer

	return s, nil
}

// SubmitParams describes a single render submission.
type SubmitParams struct {
	// UserKey identifies the caller for rate limiting. Submissions with an
	// empty key bypass the limiter.
	UserKey string

	// Provider names the video generator, e.g. "veo".
	Provider string

	// Secret is the caller's provider credential. It is held in the
	// session store for the lifetime of the job and never persisted.
	Secret string

	// ProjectID scopes the render on providers that bill per project.
	ProjectID string

	// Prompt is the full text-to-video prompt.
	Prompt string

	// Model overrides the provider's default model when non-empty.
	Model string

	// AspectRatio such as "16:9" or "9:16". Provider default when empty.
	AspectRatio string

	// DurationSec is the requested clip length. Provider default when zero.
	DurationSec int

	// MaxAttempts overrides the enqueuer's retry budget when positive.
	MaxAttempts int
}

// Submit checks the caller's render budget, stores the provider credential
// as an ephemeral session, and enqueues a render job that carries only the
// session token. The returned job ID can be used to track progress.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (uuid.UUID, error) {
	if params.Secret == "" {
		return uuid.Nil, ErrEmptySecret
	}
	if _, ok := s.generators[params.Provider]; !ok {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrUnknownProvider, params.Provider)
	}
	if err := s.allow(ctx, params.UserKey, 1); err != nil {
		return uuid.Nil, err
	}

	token, err := s.sessions.Create(ctx, params.Secret, keysession.Provider(params.Provider),
		keysession.WithProjectID(params.ProjectID))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create credential session: %w", err)
	}

	jobID, err := s.enqueuer.Enqueue(ctx, renderqueue.EnqueueParams{
		Provider:     params.Provider,
		Prompt:       params.Prompt,
		Model:        params.Model,
		AspectRatio:  params.AspectRatio,
		DurationSec:  params.DurationSec,
		SessionToken: token,
		ProjectID:    params.ProjectID,
		MaxAttempts:  params.MaxAttempts,
	})
	if err != nil {
		// The session is useless without a job referencing it.
		s.sessions.Delete(ctx, token)
		return uuid.Nil, fmt.Errorf("failed to enqueue render job: %w", err)
	}

	s.logger.InfoContext(ctx, "render submitted",
		logger.JobID(jobID.String()),
		logger.Provider(params.Provider),
		logger.TokenPrefix(token))

	return jobID, nil
}

// StoryboardParams describes a brief-to-storyboard submission.
type StoryboardParams struct {
	// UserKey identifies the caller for rate limiting. A storyboard is
	// billed as one render per scene.
	UserKey string

	// Provider names the video generator every scene renders on.
	Provider string

	// Secret is the caller's provider credential, shared by all scenes.
	Secret string

	// ProjectID scopes the renders on providers that bill per project.
	ProjectID string

	// Brief is the short creative idea the storyboard is drafted from.
	Brief string

	// SceneCount requests a number of scenes. Drafter default when zero.
	SceneCount int

	// Model overrides the provider's default model when non-empty.
	Model string

	// AspectRatio applied to every scene. Provider default when empty.
	AspectRatio string

	// MaxAttempts overrides the retry budget of every scene job.
	MaxAttempts int
}

// SubmitStoryboard drafts scenes from the brief, expands each scene into a
// production-ready video prompt, and submits one render per scene. Every
// scene gets its own credential session and job; jobs render concurrently,
// bounded by the worker's slot count.
//
// The rate budget is charged per scene after drafting, so a six-scene
// storyboard costs six renders. On partial failure the successfully
// enqueued scene jobs keep rendering; the returned slice holds their IDs
// alongside the error.
func (s *Service) SubmitStoryboard(ctx context.Context, params StoryboardParams) ([]uuid.UUID, error) {
	if s.drafter == nil {
		return nil, ErrDrafterNotConfigured
	}
	if params.Secret == "" {
		return nil, ErrEmptySecret
	}
	if _, ok := s.generators[params.Provider]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, params.Provider)
	}

	scenes, err := s.drafter.DraftScenes(ctx, params.Brief, params.SceneCount)
	if err != nil {
		return nil, fmt.Errorf("failed to draft storyboard: %w", err)
	}

	if err := s.allow(ctx, params.UserKey, len(scenes)); err != nil {
		return nil, err
	}

	scenes, err = s.drafter.ExpandScenes(ctx, scenes)
	if err != nil {
		return nil, fmt.Errorf("failed to expand storyboard scenes: %w", err)
	}

	futures := make([]*async.Future[uuid.UUID], len(scenes))
	for i, scene := range scenes {
		futures[i] = async.Async(ctx, scene, func(fctx context.Context, sc storyboard.Scene) (uuid.UUID, error) {
			return s.submitScene(fctx, params, sc)
		})
	}

	jobIDs := make([]uuid.UUID, 0, len(futures))
	var errs []error
	for _, future := range futures {
		jobID, err := future.Await()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		jobIDs = append(jobIDs, jobID)
	}
	if len(errs) > 0 {
		return jobIDs, errors.Join(errs...)
	}

	s.logger.InfoContext(ctx, "storyboard submitted",
		logger.Provider(params.Provider),
		logger.Count("scenes", len(scenes)))

	return jobIDs, nil
}

// submitScene creates the scene's credential session and enqueues its job.
func (s *Service) submitScene(ctx context.Context, params StoryboardParams, scene storyboard.Scene) (uuid.UUID, error) {
	token, err := s.sessions.Create(ctx, params.Secret, keysession.Provider(params.Provider),
		keysession.WithProjectID(params.ProjectID))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create session for scene %d: %w", scene.Index, err)
	}

	jobID, err := s.enqueuer.Enqueue(ctx, renderqueue.EnqueueParams{
		Provider:     params.Provider,
		Prompt:       scene.VideoPrompt,
		Model:        params.Model,
		AspectRatio:  params.AspectRatio,
		DurationSec:  scene.DurationSec,
		SessionToken: token,
		ProjectID:    params.ProjectID,
		MaxAttempts:  params.MaxAttempts,
	})
	if err != nil {
		s.sessions.Delete(ctx, token)
		return uuid.Nil, fmt.Errorf("failed to enqueue scene %d: %w", scene.Index, err)
	}

	return jobID, nil
}

// allow charges n renders against the caller's budget. A nil limiter or an
// empty key means no limiting.
func (s *Service) allow(ctx context.Context, key string, n int) error {
	if s.limiter == nil || key == "" {
		return nil
	}
	result, err := s.limiter.AllowN(ctx, key, n)
	if err != nil {
		return fmt.Errorf("rate limit check failed: %w", err)
	}
	if !result.Allowed() {
		return fmt.Errorf("%w: retry in %s", ErrRateLimited, result.RetryAfter().Round(time.Second))
	}
	return nil
}

// processJob is the queue worker handler: it redeems the job's credential
// session, starts the provider render, waits for a terminal status through
// the poller, and uploads the finished video.
func (s *Service) processJob(ctx context.Context, job renderqueue.Job) (renderqueue.Result, error) {
	factory, ok := s.generators[job.Provider]
	if !ok {
		return renderqueue.Result{}, fmt.Errorf("%w: %q", ErrUnknownProvider, job.Provider)
	}

	session, err := s.sessions.Get(ctx, job.SessionToken)
	if err != nil {
		if errors.Is(err, keysession.ErrNotFound) {
			return renderqueue.Result{}, ErrSessionExpired
		}
		return renderqueue.Result{}, fmt.Errorf("failed to redeem credential session: %w", err)
	}

	gen, err := factory(ctx, session.Secret, session.ProjectID)
	if err != nil {
		return renderqueue.Result{}, fmt.Errorf("failed to build %s client: %w", job.Provider, err)
	}

	remote, err := gen.StartRender(ctx, videogen.Request{
		Prompt:      job.Prompt,
		Model:       job.Model,
		AspectRatio: job.AspectRatio,
		Duration:    time.Duration(job.DurationSec) * time.Second,
		ProjectID:   session.ProjectID,
	})
	if err != nil {
		return renderqueue.Result{}, fmt.Errorf("failed to start render: %w", err)
	}

	s.logger.InfoContext(ctx, "render started",
		logger.JobID(job.ID.String()),
		logger.Provider(job.Provider),
		slog.String("remote_id", remote.ID))

	status, err := s.awaitRender(ctx, job.ID.String(), gen, remote)
	if err != nil {
		return renderqueue.Result{}, fmt.Errorf("render did not finish: %w", err)
	}
	if status.State == videogen.StateFailed {
		return renderqueue.Result{}, fmt.Errorf("%w: %s", ErrRenderFailed, status.FailureReason)
	}

	video, err := gen.FetchVideo(ctx, status)
	if err != nil {
		return renderqueue.Result{}, fmt.Errorf("failed to fetch video: %w", err)
	}

	art, err := s.artifacts.Upload(ctx, s.artifactKey(job), bytes.NewReader(video), int64(len(video)), "video/mp4")
	if err != nil {
		return renderqueue.Result{}, fmt.Errorf("failed to upload artifact: %w", err)
	}

	// The credential is spent. Failed attempts keep their session so a
	// retry can redeem it again; expiry handles abandoned ones.
	s.sessions.Delete(ctx, job.SessionToken)

	s.logger.InfoContext(ctx, "render completed",
		logger.JobID(job.ID.String()),
		logger.Provider(job.Provider),
		slog.String("artifact_key", art.Key),
		slog.Int64("size_bytes", art.Size))

	return renderqueue.Result{OutputKey: art.Key, OutputURL: art.URL}, nil
}

// awaitRender bridges the poller's callback interface to the blocking job
// handler. The job context owns the wait: when it expires, the poll
// operation is stopped and the context error is returned.
func (s *Service) awaitRender(ctx context.Context, pollID string, gen videogen.Generator, remote videogen.RemoteJob) (videogen.RenderStatus, error) {
	type outcome struct {
		status videogen.RenderStatus
		err    error
	}
	// Buffered so a late callback never blocks after the context wins.
	done := make(chan outcome, 1)

	probe := func(pctx context.Context) (poller.ProbeResult[videogen.RenderStatus], error) {
		status, err := gen.CheckRender(pctx, remote)
		if err != nil {
			return poller.ProbeResult[videogen.RenderStatus]{}, err
		}
		return poller.ProbeResult[videogen.RenderStatus]{Done: status.Done(), Value: status}, nil
	}

	s.poller.Start(pollID, probe,
		poller.WithOnComplete[videogen.RenderStatus](func(status videogen.RenderStatus) {
			done <- outcome{status: status}
		}),
		poller.WithOnError[videogen.RenderStatus](func(err error) {
			done <- outcome{err: err}
		}),
	)

	select {
	case out := <-done:
		return out.status, out.err
	case <-ctx.Done():
		s.poller.Stop(pollID)
		return videogen.RenderStatus{}, ctx.Err()
	}
}

// artifactKey derives the storage key for a finished render from its
// prompt, disambiguated by the job ID so repeated prompts never collide.
func (s *Service) artifactKey(job renderqueue.Job) string {
	name := slug.Make(job.Prompt, slug.MaxLength(48))
	if name == "" {
		name = "render"
	}
	short := job.ID.String()
	if len(short) > 8 {
		short = short[:8]
	}
	return path.Join(s.artifactPrefix, fmt.Sprintf("%s-%s.mp4", name, short))
}

// Job returns the current state of a render job.
func (s *Service) Job(ctx context.Context, jobID uuid.UUID) (*renderqueue.Job, error) {
	return s.queue.GetJob(ctx, jobID)
}

// Run starts the service components in an error group: the session store
// sweeper, the queue storage lock sweeper (when the storage has one), and
// the job worker. It blocks until the context is cancelled or a component
// fails, and stops all in-flight poll operations on the way out.
func (s *Service) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "render service starting",
		logger.Count("providers", len(s.generators)))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(s.sessions.Run(gctx))
	if runner, ok := s.queue.(queueRunner); ok {
		g.Go(runner.Run(gctx))
	}
	g.Go(s.worker.Run(gctx))

	err := g.Wait()
	s.poller.StopAll()

	s.logger.InfoContext(context.Background(), "render service stopped")
	return err
}

// Close stops the poll operations, the worker, and the session store. It
// is safe to call after Run has returned; components that already stopped
// are skipped. Injected queue and artifact storages stay open: the caller
// owns their lifecycle.
func (s *Service) Close() error {
	s.poller.StopAll()

	var errs []error
	if s.worker.Stats().IsRunning {
		if err := s.worker.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop worker: %w", err))
		}
	}
	if s.sessions.Stats().IsRunning {
		if err := s.sessions.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop session store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Healthcheck aggregates component health: the session store sweeper, the
// worker, and the queue storage when it can report on itself.
func (s *Service) Healthcheck(ctx context.Context) error {
	errs := []error{
		s.sessions.Healthcheck(ctx),
		s.worker.Healthcheck(ctx),
	}
	if checker, ok := s.queue.(queueHealthchecker); ok {
		errs = append(errs, checker.Healthcheck(ctx))
	}
	return errors.Join(errs...)
}

// Worker returns the queue worker, e.g. for stats inspection.
func (s *Service) Worker() *renderqueue.Worker {
	return s.worker
}

// Enqueuer returns the job enqueuer for callers that need lower-level
// control such as delayed scheduling.
func (s *Service) Enqueuer() *renderqueue.Enqueuer {
	return s.enqueuer
}

// ActivePolls reports how many renders are currently being watched.
func (s *Service) ActivePolls() int {
	return s.poller.ActiveCount()
}
