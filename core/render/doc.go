// Package render orchestrates the full text-to-video pipeline: credential
// handoff, job queuing, provider polling, and artifact storage behind a
// single service facade.
//
// A submission stores the caller's provider credential in an ephemeral
// session store and enqueues a job that carries only the session token.
// The queue worker later redeems the token, starts the render with the
// caller's own credential, watches provider status through a backoff
// poller, and uploads the finished video to artifact storage. Secrets
// never touch the job queue, logs, or any persistent store.
//
// # Features
//
//   - Single Submit call from prompt to tracked render job
//   - Storyboard submissions: brief to scenes to one render job per scene
//   - Per-caller render budgets via a pluggable rate limiter
//   - Provider registry with per-render credential binding
//   - Crash-safe job processing on memory or PostgreSQL queue storage
//   - Aggregated lifecycle (Run) and health reporting (Healthcheck)
//
// # Basic Usage
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
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	go func() {
//	    if err := svc.Run(ctx); err != nil {
//	        log.Printf("render service: %v", err)
//	    }
//	}()
//
//	jobID, err := svc.Submit(ctx, render.SubmitParams{
//	    UserKey:  "user-42",
//	    Provider: "veo",
//	    Secret:   userAPIKey,
//	    Prompt:   "a lighthouse at dawn, slow drone shot",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	job, err := svc.Job(ctx, jobID)
//
// # Credential Flow
//
// Submit exchanges the secret for an opaque token before anything is
// persisted. The token travels on the job record; the worker redeems it
// with the session store when the job is claimed. A missing session fails
// the job with ErrSessionExpired since the render cannot proceed without
// re-authentication. Sessions are deleted as soon as their render
// completes and expire on their own if the job never finishes.
//
// # Storyboards
//
// SubmitStoryboard turns a short brief into a multi-scene storyboard using
// the configured drafter, then submits every scene as an independent
// render job:
//
//	svc, err := render.New(store, queue, artifacts,
//	    render.WithGenerator("veo", veoFactory),
//	    render.WithDrafter(drafter),
//	    render.WithRateLimiter(limiter),
//	)
//
//	jobIDs, err := svc.SubmitStoryboard(ctx, render.StoryboardParams{
//	    UserKey:    "user-42",
//	    Provider:   "veo",
//	    Secret:     userAPIKey,
//	    Brief:      "a product teaser for a mechanical watch",
//	    SceneCount: 4,
//	})
//
// Scenes are billed against the rate budget individually: a four-scene
// storyboard charges four renders.
//
// # Rate Limiting
//
// With a limiter configured, Submit charges one render and
// SubmitStoryboard charges one per drafted scene, keyed by UserKey.
// Rejected submissions return ErrRateLimited before any session or job
// exists. Submissions with an empty UserKey bypass the limiter.
//
// # Lifecycle
//
// Run supervises the session store sweeper, the queue storage lock
// sweeper, and the job worker in one error group; cancelling the context
// shuts all of them down gracefully and stops in-flight status polls.
// Close covers the non-Run usage and stops whatever is still running.
// Injected storages (queue, artifacts) are owned by the caller and stay
// open.
//
// Healthcheck aggregates component health and reports every failing
// component, making it suitable for readiness probes.
package render
