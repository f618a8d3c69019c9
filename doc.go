// Package renderkit provides a toolkit for building text-to-video render
// pipelines on top of third-party generation providers. It covers the
// unglamorous middle of the problem: holding caller credentials safely
// for the lifetime of a render, queuing and retrying long-running jobs,
// polling provider status with backoff, and storing finished videos as
// addressable artifacts.
//
// # Package Organization
//
// The library is organized into three main categories:
//
//   - Core: the render pipeline and the facilities it is built from
//   - Utilities: standalone packages with no dependencies on core
//   - Integrations: PostgreSQL, Redis, and S3-compatible backends
//
// # Getting Documentation
//
// For detailed documentation on any package, use the go doc command:
//
//	go doc github.com/dmitrymomot/renderkit/core/render
//	go doc -all github.com/dmitrymomot/renderkit/core/keysession
//
// # Core Packages
//
// These packages form the render pipeline:
//
//	github.com/dmitrymomot/renderkit/core/render      - Orchestrating service: submissions, storyboards, job processing
//	github.com/dmitrymomot/renderkit/core/keysession  - Ephemeral credential sessions keyed by opaque tokens
//	github.com/dmitrymomot/renderkit/core/renderqueue - Persistent render job queue with locks, retries, and dead-lettering
//	github.com/dmitrymomot/renderkit/core/poller      - Backoff poller driving provider status probes
//	github.com/dmitrymomot/renderkit/core/artifact    - Artifact storage interface for finished videos
//	github.com/dmitrymomot/renderkit/core/logger      - Structured logging built on slog with optional Sentry forwarding
//	github.com/dmitrymomot/renderkit/core/config      - Type-safe environment variable loading
//
// # Utility Packages
//
// Standalone packages for common functionality:
//
//	github.com/dmitrymomot/renderkit/pkg/videogen    - Video generation provider clients (Veo)
//	github.com/dmitrymomot/renderkit/pkg/storyboard  - Brief-to-scenes storyboard drafting on OpenAI
//	github.com/dmitrymomot/renderkit/pkg/ratelimiter - Token bucket rate limiting with pluggable stores
//	github.com/dmitrymomot/renderkit/pkg/secrets     - Authenticated encryption for secrets at rest
//	github.com/dmitrymomot/renderkit/pkg/slug        - URL- and key-safe slugs from arbitrary text
//	github.com/dmitrymomot/renderkit/pkg/async       - Typed futures for concurrent fan-out
//
// # Integration Packages
//
// Backends for the interfaces the core packages define:
//
//	github.com/dmitrymomot/renderkit/integration/database/pg    - PostgreSQL connection pooling, transactions, migrations
//	github.com/dmitrymomot/renderkit/integration/database/redis - Redis client initialization and health checks
//	github.com/dmitrymomot/renderkit/integration/storage/s3     - S3-compatible artifact storage
//
// # Quick Start
//
// The core/render package is the usual entry point; it wires the rest
// together:
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
//	    Prompt:   "a lighthouse at dawn, slow drone shot",
//	})
//
// Every package follows the same conventions: functional options for
// configuration, Config structs loadable from the environment via
// core/config, explicit error returns with package-level sentinel
// errors, and context.Context on every blocking operation.
package renderkit
