package videogen

import (
	"context"
	"time"
)

// State describes where a remote render is in its lifecycle.
type State string

const (
	StatePending   State = "pending"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Request describes a single video render.
type Request struct {
	// Prompt is the full text-to-video prompt.
	Prompt string

	// Model overrides the generator's default model when non-empty.
	Model string

	// AspectRatio such as "16:9" or "9:16". Provider default when empty.
	AspectRatio string

	// Duration of the requested clip. Provider default when zero.
	Duration time.Duration

	// ProjectID scopes the render on providers that bill per project.
	// Veo binds the project at client construction, so it ignores this.
	ProjectID string
}

// RemoteJob identifies a render running on a provider.
type RemoteJob struct {
	// ID is the provider-side operation identifier.
	ID string

	// Provider that owns the job, e.g. "veo".
	Provider string
}

// RenderStatus is a point-in-time snapshot of a remote render.
type RenderStatus struct {
	State State

	// VideoURI points at the finished video when the provider serves it
	// from a file store. Empty when the bytes came back inline.
	VideoURI string

	// VideoBytes holds the finished video when the provider returns it
	// inline with the terminal status. Empty when the video must be
	// fetched from VideoURI.
	VideoBytes []byte

	// FailureReason carries the provider's explanation for StateFailed.
	FailureReason string
}

// Done reports whether the render reached a terminal state.
func (s RenderStatus) Done() bool {
	return s.State == StateSucceeded || s.State == StateFailed
}

// Generator starts renders on a video-generation provider and reports on
// their progress. Implementations must be safe for concurrent use.
type Generator interface {
	// StartRender submits a render and returns the provider job handle.
	StartRender(ctx context.Context, req Request) (RemoteJob, error)

	// CheckRender reports the current status of a previously started job.
	// A provider-reported failure is a StateFailed status, not an error;
	// errors mean the status could not be determined.
	CheckRender(ctx context.Context, job RemoteJob) (RenderStatus, error)

	// FetchVideo returns the finished video for a succeeded status.
	FetchVideo(ctx context.Context, status RenderStatus) ([]byte, error)

	// Provider returns the stable provider name, e.g. "veo".
	Provider() string
}
