package videogen

import "errors"

var (
	// ErrInvalidAPIKey indicates an invalid or missing API key.
	ErrInvalidAPIKey = errors.New("invalid or missing API key")

	// ErrClientCreationFailed indicates a failure creating the provider client.
	ErrClientCreationFailed = errors.New("failed to create provider client")

	// ErrModelNotSupported indicates the requested model is not supported.
	ErrModelNotSupported = errors.New("model not supported")

	// ErrGenerationFailed indicates the provider rejected or failed the render.
	ErrGenerationFailed = errors.New("video generation failed")

	// ErrVideoNotReady indicates a fetch was attempted before the render
	// reached the succeeded state.
	ErrVideoNotReady = errors.New("video not ready")

	// ErrNoVideoReturned indicates the provider reported success but
	// returned no video.
	ErrNoVideoReturned = errors.New("no video returned")
)
