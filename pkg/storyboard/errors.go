package storyboard

import "errors"

var (
	// ErrInvalidAPIKey indicates an invalid or missing API key.
	ErrInvalidAPIKey = errors.New("invalid or missing API key")

	// ErrEmptyBrief indicates there was no text to draft scenes from.
	ErrEmptyBrief = errors.New("empty brief")

	// ErrDraftFailed indicates the completion request failed or returned
	// nothing usable.
	ErrDraftFailed = errors.New("scene draft failed")

	// ErrMalformedDraft indicates the model's response could not be parsed
	// into scenes.
	ErrMalformedDraft = errors.New("malformed scene draft")
)
