package artifact

import "errors"

// Package-level error definitions for artifact storage operations.
var (
	// ErrInvalidConfig indicates a storage backend was constructed with
	// missing or contradictory configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidKey indicates an empty or path-traversing object key.
	ErrInvalidKey = errors.New("invalid artifact key")

	// ErrNotFound indicates no artifact is stored under the requested key.
	ErrNotFound = errors.New("artifact not found")

	// ErrBucketNotFound indicates the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrUploadFailed indicates the artifact could not be persisted.
	ErrUploadFailed = errors.New("artifact upload failed")

	// ErrAccessDenied indicates the backend rejected the credentials.
	ErrAccessDenied = errors.New("storage access denied")

	// ErrOperationTimeout indicates a storage call exceeded its deadline.
	ErrOperationTimeout = errors.New("storage operation timed out")

	// ErrOperationCanceled indicates a storage call was canceled.
	ErrOperationCanceled = errors.New("storage operation canceled")

	// ErrServiceUnavailable indicates a transient backend failure.
	// Operations failing with this error are safe to retry.
	ErrServiceUnavailable = errors.New("storage service unavailable")
)
