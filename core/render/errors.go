package render

import "errors"

var (
	// ErrSessionStoreNil is returned when the service is constructed
	// without a credential session store.
	ErrSessionStoreNil = errors.New("session store is nil")
	// ErrQueueStorageNil is returned when the service is constructed
	// without queue storage.
	ErrQueueStorageNil = errors.New("queue storage is nil")
	// ErrArtifactStorageNil is returned when the service is constructed
	// without artifact storage.
	ErrArtifactStorageNil = errors.New("artifact storage is nil")
	// ErrNoGenerators is returned when the service is constructed without
	// a single generator factory.
	ErrNoGenerators = errors.New("no generator factories registered")

	// ErrUnknownProvider is returned when a submission or a claimed job
	// names a provider with no registered generator factory.
	ErrUnknownProvider = errors.New("unknown render provider")
	// ErrEmptySecret is returned when a submission carries no provider
	// credential.
	ErrEmptySecret = errors.New("provider secret is required")
	// ErrRateLimited is returned when a submission exceeds the caller's
	// render budget.
	ErrRateLimited = errors.New("render rate limit exceeded")
	// ErrSessionExpired is returned by the job handler when the credential
	// session behind a job is gone. The job cannot make progress without
	// re-authentication, so the failure is permanent, not transient.
	ErrSessionExpired = errors.New("credential session expired")
	// ErrRenderFailed is returned when the provider reports a terminal
	// render failure.
	ErrRenderFailed = errors.New("render failed")
	// ErrDrafterNotConfigured is returned by SubmitStoryboard when the
	// service was built without a storyboard drafter.
	ErrDrafterNotConfigured = errors.New("storyboard drafter not configured")
)
