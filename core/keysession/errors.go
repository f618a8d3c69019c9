package keysession

import "errors"

var (
	// ErrNotFound is returned when a session is absent or already expired.
	// Absence is an expected outcome, not a failure: callers should treat it
	// as "re-authenticate", never retry with the same token.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidProvider is returned when creating a session for an unknown provider.
	ErrInvalidProvider = errors.New("invalid provider")
	// ErrTokenGeneration is returned when the entropy source fails.
	ErrTokenGeneration = errors.New("failed to generate token")
	// ErrEncryptionKeyInvalid is returned when the store is constructed without
	// a valid 32-byte encryption key.
	ErrEncryptionKeyInvalid = errors.New("encryption key must be 32 bytes")
	// ErrSecretEncryption is returned when encrypting a secret at rest fails.
	ErrSecretEncryption = errors.New("failed to encrypt secret")
	// ErrSecretDecryption is returned when a stored secret cannot be decrypted.
	ErrSecretDecryption = errors.New("failed to decrypt secret")
	// ErrStoreAlreadyStarted is returned when Start is called on a running store.
	ErrStoreAlreadyStarted = errors.New("session store already started")
	// ErrStoreNotStarted is returned by Stop and Healthcheck when the sweeper
	// is not running.
	ErrStoreNotStarted = errors.New("session store not started")
	// ErrShutdownTimeout is returned when a sweep does not finish within the
	// shutdown timeout.
	ErrShutdownTimeout = errors.New("shutdown timeout exceeded")
)
