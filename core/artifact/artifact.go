package artifact

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Artifact describes a stored render output.
type Artifact struct {
	Key         string    // object key within the backing store
	URL         string    // public URL the artifact is served from
	Size        int64     // size in bytes
	ContentType string    // MIME type the artifact was stored with
	CreatedAt   time.Time // when the artifact was persisted
}

// Storage persists finished render outputs. Implementations must be safe
// for concurrent use and must run every key through CleanKey before
// touching the backend.
type Storage interface {
	// Upload stores the contents of r under key and returns the resulting
	// artifact. Size is the number of bytes r will yield, or negative when
	// unknown; contentType falls back to application/octet-stream when empty.
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Artifact, error)

	// Get returns a reader over the stored artifact. The caller owns the
	// reader and must close it. Missing artifacts return ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the artifact under key. Deleting a missing artifact
	// returns ErrNotFound.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an artifact is stored under key. A missing
	// artifact is (false, nil), not an error.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns the public URL for key without touching the backend.
	URL(key string) string
}

// CleanKey normalizes an object key and rejects unusable ones. Leading
// slashes are trimmed; empty keys and path traversal are refused so keys
// from user-influenced input cannot escape the configured prefix.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return key, nil
}
