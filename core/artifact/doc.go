// Package artifact defines the storage contract for finished render outputs.
//
// A completed render produces a video that must outlive the ephemeral
// session it was generated under. This package declares the Storage
// interface those videos are persisted through, the Artifact value
// describing a stored object, and key hygiene shared by every backend.
//
// # Usage
//
//	store := artifact.NewMemoryStorage()
//
//	art, err := store.Upload(ctx, "renders/sunset-over-kyiv.mp4",
//		bytes.NewReader(video), int64(len(video)), "video/mp4")
//	if err != nil {
//		return err
//	}
//	log.Printf("stored %s at %s", art.Key, art.URL)
//
//	rc, err := store.Get(ctx, art.Key)
//	if err != nil {
//		return err
//	}
//	defer rc.Close()
//
// # Backends
//
// MemoryStorage holds objects in process memory for development and tests.
// Production deployments use the S3-compatible implementation in
// integration/storage/s3, which satisfies the same interface.
//
// # Keys
//
// Object keys are cleaned with CleanKey before use: leading slashes are
// trimmed, empty keys and ".." segments are rejected with ErrInvalidKey.
// Keys derived from user input should additionally be slugified, see
// pkg/slug.
//
// # Error Handling
//
// Backends translate provider-specific failures into the package sentinel
// errors so callers can branch with errors.Is:
//
//	_, err := store.Get(ctx, key)
//	switch {
//	case errors.Is(err, artifact.ErrNotFound):
//		// render was never stored or already removed
//	case errors.Is(err, artifact.ErrServiceUnavailable):
//		// transient, retry later
//	}
package artifact
