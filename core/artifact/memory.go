package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Compile-time check that MemoryStorage implements the Storage interface.
var _ Storage = (*MemoryStorage)(nil)

const defaultMemoryBaseURL = "memory://artifacts"

// MemoryStorage keeps artifacts in process memory. It backs local
// development and tests; production deployments use the S3 implementation
// in integration/storage/s3. Contents are lost on process exit.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
}

type memoryObject struct {
	data        []byte
	contentType string
	createdAt   time.Time
}

// MemoryOption configures MemoryStorage.
type MemoryOption func(*MemoryStorage)

// WithMemoryBaseURL overrides the prefix URL returns for stored keys.
// Empty values are ignored.
func WithMemoryBaseURL(baseURL string) MemoryOption {
	return func(ms *MemoryStorage) {
		if baseURL != "" {
			ms.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// NewMemoryStorage creates an empty in-memory artifact store.
func NewMemoryStorage(opts ...MemoryOption) *MemoryStorage {
	ms := &MemoryStorage{
		objects: make(map[string]memoryObject),
		baseURL: defaultMemoryBaseURL,
	}
	for _, opt := range opts {
		opt(ms)
	}
	return ms
}

// Upload stores the contents of r under key.
func (ms *MemoryStorage) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Artifact, error) {
	key, err := CleanKey(key)
	if err != nil {
		return Artifact{}, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Artifact{}, errors.Join(ErrUploadFailed, err)
	}
	if size >= 0 && size != int64(len(data)) {
		return Artifact{}, fmt.Errorf("%w: expected %d bytes, read %d", ErrUploadFailed, size, len(data))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	obj := memoryObject{
		data:        data,
		contentType: contentType,
		createdAt:   time.Now(),
	}

	ms.mu.Lock()
	ms.objects[key] = obj
	ms.mu.Unlock()

	return Artifact{
		Key:         key,
		URL:         ms.URL(key),
		Size:        int64(len(data)),
		ContentType: contentType,
		CreatedAt:   obj.createdAt,
	}, nil
}

// Get returns a reader over the stored artifact.
func (ms *MemoryStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}

	ms.mu.RLock()
	obj, ok := ms.objects[key]
	ms.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Delete removes the artifact under key.
func (ms *MemoryStorage) Delete(ctx context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.objects[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	delete(ms.objects, key)
	return nil
}

// Exists reports whether an artifact is stored under key.
func (ms *MemoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	key, err := CleanKey(key)
	if err != nil {
		return false, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()
	_, ok := ms.objects[key]
	return ok, nil
}

// URL returns the public URL for key.
func (ms *MemoryStorage) URL(key string) string {
	return ms.baseURL + "/" + strings.TrimPrefix(key, "/")
}
