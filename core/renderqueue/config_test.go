package renderqueue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renderkit/core/renderqueue"
)

func TestNewFromConfig_WithEmptyConfig(t *testing.T) {
	t.Parallel()

	// Zero values fall through to hardcoded defaults via option guards
	emptyConfig := renderqueue.Config{}
	storage := renderqueue.NewMemoryStorage()

	t.Run("worker", func(t *testing.T) {
		worker, err := renderqueue.NewWorkerFromConfig(emptyConfig, storage, noopHandler)
		require.NoError(t, err)
		assert.NotNil(t, worker)
	})

	t.Run("enqueuer", func(t *testing.T) {
		enqueuer, err := renderqueue.NewEnqueuerFromConfig(emptyConfig, storage)
		require.NoError(t, err)
		assert.NotNil(t, enqueuer)
	})
}

func TestNewFromConfig_OptionsOverrideConfig(t *testing.T) {
	t.Parallel()

	config := renderqueue.Config{
		PollInterval:      time.Minute,
		MaxConcurrentJobs: 10,
	}
	storage := renderqueue.NewMemoryStorage()

	worker, err := renderqueue.NewWorkerFromConfig(config, storage, noopHandler,
		renderqueue.WithPollInterval(time.Second),
		renderqueue.WithMaxConcurrentJobs(2),
	)
	require.NoError(t, err)
	assert.NotNil(t, worker)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := renderqueue.DefaultConfig()
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 2*time.Minute, cfg.LockTimeout)
	assert.Equal(t, 30*time.Minute, cfg.JobTimeout)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 4, cfg.MaxConcurrentJobs)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 15*time.Second, cfg.LockCheckInterval)
}
