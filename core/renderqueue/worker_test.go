package renderqueue_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renderkit/core/renderqueue"
)

// MockWorkerRepository is a mock implementation of WorkerRepository
type MockWorkerRepository struct {
	mock.Mock
}

func (m *MockWorkerRepository) ClaimJob(ctx context.Context, workerID uuid.UUID, lockDuration time.Duration) (*renderqueue.Job, error) {
	args := m.Called(ctx, workerID, lockDuration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*renderqueue.Job), args.Error(1)
}

func (m *MockWorkerRepository) ExtendLock(ctx context.Context, jobID uuid.UUID, duration time.Duration) error {
	args := m.Called(ctx, jobID, duration)
	return args.Error(0)
}

func (m *MockWorkerRepository) CompleteJob(ctx context.Context, jobID uuid.UUID, result renderqueue.Result) error {
	args := m.Called(ctx, jobID, result)
	return args.Error(0)
}

func (m *MockWorkerRepository) FailJob(ctx context.Context, jobID uuid.UUID, errorMsg string) error {
	args := m.Called(ctx, jobID, errorMsg)
	return args.Error(0)
}

func (m *MockWorkerRepository) MoveToDeadLetter(ctx context.Context, jobID uuid.UUID) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockWorkerRepository) ReleaseExpiredLocks(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// pendingRenderJob builds a claimed-job fixture due for processing.
func pendingRenderJob(attempts, maxAttempts int) *renderqueue.Job {
	return &renderqueue.Job{
		ID:           uuid.New(),
		Provider:     "veo",
		Prompt:       "a lighthouse at dawn, slow aerial pull-back",
		Model:        "veo-3.0-generate-001",
		AspectRatio:  "16:9",
		DurationSec:  8,
		SessionToken: "tok_test_session",
		Status:       renderqueue.StatusPending,
		Attempts:     attempts,
		MaxAttempts:  maxAttempts,
		ScheduledAt:  time.Now().Add(-time.Minute),
		CreatedAt:    time.Now(),
	}
}

func noopHandler(ctx context.Context, job renderqueue.Job) (renderqueue.Result, error) {
	return renderqueue.Result{}, nil
}

func TestWorker_NewWorker(t *testing.T) {
	t.Parallel()

	t.Run("creates with defaults", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockWorkerRepository)
		defer mockRepo.AssertExpectations(t)

		worker, err := renderqueue.NewWorker(mockRepo, noopHandler)
		require.NoError(t, err)
		require.NotNil(t, worker)
	})

	t.Run("nil storage error", func(t *testing.T) {
		t.Parallel()

		worker, err := renderqueue.NewWorker(nil, noopHandler)
		assert.ErrorIs(t, err, renderqueue.ErrStorageNil)
		assert.Nil(t, worker)
	})

	t.Run("nil handler error", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockWorkerRepository)
		defer mockRepo.AssertExpectations(t)

		worker, err := renderqueue.NewWorker(mockRepo, nil)
		assert.ErrorIs(t, err, renderqueue.ErrHandlerNil)
		assert.Nil(t, worker)
	})

	t.Run("with tuning options", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockWorkerRepository)
		defer mockRepo.AssertExpectations(t)

		worker, err := renderqueue.NewWorker(mockRepo, noopHandler,
			renderqueue.WithPollInterval(1*time.Second),
			renderqueue.WithLockTimeout(10*time.Minute),
			renderqueue.WithJobTimeout(time.Hour),
			renderqueue.WithMaxConcurrentJobs(5),
		)
		require.NoError(t, err)
		require.NotNil(t, worker)
	})

	t.Run("from config", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockWorkerRepository)
		defer mockRepo.AssertExpectations(t)

		worker, err := renderqueue.NewWorkerFromConfig(renderqueue.DefaultConfig(), mockRepo, noopHandler)
		require.NoError(t, err)
		require.NotNil(t, worker)
	})
}

func TestWorker_StartStop(t *testing.T) {
	t.Parallel()

	t.Run("clean start and stop", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockWorkerRepository)
		defer mockRepo.AssertExpectations(t)

		// Maybe(): the worker can be stopped before its first poll fires
		mockRepo.On("ClaimJob", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, renderqueue.ErrNoJobToClaim).Maybe()

		worker, err := renderqueue.NewWorker(mockRepo, noopHandler,
			renderqueue.WithPollInterval(50*time.Millisecond))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("worker start error: %v", err)
			}
		}()
		time.Sleep(10 * time.Millisecond) // Give worker time to start

		time.Sleep(20 * time.Millisecond)

		err = worker.Stop()
		assert.NoError(t, err)
	})

	t.Run("second start is rejected", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockWorkerRepository)
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("ClaimJob", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, renderqueue.ErrNoJobToClaim).Maybe()

		worker, err := renderqueue.NewWorker(mockRepo, noopHandler)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("worker start error: %v", err)
			}
		}()
		time.Sleep(10 * time.Millisecond) // Give worker time to start

		err = worker.Start(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already started")

		_ = worker.Stop()
	})

	t.Run("stop before start fails", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockWorkerRepository)
		defer mockRepo.AssertExpectations(t)

		worker, err := renderqueue.NewWorker(mockRepo, noopHandler)
		require.NoError(t, err)

		err = worker.Stop()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not started")
	})
}

func TestWorker_ProcessJob(t *testing.T) {
	t.Parallel()

	t.Run("successful render records output", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockWorkerRepository)
		defer mockRepo.AssertExpectations(t)

		job := pendingRenderJob(0, 3)
		result := renderqueue.Result{
			OutputKey: "renders/lighthouse-at-dawn.mp4",
			OutputURL: "https://cdn.example.com/renders/lighthouse-at-dawn.mp4",
		}

		mockRepo.On("ClaimJob", mock.Anything, mock.Anything, mock.Anything).
			Return(job, nil).Once()
		mockRepo.On("ClaimJob", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, renderqueue.ErrNoJobToClaim)
		mockRepo.On("CompleteJob", mock.Anything, job.ID, result).Return(nil).Once()

		processed := make(chan renderqueue.Job, 1)
		worker, err := renderqueue.NewWorker(mockRepo, func(ctx context.Context, j renderqueue.Job) (renderqueue.Result, error) {
			processed <- j
			return result, nil
		}, renderqueue.WithPollInterval(5*time.Millisecond))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("worker start error: %v", err)
			}
		}()

		// Wait for the handler to receive the job (no sleep polling)
		select {
		case j := <-processed:
			assert.Equal(t, job.ID, j.ID)
			assert.Equal(t, job.Prompt, j.Prompt)
			assert.Equal(t, job.SessionToken, j.SessionToken)
		case <-time.After(2 * time.Second):
			t.Fatalf("job not processed in time. Stats: %+v", worker.Stats())
		}

		// The counter is bumped after CompleteJob lands, so poll for it
		deadline := time.Now().Add(time.Second)
		for worker.Stats().JobsProcessed == 0 && time.Now().Before(deadline) {
			time.Sleep(1 * time.Millisecond)
		}

		stats := worker.Stats()
		assert.Equal(t, int64(1), stats.JobsProcessed, "should have processed 1 job")
		assert.Equal(t, int64(0), stats.JobsFailed, "should have 0 failed jobs")

		_ = worker.Stop()
	})

	t.Run("failure with attempts remaining retries only", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockWorkerRepository)
		defer mockRepo.AssertExpectations(t)

		job := pendingRenderJob(0, 3)

		mockRepo.On("ClaimJob", mock.Anything, mock.Anything, mock.Anything).
			Return(job, nil).Once()
		mockRepo.On("ClaimJob", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, renderqueue.ErrNoJobToClaim)
		// No MoveToDeadLetter expectation: attempt 1 of 3 must only retry
		mockRepo.On("FailJob", mock.Anything, job.ID, "provider rejected prompt").Return(nil).Once()

		done := make(chan struct{})
		worker, err := renderqueue.NewWorker(mockRepo, func(ctx context.Context, j renderqueue.Job) (renderqueue.Result, error) {
			defer close(done)
			return renderqueue.Result{}, errors.New("provider rejected prompt")
		}, renderqueue.WithPollInterval(5*time.Millisecond))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("worker start error: %v", err)
			}
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("job not processed in time. Stats: %+v", worker.Stats())
		}

		deadline := time.Now().Add(time.Second)
		for worker.Stats().JobsFailed == 0 && time.Now().Before(deadline) {
			time.Sleep(1 * time.Millisecond)
		}

		stats := worker.Stats()
		assert.Equal(t, int64(0), stats.JobsProcessed)
		assert.Equal(t, int64(1), stats.JobsFailed)

		_ = worker.Stop()
	})

	t.Run("final attempt moves job to dead letter", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockWorkerRepository)
		defer mockRepo.AssertExpectations(t)

		// Attempts 2 of 3: this claim is the final attempt
		job := pendingRenderJob(2, 3)

		mockRepo.On("ClaimJob", mock.Anything, mock.Anything, mock.Anything).
			Return(job, nil).Once()
		mockRepo.On("ClaimJob", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, renderqueue.ErrNoJobToClaim)
		mockRepo.On("FailJob", mock.Anything, job.ID, "permanent failure").Return(nil).Once()

		deadLettered := make(chan struct{})
		mockRepo.On("MoveToDeadLetter", mock.Anything, job.ID).
			Run(func(args mock.Arguments) { close(deadLettered) }).
			Return(nil).Once()

		worker, err := renderqueue.NewWorker(mockRepo, func(ctx context.Context, j renderqueue.Job) (renderqueue.Result, error) {
			return renderqueue.Result{}, errors.New("permanent failure")
		}, renderqueue.WithPollInterval(5*time.Millisecond))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("worker start error: %v", err)
			}
		}()

		select {
		case <-deadLettered:
		case <-time.After(2 * time.Second):
			t.Fatalf("job not dead-lettered in time. Stats: %+v", worker.Stats())
		}

		_ = worker.Stop()
	})

	t.Run("panic in handler fails the job", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockWorkerRepository)
		defer mockRepo.AssertExpectations(t)

		job := pendingRenderJob(0, 3)

		mockRepo.On("ClaimJob", mock.Anything, mock.Anything, mock.Anything).
			Return(job, nil).Once()
		mockRepo.On("ClaimJob", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, renderqueue.ErrNoJobToClaim)

		failed := make(chan struct{})
		mockRepo.On("FailJob", mock.Anything, job.ID, mock.MatchedBy(func(msg string) bool {
			return strings.Contains(msg, "panic")
		})).Run(func(args mock.Arguments) { close(failed) }).Return(nil).Once()

		worker, err := renderqueue.NewWorker(mockRepo, func(ctx context.Context, j renderqueue.Job) (renderqueue.Result, error) {
			panic("render handler panic!")
		}, renderqueue.WithPollInterval(5*time.Millisecond))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("worker start error: %v", err)
			}
		}()

		select {
		case <-failed:
		case <-time.After(2 * time.Second):
			t.Fatal("panic was not recorded as a job failure")
		}

		// Worker should still be running after the panic
		err = worker.Healthcheck(context.Background())
		assert.NoError(t, err)

		_ = worker.Stop()
	})
}

func TestWorker_LockHeartbeat(t *testing.T) {
	t.Parallel()

	t.Run("extends lock while handler runs", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockWorkerRepository)
		defer mockRepo.AssertExpectations(t)

		job := pendingRenderJob(0, 3)
		lockTimeout := 30 * time.Millisecond

		mockRepo.On("ClaimJob", mock.Anything, mock.Anything, lockTimeout).
			Return(job, nil).Once()
		mockRepo.On("ClaimJob", mock.Anything, mock.Anything, lockTimeout).
			Return(nil, renderqueue.ErrNoJobToClaim)

		// Heartbeat ticks at lockTimeout/2 while the handler blocks
		extended := make(chan struct{}, 1)
		mockRepo.On("ExtendLock", mock.Anything, job.ID, lockTimeout).
			Run(func(args mock.Arguments) {
				select {
				case extended <- struct{}{}:
				default:
				}
			}).Return(nil)
		mockRepo.On("CompleteJob", mock.Anything, job.ID, renderqueue.Result{}).Return(nil).Once()

		worker, err := renderqueue.NewWorker(mockRepo, func(ctx context.Context, j renderqueue.Job) (renderqueue.Result, error) {
			// Block until the heartbeat has fired at least once
			select {
			case <-extended:
			case <-time.After(2 * time.Second):
			}
			return renderqueue.Result{}, nil
		},
			renderqueue.WithPollInterval(5*time.Millisecond),
			renderqueue.WithLockTimeout(lockTimeout),
		)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("worker start error: %v", err)
			}
		}()

		deadline := time.Now().Add(2 * time.Second)
		for worker.Stats().JobsProcessed == 0 && time.Now().Before(deadline) {
			time.Sleep(1 * time.Millisecond)
		}
		assert.Equal(t, int64(1), worker.Stats().JobsProcessed)

		_ = worker.Stop()
		mockRepo.AssertCalled(t, "ExtendLock", mock.Anything, job.ID, lockTimeout)
	})
}

func TestWorker_ConcurrencyLimit(t *testing.T) {
	t.Parallel()

	t.Run("respects max concurrent jobs", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockWorkerRepository)
		defer mockRepo.AssertExpectations(t)

		jobs := make([]*renderqueue.Job, 6)
		for i := range jobs {
			jobs[i] = pendingRenderJob(0, 3)
		}

		for _, job := range jobs {
			mockRepo.On("ClaimJob", mock.Anything, mock.Anything, mock.Anything).
				Return(job, nil).Once()
		}
		// After all jobs are claimed, return no job (poll count varies with timing)
		mockRepo.On("ClaimJob", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, renderqueue.ErrNoJobToClaim)
		for _, job := range jobs {
			mockRepo.On("CompleteJob", mock.Anything, job.ID, renderqueue.Result{}).Return(nil).Once()
		}

		concurrent := atomic.Int32{}
		maxConcurrent := atomic.Int32{}
		processed := atomic.Int32{}
		barrier := make(chan struct{}) // Jobs wait here until 3 are concurrent
		ready := atomic.Int32{}
		allDone := make(chan struct{})

		worker, err := renderqueue.NewWorker(mockRepo, func(ctx context.Context, j renderqueue.Job) (renderqueue.Result, error) {
			current := concurrent.Add(1)
			defer concurrent.Add(-1)

			for {
				max := maxConcurrent.Load()
				if current <= max || maxConcurrent.CompareAndSwap(max, current) {
					break
				}
			}

			// Barrier synchronization: wait until 3 jobs run concurrently
			if ready.Add(1) == 3 {
				close(barrier)
			}
			<-barrier

			if processed.Add(1) == 6 {
				close(allDone)
			}
			return renderqueue.Result{}, nil
		},
			renderqueue.WithPollInterval(5*time.Millisecond),
			renderqueue.WithMaxConcurrentJobs(3),
		)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("worker start error: %v", err)
			}
		}()

		select {
		case <-allDone:
			err = worker.Stop()
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for jobs: processed=%d, max_concurrent=%d",
				processed.Load(), maxConcurrent.Load())
		}

		assert.Equal(t, int32(6), processed.Load(), "all jobs should be processed")
		assert.Equal(t, int32(3), maxConcurrent.Load(), "max concurrent should be 3")
	})
}

func TestWorker_DrainOnStop(t *testing.T) {
	t.Parallel()

	t.Run("waits for active job to complete", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockWorkerRepository)
		defer mockRepo.AssertExpectations(t)

		job := pendingRenderJob(0, 3)

		mockRepo.On("ClaimJob", mock.Anything, mock.Anything, mock.Anything).
			Return(job, nil).Once()
		mockRepo.On("ClaimJob", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, renderqueue.ErrNoJobToClaim)
		mockRepo.On("CompleteJob", mock.Anything, job.ID, renderqueue.Result{}).Return(nil).Once()

		jobStarted := make(chan struct{})
		jobCompleted := atomic.Bool{}

		worker, err := renderqueue.NewWorker(mockRepo, func(ctx context.Context, j renderqueue.Job) (renderqueue.Result, error) {
			close(jobStarted)
			time.Sleep(50 * time.Millisecond)
			jobCompleted.Store(true)
			return renderqueue.Result{}, nil
		}, renderqueue.WithPollInterval(10*time.Millisecond))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("worker start error: %v", err)
			}
		}()

		<-jobStarted

		// Stop worker while the job is running
		stopDone := make(chan error, 1)
		go func() {
			stopDone <- worker.Stop()
		}()

		select {
		case err := <-stopDone:
			assert.NoError(t, err)
			assert.True(t, jobCompleted.Load(), "job should have completed before stop returned")
		case <-time.After(1 * time.Second):
			t.Fatal("stop did not complete in time")
		}
	})
}

func TestWorker_Run(t *testing.T) {
	t.Parallel()

	t.Run("returns nil when the context ends", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockWorkerRepository)
		defer mockRepo.AssertExpectations(t)

		// Maybe(): the deadline can expire before the first poll fires
		mockRepo.On("ClaimJob", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, renderqueue.ErrNoJobToClaim).Maybe()

		worker, err := renderqueue.NewWorker(mockRepo, noopHandler,
			renderqueue.WithPollInterval(50*time.Millisecond))
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		runFunc := worker.Run(ctx)
		err = runFunc()
		assert.NoError(t, err) // Should exit cleanly when context is cancelled
	})
}

func TestWorker_ExtendLockForJob(t *testing.T) {
	t.Parallel()

	t.Run("passes through to storage", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockWorkerRepository)
		defer mockRepo.AssertExpectations(t)

		jobID := uuid.New()
		mockRepo.On("ExtendLock", mock.Anything, jobID, 5*time.Minute).Return(nil).Once()

		worker, err := renderqueue.NewWorker(mockRepo, noopHandler)
		require.NoError(t, err)

		err = worker.ExtendLockForJob(context.Background(), jobID, 5*time.Minute)
		assert.NoError(t, err)
	})
}

func TestWorker_WorkerInfo(t *testing.T) {
	t.Parallel()

	t.Run("reports id, hostname, and pid", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockWorkerRepository)
		defer mockRepo.AssertExpectations(t)

		worker, err := renderqueue.NewWorker(mockRepo, noopHandler)
		require.NoError(t, err)

		id, hostname, pid := worker.WorkerInfo()
		assert.NotEmpty(t, id)
		assert.NotEmpty(t, hostname)
		assert.Greater(t, pid, 0)
	})
}
