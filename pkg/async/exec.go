package async

import (
	"context"
	"time"
)

// ExecFuture is the error-only counterpart of Future, for asynchronous
// functions that produce no value.
type ExecFuture struct {
	inner *Future[struct{}]
}

// Exec runs fn in its own goroutine and returns an ExecFuture for its error.
// If ctx is already cancelled the function is never invoked.
func Exec[T any](ctx context.Context, param T, fn func(context.Context, T) error) *ExecFuture {
	return &ExecFuture{inner: Async(ctx, param, func(ctx context.Context, p T) (struct{}, error) {
		return struct{}{}, fn(ctx, p)
	})}
}

// Await blocks until the function completes and returns its error.
func (f *ExecFuture) Await() error {
	_, err := f.inner.Await()
	return err
}

// AwaitWithTimeout blocks until the function completes or the timeout
// elapses, in which case it returns ErrTimeout.
func (f *ExecFuture) AwaitWithTimeout(timeout time.Duration) error {
	_, err := f.inner.AwaitWithTimeout(timeout)
	return err
}

// IsComplete reports whether the function has finished, without blocking.
func (f *ExecFuture) IsComplete() bool {
	return f.inner.IsComplete()
}

// ExecAll blocks until every future completes, returning the first error
// encountered in input order.
func ExecAll(futures ...*ExecFuture) error {
	for _, future := range futures {
		if err := future.Await(); err != nil {
			return err
		}
	}
	return nil
}

// ExecAny blocks until the first future completes and returns its index and
// error. Remaining futures keep running.
func ExecAny(futures ...*ExecFuture) (int, error) {
	if len(futures) == 0 {
		return -1, ErrNoFutures
	}
	inner := make([]*Future[struct{}], len(futures))
	for i, f := range futures {
		inner[i] = f.inner
	}
	index, _, err := WaitAny(inner...)
	return index, err
}
