package async

import (
	"context"
	"errors"
	"time"
)

// Future represents the result of an asynchronous computation producing a
// value of type U. A Future completes exactly once; all Await variants and
// IsComplete are safe for concurrent use.
type Future[U any] struct {
	value U
	err   error
	done  chan struct{}
}

// Async runs fn in its own goroutine and returns a Future for its result.
// If ctx is already cancelled the function is never invoked and the Future
// completes with the context's error.
func Async[T, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		select {
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		default:
		}

		f.value, f.err = fn(ctx, param)
	}()

	return f
}

// Await blocks until the computation completes and returns its result.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.value, f.err
}

// AwaitWithTimeout blocks until the computation completes or the timeout
// elapses, in which case it returns ErrTimeout. The underlying computation
// keeps running; cancel its context to stop it.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-time.After(timeout):
		var zero U
		return zero, ErrTimeout
	}
}

// IsComplete reports whether the computation has finished, without blocking.
func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// WaitAll blocks until every future completes and returns their values in
// input order. Failures are joined into a single error; values at failed
// positions are the type's zero value.
func WaitAll[U any](futures ...*Future[U]) ([]U, error) {
	values := make([]U, len(futures))
	var errs []error
	for i, f := range futures {
		v, err := f.Await()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		values[i] = v
	}
	if len(errs) > 0 {
		return values, errors.Join(errs...)
	}
	return values, nil
}

// WaitAny blocks until the first future completes and returns its index,
// value and error. Remaining futures keep running.
func WaitAny[U any](futures ...*Future[U]) (int, U, error) {
	var zero U
	if len(futures) == 0 {
		return -1, zero, ErrNoFutures
	}

	type completion struct {
		index int
		value U
		err   error
	}
	first := make(chan completion, 1)

	for i, f := range futures {
		go func(index int, f *Future[U]) {
			v, err := f.Await()
			select {
			case first <- completion{index: index, value: v, err: err}:
			default:
			}
		}(i, f)
	}

	c := <-first
	return c.index, c.value, c.err
}
