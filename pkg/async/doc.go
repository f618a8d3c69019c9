// Package async provides a small Future abstraction over goroutines for
// fan-out work with typed results.
//
// Async runs a function asynchronously and returns a Future for its value:
//
//	future := async.Async(ctx, sceneBrief, draftScene)
//
//	// do other work...
//
//	scene, err := future.Await()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// AwaitWithTimeout bounds the wait without cancelling the computation:
//
//	scene, err := future.AwaitWithTimeout(5 * time.Second)
//	if errors.Is(err, async.ErrTimeout) {
//		// still running; cancel ctx to stop it
//	}
//
// WaitAll collects every result (failures joined into one error), WaitAny
// returns the first completion. Exec, ExecAll and ExecAny are the error-only
// equivalents for functions that produce no value.
//
// Context cancellation is honored: a future created with an already-cancelled
// context completes immediately with the context's error, and running
// functions receive the context to observe cancellation themselves.
package async
