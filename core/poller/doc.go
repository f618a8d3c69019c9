// Package poller drives bounded retry loops around asynchronous status
// probes, used to wait on long-running remote jobs such as provider video
// renders.
//
// Each operation is identified by a caller-chosen id. Starting an id that is
// already active fully cancels the previous operation before the new one
// begins, so an id never has more than one in-flight probe or pending delay.
// Probes for a given id run strictly sequentially: the next probe is
// scheduled only after the previous one resolves.
//
// The first probe fires immediately. After every probe that reports more
// work, the poller sleeps for the current interval and then grows it by the
// backoff multiplier, up to the configured cap. With the defaults (2s
// initial, x1.5, 30s cap) the delays run 2s, 3s, 4.5s, 6.75s and so on. An
// operation that keeps continuing past its attempt budget stops with
// ErrAttemptsExhausted.
//
// Terminal outcomes arrive only through callbacks: WithOnComplete receives
// the final probe value, WithOnError receives probe failures and budget
// exhaustion. Operations cancelled by Stop, StopAll, or a restart finish
// silently, with no callback.
//
// # Usage
//
//	p := poller.New[string](
//		poller.WithInitialInterval(2*time.Second),
//		poller.WithMaxAttempts(60),
//	)
//	defer p.StopAll()
//
//	p.Start(jobID, func(ctx context.Context) (poller.ProbeResult[string], error) {
//		status, err := client.JobStatus(ctx, jobID)
//		if err != nil {
//			return poller.ProbeResult[string]{}, err
//		}
//		if !status.Finished {
//			return poller.ProbeResult[string]{}, nil
//		}
//		return poller.ProbeResult[string]{Done: true, Value: status.ResultURL}, nil
//	},
//		poller.WithOnComplete[string](func(url string) { deliver(url) }),
//		poller.WithOnError[string](func(err error) { report(err) }),
//	)
//
// Cancellation is cooperative. Stopping an operation signals the in-flight
// probe through its context and prevents any further scheduling; it does not
// interrupt work the probe has already started past its cancellation check.
package poller
