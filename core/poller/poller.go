package poller

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Probe checks a long-running remote job once. It must honor ctx and return
// promptly once ctx is cancelled. Done reports whether polling should stop
// with Value as the final result; a false Done schedules another probe after
// the current backoff delay.
type Probe[T any] func(ctx context.Context) (ProbeResult[T], error)

// ProbeResult carries the outcome of a single probe invocation.
type ProbeResult[T any] struct {
	// Done reports that the remote job reached a terminal state.
	Done bool
	// Value is the final result, meaningful only when Done is true.
	Value T
}

// Poller drives bounded retry loops around caller-supplied probes. Each
// operation is identified by a caller-chosen id, runs its probes strictly
// sequentially on a dedicated goroutine, and backs off exponentially between
// attempts. All methods are safe for concurrent use.
type Poller[T any] struct {
	mu  sync.RWMutex
	ops map[string]*operation[T]

	settings
}

// settings holds the construction-time knobs shared by every operation.
type settings struct {
	initialInterval   time.Duration
	backoffMultiplier float64
	maxInterval       time.Duration
	maxAttempts       int
	log               *slog.Logger
}

type operation[T any] struct {
	id     string
	probe  Probe[T]
	ctx    context.Context
	cancel context.CancelFunc

	// attempts and interval are touched only by the operation's own
	// goroutine; probes never overlap for a given id.
	attempts    int
	interval    time.Duration
	multiplier  float64
	maxInterval time.Duration
	maxAttempts int

	onComplete func(T)
	onError    func(error)
}

// New returns a poller with the default backoff schedule adjusted by opts.
func New[T any](opts ...Option) *Poller[T] {
	p := &Poller[T]{
		ops: make(map[string]*operation[T]),
		settings: settings{
			initialInterval:   DefaultInitialInterval,
			backoffMultiplier: DefaultBackoffMultiplier,
			maxInterval:       DefaultMaxInterval,
			maxAttempts:       DefaultMaxAttempts,
			log:               slog.New(slog.NewTextHandler(io.Discard, nil)), // No-op logger by default
		},
	}
	for _, opt := range opts {
		opt(&p.settings)
	}
	return p
}

// Start launches polling for id. An active operation with the same id is
// fully cancelled first: its context is aborted, any pending delay is
// cleared, its state is removed, and none of its callbacks fire afterwards.
// The first probe runs immediately, with no initial delay. Terminal outcomes
// are delivered only through the WithOnComplete and WithOnError callbacks,
// which run on the operation's goroutine.
func (p *Poller[T]) Start(id string, probe Probe[T], opts ...StartOption[T]) {
	if probe == nil {
		panic("poller: nil probe")
	}

	cfg := startConfig[T]{
		interval:    p.initialInterval,
		maxAttempts: p.maxAttempts,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	op := &operation[T]{
		id:          id,
		probe:       probe,
		ctx:         ctx,
		cancel:      cancel,
		interval:    cfg.interval,
		multiplier:  p.backoffMultiplier,
		maxInterval: p.maxInterval,
		maxAttempts: cfg.maxAttempts,
		onComplete:  cfg.onComplete,
		onError:     cfg.onError,
	}

	p.mu.Lock()
	if prev, ok := p.ops[id]; ok {
		prev.cancel()
	}
	p.ops[id] = op
	p.mu.Unlock()

	p.log.Debug("polling started",
		slog.String("poll_id", id),
		slog.Duration("interval", op.interval),
		slog.Int("max_attempts", op.maxAttempts))

	go p.run(op)
}

// Stop cancels the operation with the given id: the in-flight probe is
// signalled through its context, any pending delay is cleared, and the
// operation leaves the active set without invoking callbacks. Stopping an
// unknown id is a no-op.
func (p *Poller[T]) Stop(id string) {
	p.mu.Lock()
	op, ok := p.ops[id]
	if ok {
		op.cancel()
		delete(p.ops, id)
	}
	p.mu.Unlock()

	if ok {
		p.log.Debug("polling stopped", slog.String("poll_id", id))
	}
}

// StopAll cancels every active operation. Used on teardown.
func (p *Poller[T]) StopAll() {
	p.mu.Lock()
	stopped := len(p.ops)
	for id, op := range p.ops {
		op.cancel()
		delete(p.ops, id)
	}
	p.mu.Unlock()

	if stopped > 0 {
		p.log.Debug("all polling stopped", slog.Int("count", stopped))
	}
}

// IsActive reports whether an operation with the given id is polling.
func (p *Poller[T]) IsActive(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.ops[id]
	return ok
}

// ActiveCount returns the number of active operations.
func (p *Poller[T]) ActiveCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.ops)
}

// run executes one operation until a terminal outcome: probe done, probe
// error, attempt budget exhausted, or cancellation via Stop/restart.
func (p *Poller[T]) run(op *operation[T]) {
	defer p.release(op)

	for {
		if op.ctx.Err() != nil {
			return
		}

		res, err := op.probe(op.ctx)
		if op.ctx.Err() != nil {
			// Stopped or replaced while the probe was in flight; the
			// outcome no longer belongs to anyone, so stay silent.
			return
		}
		if err != nil {
			p.log.Error("polling failed",
				slog.String("poll_id", op.id),
				slog.Int("attempts", op.attempts+1),
				slog.String("error", err.Error()))
			if op.onError != nil {
				op.onError(err)
			}
			return
		}
		if res.Done {
			p.log.Debug("polling completed",
				slog.String("poll_id", op.id),
				slog.Int("attempts", op.attempts+1))
			if op.onComplete != nil {
				op.onComplete(res.Value)
			}
			return
		}

		// The delay before the next probe uses the current interval; the
		// interval advances afterwards, so the observed delays grow as
		// initial, initial*m, initial*m^2, ... up to the cap.
		op.attempts++
		delay := op.interval
		op.interval = nextInterval(op.interval, op.multiplier, op.maxInterval)

		if op.attempts >= op.maxAttempts {
			p.log.Warn("poll attempts exhausted",
				slog.String("poll_id", op.id),
				slog.Int("attempts", op.attempts))
			if op.onError != nil {
				op.onError(fmt.Errorf("%w: %d attempts", ErrAttemptsExhausted, op.attempts))
			}
			return
		}

		timer := time.NewTimer(delay)
		select {
		case <-op.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// release removes op from the active set unless a restart already replaced
// it with a newer operation under the same id.
func (p *Poller[T]) release(op *operation[T]) {
	op.cancel()

	p.mu.Lock()
	if cur, ok := p.ops[op.id]; ok && cur == op {
		delete(p.ops, op.id)
	}
	p.mu.Unlock()
}

func nextInterval(current time.Duration, multiplier float64, limit time.Duration) time.Duration {
	next := time.Duration(float64(current) * multiplier)
	if next > limit {
		next = limit
	}
	return next
}
