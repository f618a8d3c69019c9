package keysession

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/renderkit/core/logger"
	"github.com/dmitrymomot/renderkit/pkg/secrets"
)

// StoreStats provides observability metrics for monitoring and debugging.
type StoreStats struct {
	ActiveSessions  int   // Current number of sessions in the store, expired or not
	SweepsRun       int64 // Total number of sweep passes executed
	SessionsExpired int64 // Total sessions removed by sweeps or expiry-on-read
	IsRunning       bool  // Whether the periodic sweeper is running
}

// Store holds provider credentials in process memory, keyed by opaque
// tokens. Secrets are encrypted at rest under a key derived from the
// configured application key and an ephemeral per-process key, so nothing in
// the store survives a restart in recoverable form.
//
// Collaborators persist tokens, never secrets: a token passed through a job
// record can be redeemed with Get until the session expires or is deleted.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]record

	ttl             time.Duration
	sweepInterval   time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger

	appKey   []byte
	scopeKey []byte

	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool
	wg      sync.WaitGroup

	sweepsRun       atomic.Int64
	sessionsExpired atomic.Int64
}

// New creates a Store. The encryption key must be exactly 32 bytes; a store
// cannot operate without one (secrets are never held in plaintext at rest).
// Call Start to begin periodic sweeping; all other operations work without it.
func New(encryptionKey []byte, opts ...Option) (*Store, error) {
	if len(encryptionKey) != secrets.KeySize {
		return nil, ErrEncryptionKeyInvalid
	}

	// The scope key is generated fresh per store instance. Sessions are
	// ephemeral by contract, so there is nothing to recover across restarts.
	scopeKey, err := secrets.GenerateKey()
	if err != nil {
		return nil, err
	}

	s := &Store{
		sessions:        make(map[string]record),
		ttl:             DefaultTTL,
		sweepInterval:   DefaultSweepInterval,
		shutdownTimeout: defaultShutdownTimeout,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		appKey:          bytes.Clone(encryptionKey),
		scopeKey:        scopeKey,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Create stores a secret and returns the token that stands in for it.
// The session expires TTL from now. The secret value itself is never logged;
// log lines carry a truncated token prefix only.
func (s *Store) Create(ctx context.Context, secret string, provider Provider, opts ...CreateOption) (string, error) {
	if !provider.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidProvider, provider)
	}

	var co createOptions
	for _, opt := range opts {
		opt(&co)
	}

	token, err := generateToken()
	if err != nil {
		return "", err
	}

	encrypted, err := secrets.EncryptString(s.appKey, s.scopeKey, secret)
	if err != nil {
		return "", errors.Join(ErrSecretEncryption, err)
	}

	now := time.Now()
	rec := record{
		provider:        provider,
		encryptedSecret: encrypted,
		projectID:       co.projectID,
		createdAt:       now,
		expiresAt:       now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[token] = rec
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "session created",
		logger.Component("keysession"),
		logger.TokenPrefix(token),
		logger.Provider(provider.String()),
		slog.Time("expires_at", rec.expiresAt))

	return token, nil
}

// Get returns the session for a token. A token that was never issued and a
// token past its expiry are indistinguishable: both yield ErrNotFound, and a
// present-but-expired record is removed on the way out.
func (s *Store) Get(ctx context.Context, token string) (Session, error) {
	s.mu.RLock()
	rec, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return Session{}, ErrNotFound
	}

	if time.Now().After(rec.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		s.sessionsExpired.Add(1)

		s.logger.DebugContext(ctx, "expired session removed on read",
			logger.Component("keysession"),
			logger.TokenPrefix(token))
		return Session{}, ErrNotFound
	}

	secret, err := secrets.DecryptString(s.appKey, s.scopeKey, rec.encryptedSecret)
	if err != nil {
		return Session{}, errors.Join(ErrSecretDecryption, err)
	}

	return Session{
		Token:     token,
		Provider:  rec.provider,
		Secret:    secret,
		ProjectID: rec.projectID,
		CreatedAt: rec.createdAt,
		ExpiresAt: rec.expiresAt,
	}, nil
}

// Delete removes a session. Deleting an absent token is a no-op: callers
// delete on both job completion and failure without caring which ran first.
func (s *Store) Delete(ctx context.Context, token string) {
	s.mu.Lock()
	_, existed := s.sessions[token]
	delete(s.sessions, token)
	s.mu.Unlock()

	if existed {
		s.logger.DebugContext(ctx, "session deleted",
			logger.Component("keysession"),
			logger.TokenPrefix(token))
	}
}

// Sweep removes every session whose expiry has passed and returns how many
// were removed. The periodic sweeper calls this on its interval; it is also
// safe to call directly.
func (s *Store) Sweep(ctx context.Context) int {
	now := time.Now()
	removed := 0

	s.mu.Lock()
	for token, rec := range s.sessions {
		if !rec.expiresAt.After(now) {
			delete(s.sessions, token)
			removed++
		}
	}
	s.mu.Unlock()

	s.sweepsRun.Add(1)
	if removed > 0 {
		s.sessionsExpired.Add(int64(removed))
		s.logger.InfoContext(ctx, "expired sessions swept",
			logger.Component("keysession"),
			logger.Count("removed", removed))
	}

	return removed
}

// ActiveCount returns the number of sessions currently held, for
// observability only.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Start begins the periodic sweeper. This is a blocking operation that runs
// until the context is cancelled or Stop is called; use Run for the errgroup
// pattern or call it in a goroutine. A store starts at most once per process.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrStoreAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.running.Store(true)
	defer s.running.Store(false)

	s.logger.InfoContext(s.ctx, "session sweeper started",
		logger.Component("keysession"),
		slog.Duration("sweep_interval", s.sweepInterval),
		slog.Duration("ttl", s.ttl))

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.InfoContext(context.Background(), "session sweeper stopping",
				logger.Component("keysession"))
			return s.ctx.Err()
		case <-ticker.C:
			select {
			case <-s.ctx.Done():
				return s.ctx.Err()
			default:
				s.sweepWithWait()
			}
		}
	}
}

// Stop gracefully shuts down the sweeper, waiting up to the shutdown timeout
// for an in-flight sweep to finish.
func (s *Store) Stop() error {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return ErrStoreNotStarted
	}
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()

	ctx, ctxCancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer ctxCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.InfoContext(context.Background(), "session store stopped cleanly",
			logger.Component("keysession"))
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(context.Background(), "session store shutdown timeout exceeded",
			logger.Component("keysession"),
			slog.Duration("timeout", s.shutdownTimeout))
		return fmt.Errorf("%w after %s", ErrShutdownTimeout, s.shutdownTimeout)
	}
}

// Run provides errgroup compatibility for coordinated lifecycle management:
// it starts the sweeper, watches for context cancellation and performs a
// graceful stop.
func (s *Store) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			_ = s.Stop()
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// Stats returns current store statistics. Safe to call at any time.
func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	active := len(s.sessions)
	isRunning := s.cancel != nil
	s.mu.RUnlock()

	return StoreStats{
		ActiveSessions:  active,
		SweepsRun:       s.sweepsRun.Load(),
		SessionsExpired: s.sessionsExpired.Load(),
		IsRunning:       isRunning,
	}
}

// Healthcheck reports whether the periodic sweeper is running.
func (s *Store) Healthcheck(ctx context.Context) error {
	if !s.Stats().IsRunning {
		return ErrStoreNotStarted
	}
	return nil
}

// sweepWithWait wraps Sweep with WaitGroup tracking so Stop can drain an
// in-flight sweep.
func (s *Store) sweepWithWait() {
	s.mu.RLock()
	if s.cancel == nil {
		s.mu.RUnlock()
		return
	}
	s.wg.Add(1)
	s.mu.RUnlock()

	defer s.wg.Done()
	s.Sweep(s.ctx)
}
