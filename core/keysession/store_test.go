package keysession_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renderkit/core/keysession"
	"github.com/dmitrymomot/renderkit/pkg/secrets"
)

func newTestStore(t *testing.T, opts ...keysession.Option) *keysession.Store {
	t.Helper()

	key, err := secrets.GenerateKey()
	require.NoError(t, err)

	store, err := keysession.New(key, opts...)
	require.NoError(t, err)
	return store
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("valid key", func(t *testing.T) {
		t.Parallel()

		key, err := secrets.GenerateKey()
		require.NoError(t, err)

		store, err := keysession.New(key)
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("short key rejected", func(t *testing.T) {
		t.Parallel()

		_, err := keysession.New([]byte("too short"))
		assert.ErrorIs(t, err, keysession.ErrEncryptionKeyInvalid)
	})

	t.Run("nil key rejected", func(t *testing.T) {
		t.Parallel()

		_, err := keysession.New(nil)
		assert.ErrorIs(t, err, keysession.ErrEncryptionKeyInvalid)
	})
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("hex key accepted", func(t *testing.T) {
		t.Parallel()

		key, err := secrets.GenerateKey()
		require.NoError(t, err)

		store, err := keysession.NewFromConfig(keysession.Config{
			EncryptionKey: hex.EncodeToString(key),
			TTL:           time.Minute,
			SweepInterval: time.Second,
		})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("malformed hex rejected", func(t *testing.T) {
		t.Parallel()

		_, err := keysession.NewFromConfig(keysession.Config{EncryptionKey: "zz-not-hex"})
		assert.ErrorIs(t, err, keysession.ErrEncryptionKeyInvalid)
	})
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		ctx := context.Background()

		token, err := store.Create(ctx, "sk-sora-credential", keysession.ProviderSora)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		sess, err := store.Get(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "sk-sora-credential", sess.Secret)
		assert.Equal(t, keysession.ProviderSora, sess.Provider)
		assert.Equal(t, token, sess.Token)
		assert.False(t, sess.IsExpired())
	})

	t.Run("token carries 256 bits of entropy", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)

		token, err := store.Create(context.Background(), "secret", keysession.ProviderVeo)
		require.NoError(t, err)
		// 32 random bytes base64url-encode to 43 characters.
		assert.Len(t, token, 43)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		ctx := context.Background()

		seen := make(map[string]bool)
		for range 100 {
			token, err := store.Create(ctx, "secret", keysession.ProviderVeo)
			require.NoError(t, err)
			require.False(t, seen[token], "token %q issued twice", token)
			seen[token] = true
		}
	})

	t.Run("expiry is created-at plus TTL", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t, keysession.WithTTL(time.Hour))

		token, err := store.Create(context.Background(), "secret", keysession.ProviderRunway)
		require.NoError(t, err)

		sess, err := store.Get(context.Background(), token)
		require.NoError(t, err)
		assert.WithinDuration(t, sess.CreatedAt.Add(time.Hour), sess.ExpiresAt, time.Second)
	})

	t.Run("project id extra", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)

		token, err := store.Create(context.Background(), "secret", keysession.ProviderVeo,
			keysession.WithProjectID("vertex-project-1"))
		require.NoError(t, err)

		sess, err := store.Get(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "vertex-project-1", sess.ProjectID)
	})

	t.Run("invalid provider rejected", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)

		_, err := store.Create(context.Background(), "secret", keysession.Provider("bogus"))
		assert.ErrorIs(t, err, keysession.ErrInvalidProvider)
	})

	t.Run("unknown token absent", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)

		_, err := store.Get(context.Background(), "never-issued")
		assert.ErrorIs(t, err, keysession.ErrNotFound)
	})
}

func TestExpiry(t *testing.T) {
	t.Parallel()

	t.Run("get past expiry removes and reports absent", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t, keysession.WithTTL(50*time.Millisecond))
		ctx := context.Background()

		token, err := store.Create(ctx, "secret", keysession.ProviderSora)
		require.NoError(t, err)
		assert.Equal(t, 1, store.ActiveCount())

		time.Sleep(80 * time.Millisecond)

		_, err = store.Get(ctx, token)
		assert.ErrorIs(t, err, keysession.ErrNotFound)
		assert.Equal(t, 0, store.ActiveCount(), "expired session must be removed on read")
	})

	t.Run("get within TTL succeeds", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t, keysession.WithTTL(time.Minute))
		ctx := context.Background()

		token, err := store.Create(ctx, "secret", keysession.ProviderSora)
		require.NoError(t, err)

		_, err = store.Get(ctx, token)
		assert.NoError(t, err)
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()

	t.Run("removes session", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		ctx := context.Background()

		token, err := store.Create(ctx, "secret", keysession.ProviderVeo)
		require.NoError(t, err)

		store.Delete(ctx, token)

		_, err = store.Get(ctx, token)
		assert.ErrorIs(t, err, keysession.ErrNotFound)
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		ctx := context.Background()

		token, err := store.Create(ctx, "secret", keysession.ProviderVeo)
		require.NoError(t, err)

		store.Delete(ctx, token)
		assert.NotPanics(t, func() {
			store.Delete(ctx, token)
			store.Delete(ctx, "never-issued")
		})
	})
}

func TestSweep(t *testing.T) {
	t.Parallel()

	t.Run("removes all and only expired", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t, keysession.WithTTL(60*time.Millisecond))
		ctx := context.Background()

		for range 3 {
			_, err := store.Create(ctx, "old", keysession.ProviderSora)
			require.NoError(t, err)
		}

		time.Sleep(90 * time.Millisecond)

		fresh, err := store.Create(ctx, "fresh", keysession.ProviderVeo)
		require.NoError(t, err)

		removed := store.Sweep(ctx)
		assert.Equal(t, 3, removed)
		assert.Equal(t, 1, store.ActiveCount())

		_, err = store.Get(ctx, fresh)
		assert.NoError(t, err, "unexpired session must survive the sweep")
	})

	t.Run("nothing expired", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		ctx := context.Background()

		_, err := store.Create(ctx, "secret", keysession.ProviderSora)
		require.NoError(t, err)

		assert.Equal(t, 0, store.Sweep(ctx))
		assert.Equal(t, 1, store.ActiveCount())
	})
}

func TestLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("start stop", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t, keysession.WithSweepInterval(10*time.Millisecond))
		ctx := context.Background()

		assert.ErrorIs(t, store.Healthcheck(ctx), keysession.ErrStoreNotStarted)

		go func() { _ = store.Start(ctx) }()

		require.Eventually(t, func() bool {
			return store.Healthcheck(ctx) == nil
		}, time.Second, 5*time.Millisecond)

		require.NoError(t, store.Stop())
		assert.ErrorIs(t, store.Healthcheck(ctx), keysession.ErrStoreNotStarted)
	})

	t.Run("double start rejected", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t, keysession.WithSweepInterval(10*time.Millisecond))
		ctx := context.Background()

		go func() { _ = store.Start(ctx) }()

		require.Eventually(t, func() bool {
			return store.Stats().IsRunning
		}, time.Second, 5*time.Millisecond)

		assert.ErrorIs(t, store.Start(ctx), keysession.ErrStoreAlreadyStarted)
		require.NoError(t, store.Stop())
	})

	t.Run("stop before start rejected", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		assert.ErrorIs(t, store.Stop(), keysession.ErrStoreNotStarted)
	})

	t.Run("periodic sweep removes expired sessions", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t,
			keysession.WithTTL(30*time.Millisecond),
			keysession.WithSweepInterval(20*time.Millisecond))
		ctx := context.Background()

		for range 2 {
			_, err := store.Create(ctx, "secret", keysession.ProviderSora)
			require.NoError(t, err)
		}

		go func() { _ = store.Start(ctx) }()
		t.Cleanup(func() { _ = store.Stop() })

		require.Eventually(t, func() bool {
			return store.ActiveCount() == 0
		}, time.Second, 10*time.Millisecond)

		stats := store.Stats()
		assert.GreaterOrEqual(t, stats.SessionsExpired, int64(2))
		assert.Positive(t, stats.SweepsRun)
	})
}

func TestSecretNeverLogged(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store := newTestStore(t, keysession.WithLogger(log))
	ctx := context.Background()

	const secret = "sk-super-sensitive-credential-value"
	token, err := store.Create(ctx, secret, keysession.ProviderSora)
	require.NoError(t, err)

	_, err = store.Get(ctx, token)
	require.NoError(t, err)
	store.Delete(ctx, token)
	store.Sweep(ctx)

	logged := buf.String()
	assert.NotContains(t, logged, secret, "secret value must never reach a log line")
	assert.NotContains(t, logged, token, "full token must never reach a log line")
	assert.Contains(t, logged, token[:8], "token prefix is the loggable identifier")
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, keysession.WithTTL(time.Minute))
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				token, err := store.Create(ctx, "secret", keysession.ProviderVeo)
				if err != nil {
					t.Error(err)
					return
				}
				if _, err := store.Get(ctx, token); err != nil {
					t.Error(err)
					return
				}
				store.Delete(ctx, token)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, store.ActiveCount())
}

func TestProviderValid(t *testing.T) {
	t.Parallel()

	assert.True(t, keysession.ProviderSora.Valid())
	assert.True(t, keysession.ProviderVeo.Valid())
	assert.True(t, keysession.ProviderRunway.Valid())
	assert.False(t, keysession.Provider("").Valid())
	assert.False(t, keysession.Provider("unknown").Valid())
}
