package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/renderkit/core/logger"
)

func TestTokenPrefix(t *testing.T) {
	t.Parallel()

	t.Run("truncates long tokens", func(t *testing.T) {
		t.Parallel()

		attr := logger.TokenPrefix("abcdefghijklmnopqrstuvwxyz")
		assert.Equal(t, "token_prefix", attr.Key)
		assert.Equal(t, "abcdefgh", attr.Value.String())
	})

	t.Run("short tokens pass through", func(t *testing.T) {
		t.Parallel()

		attr := logger.TokenPrefix("abc")
		assert.Equal(t, "abc", attr.Value.String())
	})

	t.Run("empty token yields empty attr", func(t *testing.T) {
		t.Parallel()

		attr := logger.TokenPrefix("")
		assert.True(t, attr.Equal(slog.Attr{}))
	})
}

func TestErrorAttr(t *testing.T) {
	t.Parallel()

	t.Run("nil error yields empty attr", func(t *testing.T) {
		t.Parallel()

		assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
	})

	t.Run("non-nil error", func(t *testing.T) {
		t.Parallel()

		attr := logger.Error(errors.New("boom"))
		assert.Equal(t, "error", attr.Key)
	})
}

func TestErrorsAttr(t *testing.T) {
	t.Parallel()

	t.Run("all nil yields empty attr", func(t *testing.T) {
		t.Parallel()

		assert.True(t, logger.Errors(nil, nil).Equal(slog.Attr{}))
	})

	t.Run("mixed preserves order", func(t *testing.T) {
		t.Parallel()

		attr := logger.Errors(errors.New("first"), nil, errors.New("third"))
		assert.Equal(t, "errors", attr.Key)

		group := attr.Value.Group()
		assert.Len(t, group, 2)
		assert.Equal(t, "0", group[0].Key)
		assert.Equal(t, "2", group[1].Key)
	})
}

func TestIdentifierAttrs(t *testing.T) {
	t.Parallel()

	assert.True(t, logger.JobID("").Equal(slog.Attr{}))
	assert.Equal(t, "job_id", logger.JobID("j1").Key)

	assert.True(t, logger.Provider("").Equal(slog.Attr{}))
	assert.Equal(t, "provider", logger.Provider("veo").Key)

	assert.True(t, logger.ID("key", nil).Equal(slog.Attr{}))
	assert.Equal(t, "custom", logger.ID("custom", 7).Key)
}

func TestMetadataAttrs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "component", logger.Component("poller").Key)
	assert.Equal(t, "event", logger.Event("sweep").Key)
	assert.Equal(t, "retry_count", logger.RetryCount(3).Key)
	assert.Equal(t, "duration", logger.Duration(time.Second).Key)
	assert.Equal(t, int64(3), logger.Count("removed", 3).Value.Int64())
}
