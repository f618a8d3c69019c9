package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renderkit/core/logger"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	return record
}

func TestNewDefaultLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf))

	log.Debug("hidden")
	assert.Empty(t, buf.String())

	log.Info("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNewJSONOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithJSONFormatter(),
		logger.WithOutput(&buf),
		logger.WithAttr(slog.String("service", "render")),
	)

	log.Info("job enqueued", logger.Component("renderqueue"))

	record := decodeLine(t, &buf)
	assert.Equal(t, "job enqueued", record["msg"])
	assert.Equal(t, "render", record["service"])
	assert.Equal(t, "renderqueue", record["component"])
}

func TestWithDevelopmentPreset(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithDevelopment("renderkit"),
		logger.WithOutput(&buf),
	)

	log.Debug("debug enabled in development")
	assert.Contains(t, buf.String(), "debug enabled in development")
	assert.Contains(t, buf.String(), "app=renderkit")
	assert.Contains(t, buf.String(), "env=development")
}

func TestWithContextValue(t *testing.T) {
	t.Parallel()

	type ctxKey struct{}

	var buf bytes.Buffer
	log := logger.New(
		logger.WithJSONFormatter(),
		logger.WithOutput(&buf),
		logger.WithContextValue("job_id", ctxKey{}),
	)

	ctx := context.WithValue(context.Background(), ctxKey{}, "job-123")
	log.InfoContext(ctx, "processing")

	record := decodeLine(t, &buf)
	assert.Equal(t, "job-123", record["job_id"])
}

func TestWithContextValueAbsent(t *testing.T) {
	t.Parallel()

	type ctxKey struct{}

	var buf bytes.Buffer
	log := logger.New(
		logger.WithJSONFormatter(),
		logger.WithOutput(&buf),
		logger.WithContextValue("job_id", ctxKey{}),
	)

	log.InfoContext(context.Background(), "processing")

	record := decodeLine(t, &buf)
	_, present := record["job_id"]
	assert.False(t, present)
}

func TestWithContextExtractors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithJSONFormatter(),
		logger.WithOutput(&buf),
		logger.WithContextExtractors(
			func(ctx context.Context) (slog.Attr, bool) {
				return slog.String("source", "extractor"), true
			},
			nil, // must be tolerated
		),
	)

	log.InfoContext(context.Background(), "event")

	record := decodeLine(t, &buf)
	assert.Equal(t, "extractor", record["source"])
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("production is JSON at info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.NewFromConfig(logger.Config{
			Environment: "production",
			Level:       "info",
			Format:      "json",
			App:         "renderkit",
		}, logger.WithOutput(&buf))

		log.Debug("hidden")
		assert.Empty(t, buf.String())

		log.Info("shown")
		record := decodeLine(t, &buf)
		assert.Equal(t, "shown", record["msg"])
		assert.Equal(t, "renderkit", record["app"])
	})

	t.Run("level override", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.NewFromConfig(logger.Config{
			Environment: "production",
			Level:       "error",
			Format:      "json",
		}, logger.WithOutput(&buf))

		log.Warn("hidden")
		assert.Empty(t, buf.String())

		log.Error("shown")
		assert.Contains(t, buf.String(), "shown")
	})
}
