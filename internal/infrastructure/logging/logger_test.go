package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_AddsServiceAndContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{
		Level:       "debug",
		Format:      "json",
		Output:      &buf,
		ServiceName: "order-notify",
		Environment: "test",
	})

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithShopID(ctx, "42")
	ctx = WithConnID(ctx, "conn-7")
	logger.InfoContext(ctx, "joined room")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "joined room", record["msg"])
	assert.Equal(t, "order-notify", record["service"])
	assert.Equal(t, "test", record["environment"])
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, "42", record["shop_id"])
	assert.Equal(t, "conn-7", record["conn_id"])
	assert.NotContains(t, record, "user_id")
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "warn", Format: "text", Output: &buf})

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithUserID(context.Background(), "u-1")
	LoggerFromContext(ctx, base).Info("hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "u-1", record["user_id"])
	assert.Equal(t, "", GetRequestID(ctx))
}
