package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/visakit/pkg/logger"
)

func TestAttrs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
	}{
		{"error", logger.Error(errors.New("boom")), "error"},
		{"user id", logger.UserID("user-1"), "user_id"},
		{"notification id", logger.NotificationID("n-1"), "notification_id"},
		{"channel", logger.Channel("email"), "channel"},
		{"message id", logger.MessageID("msg-1"), "message_id"},
		{"event type", logger.EventType("visa_approved"), "event_type"},
		{"retry count", logger.RetryCount(2), "retry_count"},
		{"worker id", logger.WorkerID("w-1"), "worker_id"},
		{"duration", logger.Duration(time.Second), "duration"},
		{"component", logger.Component("dispatch"), "component"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantKey, tt.attr.Key)
		})
	}
}

func TestAttrs_NilValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.Error(nil))
	assert.Equal(t, slog.Attr{}, logger.UserID(nil))
	assert.Equal(t, slog.Attr{}, logger.NotificationID(nil))
	assert.Equal(t, slog.Attr{}, logger.MessageID(""))
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithFormat(logger.FormatJSON),
			logger.WithAttr(slog.String("app", "visakit")),
		)

		log.Info("hello")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "hello", record["msg"])
		assert.Equal(t, "visakit", record["app"])
	})

	t.Run("level filtering", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithLevel(slog.LevelWarn))

		log.Info("dropped")
		assert.Zero(t, buf.Len())

		log.Warn("kept")
		assert.NotZero(t, buf.Len())
	})

	t.Run("invalid format panics", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			logger.New(logger.WithFormat("xml"))
		})
	})
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewFromConfig(
		logger.Config{Level: "debug", Format: logger.FormatText},
		logger.WithOutput(&buf),
	)

	log.Debug("debug visible")
	assert.Contains(t, buf.String(), "debug visible")
}
