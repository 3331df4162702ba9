package channel

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/visakit/pkg/logger"
	"github.com/dmitrymomot/visakit/pkg/notification"
)

// InAppAdapter serves the in-app channel. There is no external transport:
// the stored record is the delivery, so Send trivially succeeds. When a
// Redis client is configured, the adapter additionally publishes the
// notification to the user's channel so connected UI sessions update live;
// publish failures are logged and ignored (best effort).
type InAppAdapter struct {
	rdb    *redis.Client
	prefix string
	logger *slog.Logger
}

// InAppAdapterOption configures an InAppAdapter.
type InAppAdapterOption func(*InAppAdapter)

// WithRealtimePublisher enables live publication of in-app notifications
// over Redis pub/sub. Subscribers listen on "<prefix><userID>".
func WithRealtimePublisher(rdb *redis.Client, prefix string) InAppAdapterOption {
	return func(a *InAppAdapter) {
		a.rdb = rdb
		if prefix != "" {
			a.prefix = prefix
		}
	}
}

// WithInAppLogger sets the logger for the InAppAdapter.
func WithInAppLogger(log *slog.Logger) InAppAdapterOption {
	return func(a *InAppAdapter) {
		if log != nil {
			a.logger = log
		}
	}
}

// NewInAppAdapter creates the in-app channel adapter.
func NewInAppAdapter(opts ...InAppAdapterOption) *InAppAdapter {
	a := &InAppAdapter{
		prefix: "notifications:user:",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *InAppAdapter) Name() notification.Channel {
	return notification.ChannelInApp
}

// Send marks the in-app channel delivered. The record already exists in the
// store, which is all in-app delivery means.
func (a *InAppAdapter) Send(ctx context.Context, n *notification.Notification) (Result, error) {
	if a.rdb != nil {
		payload, err := json.Marshal(n)
		if err == nil {
			err = a.rdb.Publish(ctx, a.prefix+n.UserID, payload).Err()
		}
		if err != nil {
			a.logger.LogAttrs(ctx, slog.LevelWarn, "failed to publish in-app notification",
				logger.NotificationID(n.ID),
				logger.UserID(n.UserID),
				logger.Error(err),
			)
		}
	}

	return Result{MessageID: n.ID}, nil
}
