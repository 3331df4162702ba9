package channel_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/visakit/pkg/channel"
	"github.com/dmitrymomot/visakit/pkg/notification"
)

func pushResolver() staticResolver {
	return staticResolver{notification.ChannelPush: "device-token-abc"}
}

func TestNewPushAdapter_Validation(t *testing.T) {
	t.Parallel()

	resolver := pushResolver()

	_, err := channel.NewPushAdapter(channel.PushConfig{APIKey: "key"}, resolver)
	assert.ErrorIs(t, err, channel.ErrInvalidConfig)

	_, err = channel.NewPushAdapter(channel.PushConfig{GatewayURL: "https://push.example.com/send"}, resolver)
	assert.ErrorIs(t, err, channel.ErrInvalidConfig)

	_, err = channel.NewPushAdapter(channel.PushConfig{GatewayURL: "https://push.example.com/send", APIKey: "key"}, nil)
	assert.ErrorIs(t, err, channel.ErrInvalidConfig)
}

func TestPushAdapter_Send(t *testing.T) {
	t.Parallel()

	var (
		gotBody []byte
		gotAuth string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotAuth = r.Header.Get("Authorization")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"message_id": "push-555"})
	}))
	defer srv.Close()

	adapter, err := channel.NewPushAdapter(channel.PushConfig{
		GatewayURL: srv.URL,
		APIKey:     "gateway-api-key",
	}, pushResolver())
	require.NoError(t, err)
	assert.Equal(t, notification.ChannelPush, adapter.Name())

	n := testNotification()
	res, err := adapter.Send(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, "push-555", res.MessageID)
	assert.Equal(t, "Bearer gateway-api-key", gotAuth)

	var req struct {
		DeviceToken string `json:"device_token"`
		Title       string `json:"title"`
		Body        string `json:"body"`
		Priority    string `json:"priority"`
		Ref         string `json:"ref"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &req))
	assert.Equal(t, "device-token-abc", req.DeviceToken)
	assert.Equal(t, n.Title, req.Title)
	assert.Equal(t, n.Message, req.Body)
	assert.Equal(t, string(n.Priority), req.Priority)
	assert.Equal(t, n.ID, req.Ref)
}

func TestPushAdapter_SendNoDeviceToken(t *testing.T) {
	t.Parallel()

	adapter, err := channel.NewPushAdapter(channel.PushConfig{
		GatewayURL: "https://push.example.com/send",
		APIKey:     "key",
	}, staticResolver{})
	require.NoError(t, err)

	_, err = adapter.Send(context.Background(), testNotification())
	assert.ErrorIs(t, err, channel.ErrNoRecipient)
}
