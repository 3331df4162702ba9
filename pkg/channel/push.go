package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrymomot/visakit/pkg/notification"
)

// PushConfig holds push gateway configuration.
type PushConfig struct {
	GatewayURL string `env:"PUSH_GATEWAY_URL,required"`
	APIKey     string `env:"PUSH_API_KEY,required"`
}

// PushAdapter delivers notifications to the user's registered device
// through the push gateway.
type PushAdapter struct {
	config   PushConfig
	resolver RecipientResolver
	client   *http.Client
}

// PushAdapterOption configures a PushAdapter.
type PushAdapterOption func(*PushAdapter)

// WithPushHTTPClient sets a custom HTTP client, ignoring nil.
func WithPushHTTPClient(client *http.Client) PushAdapterOption {
	return func(a *PushAdapter) {
		if client != nil {
			a.client = client
		}
	}
}

// NewPushAdapter creates a push adapter for the configured gateway.
func NewPushAdapter(cfg PushConfig, resolver RecipientResolver, opts ...PushAdapterOption) (*PushAdapter, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("%w: GatewayURL is required", ErrInvalidConfig)
	}
	if u, err := url.Parse(cfg.GatewayURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: GatewayURL must be an absolute URL", ErrInvalidConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: APIKey is required", ErrInvalidConfig)
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w: recipient resolver is required", ErrInvalidConfig)
	}

	a := &PushAdapter{
		config:   cfg,
		resolver: resolver,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

func (a *PushAdapter) Name() notification.Channel {
	return notification.ChannelPush
}

type pushRequest struct {
	DeviceToken string         `json:"device_token"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Priority    string         `json:"priority"`
	Ref         string         `json:"ref"`
	Data        map[string]any `json:"data,omitempty"`
}

type pushResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// Send resolves the user's device token and posts the push payload to the
// gateway.
func (a *PushAdapter) Send(ctx context.Context, n *notification.Notification) (Result, error) {
	token, err := a.resolver.Recipient(ctx, n.UserID, notification.ChannelPush)
	if err != nil {
		return Result{}, errors.Join(ErrNoRecipient, err)
	}
	if token == "" {
		return Result{}, fmt.Errorf("%w: no device token for user %s", ErrNoRecipient, n.UserID)
	}

	payload, err := json.Marshal(pushRequest{
		DeviceToken: token,
		Title:       n.Title,
		Body:        n.Message,
		Priority:    string(n.Priority),
		Ref:         n.ID,
		Data:        n.Metadata.Data,
	})
	if err != nil {
		return Result{}, errors.Join(ErrSendFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.GatewayURL, bytes.NewReader(payload))
	if err != nil {
		return Result{}, errors.Join(ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return Result{}, errors.Join(ErrSendFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Result{}, errors.Join(ErrSendFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, errors.Join(
			ErrSendFailed,
			fmt.Errorf("push gateway returned %d: %s", resp.StatusCode, body),
		)
	}

	var gw pushResponse
	if err := json.Unmarshal(body, &gw); err != nil {
		return Result{}, errors.Join(ErrSendFailed, err)
	}
	if gw.Error != "" {
		return Result{}, errors.Join(ErrSendFailed, errors.New(gw.Error))
	}

	return Result{MessageID: gw.MessageID}, nil
}
