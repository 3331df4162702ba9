package channel

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dmitrymomot/visakit/pkg/notification"
)

// SMSConfig holds SMS gateway configuration. The portal talks to an SMS
// aggregator over HTTPS; requests are authenticated with an HMAC-SHA256
// signature bound to a timestamp to prevent replay.
type SMSConfig struct {
	GatewayURL    string `env:"SMS_GATEWAY_URL,required"`
	SigningSecret string `env:"SMS_SIGNING_SECRET,required"`
	SenderName    string `env:"SMS_SENDER_NAME" envDefault:"VisaPortal"`
}

// SMSAdapter delivers notifications as text messages through the gateway.
type SMSAdapter struct {
	config   SMSConfig
	resolver RecipientResolver
	client   *http.Client
}

// SMSAdapterOption configures an SMSAdapter.
type SMSAdapterOption func(*SMSAdapter)

// WithSMSHTTPClient sets a custom HTTP client, ignoring nil.
func WithSMSHTTPClient(client *http.Client) SMSAdapterOption {
	return func(a *SMSAdapter) {
		if client != nil {
			a.client = client
		}
	}
}

// NewSMSAdapter creates an SMS adapter for the configured gateway.
func NewSMSAdapter(cfg SMSConfig, resolver RecipientResolver, opts ...SMSAdapterOption) (*SMSAdapter, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("%w: GatewayURL is required", ErrInvalidConfig)
	}
	if u, err := url.Parse(cfg.GatewayURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: GatewayURL must be an absolute URL", ErrInvalidConfig)
	}
	if cfg.SigningSecret == "" {
		return nil, fmt.Errorf("%w: SigningSecret is required", ErrInvalidConfig)
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w: recipient resolver is required", ErrInvalidConfig)
	}

	a := &SMSAdapter{
		config:   cfg,
		resolver: resolver,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

func (a *SMSAdapter) Name() notification.Channel {
	return notification.ChannelSMS
}

type smsRequest struct {
	To     string `json:"to"`
	From   string `json:"from"`
	Body   string `json:"body"`
	Ref    string `json:"ref"`
	SentAt string `json:"sent_at"`
}

type smsResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// Send resolves the user's phone number and posts the message to the
// gateway. The gateway's message ID ties later status callbacks back to
// this channel's state.
func (a *SMSAdapter) Send(ctx context.Context, n *notification.Notification) (Result, error) {
	phone, err := a.resolver.Recipient(ctx, n.UserID, notification.ChannelSMS)
	if err != nil {
		return Result{}, errors.Join(ErrNoRecipient, err)
	}
	if phone == "" {
		return Result{}, fmt.Errorf("%w: empty phone number for user %s", ErrNoRecipient, n.UserID)
	}

	payload, err := json.Marshal(smsRequest{
		To:     phone,
		From:   a.config.SenderName,
		Body:   n.Title + ": " + n.Message,
		Ref:    n.ID,
		SentAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Result{}, errors.Join(ErrSendFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.GatewayURL, bytes.NewReader(payload))
	if err != nil {
		return Result{}, errors.Join(ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	a.signRequest(req, payload)

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
			fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, body),
		)
	}

	var gw smsResponse
	if err := json.Unmarshal(body, &gw); err != nil {
		return Result{}, errors.Join(ErrSendFailed, err)
	}
	if gw.Error != "" {
		return Result{}, errors.Join(ErrSendFailed, errors.New(gw.Error))
	}

	return Result{MessageID: gw.MessageID}, nil
}

// signRequest adds an HMAC-SHA256 signature bound to a timestamp.
// Signature format: HMAC-SHA256(secret, timestamp + "." + payload)
func (a *SMSAdapter) signRequest(req *http.Request, payload []byte) {
	timestamp := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(a.config.SigningSecret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)

	req.Header.Set("X-Signature", hex.EncodeToString(mac.Sum(nil)))
	req.Header.Set("X-Signature-Timestamp", strconv.FormatInt(timestamp, 10))
}
