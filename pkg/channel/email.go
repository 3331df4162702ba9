package channel

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"

	"github.com/mrz1836/postmark"

	"github.com/dmitrymomot/visakit/pkg/notification"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// EmailConfig holds email channel configuration.
// Both tokens are required for runtime operation - this enforces explicit
// configuration rather than silent failures in production.
type EmailConfig struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN,required"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN,required"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
}

// EmailAdapter delivers notifications through Postmark's transactional API.
type EmailAdapter struct {
	client   *postmark.Client
	config   EmailConfig
	resolver RecipientResolver
}

// NewEmailAdapter creates a Postmark-backed email adapter.
func NewEmailAdapter(cfg EmailConfig, resolver RecipientResolver) (*EmailAdapter, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" || !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}
	if cfg.SupportEmail == "" || !emailRegex.MatchString(cfg.SupportEmail) {
		return nil, fmt.Errorf("%w: SupportEmail must be a valid email address", ErrInvalidConfig)
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w: recipient resolver is required", ErrInvalidConfig)
	}

	return &EmailAdapter{
		client:   postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		config:   cfg,
		resolver: resolver,
	}, nil
}

// MustNewEmailAdapter creates an email adapter that panics on invalid config.
func MustNewEmailAdapter(cfg EmailConfig, resolver RecipientResolver) *EmailAdapter {
	a, err := NewEmailAdapter(cfg, resolver)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *EmailAdapter) Name() notification.Channel {
	return notification.ChannelEmail
}

// Send resolves the recipient's email address and submits the message
// through Postmark. The returned message ID is Postmark's, so delivery
// webhooks can be matched back to the channel state.
func (a *EmailAdapter) Send(ctx context.Context, n *notification.Notification) (Result, error) {
	sendTo, err := a.resolver.Recipient(ctx, n.UserID, notification.ChannelEmail)
	if err != nil {
		return Result{}, errors.Join(ErrNoRecipient, err)
	}
	if !emailRegex.MatchString(sendTo) {
		return Result{}, fmt.Errorf("%w: %q is not a valid email address", ErrNoRecipient, sendTo)
	}

	resp, err := a.client.SendEmail(ctx, postmark.Email{
		From:       a.config.SenderEmail,
		ReplyTo:    a.config.SupportEmail,
		To:         sendTo,
		Subject:    n.Title,
		Tag:        string(n.EventType),
		HTMLBody:   renderEmailBody(n),
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return Result{}, errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return Result{}, errors.Join(
			ErrSendFailed,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}

	return Result{MessageID: resp.MessageID}, nil
}

// renderEmailBody produces a minimal HTML body. Portals with branded
// templates reference them via Metadata.Template and render upstream.
func renderEmailBody(n *notification.Notification) string {
	body := fmt.Sprintf("<h2>%s</h2><p>%s</p>",
		html.EscapeString(n.Title),
		html.EscapeString(n.Message),
	)
	if n.Metadata.ActionURL != "" {
		label := n.Metadata.ActionText
		if label == "" {
			label = "View details"
		}
		body += fmt.Sprintf(`<p><a href="%s">%s</a></p>`,
			html.EscapeString(n.Metadata.ActionURL),
			html.EscapeString(label),
		)
	}
	return body
}
