package channel

import (
	"context"

	"github.com/dmitrymomot/visakit/pkg/notification"
)

// Result is the outcome of a successful send: the provider-assigned message
// identifier, used later to correlate delivery confirmations and bounces.
type Result struct {
	MessageID string
}

// Adapter sends one notification over one delivery medium.
//
// A non-nil error is recorded as a channel failure by the orchestrator; it
// never aborts other channels or other notifications. Sends are
// at-least-once: calling Send twice for the same notification and channel
// is acceptable and downstream consumers must tolerate duplicates.
type Adapter interface {
	// Name returns the channel this adapter serves.
	Name() notification.Channel

	// Send dispatches the notification over the adapter's medium.
	Send(ctx context.Context, n *notification.Notification) (Result, error)
}

// RecipientResolver maps a portal user to the address the channel needs:
// an email address, a phone number in E.164 form, or a push device token.
// The notification record itself only carries the user reference.
type RecipientResolver interface {
	Recipient(ctx context.Context, userID string, ch notification.Channel) (string, error)
}

// RecipientResolverFunc adapts a function to the RecipientResolver interface.
type RecipientResolverFunc func(ctx context.Context, userID string, ch notification.Channel) (string, error)

func (f RecipientResolverFunc) Recipient(ctx context.Context, userID string, ch notification.Channel) (string, error) {
	return f(ctx, userID, ch)
}
