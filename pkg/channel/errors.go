package channel

import "errors"

var (
	// ErrInvalidConfig is returned when an adapter is constructed with
	// incomplete or malformed configuration.
	ErrInvalidConfig = errors.New("channel: invalid adapter configuration")

	// ErrNoRecipient is returned when the resolver cannot produce an
	// address for the user on the requested channel. Recorded as an
	// ordinary send failure; the retry counter decides what happens next.
	ErrNoRecipient = errors.New("channel: no recipient for user")

	// ErrSendFailed wraps provider-side send failures.
	ErrSendFailed = errors.New("channel: failed to send message")
)
