package notification

import "errors"

var (
	// ErrNotFound is returned when a notification does not exist.
	ErrNotFound = errors.New("notification not found")

	// ErrStorageNil is returned when a service is built without storage.
	ErrStorageNil = errors.New("storage cannot be nil")

	// ErrMissingUserID is returned at creation when no owning user is set.
	ErrMissingUserID = errors.New("user ID is required")

	// ErrInvalidEventType is returned at creation for unknown event types.
	ErrInvalidEventType = errors.New("unknown notification event type")

	// ErrMissingTitle is returned at creation when the title is empty.
	ErrMissingTitle = errors.New("title is required")

	// ErrTitleTooLong is returned when the title exceeds MaxTitleLength.
	ErrTitleTooLong = errors.New("title exceeds maximum length")

	// ErrMissingMessage is returned at creation when the message body is empty.
	ErrMissingMessage = errors.New("message is required")

	// ErrMessageTooLong is returned when the message exceeds MaxMessageLength.
	ErrMessageTooLong = errors.New("message exceeds maximum length")

	// ErrInvalidPriority is returned for priorities outside the known levels.
	ErrInvalidPriority = errors.New("invalid priority level")

	// ErrAlreadyExists is returned when creating a notification with an ID
	// that is already stored.
	ErrAlreadyExists = errors.New("notification already exists")

	// ErrClaimConflict is returned when a worker fails to acquire the
	// delivery claim because another worker holds it. Callers skip the
	// notification for the current pass; this is not a failure.
	ErrClaimConflict = errors.New("notification is claimed by another worker")

	// ErrNotClaimed is returned when releasing a claim the worker does not hold.
	ErrNotClaimed = errors.New("notification is not claimed by this worker")

	// ErrChannelNotEnabled is returned when per-channel state is requested
	// or mutated for a channel the notification does not use.
	ErrChannelNotEnabled = errors.New("channel is not enabled for this notification")

	// ErrRetryExhausted is returned when a retry is requested for a
	// notification that already spent its retry budget. No state changes.
	ErrRetryExhausted = errors.New("retry limit reached for notification")
)
