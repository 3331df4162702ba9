package dispatch

import "errors"

var (
	// ErrStorageNil is returned when an orchestrator is built without storage.
	ErrStorageNil = errors.New("storage cannot be nil")

	// ErrNoAdapters is returned when an orchestrator has no channel adapters.
	ErrNoAdapters = errors.New("no channel adapters registered")

	// ErrAdapterNotFound is recorded as a channel failure when a notification
	// enables a channel no adapter serves.
	ErrAdapterNotFound = errors.New("no adapter registered for channel")

	// ErrSendTimeout is recorded as the failure reason when an adapter call
	// exceeds the send timeout.
	ErrSendTimeout = errors.New("send timed out")

	// ErrSchedulerAlreadyStarted is returned when Start is called twice.
	ErrSchedulerAlreadyStarted = errors.New("scheduler already started")

	// ErrSchedulerNotStarted is returned when Stop is called before Start.
	ErrSchedulerNotStarted = errors.New("scheduler not started")
)
