package notification

import (
	"context"
	"time"
)

// Storage handles notification persistence. It is the single shared mutable
// resource in the delivery pipeline: workers, the read side, and producers
// all treat it as the source of truth and never cache delivery state.
type Storage interface {
	// Create stores a new notification. Returns ErrAlreadyExists when the
	// ID is taken.
	Create(ctx context.Context, n *Notification) error

	// Get retrieves a single notification by ID.
	Get(ctx context.Context, id string) (*Notification, error)

	// Mutate applies fn to the current persisted state of the notification
	// as a single atomic read-modify-write and returns the updated record.
	// All delivery-state writes go through Mutate so concurrent channel
	// completions never produce lost updates. A non-nil error from fn
	// aborts the write and is returned unchanged.
	Mutate(ctx context.Context, id string, fn func(*Notification) error) (*Notification, error)

	// Claim atomically grants workerID exclusive delivery rights for the
	// lease duration. It succeeds only for pending, unarchived records whose
	// current claim is absent or expired; otherwise ErrClaimConflict.
	Claim(ctx context.Context, id string, workerID string, lease time.Duration) (*Notification, error)

	// Release drops the claim held by workerID. Releasing an unheld claim
	// returns ErrNotClaimed.
	Release(ctx context.Context, id string, workerID string) error

	// DueForDelivery returns up to limit notifications eligible for
	// dispatch: status pending, ScheduledFor absent or in the past,
	// RetryCount < MaxRetries, unarchived, and not actively claimed.
	// Ordering favors priority descending then creation time ascending;
	// callers must not assume strict FIFO.
	DueForDelivery(ctx context.Context, limit int) ([]*Notification, error)

	// ListForUser returns a page of the user's notifications, newest first.
	ListForUser(ctx context.Context, userID string, opts ListOptions) ([]*Notification, error)

	// CountUnread returns the number of non-archived unread notifications.
	CountUnread(ctx context.Context, userID string) (int, error)

	// DeleteExpired permanently removes notifications that are archived and
	// past their metadata expiry. Returns the number of deleted records.
	DeleteExpired(ctx context.Context) (int, error)
}

// ListOptions provides filtering and pagination for ListForUser.
type ListOptions struct {
	Page            int         // 1-based page number; values < 1 mean the first page
	Limit           int         // page size; 0 falls back to DefaultPageSize
	UnreadOnly      bool        // only unread notifications
	Types           []EventType // restrict to these event types when non-empty
	Priority        Priority    // restrict to this priority when set
	IncludeArchived bool        // include archived records
}

// DefaultPageSize bounds list queries when the caller does not set a limit.
const DefaultPageSize = 20

// offsetLimit resolves pagination options into a slice offset and limit.
func (o ListOptions) offsetLimit() (offset, limit int) {
	limit = o.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	page := o.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit, limit
}

// matches reports whether a notification passes the option filters.
// Shared by storage implementations that filter in memory.
func (o ListOptions) matches(n *Notification) bool {
	if !o.IncludeArchived && n.Archived {
		return false
	}
	if o.UnreadOnly && n.IsRead {
		return false
	}
	if o.Priority != "" && n.Priority != o.Priority {
		return false
	}
	if len(o.Types) > 0 {
		found := false
		for _, t := range o.Types {
			if n.EventType == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
