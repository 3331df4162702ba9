package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/visakit/pkg/logger"
)

// Waker is implemented by the dispatch scheduler so that creating a
// notification that is already due triggers an immediate delivery pass
// instead of waiting for the next tick.
type Waker interface {
	Wake()
}

// Service exposes the producer and read-side operations over a Storage.
// Delivery-state mutations are the orchestrator's job; the service only
// creates records and manages read/archive lifecycle.
type Service struct {
	storage Storage
	waker   Waker
	logger  *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger for the Service.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithWaker wires the dispatch scheduler wake hook.
func WithWaker(w Waker) ServiceOption {
	return func(s *Service) {
		s.waker = w
	}
}

// NewService creates a notification service backed by the given storage.
func NewService(storage Storage, opts ...ServiceOption) (*Service, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}

	s := &Service{
		storage: storage,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// CreateParams carries everything a producer supplies for a new notification.
type CreateParams struct {
	UserID       string
	EventType    EventType
	Title        string
	Message      string
	Channels     Channels
	Priority     Priority
	Metadata     Metadata
	RelatedID    string
	RelatedType  string
	ScheduledFor *time.Time
	MaxRetries   int // 0 means DefaultMaxRetries
}

// Create validates and persists a new notification in pending state with
// all enabled channels unsent. When no channel is selected the in-app
// channel is enabled, so every notification is at least visible in the
// portal. A notification that is due immediately wakes the scheduler.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Notification, error) {
	channels := params.Channels
	if channels.None() {
		channels.InApp = true
	}

	priority := params.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	now := time.Now()
	n := &Notification{
		ID:           uuid.New().String(),
		UserID:       params.UserID,
		RelatedID:    params.RelatedID,
		RelatedType:  params.RelatedType,
		EventType:    params.EventType,
		Priority:     priority,
		Title:        params.Title,
		Message:      params.Message,
		Metadata:     params.Metadata,
		Channels:     channels,
		Status:       StatusPending,
		MaxRetries:   maxRetries,
		ScheduledFor: params.ScheduledFor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	n.Normalize()

	if err := n.Validate(); err != nil {
		return nil, err
	}

	if err := s.storage.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	s.logger.LogAttrs(ctx, slog.LevelDebug, "notification created",
		logger.NotificationID(n.ID),
		logger.UserID(n.UserID),
		logger.EventType(n.EventType),
	)

	if s.waker != nil && n.IsDue(now) {
		s.waker.Wake()
	}

	return n, nil
}

// Get retrieves a single notification by ID.
func (s *Service) Get(ctx context.Context, id string) (*Notification, error) {
	return s.storage.Get(ctx, id)
}

// List returns a page of the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, opts ListOptions) ([]*Notification, error) {
	return s.storage.ListForUser(ctx, userID, opts)
}

// UnreadCount returns the number of non-archived unread notifications.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.storage.CountUnread(ctx, userID)
}

// MarkRead marks a notification as read. The operation is idempotent:
// marking an already-read notification keeps its original ReadAt but still
// updates ReadBy when an actor is supplied.
func (s *Service) MarkRead(ctx context.Context, id string, actorID string) (*Notification, error) {
	return s.storage.Mutate(ctx, id, func(n *Notification) error {
		if !n.IsRead {
			now := time.Now()
			n.IsRead = true
			n.ReadAt = &now
		}
		if actorID != "" {
			n.ReadBy = actorID
		}
		return nil
	})
}

// MarkUnread clears the read state entirely.
func (s *Service) MarkUnread(ctx context.Context, id string) (*Notification, error) {
	return s.storage.Mutate(ctx, id, func(n *Notification) error {
		n.IsRead = false
		n.ReadAt = nil
		n.ReadBy = ""
		return nil
	})
}

// MarkAllRead marks every unread, non-archived notification of the user as
// read. Each record goes through the same invariant enforcement as a single
// MarkRead.
func (s *Service) MarkAllRead(ctx context.Context, userID string, actorID string) (int, error) {
	marked := 0
	page := 1
	for {
		batch, err := s.storage.ListForUser(ctx, userID, ListOptions{
			Page:       page,
			Limit:      DefaultPageSize,
			UnreadOnly: true,
		})
		if err != nil {
			return marked, err
		}
		if len(batch) == 0 {
			return marked, nil
		}

		for _, n := range batch {
			if _, err := s.MarkRead(ctx, n.ID, actorID); err != nil {
				return marked, err
			}
			marked++
		}

		// Marked records drop out of the unread filter, so the first page
		// is re-queried until it comes back empty.
		page = 1
	}
}

// Archive sets the archived flag. ArchivedAt is recorded on the first
// transition only; repeated calls leave it untouched.
func (s *Service) Archive(ctx context.Context, id string) (*Notification, error) {
	return s.storage.Mutate(ctx, id, func(n *Notification) error {
		if n.Archived {
			return nil
		}
		now := time.Now()
		n.Archived = true
		n.ArchivedAt = &now
		return nil
	})
}

// Unarchive clears the archived flag and its timestamp.
func (s *Service) Unarchive(ctx context.Context, id string) (*Notification, error) {
	return s.storage.Mutate(ctx, id, func(n *Notification) error {
		n.Archived = false
		n.ArchivedAt = nil
		return nil
	})
}

// CleanupExpired permanently deletes archived notifications past their
// metadata expiry.
func (s *Service) CleanupExpired(ctx context.Context) (int, error) {
	deleted, err := s.storage.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired notifications: %w", err)
	}

	if deleted > 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "expired notifications removed",
			slog.Int("deleted", deleted),
		)
	}

	return deleted, nil
}
