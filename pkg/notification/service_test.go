package notification_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/visakit/pkg/notification"
)

type countingWaker struct {
	wakes atomic.Int64
}

func (w *countingWaker) Wake() {
	w.wakes.Add(1)
}

func newTestService(t *testing.T, opts ...notification.ServiceOption) (*notification.Service, *notification.MemoryStorage) {
	t.Helper()

	store := notification.NewMemoryStorage()
	svc, err := notification.NewService(store, opts...)
	require.NoError(t, err)
	return svc, store
}

func TestService_New(t *testing.T) {
	t.Parallel()

	_, err := notification.NewService(nil)
	assert.ErrorIs(t, err, notification.ErrStorageNil)
}

func TestService_CreateDefaults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _ := newTestService(t)

	n, err := svc.Create(ctx, notification.CreateParams{
		UserID:    "user-1",
		EventType: notification.EventInterviewScheduled,
		Title:     "Interview scheduled",
		Message:   "Your interview is on Monday at 10:00.",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, notification.StatusPending, n.Status)
	assert.Equal(t, notification.PriorityNormal, n.Priority)
	assert.Equal(t, notification.DefaultMaxRetries, n.MaxRetries)

	// No channel selected falls back to in-app.
	assert.True(t, n.Channels.InApp)
	require.NotNil(t, n.Delivery[notification.ChannelInApp])
	assert.False(t, n.Delivery[notification.ChannelInApp].Sent)
}

func TestService_CreateValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, store := newTestService(t)

	tests := []struct {
		name    string
		params  notification.CreateParams
		wantErr error
	}{
		{
			name: "missing user",
			params: notification.CreateParams{
				EventType: notification.EventVisaApproved,
				Title:     "t",
				Message:   "m",
			},
			wantErr: notification.ErrMissingUserID,
		},
		{
			name: "unknown event type",
			params: notification.CreateParams{
				UserID:    "user-1",
				EventType: "login_attempt",
				Title:     "t",
				Message:   "m",
			},
			wantErr: notification.ErrInvalidEventType,
		},
		{
			name: "missing title",
			params: notification.CreateParams{
				UserID:    "user-1",
				EventType: notification.EventVisaApproved,
				Message:   "m",
			},
			wantErr: notification.ErrMissingTitle,
		},
		{
			name: "invalid priority",
			params: notification.CreateParams{
				UserID:    "user-1",
				EventType: notification.EventVisaApproved,
				Title:     "t",
				Message:   "m",
				Priority:  "asap",
			},
			wantErr: notification.ErrInvalidPriority,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Nothing was persisted.
	list, err := store.ListForUser(ctx, "user-1", notification.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_CreateWakesScheduler(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	waker := &countingWaker{}
	svc, _ := newTestService(t, notification.WithWaker(waker))

	_, err := svc.Create(ctx, notification.CreateParams{
		UserID:    "user-1",
		EventType: notification.EventPaymentPending,
		Title:     "Payment required",
		Message:   "Pay the application fee to proceed.",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), waker.wakes.Load())

	// A future-scheduled notification does not wake the scheduler.
	future := time.Now().Add(time.Hour)
	_, err = svc.Create(ctx, notification.CreateParams{
		UserID:       "user-1",
		EventType:    notification.EventApplicationExpiring,
		Title:        "Application expiring",
		Message:      "Your draft application expires soon.",
		ScheduledFor: &future,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), waker.wakes.Load())
}

func TestService_MarkReadIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _ := newTestService(t)

	n, err := svc.Create(ctx, notification.CreateParams{
		UserID:    "user-1",
		EventType: notification.EventDocumentApproved,
		Title:     "Document approved",
		Message:   "Your bank statement was accepted.",
	})
	require.NoError(t, err)

	first, err := svc.MarkRead(ctx, n.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, first.IsRead)
	require.NotNil(t, first.ReadAt)
	assert.Equal(t, "user-1", first.ReadBy)

	time.Sleep(5 * time.Millisecond)

	// Repeat keeps the original timestamp but may update the actor.
	second, err := svc.MarkRead(ctx, n.ID, "agent-7")
	require.NoError(t, err)
	assert.Equal(t, *first.ReadAt, *second.ReadAt)
	assert.Equal(t, "agent-7", second.ReadBy)

	_, err = svc.MarkRead(ctx, "missing", "user-1")
	assert.ErrorIs(t, err, notification.ErrNotFound)
}

func TestService_MarkUnread(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _ := newTestService(t)

	n, err := svc.Create(ctx, notification.CreateParams{
		UserID:    "user-1",
		EventType: notification.EventBiometricsScheduled,
		Title:     "Biometrics scheduled",
		Message:   "Visit the application center on Friday.",
	})
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, n.ID, "user-1")
	require.NoError(t, err)

	got, err := svc.MarkUnread(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, got.IsRead)
	assert.Nil(t, got.ReadAt)
	assert.Empty(t, got.ReadBy)

	count, err := svc.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestService_MarkAllRead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _ := newTestService(t)

	// More than one page of unread notifications.
	for range notification.DefaultPageSize + 5 {
		_, err := svc.Create(ctx, notification.CreateParams{
			UserID:    "user-1",
			EventType: notification.EventSystemAnnouncement,
			Title:     "Announcement",
			Message:   "Service hours change next week.",
		})
		require.NoError(t, err)
	}
	// Another user's notification stays untouched.
	other, err := svc.Create(ctx, notification.CreateParams{
		UserID:    "user-2",
		EventType: notification.EventSystemAnnouncement,
		Title:     "Announcement",
		Message:   "Service hours change next week.",
	})
	require.NoError(t, err)

	marked, err := svc.MarkAllRead(ctx, "user-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, notification.DefaultPageSize+5, marked)

	count, err := svc.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	got, err := svc.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, got.IsRead)
}

func TestService_ArchiveLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _ := newTestService(t)

	n, err := svc.Create(ctx, notification.CreateParams{
		UserID:    "user-1",
		EventType: notification.EventVisaRejected,
		Title:     "Decision available",
		Message:   "A decision has been made on your application.",
	})
	require.NoError(t, err)

	first, err := svc.Archive(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, first.Archived)
	require.NotNil(t, first.ArchivedAt)

	time.Sleep(5 * time.Millisecond)

	// Archiving twice keeps the first timestamp.
	second, err := svc.Archive(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.ArchivedAt, *second.ArchivedAt)

	// Archived records leave the default list view.
	list, err := svc.List(ctx, "user-1", notification.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)

	restored, err := svc.Unarchive(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, restored.Archived)
	assert.Nil(t, restored.ArchivedAt)

	list, err = svc.List(ctx, "user-1", notification.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_CleanupExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, store := newTestService(t)

	past := time.Now().Add(-time.Minute)
	n, err := svc.Create(ctx, notification.CreateParams{
		UserID:    "user-1",
		EventType: notification.EventSystemAnnouncement,
		Title:     "Maintenance tonight",
		Message:   "The portal will be down for maintenance.",
		Metadata:  notification.Metadata{ExpiresAt: &past},
	})
	require.NoError(t, err)

	_, err = svc.Archive(ctx, n.ID)
	require.NoError(t, err)

	deleted, err := svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = store.Get(ctx, n.ID)
	assert.ErrorIs(t, err, notification.ErrNotFound)
}
