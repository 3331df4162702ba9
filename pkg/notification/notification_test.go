package notification_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/visakit/pkg/notification"
)

func TestDeriveStatus(t *testing.T) {
	t.Parallel()

	sent := &notification.ChannelState{Sent: true}
	delivered := &notification.ChannelState{Sent: true, Delivered: true}
	failed := &notification.ChannelState{Failed: true, FailureReason: "bounce"}
	untouched := &notification.ChannelState{}

	tests := []struct {
		name     string
		delivery map[notification.Channel]*notification.ChannelState
		want     notification.Status
	}{
		{
			name:     "empty map is pending",
			delivery: nil,
			want:     notification.StatusPending,
		},
		{
			name: "all delivered",
			delivery: map[notification.Channel]*notification.ChannelState{
				notification.ChannelInApp: delivered,
				notification.ChannelEmail: delivered,
			},
			want: notification.StatusDelivered,
		},
		{
			name: "all failed",
			delivery: map[notification.Channel]*notification.ChannelState{
				notification.ChannelEmail: failed,
				notification.ChannelSMS:   failed,
			},
			want: notification.StatusFailed,
		},
		{
			name: "all at least sent but not all delivered",
			delivery: map[notification.Channel]*notification.ChannelState{
				notification.ChannelInApp: delivered,
				notification.ChannelEmail: sent,
			},
			want: notification.StatusSent,
		},
		{
			name: "mixed failure and success is pending",
			delivery: map[notification.Channel]*notification.ChannelState{
				notification.ChannelInApp: delivered,
				notification.ChannelEmail: failed,
			},
			want: notification.StatusPending,
		},
		{
			name: "untouched channel keeps the aggregate pending",
			delivery: map[notification.Channel]*notification.ChannelState{
				notification.ChannelEmail: sent,
				notification.ChannelPush:  untouched,
			},
			want: notification.StatusPending,
		},
		{
			name: "single failed channel",
			delivery: map[notification.Channel]*notification.ChannelState{
				notification.ChannelSMS: failed,
			},
			want: notification.StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, notification.DeriveStatus(tt.delivery))
		})
	}
}

func TestDeriveStatus_Deterministic(t *testing.T) {
	t.Parallel()

	delivery := map[notification.Channel]*notification.ChannelState{
		notification.ChannelInApp: {Sent: true, Delivered: true},
		notification.ChannelEmail: {Sent: true},
		notification.ChannelPush:  {Failed: true},
	}

	first := notification.DeriveStatus(delivery)
	for range 10 {
		assert.Equal(t, first, notification.DeriveStatus(delivery))
	}
}

func validNotification() *notification.Notification {
	n := &notification.Notification{
		ID:         "n-1",
		UserID:     "user-1",
		EventType:  notification.EventVisaApproved,
		Title:      "Visa approved",
		Message:    "Congratulations, your visa has been approved.",
		Priority:   notification.PriorityHigh,
		Status:     notification.StatusPending,
		Channels:   notification.Channels{InApp: true, Email: true},
		MaxRetries: notification.DefaultMaxRetries,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	n.Normalize()
	return n
}

func TestNotification_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(n *notification.Notification)
		wantErr error
	}{
		{
			name:   "valid notification",
			mutate: func(n *notification.Notification) {},
		},
		{
			name:    "missing user",
			mutate:  func(n *notification.Notification) { n.UserID = "" },
			wantErr: notification.ErrMissingUserID,
		},
		{
			name:    "unknown event type",
			mutate:  func(n *notification.Notification) { n.EventType = "password_reset" },
			wantErr: notification.ErrInvalidEventType,
		},
		{
			name:    "missing title",
			mutate:  func(n *notification.Notification) { n.Title = "" },
			wantErr: notification.ErrMissingTitle,
		},
		{
			name: "title too long",
			mutate: func(n *notification.Notification) {
				n.Title = strings.Repeat("x", notification.MaxTitleLength+1)
			},
			wantErr: notification.ErrTitleTooLong,
		},
		{
			name:    "missing message",
			mutate:  func(n *notification.Notification) { n.Message = "" },
			wantErr: notification.ErrMissingMessage,
		},
		{
			name: "message too long",
			mutate: func(n *notification.Notification) {
				n.Message = strings.Repeat("x", notification.MaxMessageLength+1)
			},
			wantErr: notification.ErrMessageTooLong,
		},
		{
			name:    "invalid priority",
			mutate:  func(n *notification.Notification) { n.Priority = "critical" },
			wantErr: notification.ErrInvalidPriority,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := validNotification()
			tt.mutate(n)

			err := n.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotification_Normalize(t *testing.T) {
	t.Parallel()

	t.Run("delivery map tracks enabled channels", func(t *testing.T) {
		t.Parallel()

		n := validNotification()
		require.Len(t, n.Delivery, 2)
		assert.NotNil(t, n.Delivery[notification.ChannelInApp])
		assert.NotNil(t, n.Delivery[notification.ChannelEmail])
		assert.Nil(t, n.Delivery[notification.ChannelSMS])

		// Disabling a channel drops its state on the next normalize.
		n.Channels.Email = false
		n.Normalize()
		assert.Nil(t, n.Delivery[notification.ChannelEmail])
	})

	t.Run("read timestamp implies read flag", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		n := validNotification()
		n.ReadAt = &now
		n.Normalize()
		assert.True(t, n.IsRead)
	})

	t.Run("unread clears read fields", func(t *testing.T) {
		t.Parallel()

		n := validNotification()
		n.IsRead = false
		n.ReadAt = nil
		n.ReadBy = "user-1"
		n.Normalize()
		assert.False(t, n.IsRead)
		assert.Empty(t, n.ReadBy)
	})

	t.Run("delivered implies sent", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		n := validNotification()
		n.Delivery[notification.ChannelEmail] = &notification.ChannelState{
			Delivered:   true,
			DeliveredAt: &now,
		}
		n.Normalize()

		st := n.Delivery[notification.ChannelEmail]
		assert.True(t, st.Sent)
		require.NotNil(t, st.SentAt)
		assert.Equal(t, now, *st.SentAt)
	})
}

func TestNotification_IsDue(t *testing.T) {
	t.Parallel()

	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name   string
		mutate func(n *notification.Notification)
		want   bool
	}{
		{
			name:   "pending notification is due",
			mutate: func(n *notification.Notification) {},
			want:   true,
		},
		{
			name:   "sent is not due",
			mutate: func(n *notification.Notification) { n.Status = notification.StatusSent },
			want:   false,
		},
		{
			name:   "archived is not due",
			mutate: func(n *notification.Notification) { n.Archived = true },
			want:   false,
		},
		{
			name:   "scheduled in the future is not due",
			mutate: func(n *notification.Notification) { n.ScheduledFor = &future },
			want:   false,
		},
		{
			name:   "scheduled in the past is due",
			mutate: func(n *notification.Notification) { n.ScheduledFor = &past },
			want:   true,
		},
		{
			name:   "spent retry budget is not due",
			mutate: func(n *notification.Notification) { n.RetryCount = n.MaxRetries },
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := validNotification()
			tt.mutate(n)
			assert.Equal(t, tt.want, n.IsDue(now))
		})
	}
}

func TestNotification_Clone(t *testing.T) {
	t.Parallel()

	n := validNotification()
	n.Delivery[notification.ChannelEmail].Sent = true

	cp := n.Clone()
	cp.Delivery[notification.ChannelEmail].Failed = true
	cp.Title = "changed"

	assert.False(t, n.Delivery[notification.ChannelEmail].Failed)
	assert.Equal(t, "Visa approved", n.Title)
}

func TestChannels_Enabled(t *testing.T) {
	t.Parallel()

	all := notification.Channels{InApp: true, Email: true, SMS: true, Push: true}
	assert.Equal(t, []notification.Channel{
		notification.ChannelInApp,
		notification.ChannelEmail,
		notification.ChannelSMS,
		notification.ChannelPush,
	}, all.Enabled())

	assert.True(t, notification.Channels{}.None())
	assert.False(t, notification.Channels{SMS: true}.None())
}

func TestPriority_Rank(t *testing.T) {
	t.Parallel()

	assert.Greater(t, notification.PriorityUrgent.Rank(), notification.PriorityHigh.Rank())
	assert.Greater(t, notification.PriorityHigh.Rank(), notification.PriorityNormal.Rank())
	assert.Greater(t, notification.PriorityNormal.Rank(), notification.PriorityLow.Rank())
	assert.Greater(t, notification.PriorityLow.Rank(), notification.Priority("bogus").Rank())

	assert.True(t, notification.PriorityLow.Valid())
	assert.False(t, notification.Priority("").Valid())
}
