package notification_test

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/visakit/pkg/notification"
)

// Example_createAndRead demonstrates the producer and read-side flow.
func Example_createAndRead() {
	ctx := context.Background()

	store := notification.NewMemoryStorage()
	svc, err := notification.NewService(store)
	if err != nil {
		panic(err)
	}

	// No channel selected: the in-app channel is enabled automatically.
	n, err := svc.Create(ctx, notification.CreateParams{
		UserID:    "user-42",
		EventType: notification.EventApplicationSubmitted,
		Title:     "Application submitted",
		Message:   "Your visa application has been submitted for review.",
	})
	if err != nil {
		panic(err)
	}

	fmt.Println("status:", n.Status)
	fmt.Println("in-app enabled:", n.Channels.InApp)

	count, err := svc.UnreadCount(ctx, "user-42")
	if err != nil {
		panic(err)
	}
	fmt.Println("unread:", count)

	if _, err := svc.MarkRead(ctx, n.ID, "user-42"); err != nil {
		panic(err)
	}

	count, err = svc.UnreadCount(ctx, "user-42")
	if err != nil {
		panic(err)
	}
	fmt.Println("unread after read:", count)

	// Output:
	// status: pending
	// in-app enabled: true
	// unread: 1
	// unread after read: 0
}

// Example_scheduledNotification demonstrates deferring delivery.
func Example_scheduledNotification() {
	ctx := context.Background()

	store := notification.NewMemoryStorage()
	svc, err := notification.NewService(store)
	if err != nil {
		panic(err)
	}

	remindAt := time.Now().Add(24 * time.Hour)
	n, err := svc.Create(ctx, notification.CreateParams{
		UserID:       "user-42",
		EventType:    notification.EventBiometricsScheduled,
		Title:        "Biometrics reminder",
		Message:      "Your biometrics appointment is tomorrow.",
		Priority:     notification.PriorityHigh,
		Channels:     notification.Channels{InApp: true, SMS: true},
		ScheduledFor: &remindAt,
	})
	if err != nil {
		panic(err)
	}

	fmt.Println("due now:", n.IsDue(time.Now()))

	due, err := store.DueForDelivery(ctx, 10)
	if err != nil {
		panic(err)
	}
	fmt.Println("in due query:", len(due))

	// Output:
	// due now: false
	// in due query: 0
}
