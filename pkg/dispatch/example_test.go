package dispatch_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/visakit/pkg/channel"
	"github.com/dmitrymomot/visakit/pkg/dispatch"
	"github.com/dmitrymomot/visakit/pkg/notification"
)

// Example_deliveryPass demonstrates a single manual delivery pass.
func Example_deliveryPass() {
	ctx := context.Background()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := notification.NewMemoryStorage()
	svc, err := notification.NewService(store, notification.WithServiceLogger(quiet))
	if err != nil {
		panic(err)
	}

	orch, err := dispatch.NewOrchestrator(store,
		[]channel.Adapter{channel.NewInAppAdapter()},
		dispatch.WithOrchestratorLogger(quiet),
	)
	if err != nil {
		panic(err)
	}

	n, err := svc.Create(ctx, notification.CreateParams{
		UserID:    "user-42",
		EventType: notification.EventVisaApproved,
		Title:     "Visa approved",
		Message:   "Congratulations, your visa has been approved.",
		Priority:  notification.PriorityUrgent,
	})
	if err != nil {
		panic(err)
	}

	stats, err := orch.RunDeliveryPass(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Println("claimed:", stats.Claimed)

	got, err := store.Get(ctx, n.ID)
	if err != nil {
		panic(err)
	}
	fmt.Println("status:", got.Status)

	// Output:
	// claimed: 1
	// status: delivered
}

// Example_scheduler demonstrates running the background scheduler with an
// immediate wake on creation.
func Example_scheduler() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := notification.NewMemoryStorage()

	orch, err := dispatch.NewOrchestrator(store,
		[]channel.Adapter{channel.NewInAppAdapter()},
		dispatch.WithOrchestratorLogger(quiet),
	)
	if err != nil {
		panic(err)
	}

	sched, err := dispatch.NewScheduler(orch,
		dispatch.WithPassInterval(time.Hour),
		dispatch.WithSchedulerLogger(quiet),
	)
	if err != nil {
		panic(err)
	}

	svc, err := notification.NewService(store,
		notification.WithServiceLogger(quiet),
		notification.WithWaker(sched),
	)
	if err != nil {
		panic(err)
	}

	if err := sched.Start(ctx); err != nil {
		panic(err)
	}
	defer func() { _ = sched.Stop() }()

	n, err := svc.Create(ctx, notification.CreateParams{
		UserID:    "user-42",
		EventType: notification.EventPassportReady,
		Title:     "Passport ready",
		Message:   "Your passport is ready for collection.",
	})
	if err != nil {
		panic(err)
	}

	for {
		got, err := store.Get(ctx, n.ID)
		if err != nil {
			panic(err)
		}
		if got.Status == notification.StatusDelivered {
			fmt.Println("status:", got.Status)
			break
		}
		select {
		case <-ctx.Done():
			panic(ctx.Err())
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Output:
	// status: delivered
}
