// Package notification holds the durable record model for the visa portal's
// notification pipeline and the read-side service the UI layer consumes.
//
// # Architecture
//
// The package follows a layered design:
//
//   - Notification: one user-facing event with independent per-channel
//     delivery state and a derived aggregate status
//   - Storage: persistence contract shared by the orchestrator, the
//     scheduler, and the read side
//   - Service: producer interface (Create) plus read-side operations
//     (list, unread count, read/unread, archive, expiry cleanup)
//
// Delivery state is only ever mutated through Storage.Mutate, a single
// atomic read-modify-write, so concurrent channel completions and aggregate
// recomputation cannot lose updates. Workers acquire exclusive delivery
// rights through Storage.Claim before touching a record.
//
// # Aggregate status
//
// Status is derived, never set by callers. DeriveStatus is pure over the
// per-channel state: delivered when every enabled channel confirmed
// delivery, failed when every enabled channel failed, sent when everything
// went out but not everything is confirmed, pending otherwise.
//
// # Storage implementations
//
// MemoryStorage backs tests and local development. MongoStorage is the
// production record store; PostgresStorage is provided for deployments that
// keep the portal's relational database as the system of record. Both
// implement the claim as a conditional update so concurrent workers on the
// same due set cannot double-process a record.
//
// # Basic usage
//
//	store := notification.NewMemoryStorage()
//	svc, _ := notification.NewService(store)
//
//	n, err := svc.Create(ctx, notification.CreateParams{
//	    UserID:    "user-42",
//	    EventType: notification.EventVisaApproved,
//	    Title:     "Your visa has been approved",
//	    Message:   "Congratulations! Your application #A-1001 was approved.",
//	    Channels:  notification.Channels{InApp: true, Email: true},
//	    Priority:  notification.PriorityHigh,
//	})
package notification
