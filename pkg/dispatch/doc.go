// Package dispatch drives notification delivery: it claims due
// notifications, fans each one out to its enabled channel adapters, applies
// the outcomes in a single atomic storage mutation, and manages the retry
// budget with backoff.
//
// # Orchestrator
//
// The Orchestrator owns one delivery pass: query due notifications, claim
// each with an exclusive lease, call every eligible adapter concurrently
// under a send timeout, then persist sent/failed flags and recompute the
// aggregate status. When an attempt leaves failed channels behind and retry
// budget remains, the failed flags are cleared, the record returns to
// pending and ScheduledFor is pushed out by the backoff strategy. When the
// budget is spent the record stays failed and is no longer due.
//
//	orch, err := dispatch.NewOrchestrator(store, []channel.Adapter{
//		channel.NewInAppAdapter(),
//		emailAdapter,
//	}, dispatch.WithSendTimeout(15*time.Second))
//
// Providers report back asynchronously too: ConfirmDelivery records a
// delivery receipt for one channel, RecordChannelFailure records a bounce or
// a dead device token. Both recompute the aggregate under the same mutation
// discipline, so a webhook landing mid-pass cannot lose updates.
//
// # Claiming
//
// Claims default to the storage backend's conditional update
// (StorageClaimer). RedisClaimer moves the lease into Redis keys with TTL,
// which keeps claim contention off the primary store when many workers share
// it. Either way a lost claim race is silent: the notification is simply
// skipped this pass.
//
// # Scheduler
//
// The Scheduler runs passes on an interval, immediately when Wake is called,
// and optionally a slower cleanup cycle that purges expired notifications.
// It follows the usual Start/Stop lifecycle and offers Run for errgroup
// composition:
//
//	sched, err := dispatch.NewScheduler(orch,
//		dispatch.WithPassInterval(30*time.Second),
//		dispatch.WithCleaner(svc),
//	)
//	g.Go(sched.Run(ctx))
package dispatch
