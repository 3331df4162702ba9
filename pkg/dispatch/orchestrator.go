package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/visakit/pkg/channel"
	"github.com/dmitrymomot/visakit/pkg/logger"
	"github.com/dmitrymomot/visakit/pkg/notification"
)

// PassStats summarizes one delivery pass.
type PassStats struct {
	Due       int // notifications returned by the due query
	Claimed   int // successfully claimed and attempted
	Skipped   int // lost the claim race to another worker
	Delivered int // reached aggregate delivered during this pass
	Failed    int // at least one channel failed during this pass
}

// Orchestrator drives notifications through their channel adapters. It owns
// the claim/deliver/release cycle and the retry policy; all state changes go
// through a single Mutate per attempt so concurrent workers and webhook
// confirmations never clobber each other.
type Orchestrator struct {
	store    notification.Storage
	claimer  Claimer
	adapters map[notification.Channel]channel.Adapter
	backoff  BackoffStrategy
	workerID string
	logger   *slog.Logger

	batchSize     int
	sendTimeout   time.Duration
	claimLease    time.Duration
	maxConcurrent int
}

// NewOrchestrator creates an orchestrator over the given storage and
// adapters. Every adapter serves the channel its Name reports; registering
// two adapters for one channel keeps the last.
func NewOrchestrator(store notification.Storage, adapters []channel.Adapter, opts ...OrchestratorOption) (*Orchestrator, error) {
	if store == nil {
		return nil, ErrStorageNil
	}
	if len(adapters) == 0 {
		return nil, ErrNoAdapters
	}

	options := &orchestratorOptions{
		backoff:       ExponentialBackoff{InitialInterval: 30 * time.Second, MaxInterval: 15 * time.Minute, Multiplier: 2, JitterFactor: 0.2},
		batchSize:     100,
		sendTimeout:   30 * time.Second,
		claimLease:    2 * time.Minute,
		maxConcurrent: 4,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	byChannel := make(map[notification.Channel]channel.Adapter, len(adapters))
	for _, a := range adapters {
		byChannel[a.Name()] = a
	}

	o := &Orchestrator{
		store:         store,
		claimer:       options.claimer,
		adapters:      byChannel,
		backoff:       options.backoff,
		workerID:      uuid.New().String(),
		logger:        options.logger,
		batchSize:     options.batchSize,
		sendTimeout:   options.sendTimeout,
		claimLease:    options.claimLease,
		maxConcurrent: options.maxConcurrent,
	}
	if o.claimer == nil {
		o.claimer = NewStorageClaimer(store)
	}
	return o, nil
}

// WorkerID returns the identity this orchestrator claims under.
func (o *Orchestrator) WorkerID() string {
	return o.workerID
}

// RunDeliveryPass queries due notifications and attempts delivery for each.
// Claim conflicts are normal under multi-worker operation and are skipped
// silently; per-notification delivery errors are logged and never abort the
// pass.
func (o *Orchestrator) RunDeliveryPass(ctx context.Context) (PassStats, error) {
	var stats PassStats

	due, err := o.store.DueForDelivery(ctx, o.batchSize)
	if err != nil {
		return stats, fmt.Errorf("failed to query due notifications: %w", err)
	}
	stats.Due = len(due)
	if len(due) == 0 {
		return stats, nil
	}

	sem := make(chan struct{}, o.maxConcurrent)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, n := range due {
		claimed, err := o.claimer.Claim(ctx, n.ID, o.workerID, o.claimLease)
		if err != nil {
			if errors.Is(err, notification.ErrClaimConflict) {
				stats.Skipped++
				continue
			}
			o.logger.ErrorContext(ctx, "failed to claim notification",
				logger.NotificationID(n.ID),
				logger.WorkerID(o.workerID),
				logger.Error(err))
			continue
		}
		stats.Claimed++

		sem <- struct{}{}
		wg.Add(1)
		go func(n *notification.Notification) {
			defer wg.Done()
			defer func() { <-sem }()

			updated, err := o.deliver(ctx, n)
			if rerr := o.claimer.Release(ctx, n.ID, o.workerID); rerr != nil && !errors.Is(rerr, notification.ErrNotClaimed) {
				o.logger.WarnContext(ctx, "failed to release claim",
					logger.NotificationID(n.ID),
					logger.WorkerID(o.workerID),
					logger.Error(rerr))
			}
			if err != nil {
				o.logger.ErrorContext(ctx, "delivery attempt failed",
					logger.NotificationID(n.ID),
					logger.WorkerID(o.workerID),
					logger.Error(err))
				return
			}

			mu.Lock()
			switch updated.Status {
			case notification.StatusDelivered:
				stats.Delivered++
			case notification.StatusFailed:
				stats.Failed++
			default:
				if anyChannelFailed(n, updated) {
					stats.Failed++
				}
			}
			mu.Unlock()
		}(claimed)
	}

	wg.Wait()
	return stats, nil
}

// channelOutcome is the result of one adapter call within an attempt.
type channelOutcome struct {
	ch        notification.Channel
	messageID string
	err       error
}

// deliver fans the notification out to every enabled channel that is neither
// delivered nor marked failed from the current attempt cycle, then applies
// all outcomes in one atomic mutation.
func (o *Orchestrator) deliver(ctx context.Context, n *notification.Notification) (*notification.Notification, error) {
	start := time.Now()

	var targets []notification.Channel
	for _, ch := range n.Channels.Enabled() {
		st := n.ChannelStateFor(ch)
		if st == nil || st.Delivered || st.Failed {
			continue
		}
		targets = append(targets, ch)
	}

	outcomes := make([]channelOutcome, len(targets))
	var wg sync.WaitGroup
	for i, ch := range targets {
		adapter, ok := o.adapters[ch]
		if !ok {
			outcomes[i] = channelOutcome{ch: ch, err: fmt.Errorf("%w: %s", ErrAdapterNotFound, ch)}
			continue
		}

		wg.Add(1)
		go func(i int, ch notification.Channel, adapter channel.Adapter) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = channelOutcome{ch: ch, err: fmt.Errorf("panic in adapter %s: %v", ch, r)}
				}
			}()

			sctx, cancel := context.WithTimeout(ctx, o.sendTimeout)
			defer cancel()

			res, err := adapter.Send(sctx, n)
			if err != nil && errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%w after %s", ErrSendTimeout, o.sendTimeout)
			}
			outcomes[i] = channelOutcome{ch: ch, messageID: res.MessageID, err: err}
		}(i, ch, adapter)
	}
	wg.Wait()

	updated, err := o.store.Mutate(ctx, n.ID, func(cur *notification.Notification) error {
		now := time.Now()
		for _, out := range outcomes {
			st := cur.ChannelStateFor(out.ch)
			if st == nil || st.Delivered {
				continue
			}
			if out.err != nil {
				st.Failed = true
				st.FailureReason = out.err.Error()
				continue
			}
			st.Sent = true
			st.SentAt = &now
			st.Failed = false
			if out.messageID != "" {
				st.MessageID = out.messageID
			}
			// An in-app notification is delivered the moment the record
			// exists; there is no downstream confirmation for it.
			if out.ch == notification.ChannelInApp {
				st.Delivered = true
				st.DeliveredAt = &now
			}
		}

		cur.Status = notification.DeriveStatus(cur.Delivery)
		applyRetryPolicy(cur, now, o.backoff)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist delivery outcome: %w", err)
	}

	o.logger.InfoContext(ctx, "delivery attempt completed",
		logger.NotificationID(updated.ID),
		logger.WorkerID(o.workerID),
		slog.String("status", string(updated.Status)),
		logger.RetryCount(updated.RetryCount),
		slog.Int("channels_attempted", len(targets)),
		logger.Duration(time.Since(start)))

	return updated, nil
}

// applyRetryPolicy consumes one unit of retry budget when the attempt left
// failed channels behind. While budget remains the failed flags are cleared
// (the reasons are kept for diagnostics), the aggregate goes back to pending
// and the next attempt is pushed out by the backoff strategy. Once the
// budget is spent the record keeps its failed flags and stops being due.
func applyRetryPolicy(cur *notification.Notification, now time.Time, backoff BackoffStrategy) {
	if cur.Status == notification.StatusDelivered {
		return
	}

	failed := false
	for _, st := range cur.Delivery {
		if st != nil && st.Failed {
			failed = true
			break
		}
	}
	if !failed || cur.RetryCount >= cur.MaxRetries {
		return
	}

	cur.RetryCount++
	cur.LastRetryAt = &now

	if cur.RetryCount < cur.MaxRetries {
		for _, st := range cur.Delivery {
			if st != nil {
				st.Failed = false
			}
		}
		if cur.Status == notification.StatusFailed {
			cur.Status = notification.StatusPending
		}
		next := now.Add(backoff.NextInterval(cur.RetryCount))
		cur.ScheduledFor = &next
	}
}

// anyChannelFailed reports whether the attempt introduced a channel failure
// that the retry policy already absorbed back into pending state.
func anyChannelFailed(before, after *notification.Notification) bool {
	if after.RetryCount > before.RetryCount {
		return true
	}
	for _, st := range after.Delivery {
		if st != nil && st.Failed {
			return true
		}
	}
	return false
}

// RetryDelivery forces an immediate delivery attempt for a notification that
// has retry budget left. Unlike the scheduler path it ignores ScheduledFor.
// Returns notification.ErrRetryExhausted, without touching the record, when
// the budget is spent, and notification.ErrClaimConflict when a worker holds
// the record right now.
func (o *Orchestrator) RetryDelivery(ctx context.Context, id string) (*notification.Notification, error) {
	current, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.RetryCount >= current.MaxRetries {
		return nil, notification.ErrRetryExhausted
	}

	claimed, err := o.claimer.Claim(ctx, id, o.workerID, o.claimLease)
	if err != nil {
		return nil, err
	}

	updated, err := o.deliver(ctx, claimed)
	if rerr := o.claimer.Release(ctx, id, o.workerID); rerr != nil && !errors.Is(rerr, notification.ErrNotClaimed) {
		o.logger.WarnContext(ctx, "failed to release claim",
			logger.NotificationID(id),
			logger.WorkerID(o.workerID),
			logger.Error(rerr))
	}
	return updated, err
}

// ConfirmDelivery records a provider delivery confirmation (a webhook "the
// message reached the device/inbox" event) for one channel and recomputes
// the aggregate. messageID, when non-empty, overwrites the stored provider
// reference. Confirmation is idempotent.
func (o *Orchestrator) ConfirmDelivery(ctx context.Context, id string, ch notification.Channel, messageID string) (*notification.Notification, error) {
	updated, err := o.store.Mutate(ctx, id, func(cur *notification.Notification) error {
		st := cur.ChannelStateFor(ch)
		if st == nil {
			return fmt.Errorf("%w: %s", notification.ErrChannelNotEnabled, ch)
		}

		now := time.Now()
		if !st.Sent {
			st.Sent = true
			st.SentAt = &now
		}
		if !st.Delivered {
			st.Delivered = true
			st.DeliveredAt = &now
		}
		st.Failed = false
		if messageID != "" {
			st.MessageID = messageID
		}

		cur.Status = notification.DeriveStatus(cur.Delivery)
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.InfoContext(ctx, "delivery confirmed",
		logger.NotificationID(id),
		logger.Channel(string(ch)),
		slog.String("status", string(updated.Status)))

	return updated, nil
}

// RecordChannelFailure records an asynchronous provider failure (a bounce,
// an invalid device token) for one channel. A channel already confirmed
// delivered ignores late failures. The retry policy applies exactly as it
// does for synchronous send failures.
func (o *Orchestrator) RecordChannelFailure(ctx context.Context, id string, ch notification.Channel, reason string) (*notification.Notification, error) {
	updated, err := o.store.Mutate(ctx, id, func(cur *notification.Notification) error {
		st := cur.ChannelStateFor(ch)
		if st == nil {
			return fmt.Errorf("%w: %s", notification.ErrChannelNotEnabled, ch)
		}
		if st.Delivered {
			return nil
		}

		st.Failed = true
		st.FailureReason = reason

		now := time.Now()
		cur.Status = notification.DeriveStatus(cur.Delivery)
		applyRetryPolicy(cur, now, o.backoff)
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.WarnContext(ctx, "channel failure recorded",
		logger.NotificationID(id),
		logger.Channel(string(ch)),
		slog.String("reason", reason),
		slog.String("status", string(updated.Status)))

	return updated, nil
}
