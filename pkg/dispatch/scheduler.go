package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/visakit/pkg/logger"
)

// Cleaner removes expired notifications. Satisfied by
// notification.Service.CleanupExpired.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// Scheduler runs delivery passes on a fixed interval, plus immediately when
// Wake is called (a producer just created a due notification). It optionally
// runs a slower cleanup cycle for expired records.
type Scheduler struct {
	orch     *Orchestrator
	cleaner  Cleaner
	interval time.Duration
	cleanup  time.Duration
	logger   *slog.Logger

	wake   chan struct{}
	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler around the orchestrator.
func NewScheduler(orch *Orchestrator, opts ...SchedulerOption) (*Scheduler, error) {
	if orch == nil {
		return nil, ErrStorageNil
	}

	options := &schedulerOptions{
		interval: 30 * time.Second,
		cleanup:  time.Hour,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Scheduler{
		orch:     orch,
		cleaner:  options.cleaner,
		interval: options.interval,
		cleanup:  options.cleanup,
		logger:   options.logger,
		wake:     make(chan struct{}, 1),
	}, nil
}

// Wake asks for a delivery pass as soon as possible. Safe to call from any
// goroutine; repeated wakes before the pass starts coalesce into one.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start begins running passes in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrSchedulerAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(runCtx)

	if s.cleaner != nil && s.cleanup > 0 {
		s.wg.Add(1)
		go s.runCleanup(runCtx)
	}

	s.logger.Info("scheduler started",
		logger.WorkerID(s.orch.WorkerID()),
		slog.Duration("pass_interval", s.interval))

	return nil
}

// Stop cancels the loops and waits for the in-flight pass to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return ErrSchedulerNotStarted
	}

	cancel()
	s.wg.Wait()

	s.logger.Info("scheduler stopped", logger.WorkerID(s.orch.WorkerID()))
	return nil
}

// Run starts the scheduler and returns a function suitable for errgroup.
func (s *Scheduler) Run(ctx context.Context) func() error {
	return func() error {
		if err := s.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return s.Stop()
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pass(ctx)
		case <-s.wake:
			s.pass(ctx)
		}
	}
}

func (s *Scheduler) pass(ctx context.Context) {
	start := time.Now()

	stats, err := s.orch.RunDeliveryPass(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "delivery pass failed",
			logger.WorkerID(s.orch.WorkerID()),
			logger.Error(err))
		return
	}
	if stats.Due == 0 {
		return
	}

	s.logger.InfoContext(ctx, "delivery pass completed",
		logger.WorkerID(s.orch.WorkerID()),
		slog.Int("due", stats.Due),
		slog.Int("claimed", stats.Claimed),
		slog.Int("skipped", stats.Skipped),
		slog.Int("delivered", stats.Delivered),
		slog.Int("failed", stats.Failed),
		logger.Duration(time.Since(start)))
}

func (s *Scheduler) runCleanup(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.cleaner.CleanupExpired(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "cleanup cycle failed", logger.Error(err))
				continue
			}
			if deleted > 0 {
				s.logger.InfoContext(ctx, "expired notifications removed",
					slog.Int("deleted", deleted))
			}
		}
	}
}
