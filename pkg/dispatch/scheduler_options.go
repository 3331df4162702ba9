package dispatch

import (
	"log/slog"
	"time"
)

// SchedulerOption is a functional option for configuring a scheduler.
type SchedulerOption func(*schedulerOptions)

type schedulerOptions struct {
	cleaner  Cleaner
	interval time.Duration
	cleanup  time.Duration
	logger   *slog.Logger
}

// WithPassInterval sets how often delivery passes run.
func WithPassInterval(d time.Duration) SchedulerOption {
	return func(o *schedulerOptions) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithCleaner enables a periodic cleanup cycle for expired notifications.
func WithCleaner(c Cleaner) SchedulerOption {
	return func(o *schedulerOptions) {
		o.cleaner = c
	}
}

// WithCleanupInterval sets how often the cleanup cycle runs. It has no
// effect unless a cleaner is set.
func WithCleanupInterval(d time.Duration) SchedulerOption {
	return func(o *schedulerOptions) {
		if d > 0 {
			o.cleanup = d
		}
	}
}

// WithSchedulerLogger sets the logger for the scheduler.
func WithSchedulerLogger(log *slog.Logger) SchedulerOption {
	return func(o *schedulerOptions) {
		if log != nil {
			o.logger = log
		}
	}
}
