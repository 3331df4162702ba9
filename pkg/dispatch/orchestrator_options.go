package dispatch

import (
	"log/slog"
	"time"
)

// OrchestratorOption is a functional option for configuring an orchestrator.
type OrchestratorOption func(*orchestratorOptions)

type orchestratorOptions struct {
	claimer       Claimer
	backoff       BackoffStrategy
	batchSize     int
	sendTimeout   time.Duration
	claimLease    time.Duration
	maxConcurrent int
	logger        *slog.Logger
}

// WithClaimer overrides the default storage-backed claimer.
func WithClaimer(c Claimer) OrchestratorOption {
	return func(o *orchestratorOptions) {
		if c != nil {
			o.claimer = c
		}
	}
}

// WithBackoff sets the retry backoff strategy.
func WithBackoff(b BackoffStrategy) OrchestratorOption {
	return func(o *orchestratorOptions) {
		if b != nil {
			o.backoff = b
		}
	}
}

// WithBatchSize caps how many due notifications one pass processes.
func WithBatchSize(n int) OrchestratorOption {
	return func(o *orchestratorOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithSendTimeout bounds each adapter call. An adapter that exceeds it is
// recorded as a channel failure.
func WithSendTimeout(d time.Duration) OrchestratorOption {
	return func(o *orchestratorOptions) {
		if d > 0 {
			o.sendTimeout = d
		}
	}
}

// WithClaimLease sets how long a claim protects a notification before other
// workers may steal it. Keep it comfortably above the send timeout.
func WithClaimLease(d time.Duration) OrchestratorOption {
	return func(o *orchestratorOptions) {
		if d > 0 {
			o.claimLease = d
		}
	}
}

// WithMaxConcurrent sets how many notifications one pass delivers in
// parallel.
func WithMaxConcurrent(n int) OrchestratorOption {
	return func(o *orchestratorOptions) {
		if n > 0 {
			o.maxConcurrent = n
		}
	}
}

// WithOrchestratorLogger sets the logger for the orchestrator.
func WithOrchestratorLogger(log *slog.Logger) OrchestratorOption {
	return func(o *orchestratorOptions) {
		if log != nil {
			o.logger = log
		}
	}
}
