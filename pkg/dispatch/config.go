package dispatch

import "time"

// Config holds environment-driven settings for the delivery pipeline.
type Config struct {
	PassInterval    time.Duration `env:"DISPATCH_PASS_INTERVAL" envDefault:"30s"`
	CleanupInterval time.Duration `env:"DISPATCH_CLEANUP_INTERVAL" envDefault:"1h"`
	BatchSize       int           `env:"DISPATCH_BATCH_SIZE" envDefault:"100"`
	SendTimeout     time.Duration `env:"DISPATCH_SEND_TIMEOUT" envDefault:"30s"`
	ClaimLease      time.Duration `env:"DISPATCH_CLAIM_LEASE" envDefault:"2m"`
	MaxConcurrent   int           `env:"DISPATCH_MAX_CONCURRENT" envDefault:"4"`
}

// OrchestratorOptions translates the config into orchestrator options.
func (c Config) OrchestratorOptions() []OrchestratorOption {
	return []OrchestratorOption{
		WithBatchSize(c.BatchSize),
		WithSendTimeout(c.SendTimeout),
		WithClaimLease(c.ClaimLease),
		WithMaxConcurrent(c.MaxConcurrent),
	}
}

// SchedulerOptions translates the config into scheduler options.
func (c Config) SchedulerOptions() []SchedulerOption {
	return []SchedulerOption{
		WithPassInterval(c.PassInterval),
		WithCleanupInterval(c.CleanupInterval),
	}
}
