// Package worker holds the configuration and metrics for the polling worker:
// the process that periodically synchronizes subreddit posts into the store.
package worker

import (
	"fmt"
	"log/slog"
	"time"

	"reddit-watch/internal/pkg/config"
)

// WorkerConfig holds the configuration for the worker component: the poll
// schedule, its timezone and the per-run timeout. All fields have defaults
// and validation rules so the worker can start even with invalid or missing
// configuration (fail-open).
type WorkerConfig struct {
	// CronSchedule is the cron expression for the poll job.
	// Default: "*/5 * * * *" (every five minutes).
	CronSchedule string

	// Timezone is the IANA timezone name used by the scheduler.
	// Default: "UTC".
	Timezone string

	// SyncTimeout is the maximum duration of a single synchronization run.
	// Default: 5 minutes.
	SyncTimeout time.Duration

	// MetricsPort is the port for the metrics/health HTTP server.
	// Default: 9090.
	MetricsPort int
}

// DefaultConfig returns a WorkerConfig with production-ready defaults.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule: "*/5 * * * *",
		Timezone:     "UTC",
		SyncTimeout:  5 * time.Minute,
		MetricsPort:  9090,
	}
}

// Validate checks the configuration, collecting every violation.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.SyncTimeout); err != nil {
		errs = append(errs, fmt.Errorf("sync timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the worker configuration from environment
// variables with validation and fallback to defaults. It never returns an
// error: an invalid value degrades that one setting to its default, logs a
// warning and bumps the fallback metrics.
//
// Environment variables:
//   - CRON_SCHEDULE: Cron expression (default: "*/5 * * * *")
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - SYNC_TIMEOUT: Duration string, e.g. "5m" (default: 5 minutes)
//   - METRICS_PORT: Integer 1024-65535 (default: 9090)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) *WorkerConfig {
	cfg := DefaultConfig()

	result := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = result.Value.(string)
	logFallback(logger, metrics, "cron_schedule", result)

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	logFallback(logger, metrics, "timezone", result)

	result = config.LoadEnvDuration("SYNC_TIMEOUT", cfg.SyncTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 10*time.Second, 1*time.Hour)
	})
	cfg.SyncTimeout = result.Value.(time.Duration)
	logFallback(logger, metrics, "sync_timeout", result)

	result = config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.MetricsPort = result.Value.(int)
	logFallback(logger, metrics, "metrics_port", result)

	return &cfg
}

func logFallback(logger *slog.Logger, metrics *WorkerMetrics, field string, result config.ConfigLoadResult) {
	if !result.FallbackApplied {
		return
	}
	metrics.RecordConfigFallback(field)
	for _, warning := range result.Warnings {
		logger.Warn("configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", warning))
	}
}
