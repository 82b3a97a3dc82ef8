package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the polling worker.
//
// Metrics:
//   - worker_sync_runs_total: Total sync job runs by status (started/success/failure)
//   - worker_sync_duration_seconds: Duration histogram of sync runs
//   - worker_posts_synced_total: Total posts upserted across all runs
//   - worker_last_success_timestamp: Unix timestamp of the last successful run
//   - worker_config_fallbacks_total: Configuration fallbacks applied, by field
type WorkerMetrics struct {
	syncRuns        *prometheus.CounterVec
	syncDuration    prometheus.Histogram
	postsSynced     prometheus.Counter
	lastSuccess     prometheus.Gauge
	configFallbacks *prometheus.CounterVec
}

// NewWorkerMetrics creates and registers the worker metrics on the default
// registry.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		syncRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_sync_runs_total",
			Help: "Total number of sync job runs by status.",
		}, []string{"status"}),
		syncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_sync_duration_seconds",
			Help:    "Duration of sync job runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		postsSynced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_posts_synced_total",
			Help: "Total number of posts upserted by sync runs.",
		}),
		lastSuccess: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_last_success_timestamp",
			Help: "Unix timestamp of the last successful sync run.",
		}),
		configFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_config_fallbacks_total",
			Help: "Total configuration fallbacks applied, by field.",
		}, []string{"field"}),
	}
}

// RecordSyncRun records one sync run with the given status.
func (m *WorkerMetrics) RecordSyncRun(status string) {
	m.syncRuns.WithLabelValues(status).Inc()
}

// RecordSyncDuration records the duration of a sync run.
func (m *WorkerMetrics) RecordSyncDuration(seconds float64) {
	m.syncDuration.Observe(seconds)
}

// RecordPostsSynced adds to the total number of synced posts.
func (m *WorkerMetrics) RecordPostsSynced(n int64) {
	m.postsSynced.Add(float64(n))
}

// RecordLastSuccess stamps the last successful run at now.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.lastSuccess.Set(float64(time.Now().Unix()))
}

// RecordConfigFallback records one configuration fallback for a field.
func (m *WorkerMetrics) RecordConfigFallback(field string) {
	m.configFallbacks.WithLabelValues(field).Inc()
}
