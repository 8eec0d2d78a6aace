// Package metrics provides Prometheus metrics for the storage engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the Prometheus registry served on the metrics endpoint.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Ingest results.
const (
	ResultCommitted     = "committed"
	ResultRejected      = "rejected"
	ResultQuotaExceeded = "quota_exceeded"
	ResultStorageError  = "storage_error"
	ResultCommitFailed  = "commit_failed"
	ResultCanceled      = "canceled"
)

// StorageMetrics holds all counters the services update. A nil *StorageMetrics is a no-op.
type StorageMetrics struct {
	IngestTotal     *prometheus.CounterVec // labels: result
	IngestedBytes   prometheus.Counter
	PurgedFiles     prometheus.Counter
	PurgedBytes     prometheus.Counter
	StorageWarnings prometheus.Counter
	SweepRuns       prometheus.Counter
	SweepDuration   prometheus.Histogram
	LockWait        prometheus.Histogram
}

func New(reg prometheus.Registerer) *StorageMetrics {
	return &StorageMetrics{
		IngestTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "greencloud_ingest_total",
			Help: "Uploads processed by the ingestion pipeline, by result",
		}, []string{"result"}),
		IngestedBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "greencloud_ingested_bytes_total",
			Help: "Bytes committed by the ingestion pipeline",
		}),
		PurgedFiles: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "greencloud_purged_files_total",
			Help: "File records removed by hard delete or sweep",
		}),
		PurgedBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "greencloud_purged_bytes_total",
			Help: "Bytes released by hard delete or sweep",
		}),
		StorageWarnings: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "greencloud_storage_remove_warnings_total",
			Help: "Physical removals that failed while the metadata was purged",
		}),
		SweepRuns: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "greencloud_trash_sweep_runs_total",
			Help: "Trash sweeps executed",
		}),
		SweepDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "greencloud_trash_sweep_duration_seconds",
			Help:    "Duration of a per-user trash sweep",
			Buckets: prometheus.DefBuckets,
		}),
		LockWait: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "greencloud_user_lock_wait_seconds",
			Help:    "Time spent waiting for a per-user lock",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}),
	}
}

func (m *StorageMetrics) ObserveIngest(result string, bytes int64) {
	if m == nil {
		return
	}
	m.IngestTotal.WithLabelValues(result).Inc()
	if result == ResultCommitted && bytes > 0 {
		m.IngestedBytes.Add(float64(bytes))
	}
}

func (m *StorageMetrics) ObservePurge(files int, bytes int64, warnings int) {
	if m == nil {
		return
	}
	m.PurgedFiles.Add(float64(files))
	if bytes > 0 {
		m.PurgedBytes.Add(float64(bytes))
	}
	m.StorageWarnings.Add(float64(warnings))
}

func (m *StorageMetrics) ObserveSweep(d time.Duration) {
	if m == nil {
		return
	}
	m.SweepRuns.Inc()
	m.SweepDuration.Observe(d.Seconds())
}

func (m *StorageMetrics) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.LockWait.Observe(d.Seconds())
}
