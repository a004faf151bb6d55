// Package observability exposes Prometheus collectors for sync runs.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
	apperrors "github.com/yanqian/healthsync/pkg/errors"
)

const namespace = "healthsync"

// Run statuses used as label values.
const (
	StatusSucceeded = "succeeded"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
	StatusRejected  = "rejected"
	StatusCanceled  = "canceled"
)

// SyncObserver records every sync outcome.
type SyncObserver struct {
	runs          *prometheus.CounterVec
	categories    *prometheus.CounterVec
	records       prometheus.Counter
	batchFailures prometheus.Counter
	duration      *prometheus.HistogramVec
}

// NewSyncObserver builds the collectors and registers them with reg.
func NewSyncObserver(reg prometheus.Registerer) (*SyncObserver, error) {
	o := &SyncObserver{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Sync runs grouped by outcome.",
		}, []string{"status"}),
		categories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "category_runs_total",
			Help:      "Category syncs grouped by category and outcome.",
		}, []string{"category", "status"}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_upserted_total",
			Help:      "Metric records written to the store.",
		}),
		batchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_failures_total",
			Help:      "Upsert batches rejected by the store.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Wall time of sync runs.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"status"}),
	}
	for _, c := range []prometheus.Collector{o.runs, o.categories, o.records, o.batchFailures, o.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// ObserveSync implements healthsync.RunObserver.
func (o *SyncObserver) ObserveSync(report healthsync.SyncReport, elapsed time.Duration, err error) {
	status := RunStatus(report, err)
	o.runs.WithLabelValues(status).Inc()
	o.duration.WithLabelValues(status).Observe(elapsed.Seconds())
	if status == StatusRejected {
		return
	}
	for _, c := range report.Categories {
		label := StatusSucceeded
		if !c.Succeeded() {
			label = StatusFailed
		}
		o.categories.WithLabelValues(string(c.Category), label).Inc()
	}
	o.records.Add(float64(report.RecordsWritten))
	o.batchFailures.Add(float64(report.BatchesFailed))
}

// RunStatus classifies a finished run.
func RunStatus(report healthsync.SyncReport, err error) string {
	switch apperrors.Code(err) {
	case "":
		if err != nil {
			return StatusFailed
		}
	case apperrors.CodeSyncInProgress, apperrors.CodeInvalidInput:
		return StatusRejected
	case apperrors.CodeCanceled:
		return StatusCanceled
	default:
		return StatusFailed
	}
	if report.Partial() {
		return StatusPartial
	}
	return StatusSucceeded
}

var _ healthsync.RunObserver = (*SyncObserver)(nil)
