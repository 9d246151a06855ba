package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type CirculationMetrics struct {
	StagingTotal    *prometheus.CounterVec
	CheckoutsTotal  *prometheus.CounterVec
	ReturnsTotal    *prometheus.CounterVec
	RenewalsTotal   *prometheus.CounterVec
	FinesTotal      prometheus.Counter
	FineAmountTotal prometheus.Counter
}

type BatchMetrics struct {
	OverdueLoansScanned prometheus.Gauge
	OverdueScanDuration prometheus.Histogram
}

type DatabaseMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

var (
	Circulation = CirculationMetrics{
		StagingTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circulation_staging_total",
				Help: "Total number of staging attempts by outcome status.",
			},
			[]string{"status"},
		),
		CheckoutsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circulation_checkouts_total",
				Help: "Total number of committed checkout items by outcome status.",
			},
			[]string{"status"},
		),
		ReturnsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circulation_returns_total",
				Help: "Total number of item returns by outcome status.",
			},
			[]string{"status"},
		),
		RenewalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circulation_renewals_total",
				Help: "Total number of loan extensions by outcome status.",
			},
			[]string{"status"},
		),
		FinesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "circulation_fines_assessed_total",
				Help: "Total number of overdue fines assessed.",
			},
		),
		FineAmountTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "circulation_fine_amount_total",
				Help: "Accumulated fine amount assessed.",
			},
		),
	}

	Batch = BatchMetrics{
		OverdueLoansScanned: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "circulation_overdue_loans",
				Help: "Number of overdue loans found by the last nightly scan.",
			},
		),
		OverdueScanDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "circulation_overdue_scan_duration_seconds",
				Help:    "Histogram of overdue scan job durations.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	Database = DatabaseMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "circulation_db_query_duration_seconds",
				Help:    "Histogram of database query durations by operation and status.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
	}
)

func RecordStaging(status string) {
	Circulation.StagingTotal.WithLabelValues(status).Inc()
}

func RecordCheckout(status string) {
	Circulation.CheckoutsTotal.WithLabelValues(status).Inc()
}

func RecordReturn(status string) {
	Circulation.ReturnsTotal.WithLabelValues(status).Inc()
}

func RecordRenewal(status string) {
	Circulation.RenewalsTotal.WithLabelValues(status).Inc()
}

func RecordFine(amount float64) {
	Circulation.FinesTotal.Inc()
	Circulation.FineAmountTotal.Add(amount)
}

func RecordDBQuery(operation, status string, duration time.Duration) {
	Database.QueryDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

func RecordOverdueScan(count int, duration time.Duration) {
	Batch.OverdueLoansScanned.Set(float64(count))
	Batch.OverdueScanDuration.Observe(duration.Seconds())
}
