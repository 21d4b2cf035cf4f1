package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// RecordsWrittenTotal tracks records persisted by kind.
	RecordsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsarb_storage_records_written_total",
			Help: "Total number of records written to storage",
		},
		[]string{"kind"},
	)

	// WriteErrorsTotal tracks failed batch writes by kind.
	WriteErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsarb_storage_write_errors_total",
			Help: "Total number of failed storage batch writes",
		},
		[]string{"kind"},
	)

	// WriteBatchesDroppedTotal tracks batches that never reached storage.
	WriteBatchesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsarb_storage_batches_dropped_total",
			Help: "Total number of scan batches dropped before storage",
		},
		[]string{"reason"},
	)

	// WriteQueueDepth tracks batches waiting for the writer.
	WriteQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sportsarb_storage_queue_depth",
			Help: "Number of scan batches waiting to be written",
		},
	)

	// WriteDurationSeconds tracks batch write latency by kind.
	WriteDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sportsarb_storage_write_duration_seconds",
			Help:    "Time spent writing one batch to storage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)
