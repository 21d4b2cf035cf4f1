package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// ScansTotal tracks completed scans by status.
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsarb_scans_total",
			Help: "Total number of scans by status",
		},
		[]string{"status"},
	)

	// ScanDurationSeconds tracks end-to-end scan latency.
	ScanDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sportsarb_scan_duration_seconds",
			Help:    "Time spent on one scan",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)

	// SportFetchFailuresTotal tracks sports skipped in a scan.
	SportFetchFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsarb_scan_sport_failures_total",
			Help: "Total number of sports skipped in a scan because the fetch failed",
		},
		[]string{"sport"},
	)

	// EventsScannedTotal tracks events routed through detection by game state.
	EventsScannedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsarb_scan_events_total",
			Help: "Total number of events evaluated by game state",
		},
		[]string{"state"},
	)

	// EventsSkippedTotal tracks finished or cancelled events.
	EventsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sportsarb_scan_events_skipped_total",
			Help: "Total number of ended or cancelled events skipped",
		},
	)

	// CurrentOpportunities tracks the size of each cached opportunity set.
	CurrentOpportunities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sportsarb_current_opportunities",
			Help: "Number of opportunities in the latest scan by game state",
		},
		[]string{"state"},
	)

	// RefreshRequestsTotal tracks external refresh requests by outcome.
	RefreshRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsarb_refresh_requests_total",
			Help: "Total number of refresh requests",
		},
		[]string{"outcome"},
	)
)
