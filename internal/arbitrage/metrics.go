package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// OpportunitiesDetectedTotal tracks opportunities that passed validation.
	OpportunitiesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsarb_opportunities_detected_total",
			Help: "Total number of arbitrage opportunities detected",
		},
		[]string{"sport", "tier"},
	)

	// OpportunitiesRejectedTotal tracks rejected market groups by reason.
	OpportunitiesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsarb_opportunities_rejected_total",
			Help: "Total number of market groups rejected by the engine",
		},
		[]string{"reason"},
	)

	// QuotesExcludedTotal tracks quotes removed before best-quote selection.
	QuotesExcludedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsarb_quotes_excluded_total",
			Help: "Total number of quotes excluded from selection",
		},
		[]string{"reason"},
	)

	// OpportunityProfitPct tracks guaranteed profit in percent.
	OpportunityProfitPct = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sportsarb_opportunity_profit_pct",
		Help:    "Arbitrage opportunity profit in percent",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 12},
	})

	// OpportunityConfidence tracks confidence scores.
	OpportunityConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sportsarb_opportunity_confidence",
		Help:    "Confidence score of detected opportunities",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
	})

	// DetectionDurationSeconds tracks how long one Detect call takes.
	DetectionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sportsarb_detection_duration_seconds",
		Help:    "Duration of arbitrage detection over one event's market groups",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	// GroupPanicsTotal tracks market groups skipped after a panic.
	GroupPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsarb_group_panics_total",
		Help: "Total number of market groups skipped after a panic",
	})
)
