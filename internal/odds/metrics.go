package odds

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// RequestsTotal tracks provider requests by sport and HTTP status.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsarb_odds_requests_total",
			Help: "Total number of odds provider requests",
		},
		[]string{"sport", "status"},
	)

	// RequestDurationSeconds tracks provider request latency.
	RequestDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sportsarb_odds_request_duration_seconds",
		Help:    "Duration of odds provider requests",
		Buckets: prometheus.DefBuckets,
	})

	// RateLimitedResponsesTotal tracks 429s and rate-limit bodies from the provider.
	RateLimitedResponsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsarb_odds_rate_limited_responses_total",
		Help: "Total number of rate-limited responses from the odds provider",
	})

	// RateLimiterGrantsTotal tracks requests admitted by the shared limiter.
	RateLimiterGrantsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsarb_odds_rate_limiter_grants_total",
		Help: "Total number of requests admitted by the shared rate limiter",
	})

	// RateLimiterWaitsTotal tracks how often a caller had to wait for the window to roll over.
	RateLimiterWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsarb_odds_rate_limiter_waits_total",
		Help: "Total number of times a caller blocked on the shared rate limiter",
	})

	// EventsFetchedTotal tracks events accepted per sport.
	EventsFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsarb_odds_events_fetched_total",
			Help: "Total number of events accepted from the odds provider",
		},
		[]string{"sport"},
	)

	// EventsDroppedTotal tracks events discarded client-side by reason.
	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsarb_odds_events_dropped_total",
			Help: "Total number of provider events dropped client-side",
		},
		[]string{"reason"},
	)

	// FetchErrorsTotal tracks failed per-sport fetches.
	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsarb_odds_fetch_errors_total",
			Help: "Total number of failed per-sport odds fetches",
		},
		[]string{"sport", "kind"},
	)
)
