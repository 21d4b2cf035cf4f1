package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// BreakerOpen indicates whether fetches for a sport are currently blocked.
	BreakerOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sportsarb_fetch_breaker_open",
		Help: "Whether the fetch breaker for a sport is open or probing (1) or closed (0)",
	}, []string{"sport"})

	// StateChangesTotal tracks breaker transitions by target state.
	StateChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sportsarb_fetch_breaker_state_changes_total",
		Help: "Total number of fetch breaker state changes",
	}, []string{"sport", "state"})

	// RejectedFetchesTotal tracks fetches skipped because the breaker was open.
	RejectedFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sportsarb_fetch_breaker_rejected_total",
		Help: "Total number of sport fetches skipped by an open breaker",
	}, []string{"sport"})
)
