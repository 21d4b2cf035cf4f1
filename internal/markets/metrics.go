package markets

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuotesResolvedTotal tracks quotes placed into a market group.
	QuotesResolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsarb_markets_quotes_resolved_total",
		Help: "Total number of quotes placed into a market group",
	})

	// QuotesDroppedTotal tracks quotes discarded before grouping, by reason.
	QuotesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsarb_markets_quotes_dropped_total",
			Help: "Total number of quotes dropped before grouping",
		},
		[]string{"reason"},
	)

	// QuotesSupersededTotal tracks older quotes replaced by a newer one for the same bookmaker, market and side.
	QuotesSupersededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsarb_markets_quotes_superseded_total",
		Help: "Total number of quotes replaced by a newer quote",
	})

	// GroupsBuiltTotal tracks market groups produced.
	GroupsBuiltTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsarb_markets_groups_built_total",
		Help: "Total number of market groups built",
	})

	// DescriptorCacheHitsTotal tracks memoized odd ID parses.
	DescriptorCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsarb_markets_descriptor_cache_hits_total",
		Help: "Total number of odd ID descriptor cache hits",
	})

	// DescriptorCacheMissesTotal tracks odd ID parses that missed the cache.
	DescriptorCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsarb_markets_descriptor_cache_misses_total",
		Help: "Total number of odd ID descriptor cache misses",
	})
)
