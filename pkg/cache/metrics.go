package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sportsarb_cache_hits_total",
		Help: "Total number of keyed cache hits",
	}, []string{"cache"})

	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sportsarb_cache_misses_total",
		Help: "Total number of keyed cache misses",
	}, []string{"cache"})

	CacheSetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sportsarb_cache_sets_total",
		Help: "Total number of keyed cache sets",
	}, []string{"cache"})

	CacheRejectedSetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sportsarb_cache_rejected_sets_total",
		Help: "Total number of cache sets dropped by admission",
	}, []string{"cache"})

	CacheDeletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sportsarb_cache_deletes_total",
		Help: "Total number of keyed cache deletes",
	}, []string{"cache"})

	CoalescerHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sportsarb_coalescer_hits_total",
		Help: "Reads served from a fresh coalesced value",
	}, []string{"name"})

	CoalescerFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sportsarb_coalescer_fetches_total",
		Help: "Upstream fetches by result",
	}, []string{"name", "status"})

	CoalescerSharedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sportsarb_coalescer_shared_total",
		Help: "Callers that waited on another caller's fetch instead of fetching",
	}, []string{"name"})

	CoalescerStaleServedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sportsarb_coalescer_stale_served_total",
		Help: "Reads answered with the previous value after a failed fetch",
	}, []string{"name"})

	CoalescerFetchDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sportsarb_coalescer_fetch_duration_seconds",
		Help:    "Duration of upstream fetches",
		Buckets: prometheus.DefBuckets,
	}, []string{"name"})

	CoalescerAgeSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sportsarb_coalescer_age_seconds",
		Help: "Age of the stored value when last read",
	}, []string{"name"})
)
