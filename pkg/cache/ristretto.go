package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// counterRatio is how many keys ristretto tracks for admission per entry it stores.
const counterRatio = 10

// RistrettoCache implements Cache on top of Ristretto. Every entry costs 1, so
// MaxItems bounds the entry count. Metrics are labeled by Name.
type RistrettoCache struct {
	name       string
	defaultTTL time.Duration
	cache      *ristretto.Cache
	logger     *zap.Logger
}

// RistrettoConfig holds Ristretto sizing.
type RistrettoConfig struct {
	Name       string
	MaxItems   int64
	DefaultTTL time.Duration // used when Set is called with ttl <= 0; zero means no expiry
	Logger     *zap.Logger
}

// Stats is a snapshot of a cache's hit counters.
type Stats struct {
	Hits        uint64
	Misses      uint64
	KeysAdded   uint64
	KeysEvicted uint64
	HitRatio    float64
}

// NewRistrettoCache creates a Ristretto-backed cache.
func NewRistrettoCache(cfg *RistrettoConfig) (*RistrettoCache, error) {
	if cfg.Name == "" {
		return nil, errors.New("cache name is required")
	}

	if cfg.MaxItems <= 0 {
		return nil, fmt.Errorf("cache %s: max items must be positive, got %d", cfg.Name, cfg.MaxItems)
	}

	if cfg.DefaultTTL < 0 {
		return nil, fmt.Errorf("cache %s: default ttl must be non-negative, got %v", cfg.Name, cfg.DefaultTTL)
	}

	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxItems * counterRatio,
		MaxCost:     cfg.MaxItems,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("cache %s: %w", cfg.Name, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RistrettoCache{
		name:       cfg.Name,
		defaultTTL: cfg.DefaultTTL,
		cache:      rc,
		logger:     logger.With(zap.String("cache", cfg.Name)),
	}, nil
}

// Name returns the metrics label of the cache.
func (r *RistrettoCache) Name() string {
	return r.name
}

// Get retrieves a value.
func (r *RistrettoCache) Get(key string) (interface{}, bool) {
	value, found := r.cache.Get(key)
	if found {
		CacheHitsTotal.WithLabelValues(r.name).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(r.name).Inc()
	}
	return value, found
}

// Set stores a value. A ttl <= 0 falls back to the configured default.
// Writes are buffered and become visible after Wait.
func (r *RistrettoCache) Set(key string, value interface{}, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}

	if !r.cache.SetWithTTL(key, value, 1, ttl) {
		CacheRejectedSetsTotal.WithLabelValues(r.name).Inc()
		r.logger.Debug("cache-set-rejected", zap.String("key", key))
		return false
	}

	CacheSetsTotal.WithLabelValues(r.name).Inc()
	return true
}

// Delete removes a value.
func (r *RistrettoCache) Delete(key string) {
	r.cache.Del(key)
	CacheDeletesTotal.WithLabelValues(r.name).Inc()
}

// Clear removes all values.
func (r *RistrettoCache) Clear() {
	r.cache.Clear()
	r.logger.Info("cache-cleared")
}

// Wait blocks until buffered writes are applied.
func (r *RistrettoCache) Wait() {
	r.cache.Wait()
}

// Stats reports Ristretto's internal counters.
func (r *RistrettoCache) Stats() Stats {
	m := r.cache.Metrics
	if m == nil {
		return Stats{}
	}
	return Stats{
		Hits:        m.Hits(),
		Misses:      m.Misses(),
		KeysAdded:   m.KeysAdded(),
		KeysEvicted: m.KeysEvicted(),
		HitRatio:    m.Ratio(),
	}
}

// Close releases the cache and logs its final hit ratio.
func (r *RistrettoCache) Close() {
	stats := r.Stats()
	r.cache.Close()
	r.logger.Info("cache-closed",
		zap.Uint64("hits", stats.Hits),
		zap.Uint64("misses", stats.Misses),
		zap.Float64("hit-ratio", stats.HitRatio))
}
