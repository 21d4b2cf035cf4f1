package cache

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// FetchFunc computes a fresh value for a Coalescer.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// checkedAt is the last fetch attempt, successful or not. It gates refetches,
// while fetchedAt is the age of the value.
type entry[T any] struct {
	value     T
	fetchedAt time.Time
	checkedAt time.Time
}

// Coalescer holds the latest value of an expensive computation and serves it
// until it is older than the TTL. At most one fetch runs at a time; callers that
// arrive while a fetch is in flight wait for it and share its result.
//
// When a fetch fails after an earlier success, Get keeps serving the earlier
// value with its original fetch time and waits a full TTL before trying again.
type Coalescer[T any] struct {
	name   string
	ttl    time.Duration
	fetch  FetchFunc[T]
	logger *zap.Logger
	now    func() time.Time

	current atomic.Pointer[entry[T]]
	lock    chan struct{}
}

// CoalescerConfig holds coalescer configuration.
type CoalescerConfig[T any] struct {
	Name   string
	TTL    time.Duration
	Fetch  FetchFunc[T]
	Logger *zap.Logger
}

// NewCoalescer creates an empty coalescer.
func NewCoalescer[T any](cfg *CoalescerConfig[T]) *Coalescer[T] {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Coalescer[T]{
		name:   cfg.Name,
		ttl:    cfg.TTL,
		fetch:  cfg.Fetch,
		logger: logger.With(zap.String("coalescer", cfg.Name)),
		now:    time.Now,
		lock:   make(chan struct{}, 1),
	}
}

// Get returns the stored value if it was checked within the TTL. Otherwise it
// takes the refresh lock, re-checks, and fetches only if the value is still stale.
// The returned time is when the value was fetched. Get fails only when the fetch
// fails and there is no earlier value to fall back on.
func (c *Coalescer[T]) Get(ctx context.Context) (T, time.Time, error) {
	if e := c.current.Load(); c.fresh(e) {
		CoalescerHitsTotal.WithLabelValues(c.name).Inc()
		CoalescerAgeSeconds.WithLabelValues(c.name).Set(c.now().Sub(e.fetchedAt).Seconds())
		return e.value, e.fetchedAt, nil
	}

	return c.load(ctx, c.fresh, true)
}

// Refresh fetches regardless of age. If another fetch succeeded after this call
// started, its result is returned instead of fetching again. Unlike Get, a
// failed fetch is reported even when an earlier value exists.
func (c *Coalescer[T]) Refresh(ctx context.Context) (T, time.Time, error) {
	requested := c.now()
	return c.load(ctx, func(e *entry[T]) bool {
		return e != nil && !e.fetchedAt.Before(requested)
	}, false)
}

// Peek returns the stored value without fetching. ok is false before the first fetch.
func (c *Coalescer[T]) Peek() (value T, fetchedAt time.Time, ok bool) {
	e := c.current.Load()
	if e == nil {
		return value, fetchedAt, false
	}
	return e.value, e.fetchedAt, true
}

// Store replaces the value as if it had just been fetched.
func (c *Coalescer[T]) Store(value T) {
	now := c.now()
	c.current.Store(&entry[T]{value: value, fetchedAt: now, checkedAt: now})
}

func (c *Coalescer[T]) fresh(e *entry[T]) bool {
	return e != nil && c.now().Sub(e.checkedAt) < c.ttl
}

func (c *Coalescer[T]) load(ctx context.Context, satisfied func(*entry[T]) bool, serveStale bool) (T, time.Time, error) {
	var zero T

	select {
	case c.lock <- struct{}{}:
	case <-ctx.Done():
		return zero, time.Time{}, ctx.Err()
	}
	defer func() { <-c.lock }()

	if e := c.current.Load(); satisfied(e) {
		CoalescerSharedTotal.WithLabelValues(c.name).Inc()
		return e.value, e.fetchedAt, nil
	}

	start := time.Now()
	value, err := c.fetch(ctx)
	elapsed := time.Since(start)
	CoalescerFetchDurationSeconds.WithLabelValues(c.name).Observe(elapsed.Seconds())

	if err != nil {
		CoalescerFetchesTotal.WithLabelValues(c.name, "error").Inc()

		prev := c.current.Load()
		if prev == nil {
			c.logger.Warn("coalescer-fetch-failed", zap.Error(err))
			return zero, time.Time{}, err
		}

		c.current.Store(&entry[T]{value: prev.value, fetchedAt: prev.fetchedAt, checkedAt: c.now()})
		c.logger.Warn("coalescer-fetch-failed",
			zap.Error(err),
			zap.Duration("stale-age", c.now().Sub(prev.fetchedAt)))

		if !serveStale {
			return zero, time.Time{}, err
		}
		CoalescerStaleServedTotal.WithLabelValues(c.name).Inc()
		return prev.value, prev.fetchedAt, nil
	}

	CoalescerFetchesTotal.WithLabelValues(c.name, "success").Inc()

	now := c.now()
	e := &entry[T]{value: value, fetchedAt: now, checkedAt: now}
	c.current.Store(e)

	c.logger.Debug("coalescer-refreshed",
		zap.Duration("fetch-duration", elapsed))

	return e.value, e.fetchedAt, nil
}
