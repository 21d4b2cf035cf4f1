// Package scanner runs the periodic fetch, resolve and detect cycle and serves
// the resulting opportunity sets to consumers.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/sports-arb/internal/arbitrage"
	"github.com/mselser95/sports-arb/internal/markets"
	"github.com/mselser95/sports-arb/internal/notify"
	"github.com/mselser95/sports-arb/internal/odds"
	"github.com/mselser95/sports-arb/internal/storage"
	"github.com/mselser95/sports-arb/pkg/cache"
	"github.com/mselser95/sports-arb/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scanner states.
const (
	StateIdle     = "IDLE"
	StateScanning = "SCANNING"
)

// MessageTypeOpportunities is the websocket message type of a scan snapshot.
const MessageTypeOpportunities = "opportunities"

const publishTimeout = 10 * time.Second

// ErrAllSportsFailed is returned when no sport could be fetched in a scan.
var ErrAllSportsFailed = errors.New("every sport fetch failed")

// Recorder receives each scan's raw quotes and opportunities. Submit must not block.
type Recorder interface {
	Submit(quotes []storage.QuoteRecord, opps []*arbitrage.Opportunity) bool
}

// Broadcaster pushes scan snapshots to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, data interface{}) (int, error)
}

// Result is the outcome of one scan.
type Result struct {
	ID           string
	StartedAt    time.Time
	CompletedAt  time.Time
	Live         []*arbitrage.Opportunity
	Upcoming     []*arbitrage.Opportunity
	Events       int
	Groups       int
	FailedSports []string
}

// Status summarizes the scanner for consumers.
type Status struct {
	Running          bool      `json:"running"`
	State            string    `json:"state"`
	LastUpdate       time.Time `json:"last_update"`
	OpportunityCount int       `json:"opportunity_count"`
	LiveCount        int       `json:"live_count"`
	UpcomingCount    int       `json:"upcoming_count"`
}

// Query filters the opportunity list.
type Query struct {
	MinProfitPct float64
	Limit        int
	State        types.GameState // empty for both
}

// Scanner owns the two opportunity caches. A scan refreshes both; a consumer
// read of a stale cache triggers a scan unless one completed within the shorter
// TTL, and concurrent triggers share one scan.
type Scanner struct {
	fetcher     odds.Fetcher
	resolver    *markets.Resolver
	engine      *arbitrage.Engine
	recorder    Recorder
	publisher   notify.Publisher
	broadcaster Broadcaster
	sports      []string
	interval    time.Duration
	workers     int
	logger      *zap.Logger
	now         func() time.Time

	scans    *cache.Coalescer[*Result]
	live     *cache.Coalescer[[]*arbitrage.Opportunity]
	upcoming *cache.Coalescer[[]*arbitrage.Opportunity]

	state     atomic.Value
	running   atomic.Bool
	refreshCh chan struct{}
	done      chan struct{}
}

// Config holds scanner configuration.
type Config struct {
	Fetcher     odds.Fetcher
	Resolver    *markets.Resolver
	Engine      *arbitrage.Engine
	Recorder    Recorder
	Publisher   notify.Publisher
	Broadcaster Broadcaster
	Sports      []string
	Interval    time.Duration
	LiveTTL     time.Duration
	UpcomingTTL time.Duration
	Workers     int
	Logger      *zap.Logger
}

// New creates a scanner. Recorder, Publisher and Broadcaster are optional.
func New(cfg *Config) *Scanner {
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	s := &Scanner{
		fetcher:     cfg.Fetcher,
		resolver:    cfg.Resolver,
		engine:      cfg.Engine,
		recorder:    cfg.Recorder,
		publisher:   publisher,
		broadcaster: cfg.Broadcaster,
		sports:      cfg.Sports,
		interval:    cfg.Interval,
		workers:     workers,
		logger:      cfg.Logger,
		now:         time.Now,
		refreshCh:   make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	s.state.Store(StateIdle)

	s.scans = cache.NewCoalescer(&cache.CoalescerConfig[*Result]{
		Name:   "scan",
		TTL:    minDuration(cfg.LiveTTL, cfg.UpcomingTTL),
		Fetch:  s.scan,
		Logger: cfg.Logger,
	})

	s.live = cache.NewCoalescer(&cache.CoalescerConfig[[]*arbitrage.Opportunity]{
		Name: "live",
		TTL:  cfg.LiveTTL,
		Fetch: func(ctx context.Context) ([]*arbitrage.Opportunity, error) {
			res, _, err := s.scans.Get(ctx)
			if err != nil {
				return nil, err
			}
			return res.Live, nil
		},
		Logger: cfg.Logger,
	})

	s.upcoming = cache.NewCoalescer(&cache.CoalescerConfig[[]*arbitrage.Opportunity]{
		Name: "upcoming",
		TTL:  cfg.UpcomingTTL,
		Fetch: func(ctx context.Context) ([]*arbitrage.Opportunity, error) {
			res, _, err := s.scans.Get(ctx)
			if err != nil {
				return nil, err
			}
			return res.Upcoming, nil
		},
		Logger: cfg.Logger,
	})

	return s
}

// Run scans immediately, then on every tick or refresh request, until ctx is
// cancelled. A scan in progress when ctx ends is finished before Run returns.
func (s *Scanner) Run(ctx context.Context) error {
	s.running.Store(true)
	defer func() {
		s.running.Store(false)
		close(s.done)
	}()

	s.logger.Info("scanner-starting",
		zap.Strings("sports", s.sports),
		zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runScan(ctx, "initial")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scanner-stopping")
			return ctx.Err()
		case <-ticker.C:
			s.runScan(ctx, "tick")
		case <-s.refreshCh:
			s.runScan(ctx, "refresh")
			ticker.Reset(s.interval)
		}
	}
}

// Done is closed when Run returns.
func (s *Scanner) Done() <-chan struct{} {
	return s.done
}

func (s *Scanner) runScan(ctx context.Context, trigger string) {
	_, _, err := s.scans.Refresh(context.WithoutCancel(ctx))
	if err != nil {
		s.logger.Error("scan-failed",
			zap.String("trigger", trigger),
			zap.Error(err))
	}
}

// RequestRefresh asks the run loop for an immediate scan. It returns false when
// a scan is already running or one is already queued.
func (s *Scanner) RequestRefresh() bool {
	if s.State() == StateScanning {
		RefreshRequestsTotal.WithLabelValues("ignored-scanning").Inc()
		return false
	}

	select {
	case s.refreshCh <- struct{}{}:
		RefreshRequestsTotal.WithLabelValues("accepted").Inc()
		return true
	default:
		RefreshRequestsTotal.WithLabelValues("ignored-queued").Inc()
		return false
	}
}

// ScanOnce runs a scan outside the run loop, sharing it with any scan already in flight.
func (s *Scanner) ScanOnce(ctx context.Context) (*Result, error) {
	res, _, err := s.scans.Refresh(ctx)
	return res, err
}

// State returns IDLE or SCANNING.
func (s *Scanner) State() string {
	return s.state.Load().(string)
}

// Status reports the latest scan without triggering one.
func (s *Scanner) Status() Status {
	st := Status{
		Running: s.running.Load(),
		State:   s.State(),
	}

	if res, fetchedAt, ok := s.scans.Peek(); ok {
		st.LastUpdate = fetchedAt
		st.LiveCount = len(res.Live)
		st.UpcomingCount = len(res.Upcoming)
		st.OpportunityCount = st.LiveCount + st.UpcomingCount
	}

	return st
}

// LastUpdate returns when the latest successful scan completed, or zero.
func (s *Scanner) LastUpdate() time.Time {
	_, fetchedAt, _ := s.scans.Peek()
	return fetchedAt
}

// Opportunities returns the cached opportunities matching q, best first. A
// cache older than its TTL is refreshed before it is read.
func (s *Scanner) Opportunities(ctx context.Context, q Query) ([]*arbitrage.Opportunity, error) {
	var all []*arbitrage.Opportunity

	if q.State == "" || q.State == types.GameStateLive {
		live, _, err := s.live.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("get live opportunities: %w", err)
		}
		all = append(all, live...)
	}

	if q.State == "" || q.State == types.GameStateUpcoming {
		upcoming, _, err := s.upcoming.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("get upcoming opportunities: %w", err)
		}
		all = append(all, upcoming...)
	}

	return Filter(all, q.MinProfitPct, q.Limit), nil
}

// Filter keeps opportunities at or above minProfitPct, sorted best first and
// capped at limit when limit is positive. The input is not modified.
func Filter(opps []*arbitrage.Opportunity, minProfitPct float64, limit int) []*arbitrage.Opportunity {
	result := make([]*arbitrage.Opportunity, 0, len(opps))
	for _, opp := range opps {
		if opp.ProfitPct >= minProfitPct {
			result = append(result, opp)
		}
	}

	arbitrage.SortOpportunities(result)

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result
}

// scan is the fetch function behind every cache. It runs with ctx detached from
// cancellation so a started scan always completes.
func (s *Scanner) scan(ctx context.Context) (*Result, error) {
	ctx = context.WithoutCancel(ctx)

	s.state.Store(StateScanning)
	defer s.state.Store(StateIdle)

	res := &Result{
		ID:        uuid.New().String(),
		StartedAt: s.now(),
	}

	events, failed := s.fetchAll(ctx)
	res.FailedSports = failed

	if len(failed) == len(s.sports) {
		ScansTotal.WithLabelValues("failed").Inc()
		ScanDurationSeconds.Observe(time.Since(res.StartedAt).Seconds())
		return nil, fmt.Errorf("scan %s: %w", res.ID, ErrAllSportsFailed)
	}

	records := s.detect(events, res)

	arbitrage.SortOpportunities(res.Live)
	arbitrage.SortOpportunities(res.Upcoming)
	res.CompletedAt = s.now()

	previous := s.previousKeys()

	s.live.Store(res.Live)
	s.upcoming.Store(res.Upcoming)

	CurrentOpportunities.WithLabelValues(string(types.GameStateLive)).Set(float64(len(res.Live)))
	CurrentOpportunities.WithLabelValues(string(types.GameStateUpcoming)).Set(float64(len(res.Upcoming)))

	all := make([]*arbitrage.Opportunity, 0, len(res.Live)+len(res.Upcoming))
	all = append(all, res.Live...)
	all = append(all, res.Upcoming...)

	s.publish(ctx, all, previous)

	if s.recorder != nil {
		s.recorder.Submit(records, all)
	}

	status := "success"
	if len(failed) > 0 {
		status = "partial"
	}
	ScansTotal.WithLabelValues(status).Inc()
	ScanDurationSeconds.Observe(res.CompletedAt.Sub(res.StartedAt).Seconds())

	s.logger.Info("scan-complete",
		zap.String("scan-id", res.ID),
		zap.Int("events", res.Events),
		zap.Int("groups", res.Groups),
		zap.Int("live-opportunities", len(res.Live)),
		zap.Int("upcoming-opportunities", len(res.Upcoming)),
		zap.Strings("failed-sports", failed),
		zap.Duration("duration", res.CompletedAt.Sub(res.StartedAt)))

	return res, nil
}

// fetchAll fetches every sport concurrently. A failed sport is logged and left out.
func (s *Scanner) fetchAll(ctx context.Context) ([]types.Event, []string) {
	perSport := make([][]types.Event, len(s.sports))
	errs := make([]error, len(s.sports))

	var g errgroup.Group
	for i, sport := range s.sports {
		g.Go(func() error {
			events, err := s.fetcher.FetchEvents(ctx, sport, odds.Filter{Live: odds.AllEvents})
			if err != nil {
				errs[i] = err
				return nil
			}
			perSport[i] = events
			return nil
		})
	}
	_ = g.Wait()

	var (
		events []types.Event
		failed []string
	)
	for i, sport := range s.sports {
		if errs[i] != nil {
			SportFetchFailuresTotal.WithLabelValues(sport).Inc()
			s.logger.Warn("sport-fetch-skipped",
				zap.String("sport", sport),
				zap.Error(errs[i]))
			failed = append(failed, sport)
			continue
		}
		events = append(events, perSport[i]...)
	}

	return events, failed
}

// detect classifies, groups and evaluates every event, filling res.
func (s *Scanner) detect(events []types.Event, res *Result) []storage.QuoteRecord {
	var (
		mu      sync.Mutex
		records []storage.QuoteRecord
		g       errgroup.Group
	)
	g.SetLimit(s.workers)

	for i := range events {
		event := &events[i]

		state, ok := Classify(event, res.StartedAt)
		if !ok {
			EventsSkippedTotal.Inc()
			continue
		}
		EventsScannedTotal.WithLabelValues(string(state)).Inc()

		g.Go(func() error {
			groups := s.resolver.GroupEvent(event)
			opps := s.engine.Detect(groups, state)
			batch := storage.FlattenGroups(res.ID, res.StartedAt, groups)

			mu.Lock()
			defer mu.Unlock()

			res.Events++
			res.Groups += len(groups)
			records = append(records, batch...)
			if state == types.GameStateLive {
				res.Live = append(res.Live, opps...)
			} else {
				res.Upcoming = append(res.Upcoming, opps...)
			}
			return nil
		})
	}
	_ = g.Wait()

	if res.Live == nil {
		res.Live = []*arbitrage.Opportunity{}
	}
	if res.Upcoming == nil {
		res.Upcoming = []*arbitrage.Opportunity{}
	}

	return records
}

func (s *Scanner) previousKeys() map[string]struct{} {
	keys := make(map[string]struct{})
	for _, c := range []*cache.Coalescer[[]*arbitrage.Opportunity]{s.live, s.upcoming} {
		opps, _, ok := c.Peek()
		if !ok {
			continue
		}
		for _, opp := range opps {
			keys[opp.Key] = struct{}{}
		}
	}
	return keys
}

// publish sends opportunities whose group was not in the previous scan to the
// notification streams, and the full snapshot to websocket clients.
func (s *Scanner) publish(ctx context.Context, all []*arbitrage.Opportunity, previous map[string]struct{}) {
	fresh := NewSince(all, previous)
	if len(fresh) > 0 {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := s.publisher.Publish(pubCtx, fresh)
		cancel()
		if err != nil {
			s.logger.Warn("opportunity-notification-failed",
				zap.Int("opportunity-count", len(fresh)),
				zap.Error(err))
		}
	}

	if s.broadcaster != nil {
		snapshot := Filter(all, 0, 0)
		_, err := s.broadcaster.Broadcast(MessageTypeOpportunities, snapshot)
		if err != nil {
			s.logger.Warn("opportunity-broadcast-failed", zap.Error(err))
		}
	}
}

// NewSince returns the opportunities whose group key is not in previous.
func NewSince(opps []*arbitrage.Opportunity, previous map[string]struct{}) []*arbitrage.Opportunity {
	var fresh []*arbitrage.Opportunity
	for _, opp := range opps {
		if _, seen := previous[opp.Key]; !seen {
			fresh = append(fresh, opp)
		}
	}
	return fresh
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
