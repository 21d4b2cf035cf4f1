package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mselser95/sports-arb/internal/arbitrage"
	"github.com/mselser95/sports-arb/internal/markets"
	"github.com/mselser95/sports-arb/internal/odds"
	"github.com/mselser95/sports-arb/internal/storage"
	"github.com/mselser95/sports-arb/internal/testutil"
	"github.com/mselser95/sports-arb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	mu     sync.Mutex
	events map[string][]types.Event
	errs   map[string]error
	calls  int
	gate   chan struct{}
}

func (f *fakeFetcher) FetchEvents(ctx context.Context, sport string, filter odds.Filter) ([]types.Event, error) {
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if err := f.errs[sport]; err != nil {
		return nil, err
	}
	return f.events[sport], nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRecorder struct {
	mu     sync.Mutex
	quotes []storage.QuoteRecord
	opps   []*arbitrage.Opportunity
}

func (r *fakeRecorder) Submit(quotes []storage.QuoteRecord, opps []*arbitrage.Opportunity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotes = append(r.quotes, quotes...)
	r.opps = append(r.opps, opps...)
	return true
}

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]*arbitrage.Opportunity
}

func (p *fakePublisher) Publish(ctx context.Context, opps []*arbitrage.Opportunity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, opps)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages []interface{}
}

func (b *fakeBroadcaster) Broadcast(msgType string, data interface{}) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, data)
	return 1, nil
}

type harness struct {
	scanner     *Scanner
	fetcher     *fakeFetcher
	recorder    *fakeRecorder
	publisher   *fakePublisher
	broadcaster *fakeBroadcaster
}

func newHarness(t *testing.T, sports []string, fetcher *fakeFetcher) *harness {
	t.Helper()
	return newHarnessWithTTL(t, sports, fetcher, time.Minute)
}

func newHarnessWithTTL(t *testing.T, sports []string, fetcher *fakeFetcher, ttl time.Duration) *harness {
	t.Helper()

	logger := zap.NewNop()
	h := &harness{
		fetcher:     fetcher,
		recorder:    &fakeRecorder{},
		publisher:   &fakePublisher{},
		broadcaster: &fakeBroadcaster{},
	}

	h.scanner = New(&Config{
		Fetcher:  fetcher,
		Resolver: markets.NewResolver(&markets.ResolverConfig{Logger: logger}),
		Engine: arbitrage.NewEngine(&arbitrage.EngineConfig{
			StaleAfter:   5 * time.Minute,
			MinProfitPct: 0.01,
			MaxProfitPct: 8,
			Logger:       logger,
		}),
		Recorder:    h.recorder,
		Publisher:   h.publisher,
		Broadcaster: h.broadcaster,
		Sports:      sports,
		Interval:    time.Hour,
		LiveTTL:     ttl,
		UpcomingTTL: ttl,
		Workers:     4,
		Logger:      logger,
	})

	return h
}

// basketballSlate has one live and one upcoming arbitrage, one upcoming event
// without arbitrage and one ended event that would otherwise qualify.
func basketballSlate(now time.Time) []types.Event {
	live := testutil.MoneylineEvent("live1", "BASKETBALL", now.Add(-30*time.Minute), "pinnacle", "+120", "draftkings", "-105", now)
	upcoming := testutil.MoneylineEvent("up1", "BASKETBALL", now.Add(2*time.Hour), "fanduel", "+125", "betmgm", "-110", now)
	fair := testutil.MoneylineEvent("up2", "BASKETBALL", now.Add(3*time.Hour), "fanduel", "+100", "betmgm", "-110", now)
	ended := testutil.MoneylineEvent("done1", "BASKETBALL", now.Add(-3*time.Hour), "pinnacle", "+120", "draftkings", "-105", now)
	ended.Status.Ended = true

	return []types.Event{live, upcoming, fair, ended}
}

func TestClassify(t *testing.T) {
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status types.EventStatus
		want   types.GameState
		wantOK bool
	}{
		{name: "future start", status: types.EventStatus{StartsAt: now.Add(time.Hour)}, want: types.GameStateUpcoming, wantOK: true},
		{name: "start passed", status: types.EventStatus{StartsAt: now.Add(-time.Minute)}, want: types.GameStateLive, wantOK: true},
		{name: "starts now", status: types.EventStatus{StartsAt: now}, want: types.GameStateLive, wantOK: true},
		{name: "provider says live", status: types.EventStatus{StartsAt: now.Add(time.Hour), Live: true}, want: types.GameStateLive, wantOK: true},
		{name: "provider says started", status: types.EventStatus{StartsAt: now.Add(time.Hour), Started: true}, want: types.GameStateLive, wantOK: true},
		{name: "ended", status: types.EventStatus{StartsAt: now.Add(-time.Hour), Ended: true}, wantOK: false},
		{name: "cancelled", status: types.EventStatus{StartsAt: now.Add(time.Hour), Cancelled: true}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := types.Event{Status: tt.status}
			got, ok := Classify(&event, now)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanner_ScanOnce_RoutesByGameState(t *testing.T) {
	now := time.Now()
	fetcher := &fakeFetcher{events: map[string][]types.Event{"BASKETBALL": basketballSlate(now)}}
	h := newHarness(t, []string{"BASKETBALL"}, fetcher)

	res, err := h.scanner.ScanOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Live, 1)
	require.Len(t, res.Upcoming, 1)
	assert.Equal(t, "live1", res.Live[0].EventID)
	assert.Equal(t, types.GameStateLive, res.Live[0].GameState)
	assert.Equal(t, "up1", res.Upcoming[0].EventID)
	assert.Equal(t, types.GameStateUpcoming, res.Upcoming[0].GameState)
	assert.Equal(t, 3, res.Events)
	assert.Empty(t, res.FailedSports)
	assert.Equal(t, StateIdle, h.scanner.State())

	status := h.scanner.Status()
	assert.Equal(t, 2, status.OpportunityCount)
	assert.Equal(t, 1, status.LiveCount)
	assert.Equal(t, 1, status.UpcomingCount)
	assert.False(t, status.LastUpdate.IsZero())
	assert.False(t, status.Running)

	assert.Len(t, h.recorder.quotes, 6, "three evaluated events with two quotes each")
	assert.Len(t, h.recorder.opps, 2)
	for _, q := range h.recorder.quotes {
		assert.Equal(t, res.ID, q.ScanID)
	}

	require.Len(t, h.publisher.batches, 1)
	assert.Len(t, h.publisher.batches[0], 2)

	require.Len(t, h.broadcaster.messages, 1)
	snapshot := h.broadcaster.messages[0].([]*arbitrage.Opportunity)
	assert.Len(t, snapshot, 2)
}

func TestScanner_PublishesOnlyNewGroups(t *testing.T) {
	now := time.Now()
	fetcher := &fakeFetcher{events: map[string][]types.Event{"BASKETBALL": basketballSlate(now)}}
	h := newHarness(t, []string{"BASKETBALL"}, fetcher)

	_, err := h.scanner.ScanOnce(context.Background())
	require.NoError(t, err)

	extra := testutil.MoneylineEvent("up3", "BASKETBALL", now.Add(4*time.Hour), "caesars", "+130", "bet365", "-115", now)
	fetcher.mu.Lock()
	fetcher.events["BASKETBALL"] = append(basketballSlate(now), extra)
	fetcher.mu.Unlock()

	_, err = h.scanner.ScanOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, h.publisher.batches, 2)
	require.Len(t, h.publisher.batches[1], 1)
	assert.Equal(t, "up3", h.publisher.batches[1][0].EventID)
	assert.Len(t, h.broadcaster.messages, 2)
}

func TestScanner_FailedSportIsSkipped(t *testing.T) {
	now := time.Now()
	fetcher := &fakeFetcher{
		events: map[string][]types.Event{"BASKETBALL": basketballSlate(now)},
		errs:   map[string]error{"SOCCER": &odds.APIError{StatusCode: 503, Message: "unavailable"}},
	}
	h := newHarness(t, []string{"BASKETBALL", "SOCCER"}, fetcher)

	res, err := h.scanner.ScanOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"SOCCER"}, res.FailedSports)
	assert.Len(t, res.Live, 1)
	assert.Len(t, res.Upcoming, 1)
}

func TestScanner_AllSportsFailKeepsPreviousResult(t *testing.T) {
	now := time.Now()
	fetcher := &fakeFetcher{events: map[string][]types.Event{"BASKETBALL": basketballSlate(now)}}
	h := newHarness(t, []string{"BASKETBALL"}, fetcher)

	_, err := h.scanner.ScanOnce(context.Background())
	require.NoError(t, err)

	fetcher.mu.Lock()
	fetcher.errs = map[string]error{"BASKETBALL": errors.New("timeout")}
	fetcher.mu.Unlock()

	_, err = h.scanner.ScanOnce(context.Background())
	require.ErrorIs(t, err, ErrAllSportsFailed)

	status := h.scanner.Status()
	assert.Equal(t, 2, status.OpportunityCount)

	opps, err := h.scanner.Opportunities(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, opps, 2)
}

func TestScanner_OutageServesLastGoodResult(t *testing.T) {
	now := time.Now()
	fetcher := &fakeFetcher{events: map[string][]types.Event{"BASKETBALL": basketballSlate(now)}}
	h := newHarnessWithTTL(t, []string{"BASKETBALL"}, fetcher, 200*time.Millisecond)

	_, err := h.scanner.ScanOnce(context.Background())
	require.NoError(t, err)
	lastGood := h.scanner.LastUpdate()

	fetcher.mu.Lock()
	fetcher.errs = map[string]error{"BASKETBALL": errors.New("provider down")}
	fetcher.mu.Unlock()

	time.Sleep(250 * time.Millisecond)

	for i := 0; i < 5; i++ {
		opps, err := h.scanner.Opportunities(context.Background(), Query{})
		require.NoError(t, err)
		assert.Len(t, opps, 2)
	}

	assert.Equal(t, 2, fetcher.callCount(), "one failed scan for every read in the outage window")

	status := h.scanner.Status()
	assert.Equal(t, 2, status.OpportunityCount)
	assert.Equal(t, lastGood, status.LastUpdate)
}

func TestScanner_ConcurrentReadsShareOneScan(t *testing.T) {
	now := time.Now()
	fetcher := &fakeFetcher{
		events: map[string][]types.Event{"BASKETBALL": basketballSlate(now)},
		gate:   make(chan struct{}),
	}
	h := newHarness(t, []string{"BASKETBALL"}, fetcher)

	const readers = 10
	var wg sync.WaitGroup
	results := make([][]*arbitrage.Opportunity, readers)
	errs := make([]error, readers)

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = h.scanner.Opportunities(context.Background(), Query{})
		}()
	}

	require.Eventually(t, func() bool { return h.scanner.State() == StateScanning }, 2*time.Second, 5*time.Millisecond)
	close(fetcher.gate)
	wg.Wait()

	assert.Equal(t, 1, fetcher.callCount())
	for i := 0; i < readers; i++ {
		require.NoError(t, errs[i])
		assert.Len(t, results[i], 2)
	}
}

func TestScanner_FreshCacheDoesNotFetch(t *testing.T) {
	now := time.Now()
	fetcher := &fakeFetcher{events: map[string][]types.Event{"BASKETBALL": basketballSlate(now)}}
	h := newHarness(t, []string{"BASKETBALL"}, fetcher)

	_, err := h.scanner.ScanOnce(context.Background())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		live, err := h.scanner.Opportunities(context.Background(), Query{State: types.GameStateLive})
		require.NoError(t, err)
		assert.Len(t, live, 1)
	}

	assert.Equal(t, 1, fetcher.callCount())
}

func TestScanner_RequestRefresh(t *testing.T) {
	fetcher := &fakeFetcher{
		events: map[string][]types.Event{"BASKETBALL": basketballSlate(time.Now())},
		gate:   make(chan struct{}),
	}
	h := newHarness(t, []string{"BASKETBALL"}, fetcher)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = h.scanner.ScanOnce(context.Background())
	}()

	require.Eventually(t, func() bool { return h.scanner.State() == StateScanning }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, h.scanner.RequestRefresh(), "ignored while scanning")

	close(fetcher.gate)
	<-done

	assert.Equal(t, StateIdle, h.scanner.State())
	assert.True(t, h.scanner.RequestRefresh())
	assert.False(t, h.scanner.RequestRefresh(), "one request is already queued")
}

func TestScanner_RunStopsGracefully(t *testing.T) {
	fetcher := &fakeFetcher{events: map[string][]types.Event{"BASKETBALL": basketballSlate(time.Now())}}
	h := newHarness(t, []string{"BASKETBALL"}, fetcher)

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.scanner.Run(ctx)
	}()

	require.Eventually(t, func() bool { return !h.scanner.LastUpdate().IsZero() }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, h.scanner.Status().Running)

	require.True(t, h.scanner.RequestRefresh())
	require.Eventually(t, func() bool { return fetcher.callCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scanner did not stop")
	}

	<-h.scanner.Done()
	assert.False(t, h.scanner.Status().Running)
}

func TestFilter(t *testing.T) {
	opps := []*arbitrage.Opportunity{
		{Key: "a", ProfitPct: 0.5, Validation: arbitrage.Validation{Confidence: 0.6}},
		{Key: "b", ProfitPct: 2.0, Validation: arbitrage.Validation{Confidence: 0.6}},
		{Key: "c", ProfitPct: 1.0, Validation: arbitrage.Validation{Confidence: 0.9}},
		{Key: "d", ProfitPct: 1.0, Validation: arbitrage.Validation{Confidence: 0.7}},
	}

	tests := []struct {
		name      string
		minProfit float64
		limit     int
		want      []string
	}{
		{name: "all sorted", want: []string{"b", "c", "d", "a"}},
		{name: "min profit", minProfit: 1.0, want: []string{"b", "c", "d"}},
		{name: "limit", limit: 2, want: []string{"b", "c"}},
		{name: "min profit and limit", minProfit: 1.5, limit: 2, want: []string{"b"}},
		{name: "nothing qualifies", minProfit: 5, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(opps, tt.minProfit, tt.limit)
			keys := make([]string, len(got))
			for i, opp := range got {
				keys[i] = opp.Key
			}
			assert.Equal(t, tt.want, keys)
		})
	}

	assert.Equal(t, "a", opps[0].Key, "input order is untouched")
}

func TestNewSince(t *testing.T) {
	opps := []*arbitrage.Opportunity{{Key: "a"}, {Key: "b"}, {Key: "c"}}
	previous := map[string]struct{}{"b": {}}

	fresh := NewSince(opps, previous)
	require.Len(t, fresh, 2)
	assert.Equal(t, "a", fresh[0].Key)
	assert.Equal(t, "c", fresh[1].Key)

	assert.Len(t, NewSince(opps, nil), 3)
}
