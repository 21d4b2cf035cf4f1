package storage

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mselser95/sports-arb/internal/arbitrage"
	"github.com/mselser95/sports-arb/internal/markets"
	"github.com/mselser95/sports-arb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testTime = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func testOpportunity() *arbitrage.Opportunity {
	return &arbitrage.Opportunity{
		ID:         "3f1c2a9e-0d4b-4c55-9a7e-1b2c3d4e5f60",
		Key:        "e1|ml:2way|game|points|all|-",
		EventID:    "e1",
		SportID:    "BASKETBALL",
		EventTitle: "Away e1 @ Home e1",
		StartsAt:   testTime.Add(2 * time.Hour),
		Market:     "Full Game Moneyline",
		BetType:    "ml",
		GameState:  types.GameStateUpcoming,
		Legs: []arbitrage.Leg{
			{Outcome: "home", Bookmaker: "pinnacle", American: 150, Decimal: 2.5, StakeFraction: 0.4565, Stake: 45.65, Payout: 114.13},
			{Outcome: "away", Bookmaker: "draftkings", American: 110, Decimal: 2.1, StakeFraction: 0.5435, Stake: 54.35, Payout: 114.13},
		},
		ImpliedSum: 0.8762,
		ProfitPct:  14.13,
		Validation: arbitrage.Validation{Confidence: 0.9, Tier: arbitrage.TierHigh, Issues: []string{}},
		DetectedAt: testTime,
	}
}

func testQuotes() []QuoteRecord {
	return []QuoteRecord{
		{ScanID: "scan-1", EventID: "e1", SportID: "BASKETBALL", GroupKey: "e1|ml:2way|game|points|all|-",
			OddID: "points-home-game-ml-home", Bookmaker: "pinnacle", Side: "home", American: 150, Decimal: 2.5,
			UpdatedAt: testTime, ObservedAt: testTime},
		{ScanID: "scan-1", EventID: "e1", SportID: "BASKETBALL", GroupKey: "e1|ml:2way|game|points|all|-",
			OddID: "points-away-game-ml-away", Bookmaker: "draftkings", Side: "away", American: 110, Decimal: 2.1,
			UpdatedAt: testTime, ObservedAt: testTime},
	}
}

func TestFlattenGroups(t *testing.T) {
	groups := []*markets.MarketGroup{
		{
			Key:     "e1|ou:2way|game|points|all|220.5",
			EventID: "e1",
			SportID: "BASKETBALL",
			Quotes: []markets.Quote{
				{Bookmaker: "pinnacle", OddID: "points-all-game-ou-over", Side: "over", American: -110, Decimal: 1.909, Line: "220.5", UpdatedAt: testTime},
				{Bookmaker: "fanduel", OddID: "points-all-game-ou-under", Side: "under", American: -105, Decimal: 1.952, Line: "220.5", UpdatedAt: testTime},
			},
		},
		{Key: "e1|ml:2way|game|points|all|-", EventID: "e1", SportID: "BASKETBALL"},
	}

	observed := testTime.Add(time.Minute)
	records := FlattenGroups("scan-1", observed, groups)

	require.Len(t, records, 2)
	assert.Equal(t, "scan-1", records[0].ScanID)
	assert.Equal(t, "e1|ou:2way|game|points|all|220.5", records[0].GroupKey)
	assert.Equal(t, "over", records[0].Side)
	assert.Equal(t, "fanduel", records[1].Bookmaker)
	assert.Equal(t, observed, records[1].ObservedAt)
	assert.Equal(t, testTime, records[1].UpdatedAt)
}

func TestConsoleStorage_StoreOpportunities(t *testing.T) {
	var buf bytes.Buffer
	storage := &ConsoleStorage{out: &buf, logger: zap.NewNop()}

	opp := testOpportunity()
	err := storage.StoreOpportunities(context.Background(), []*arbitrage.Opportunity{opp})
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "ARBITRAGE OPPORTUNITY (UPCOMING)")
	assert.Contains(t, output, opp.EventTitle)
	assert.Contains(t, output, opp.Market)
	assert.Contains(t, output, "pinnacle")
	assert.Contains(t, output, "+150")
	assert.Contains(t, output, "14.13%")
	assert.NotContains(t, output, "Issues:")
}

func TestConsoleStorage_PrintsIssues(t *testing.T) {
	var buf bytes.Buffer
	storage := &ConsoleStorage{out: &buf, logger: zap.NewNop()}

	opp := testOpportunity()
	opp.Validation.Issues = []string{arbitrage.IssueTeamTotal}

	err := storage.StoreOpportunities(context.Background(), []*arbitrage.Opportunity{opp})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Issues:     team-total")
}

func TestConsoleStorage_StoreQuotes(t *testing.T) {
	var buf bytes.Buffer
	storage := &ConsoleStorage{out: &buf, logger: zap.NewNop()}

	require.NoError(t, storage.StoreQuotes(context.Background(), testQuotes()))
	require.NoError(t, storage.StoreQuotes(context.Background(), nil))
	assert.Empty(t, buf.String())
	assert.NoError(t, storage.Close())
}

func TestPostgresStorage_StoreQuotes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	storage := &PostgresStorage{db: db, logger: zap.NewNop()}
	records := testQuotes()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO raw_quotes")
	for _, r := range records {
		prep.ExpectExec().
			WithArgs(
				r.ScanID,
				r.EventID,
				r.SportID,
				r.GroupKey,
				r.OddID,
				r.Bookmaker,
				r.Side,
				r.American,
				r.Decimal,
				sqlmock.AnyArg(),
				r.UpdatedAt,
				r.ObservedAt,
			).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	err = storage.StoreQuotes(context.Background(), records)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_StoreQuotes_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	storage := &PostgresStorage{db: db, logger: zap.NewNop()}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO raw_quotes")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectRollback()

	err = storage.StoreQuotes(context.Background(), testQuotes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "points-away-game-ml-away/draftkings")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_StoreQuotes_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	storage := &PostgresStorage{db: db, logger: zap.NewNop()}

	require.NoError(t, storage.StoreQuotes(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_StoreOpportunities(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	storage := &PostgresStorage{db: db, logger: zap.NewNop()}
	opp := testOpportunity()

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO arbitrage_opportunities").
		ExpectExec().
		WithArgs(
			opp.ID,
			opp.Key,
			opp.EventID,
			opp.SportID,
			opp.EventTitle,
			opp.Market,
			opp.BetType,
			sqlmock.AnyArg(),
			string(types.GameStateUpcoming),
			opp.ProfitPct,
			opp.ImpliedSum,
			opp.Validation.Confidence,
			opp.Validation.Tier,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			opp.DetectedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = storage.StoreOpportunities(context.Background(), []*arbitrage.Opportunity{opp})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_BeginError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	storage := &PostgresStorage{db: db, logger: zap.NewNop()}

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err = storage.StoreOpportunities(context.Background(), []*arbitrage.Opportunity{testOpportunity()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	storage := &PostgresStorage{db: db, logger: zap.NewNop()}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS raw_quotes").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, storage.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_Close(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	storage := &PostgresStorage{db: db, logger: zap.NewNop()}

	mock.ExpectClose()

	require.NoError(t, storage.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_Interface(t *testing.T) {
	var _ Storage = NewConsoleStorage(zap.NewNop())

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var _ Storage = &PostgresStorage{db: db, logger: zap.NewNop()}
}

type recordingStorage struct {
	mu         sync.Mutex
	quotes     int
	opps       int
	closed     bool
	lateWrites int
	started    chan struct{}
	release    chan struct{}
	failWith   error
}

func (r *recordingStorage) StoreQuotes(ctx context.Context, records []QuoteRecord) error {
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.closed {
				r.lateWrites++
			}
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.lateWrites++
	}
	r.quotes += len(records)
	return r.failWith
}

func (r *recordingStorage) StoreOpportunities(ctx context.Context, opps []*arbitrage.Opportunity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.lateWrites++
	}
	r.opps += len(opps)
	return r.failWith
}

func (r *recordingStorage) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func TestAsyncWriter_FlushesOnClose(t *testing.T) {
	rec := &recordingStorage{}
	w := NewAsyncWriter(&AsyncWriterConfig{Storage: rec, BufferSize: 8, Logger: zap.NewNop()})

	for i := 0; i < 3; i++ {
		ok := w.Submit(testQuotes(), []*arbitrage.Opportunity{testOpportunity()})
		require.True(t, ok)
	}

	require.NoError(t, w.Close(context.Background()))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 6, rec.quotes)
	assert.Equal(t, 3, rec.opps)
	assert.True(t, rec.closed)
}

func TestAsyncWriter_DropsWhenFull(t *testing.T) {
	rec := &recordingStorage{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	w := NewAsyncWriter(&AsyncWriterConfig{Storage: rec, BufferSize: 1, Logger: zap.NewNop()})

	require.True(t, w.Submit(testQuotes(), nil))
	<-rec.started

	assert.True(t, w.Submit(testQuotes(), nil), "one batch fits in the queue")
	assert.False(t, w.Submit(testQuotes(), nil), "queue is full")

	close(rec.release)
	require.NoError(t, w.Close(context.Background()))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 4, rec.quotes)
}

func TestAsyncWriter_SubmitAfterClose(t *testing.T) {
	rec := &recordingStorage{}
	w := NewAsyncWriter(&AsyncWriterConfig{Storage: rec, BufferSize: 1, Logger: zap.NewNop()})

	require.NoError(t, w.Close(context.Background()))
	assert.False(t, w.Submit(testQuotes(), nil))
	assert.NoError(t, w.Close(context.Background()))
}

func TestAsyncWriter_ErrorsDoNotStopDrain(t *testing.T) {
	rec := &recordingStorage{failWith: errors.New("disk full")}
	w := NewAsyncWriter(&AsyncWriterConfig{Storage: rec, BufferSize: 4, Logger: zap.NewNop()})

	require.True(t, w.Submit(testQuotes(), nil))
	require.True(t, w.Submit(testQuotes(), nil))
	require.NoError(t, w.Close(context.Background()))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 4, rec.quotes)
}

func TestAsyncWriter_InterruptedCloseWaitsForDrain(t *testing.T) {
	rec := &recordingStorage{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	w := NewAsyncWriter(&AsyncWriterConfig{Storage: rec, BufferSize: 4, Logger: zap.NewNop()})

	for i := 0; i < 3; i++ {
		require.True(t, w.Submit(testQuotes(), []*arbitrage.Opportunity{testOpportunity()}))
	}
	<-rec.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, w.Close(ctx))

	select {
	case <-w.done:
	default:
		t.Fatal("storage closed before the drain loop exited")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.True(t, rec.closed)
	assert.Zero(t, rec.lateWrites)
	assert.Zero(t, rec.quotes)
	assert.Zero(t, rec.opps)
	assert.Len(t, rec.started, 0, "queued batches are dropped once the drain is aborted")
}
