package storage

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/lib/pq"
	"github.com/mselser95/sports-arb/internal/arbitrage"
	"go.uber.org/zap"
)

// Schema creates the tables PostgresStorage writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS raw_quotes (
	id          BIGSERIAL PRIMARY KEY,
	scan_id     UUID        NOT NULL,
	event_id    TEXT        NOT NULL,
	sport_id    TEXT        NOT NULL,
	group_key   TEXT        NOT NULL,
	odd_id      TEXT        NOT NULL,
	bookmaker   TEXT        NOT NULL,
	side        TEXT        NOT NULL,
	american    NUMERIC     NOT NULL,
	decimal     NUMERIC     NOT NULL,
	line        TEXT,
	updated_at  TIMESTAMPTZ NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS raw_quotes_group_key_idx ON raw_quotes (group_key, observed_at);

CREATE TABLE IF NOT EXISTS arbitrage_opportunities (
	id          UUID PRIMARY KEY,
	group_key   TEXT        NOT NULL,
	event_id    TEXT        NOT NULL,
	sport_id    TEXT        NOT NULL,
	event_title TEXT        NOT NULL,
	market      TEXT        NOT NULL,
	bet_type    TEXT        NOT NULL,
	line        TEXT,
	game_state  TEXT        NOT NULL,
	profit_pct  NUMERIC     NOT NULL,
	implied_sum NUMERIC     NOT NULL,
	confidence  NUMERIC     NOT NULL,
	tier        TEXT        NOT NULL,
	issues      TEXT[]      NOT NULL,
	legs        JSONB       NOT NULL,
	detected_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS arbitrage_opportunities_detected_at_idx ON arbitrage_opportunities (detected_at);
`

const insertQuote = `
	INSERT INTO raw_quotes (
		scan_id, event_id, sport_id, group_key, odd_id, bookmaker, side,
		american, decimal, line, updated_at, observed_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

const insertOpportunity = `
	INSERT INTO arbitrage_opportunities (
		id, group_key, event_id, sport_id, event_title, market, bet_type, line,
		game_state, profit_pct, implied_sum, confidence, tier, issues, legs, detected_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
`

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage connects to PostgreSQL and ensures the schema exists.
func NewPostgresStorage(ctx context.Context, cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}

	err = p.EnsureSchema(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return p, nil
}

// EnsureSchema creates missing tables and indexes.
func (p *PostgresStorage) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, Schema)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// StoreQuotes inserts the batch in a single transaction.
func (p *PostgresStorage) StoreQuotes(ctx context.Context, records []QuoteRecord) error {
	if len(records) == 0 {
		return nil
	}

	err := p.inTx(ctx, insertQuote, func(stmt *sql.Stmt) error {
		for _, r := range records {
			_, err := stmt.ExecContext(ctx,
				r.ScanID,
				r.EventID,
				r.SportID,
				r.GroupKey,
				r.OddID,
				r.Bookmaker,
				r.Side,
				r.American,
				r.Decimal,
				nullString(r.Line),
				r.UpdatedAt,
				r.ObservedAt,
			)
			if err != nil {
				return fmt.Errorf("insert quote %s/%s: %w", r.OddID, r.Bookmaker, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.logger.Debug("quotes-stored",
		zap.String("scan-id", records[0].ScanID),
		zap.Int("quote-count", len(records)))

	return nil
}

// StoreOpportunities inserts the batch in a single transaction.
func (p *PostgresStorage) StoreOpportunities(ctx context.Context, opps []*arbitrage.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	err := p.inTx(ctx, insertOpportunity, func(stmt *sql.Stmt) error {
		for _, opp := range opps {
			legs, err := json.Marshal(opp.Legs)
			if err != nil {
				return fmt.Errorf("marshal legs for %s: %w", opp.ID, err)
			}

			_, err = stmt.ExecContext(ctx,
				opp.ID,
				opp.Key,
				opp.EventID,
				opp.SportID,
				opp.EventTitle,
				opp.Market,
				opp.BetType,
				nullString(opp.Line),
				string(opp.GameState),
				opp.ProfitPct,
				opp.ImpliedSum,
				opp.Validation.Confidence,
				opp.Validation.Tier,
				pq.Array(opp.Validation.Issues),
				legs,
				opp.DetectedAt,
			)
			if err != nil {
				return fmt.Errorf("insert opportunity %s: %w", opp.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.logger.Debug("opportunities-stored", zap.Int("opportunity-count", len(opps)))

	return nil
}

func (p *PostgresStorage) inTx(ctx context.Context, query string, fn func(stmt *sql.Stmt) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	err = fn(stmt)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
