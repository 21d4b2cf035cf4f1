package storage

import (
	"context"
	"time"

	"github.com/mselser95/sports-arb/internal/arbitrage"
	"github.com/mselser95/sports-arb/internal/markets"
)

// Storage persists raw quotes and detected opportunities. It is used for audit
// and debugging only; detection never reads it back.
type Storage interface {
	// StoreQuotes stores one scan's flattened quotes.
	StoreQuotes(ctx context.Context, records []QuoteRecord) error

	// StoreOpportunities stores the opportunities detected in one scan.
	StoreOpportunities(ctx context.Context, opps []*arbitrage.Opportunity) error

	// Close closes the storage connection.
	Close() error
}

// QuoteRecord is one bookmaker quote as observed during a scan.
type QuoteRecord struct {
	ScanID     string
	EventID    string
	SportID    string
	GroupKey   string
	OddID      string
	Bookmaker  string
	Side       string
	American   float64
	Decimal    float64
	Line       string
	UpdatedAt  time.Time
	ObservedAt time.Time
}

// FlattenGroups turns market groups into quote records. A quote that belongs to
// several groups appears once per group.
func FlattenGroups(scanID string, observedAt time.Time, groups []*markets.MarketGroup) []QuoteRecord {
	n := 0
	for _, g := range groups {
		n += len(g.Quotes)
	}

	records := make([]QuoteRecord, 0, n)
	for _, g := range groups {
		for _, q := range g.Quotes {
			records = append(records, QuoteRecord{
				ScanID:     scanID,
				EventID:    g.EventID,
				SportID:    g.SportID,
				GroupKey:   g.Key,
				OddID:      q.OddID,
				Bookmaker:  q.Bookmaker,
				Side:       q.Side,
				American:   q.American,
				Decimal:    q.Decimal,
				Line:       q.Line,
				UpdatedAt:  q.UpdatedAt,
				ObservedAt: observedAt,
			})
		}
	}

	return records
}
