package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mselser95/sports-arb/internal/arbitrage"
	"github.com/mselser95/sports-arb/pkg/oddsmath"
	"go.uber.org/zap"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// ConsoleStorage implements Storage by pretty-printing opportunities to stdout.
// Raw quotes are only counted in the log.
type ConsoleStorage struct {
	out    io.Writer
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		out:    os.Stdout,
		logger: logger,
	}
}

// StoreQuotes logs the batch size.
func (c *ConsoleStorage) StoreQuotes(ctx context.Context, records []QuoteRecord) error {
	scanID := ""
	if len(records) > 0 {
		scanID = records[0].ScanID
	}

	c.logger.Debug("quotes-batch-observed",
		zap.String("scan-id", scanID),
		zap.Int("quote-count", len(records)))

	return nil
}

// StoreOpportunities prints each opportunity.
func (c *ConsoleStorage) StoreOpportunities(ctx context.Context, opps []*arbitrage.Opportunity) error {
	for _, opp := range opps {
		c.print(opp)
	}
	return nil
}

func (c *ConsoleStorage) print(opp *arbitrage.Opportunity) {
	var b strings.Builder

	fmt.Fprintln(&b, "\n"+rule)
	fmt.Fprintf(&b, "🎯 ARBITRAGE OPPORTUNITY (%s)\n", opp.GameState)
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "ID:       %s\n", opp.ID[:8])
	fmt.Fprintf(&b, "Event:    %s (%s)\n", opp.EventTitle, opp.SportID)
	fmt.Fprintf(&b, "Market:   %s\n", opp.Market)
	fmt.Fprintf(&b, "Starts:   %s\n", opp.StartsAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Detected: %s\n", opp.DetectedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "📊 LEGS (per %.0f staked)\n", arbitrage.ExampleBankroll)
	for _, leg := range opp.Legs {
		fmt.Fprintf(&b, "  %-10s %-14s %6s (%.3f)  stake %6.2f  pays %7.2f\n",
			leg.Outcome, leg.Bookmaker, oddsmath.FormatAmerican(leg.American), leg.Decimal, leg.Stake, leg.Payout)
	}
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "💰 Profit:     %.2f%% (implied sum %.4f)\n", opp.ProfitPct, opp.ImpliedSum)
	fmt.Fprintf(&b, "   Confidence: %.2f (%s)\n", opp.Validation.Confidence, opp.Validation.Tier)
	if len(opp.Validation.Issues) > 0 {
		fmt.Fprintf(&b, "   Issues:     %s\n", strings.Join(opp.Validation.Issues, ", "))
	}
	fmt.Fprintln(&b, rule)

	_, _ = io.WriteString(c.out, b.String())
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
