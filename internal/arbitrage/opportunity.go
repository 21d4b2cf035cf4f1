package arbitrage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/sports-arb/internal/markets"
	"github.com/mselser95/sports-arb/pkg/oddsmath"
	"github.com/mselser95/sports-arb/pkg/types"
)

// ExampleBankroll is the stake used to illustrate each leg's bet and payout.
const ExampleBankroll = 100.0

// Quality tiers.
const (
	TierHigh   = "high"
	TierMedium = "medium"
	TierLow    = "low"
)

// Leg is the bet placed on one outcome.
type Leg struct {
	Outcome       string    `json:"outcome"`
	Bookmaker     string    `json:"bookmaker"`
	OddID         string    `json:"odd_id"`
	American      float64   `json:"american"`
	Decimal       float64   `json:"decimal"`
	Line          string    `json:"line,omitempty"`
	StakeFraction float64   `json:"stake_fraction"`
	Stake         float64   `json:"stake"`
	Payout        float64   `json:"payout"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validation records how much the engine trusts an opportunity.
type Validation struct {
	Confidence float64  `json:"confidence"`
	Issues     []string `json:"issues"`
	Tier       string   `json:"tier"`
}

// Opportunity is a validated arbitrage over one market group. It is never
// mutated; a later detection for the same group produces a new Opportunity.
type Opportunity struct {
	ID         string          `json:"id"`
	Key        string          `json:"key"`
	EventID    string          `json:"event_id"`
	SportID    string          `json:"sport_id"`
	LeagueID   string          `json:"league_id"`
	EventTitle string          `json:"event_title"`
	StartsAt   time.Time       `json:"starts_at"`
	Market     string          `json:"market"`
	BetType    string          `json:"bet_type"`
	PeriodID   string          `json:"period_id"`
	StatID     string          `json:"stat_id"`
	Subject    string          `json:"subject"`
	Line       string          `json:"line,omitempty"`
	GameState  types.GameState `json:"game_state"`
	Legs       []Leg           `json:"legs"`
	ImpliedSum float64         `json:"implied_sum"`
	ProfitPct  float64         `json:"profit_pct"`
	Validation Validation      `json:"validation"`
	DetectedAt time.Time       `json:"detected_at"`
}

func newOpportunity(g *markets.MarketGroup, state types.GameState, legs []markets.Quote, detectedAt time.Time) *Opportunity {
	decimals := make([]float64, len(legs))
	for i, q := range legs {
		decimals[i] = q.Decimal
	}

	sum := oddsmath.InverseSum(decimals)
	fractions := oddsmath.StakeFractions(decimals)

	opp := &Opportunity{
		ID:         uuid.New().String(),
		Key:        g.Key,
		EventID:    g.EventID,
		SportID:    g.SportID,
		LeagueID:   g.LeagueID,
		EventTitle: g.EventTitle,
		StartsAt:   g.StartsAt,
		Market:     g.Description,
		BetType:    g.BetTypeID,
		PeriodID:   g.PeriodID,
		StatID:     g.StatID,
		Subject:    g.Subject,
		Line:       g.Line,
		GameState:  state,
		Legs:       make([]Leg, len(legs)),
		ImpliedSum: sum,
		ProfitPct:  oddsmath.ProfitPercent(sum),
		DetectedAt: detectedAt,
	}

	for i, q := range legs {
		stake := fractions[i] * ExampleBankroll
		opp.Legs[i] = Leg{
			Outcome:       q.Side,
			Bookmaker:     q.Bookmaker,
			OddID:         q.OddID,
			American:      q.American,
			Decimal:       q.Decimal,
			Line:          q.Line,
			StakeFraction: fractions[i],
			Stake:         stake,
			Payout:        stake * q.Decimal,
			UpdatedAt:     q.UpdatedAt,
		}
	}

	return opp
}

// Bookmakers returns the bookmakers used by the legs, sorted.
func (o *Opportunity) Bookmakers() []string {
	books := make([]string, 0, len(o.Legs))
	for _, leg := range o.Legs {
		books = append(books, leg.Bookmaker)
	}
	sort.Strings(books)
	return books
}

// String returns a one-line summary.
func (o *Opportunity) String() string {
	legs := make([]string, len(o.Legs))
	for i, leg := range o.Legs {
		legs[i] = fmt.Sprintf("%s@%s %s", leg.Outcome, leg.Bookmaker, oddsmath.FormatAmerican(leg.American))
	}

	return fmt.Sprintf("Opportunity[%s] %s %s profit=%.2f%% tier=%s legs=[%s]",
		o.ID[:8],
		o.EventTitle,
		o.Market,
		o.ProfitPct,
		o.Validation.Tier,
		strings.Join(legs, ", "),
	)
}

// SortOpportunities orders by profit descending, then confidence descending, then key.
func SortOpportunities(opps []*Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		a, b := opps[i], opps[j]
		if a.ProfitPct != b.ProfitPct {
			return a.ProfitPct > b.ProfitPct
		}
		if a.Validation.Confidence != b.Validation.Confidence {
			return a.Validation.Confidence > b.Validation.Confidence
		}
		return a.Key < b.Key
	})
}
