package arbitrage

import (
	"fmt"
	"math"
	"time"

	"github.com/mselser95/sports-arb/internal/markets"
	"github.com/mselser95/sports-arb/pkg/oddsmath"
	"github.com/mselser95/sports-arb/pkg/types"
	"go.uber.org/zap"
)

// Rejection reasons. They double as the Prometheus label.
const (
	ReasonIncompleteOutcomes = "incomplete-outcomes"
	ReasonLineMismatch       = "line-mismatch"
	ReasonSingleBookmaker    = "single-bookmaker"
	ReasonBothUnderdogs      = "both-underdogs"
	ReasonNoArbitrage        = "no-arbitrage"
	ReasonBelowNoiseFloor    = "below-noise-floor"
	ReasonImplausibleProfit  = "implausible-profit"
)

// Rejection explains why a market group produced no opportunity.
type Rejection struct {
	Reason string
	Detail string
}

func (r *Rejection) String() string {
	if r.Detail == "" {
		return r.Reason
	}
	return r.Reason + ": " + r.Detail
}

// Engine computes and validates arbitrage over market groups.
type Engine struct {
	heuristics   *Heuristics
	validator    *validator
	minProfitPct float64
	maxProfitPct float64
	logger       *zap.Logger
	now          func() time.Time
}

// EngineConfig holds engine configuration.
type EngineConfig struct {
	StaleAfter   time.Duration
	MinProfitPct float64
	MaxProfitPct float64
	Heuristics   *Heuristics
	Logger       *zap.Logger
	Now          func() time.Time
}

// NewEngine creates an engine. Heuristics default to DefaultHeuristics.
func NewEngine(cfg *EngineConfig) *Engine {
	h := cfg.Heuristics
	if h == nil {
		h = DefaultHeuristics()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		heuristics:   h,
		validator:    newValidator(h, cfg.StaleAfter),
		minProfitPct: cfg.MinProfitPct,
		maxProfitPct: cfg.MaxProfitPct,
		logger:       logger,
		now:          now,
	}
}

// Detect evaluates every group and returns the opportunities that passed validation.
// A panic while evaluating one group is logged and that group is skipped.
func (e *Engine) Detect(groups []*markets.MarketGroup, state types.GameState) []*Opportunity {
	start := time.Now()
	defer func() {
		DetectionDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	var opps []*Opportunity
	for _, g := range groups {
		opp, rejection, err := e.evaluateIsolated(g, state)
		if err != nil {
			GroupPanicsTotal.Inc()
			e.logger.Error("market-group-evaluation-failed",
				zap.String("group-key", groupKey(g)),
				zap.Error(err))
			continue
		}

		if rejection != nil {
			if rejection.Reason != ReasonNoArbitrage {
				e.logger.Debug("opportunity-rejected",
					zap.String("group-key", g.Key),
					zap.String("reason", rejection.Reason),
					zap.String("detail", rejection.Detail))
			}
			continue
		}

		e.logger.Info("arbitrage-opportunity-detected",
			zap.String("opportunity-id", opp.ID),
			zap.String("group-key", opp.Key),
			zap.String("market", opp.Market),
			zap.Float64("profit-pct", opp.ProfitPct),
			zap.Float64("confidence", opp.Validation.Confidence),
			zap.String("tier", opp.Validation.Tier),
			zap.Strings("bookmakers", opp.Bookmakers()))

		opps = append(opps, opp)
	}

	return opps
}

func (e *Engine) evaluateIsolated(g *markets.MarketGroup, state types.GameState) (opp *Opportunity, rejection *Rejection, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	opp, rejection = e.Evaluate(g, state)
	return opp, rejection, nil
}

// Evaluate selects the best quote per outcome from distinct bookmakers and returns
// either a validated opportunity or the reason the group was rejected.
func (e *Engine) Evaluate(g *markets.MarketGroup, state types.GameState) (*Opportunity, *Rejection) {
	if len(g.Outcomes) < 2 {
		return nil, reject(ReasonIncompleteOutcomes, "fewer than two outcomes")
	}

	for _, q := range g.Quotes {
		if q.GroupLine != g.Line {
			return nil, reject(ReasonLineMismatch, fmt.Sprintf("%s quotes %q against %q", q.Bookmaker, q.GroupLine, g.Line))
		}
	}

	usable, excluded := e.validator.usableQuotes(g, e.now())
	for reason, n := range excluded {
		QuotesExcludedTotal.WithLabelValues(reason).Add(float64(n))
	}

	for _, outcome := range g.Outcomes {
		if len(usable[outcome]) == 0 {
			return nil, reject(ReasonIncompleteOutcomes, "no usable quote for "+outcome)
		}
	}

	legs, ok := selectLegs(g.Outcomes, usable, e.heuristics.SelectionDepth)
	if !ok {
		return nil, reject(ReasonSingleBookmaker, "no assignment with distinct bookmakers")
	}

	if g.IsTwoWayMoneyline() && allUnderdogs(legs) {
		return nil, reject(ReasonBothUnderdogs, "")
	}

	decimals := make([]float64, len(legs))
	for i, q := range legs {
		decimals[i] = q.Decimal
	}

	sum := oddsmath.InverseSum(decimals)
	if sum >= 1.0 {
		return nil, reject(ReasonNoArbitrage, "")
	}

	profit := oddsmath.ProfitPercent(sum)
	if math.Round(profit*100)/100 <= e.minProfitPct {
		return nil, reject(ReasonBelowNoiseFloor, fmt.Sprintf("%.4f%%", profit))
	}

	ceiling := e.maxProfitPct
	if c, ok := lookupSport(e.heuristics.MaxProfitPctBySport, g.SportID); ok {
		ceiling = c
	}

	aboveCeiling := profit > ceiling
	if aboveCeiling {
		if allowed, _ := lookupSport(e.heuristics.AllowAboveCeiling, g.SportID); !allowed {
			return nil, reject(ReasonImplausibleProfit, fmt.Sprintf("%.2f%% > %.2f%%", profit, ceiling))
		}
	}

	opp := newOpportunity(g, state, legs, e.now())

	var issues []string
	if g.IsTeamTotal() {
		issues = append(issues, IssueTeamTotal)
	}
	issues = append(issues, e.validator.plausibility(g, profit)...)
	if aboveCeiling {
		issues = append(issues, IssueAboveProfitCeiling)
	}

	confidence := e.validator.confidence(g, legs, issues)
	tier := e.validator.tier(confidence)
	if aboveCeiling {
		tier = TierLow
	}

	if issues == nil {
		issues = []string{}
	}

	opp.Validation = Validation{
		Confidence: confidence,
		Issues:     issues,
		Tier:       tier,
	}

	OpportunitiesDetectedTotal.WithLabelValues(g.SportID, tier).Inc()
	OpportunityProfitPct.Observe(profit)
	OpportunityConfidence.Observe(confidence)

	return opp, nil
}

func reject(reason string, detail string) *Rejection {
	OpportunitiesRejectedTotal.WithLabelValues(reason).Inc()
	return &Rejection{Reason: reason, Detail: detail}
}

func allUnderdogs(legs []markets.Quote) bool {
	for _, q := range legs {
		if q.American < 0 {
			return false
		}
	}
	return true
}

func groupKey(g *markets.MarketGroup) string {
	if g == nil {
		return ""
	}
	return g.Key
}
