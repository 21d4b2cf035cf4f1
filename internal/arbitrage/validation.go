package arbitrage

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mselser95/sports-arb/internal/markets"
	"github.com/mselser95/sports-arb/pkg/types"
)

// Quote exclusion reasons.
const (
	ExcludeStale            = "stale"
	ExcludePhantom          = "phantom-line"
	ExcludeDisallowed       = "disallowed-bookmaker"
	ExcludeDefaultEvenMoney = "default-even-money"
)

// Plausibility issues recorded on an opportunity.
const (
	IssueTeamTotal          = "team-total"
	IssueTeamTotalProfit    = "team-total-profit-suspect"
	IssueLineOutOfRange     = "line-outside-valid-set"
	IssueAboveProfitCeiling = "above-profit-ceiling"
)

const evenMoney = 100.0

// validator applies the per-quote exclusions and the sport plausibility rules.
type validator struct {
	h          *Heuristics
	staleAfter time.Duration
	major      bookSet
	disallowed bookSet
	evenMoney  bookSet
}

func newValidator(h *Heuristics, staleAfter time.Duration) *validator {
	return &validator{
		h:          h,
		staleAfter: staleAfter,
		major:      newBookSet(h.MajorBookmakers),
		disallowed: newBookSet(h.DisallowedBookmakers),
		evenMoney:  newBookSet(h.EvenMoneyDefaultBooks),
	}
}

// usableQuotes drops every quote that must not take part in selection and
// returns the rest grouped by outcome. The map of exclusion counts is keyed by reason.
func (v *validator) usableQuotes(g *markets.MarketGroup, now time.Time) (map[string][]markets.Quote, map[string]int) {
	excluded := make(map[string]int)
	defaulted := v.defaultEvenMoneyBooks(g)
	byOutcome := make(map[string][]markets.Quote, len(g.Outcomes))

	for _, q := range g.Quotes {
		reason := v.exclusion(g, q, now, defaulted)
		if reason != "" {
			excluded[reason]++
			continue
		}
		byOutcome[q.Side] = append(byOutcome[q.Side], q)
	}

	return byOutcome, excluded
}

func (v *validator) exclusion(g *markets.MarketGroup, q markets.Quote, now time.Time, defaulted bookSet) string {
	switch {
	case v.disallowed.has(q.Bookmaker):
		return ExcludeDisallowed
	case v.staleAfter > 0 && now.Sub(q.UpdatedAt) > v.staleAfter:
		return ExcludeStale
	case v.isPhantom(g, q):
		return ExcludePhantom
	case defaulted.has(q.Bookmaker):
		return ExcludeDefaultEvenMoney
	case isProp(g) && q.American == evenMoney && v.evenMoney.has(q.Bookmaker):
		return ExcludeDefaultEvenMoney
	}
	return ""
}

// defaultEvenMoneyBooks finds bookmakers pricing every side of a prop at exactly
// +100, which is how unpriced props show up rather than a real market.
func (v *validator) defaultEvenMoneyBooks(g *markets.MarketGroup) bookSet {
	result := make(bookSet)
	if !isProp(g) {
		return result
	}

	sides := make(map[string]map[string]bool)
	for _, q := range g.Quotes {
		if sides[q.Bookmaker] == nil {
			sides[q.Bookmaker] = make(map[string]bool)
		}
		prev, seen := sides[q.Bookmaker][q.Side]
		sides[q.Bookmaker][q.Side] = (q.American == evenMoney) && (!seen || prev)
	}

	for book, quoted := range sides {
		if len(quoted) < len(g.Outcomes) {
			continue
		}
		allEven := true
		for _, even := range quoted {
			allEven = allEven && even
		}
		if allEven {
			result[strings.ToLower(book)] = struct{}{}
		}
	}

	return result
}

func (v *validator) isPhantom(g *markets.MarketGroup, q markets.Quote) bool {
	for _, rule := range v.h.PhantomRules {
		if rule.Bookmaker != "" && !strings.EqualFold(rule.Bookmaker, q.Bookmaker) {
			continue
		}
		if rule.Sport != "" && !strings.EqualFold(rule.Sport, g.SportID) {
			continue
		}
		if rule.BetType != "" && rule.BetType != g.BetTypeID {
			continue
		}
		if rule.StatID != "" && rule.StatID != g.StatID {
			continue
		}
		if len(rule.Lines) > 0 && !containsLine(rule.Lines, quotedLine(q)) {
			continue
		}
		if len(rule.Prices) > 0 && !containsPrice(rule.Prices, q.American) {
			continue
		}
		return true
	}
	return false
}

// plausibility returns the sport-specific issues for an opportunity.
func (v *validator) plausibility(g *markets.MarketGroup, profitPct float64) []string {
	var issues []string

	if g.IsTeamTotal() {
		if ceiling, ok := lookupSport(v.h.TeamTotalMaxProfitPctBySport, g.SportID); ok && profitPct > ceiling {
			issues = append(issues, IssueTeamTotalProfit)
		}
	}

	if g.Line != "" {
		line, err := strconv.ParseFloat(g.Line, 64)
		if err == nil {
			for _, r := range v.h.LineRanges {
				if !strings.EqualFold(r.Sport, g.SportID) || r.BetType != g.BetTypeID {
					continue
				}
				if r.Period != "" && r.Period != g.PeriodID {
					continue
				}
				if g.SubjectKind != markets.SubjectAll {
					continue
				}
				if !r.contains(line) {
					issues = append(issues, IssueLineOutOfRange)
					break
				}
			}
		}
	}

	return issues
}

func (r LineRange) contains(line float64) bool {
	if line < r.Min || line > r.Max {
		return false
	}
	if r.Step <= 0 {
		return true
	}
	steps := line / r.Step
	return math.Abs(steps-math.Round(steps)) < 1e-9
}

// confidence starts from the baseline and applies bookmaker, market type and
// plausibility adjustments, clamped to [0, 1].
func (v *validator) confidence(g *markets.MarketGroup, legs []markets.Quote, issues []string) float64 {
	score := v.h.BaselineConfidence

	bonus := 0.0
	for _, q := range legs {
		if v.major.has(q.Bookmaker) {
			bonus += v.h.MajorBookmakerBonus
		}
	}
	score += math.Min(bonus, v.h.MajorBookmakerBonusCap)

	if g.BetTypeID == types.BetTypeMoneyline || g.BetTypeID == types.BetTypeMoneyline3Way || g.IsGameTotal() {
		score += v.h.MarketTypeBonus
	}

	for _, issue := range issues {
		switch issue {
		case IssueTeamTotal:
			score -= v.h.TeamTotalPenalty
		case IssueTeamTotalProfit, IssueLineOutOfRange:
			score -= v.h.PlausibilityPenalty
		}
	}

	return math.Max(0, math.Min(1, score))
}

func (v *validator) tier(score float64) string {
	switch {
	case score >= v.h.HighTierMin:
		return TierHigh
	case score >= v.h.MediumTierMin:
		return TierMedium
	default:
		return TierLow
	}
}

// selectLegs picks one quote per outcome from distinct bookmakers, minimizing the
// implied probability sum. Candidates are tried best first, at most depth per outcome,
// so the result is deterministic for a fixed input. ok is false when no assignment
// with distinct bookmakers exists.
func selectLegs(outcomes []string, byOutcome map[string][]markets.Quote, depth int) ([]markets.Quote, bool) {
	candidates := make([][]markets.Quote, len(outcomes))
	for i, outcome := range outcomes {
		quotes := append([]markets.Quote(nil), byOutcome[outcome]...)
		sort.SliceStable(quotes, func(a, b int) bool {
			if quotes[a].Decimal != quotes[b].Decimal {
				return quotes[a].Decimal > quotes[b].Decimal
			}
			return quotes[a].Bookmaker < quotes[b].Bookmaker
		})
		if len(quotes) > depth {
			quotes = quotes[:depth]
		}
		candidates[i] = quotes
	}

	var (
		best    []markets.Quote
		bestSum = math.Inf(1)
		current = make([]markets.Quote, len(outcomes))
		used    = make(map[string]bool)
	)

	var walk func(i int, sum float64)
	walk = func(i int, sum float64) {
		if sum >= bestSum {
			return
		}
		if i == len(outcomes) {
			bestSum = sum
			best = append(best[:0], current...)
			return
		}
		for _, q := range candidates[i] {
			book := strings.ToLower(q.Bookmaker)
			if used[book] {
				continue
			}
			used[book] = true
			current[i] = q
			walk(i+1, sum+1/q.Decimal)
			used[book] = false
		}
	}
	walk(0, 0)

	return best, best != nil
}

func isProp(g *markets.MarketGroup) bool {
	return g.SubjectKind == markets.SubjectPlayer ||
		g.BetTypeID == types.BetTypeYesNo ||
		g.BetTypeID == types.BetTypeEvenOdd
}

func lookupSport[V any](m map[string]V, sport string) (V, bool) {
	if v, ok := m[sport]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, sport) {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// quotedLine is the line as the bookmaker offered it. For spreads this differs
// in sign from GroupLine on the away side.
func quotedLine(q markets.Quote) string {
	if line, err := markets.NormalizeLine(q.Line); err == nil {
		return line
	}
	return q.GroupLine
}

func containsLine(lines []string, line string) bool {
	for _, l := range lines {
		normalized, err := markets.NormalizeLine(l)
		if err == nil && normalized == line {
			return true
		}
	}
	return false
}

func containsPrice(prices []float64, american float64) bool {
	for _, p := range prices {
		if p == american {
			return true
		}
	}
	return false
}
