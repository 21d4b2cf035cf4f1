package arbitrage

import (
	"fmt"
	"time"

	"github.com/mselser95/sports-arb/internal/markets"
	"github.com/mselser95/sports-arb/pkg/oddsmath"
	"github.com/mselser95/sports-arb/pkg/types"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // fixed clock for tests
var testNow = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func newTestEngine(mods ...func(*EngineConfig)) *Engine {
	cfg := &EngineConfig{
		StaleAfter:   5 * time.Minute,
		MinProfitPct: 0.01,
		MaxProfitPct: 8,
		Logger:       zap.NewNop(),
		Now:          func() time.Time { return testNow },
	}
	for _, mod := range mods {
		mod(cfg)
	}
	return NewEngine(cfg)
}

func quoteAt(side string, book string, american float64, line string, age time.Duration) markets.Quote {
	dec, err := oddsmath.AmericanToDecimal(american)
	if err != nil {
		panic(err)
	}

	return markets.Quote{
		Bookmaker: book,
		OddID:     "points-all-game-x-" + side,
		Side:      side,
		American:  american,
		Decimal:   dec,
		Line:      line,
		GroupLine: line,
		UpdatedAt: testNow.Add(-age),
	}
}

func testGroup(sport string, betType string, subjectKind string, line string, quotes ...markets.Quote) *markets.MarketGroup {
	outcomes := map[string][]string{
		types.BetTypeMoneyline: {types.SideHome, types.SideAway},
		types.BetTypeSpread:    {types.SideHome, types.SideAway},
		types.BetTypeOverUnder: {types.SideOver, types.SideUnder},
		types.BetTypeYesNo:     {types.SideYes, types.SideNo},
	}[betType]

	subject := types.EntityAll
	switch subjectKind {
	case markets.SubjectTeam:
		subject = types.EntityHome
	case markets.SubjectPlayer:
		subject = "JOKIC_NIKOLA_1_NBA"
	}

	return &markets.MarketGroup{
		Key:         fmt.Sprintf("evt|%s:2way|game|points|%s|%s", betType, subject, line),
		EventID:     "evt",
		SportID:     sport,
		LeagueID:    sport + "_LEAGUE",
		EventTitle:  "Away @ Home",
		StartsAt:    testNow.Add(time.Hour),
		StatID:      "points",
		PeriodID:    types.PeriodGame,
		BetTypeID:   betType,
		Variant:     "2way",
		Subject:     subject,
		SubjectKind: subjectKind,
		Line:        line,
		Outcomes:    outcomes,
		Description: "test market",
		Quotes:      quotes,
	}
}
