package arbitrage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Heuristics are the empirically tuned validation thresholds. None of them are
// correctness guarantees; they exist to keep provider artifacts out of the results
// and can be replaced with a TOML file without a rebuild.
type Heuristics struct {
	BaselineConfidence     float64  `toml:"baseline_confidence"`
	MajorBookmakers        []string `toml:"major_bookmakers"`
	MajorBookmakerBonus    float64  `toml:"major_bookmaker_bonus"`
	MajorBookmakerBonusCap float64  `toml:"major_bookmaker_bonus_cap"`
	MarketTypeBonus        float64  `toml:"market_type_bonus"`
	TeamTotalPenalty       float64  `toml:"team_total_penalty"`
	PlausibilityPenalty    float64  `toml:"plausibility_penalty"`
	HighTierMin            float64  `toml:"high_tier_min"`
	MediumTierMin          float64  `toml:"medium_tier_min"`

	// Fantasy and pick'em platforms, plus placeholder IDs the provider emits for tests.
	DisallowedBookmakers []string `toml:"disallowed_bookmakers"`
	// Bookmakers known to fill unpriced props with +100 on every side.
	EvenMoneyDefaultBooks []string      `toml:"even_money_default_books"`
	PhantomRules          []PhantomRule `toml:"phantom_rules"`

	MaxProfitPctBySport          map[string]float64 `toml:"max_profit_pct_by_sport"`
	AllowAboveCeiling            map[string]bool    `toml:"allow_above_ceiling"`
	TeamTotalMaxProfitPctBySport map[string]float64 `toml:"team_total_max_profit_pct_by_sport"`
	LineRanges                   []LineRange        `toml:"line_ranges"`

	// SelectionDepth bounds how many of the best quotes per outcome are tried
	// when the single best quotes share a bookmaker.
	SelectionDepth int `toml:"selection_depth"`
}

// PhantomRule names a line/price combination a bookmaker does not actually offer.
// Lines are compared with the line as quoted, so an away spread rule lists the
// away side's sign. Empty fields match anything.
type PhantomRule struct {
	Bookmaker string    `toml:"bookmaker"`
	Sport     string    `toml:"sport"`
	BetType   string    `toml:"bet_type"`
	StatID    string    `toml:"stat_id"`
	Lines     []string  `toml:"lines"`
	Prices    []float64 `toml:"prices"`
}

// LineRange is the set of lines a sport actually uses for one market shape.
// Lines outside [Min, Max] or off the Step grid are flagged as implausible.
type LineRange struct {
	Sport   string  `toml:"sport"`
	BetType string  `toml:"bet_type"`
	Period  string  `toml:"period"`
	Min     float64 `toml:"min"`
	Max     float64 `toml:"max"`
	Step    float64 `toml:"step"`
}

// DefaultHeuristics returns the built-in thresholds.
func DefaultHeuristics() *Heuristics {
	return &Heuristics{
		BaselineConfidence:     0.5,
		MajorBookmakers:        []string{"pinnacle", "draftkings", "fanduel", "betmgm", "caesars", "bet365", "circa"},
		MajorBookmakerBonus:    0.15,
		MajorBookmakerBonusCap: 0.3,
		MarketTypeBonus:        0.1,
		TeamTotalPenalty:       0.2,
		PlausibilityPenalty:    0.25,
		HighTierMin:            0.75,
		MediumTierMin:          0.5,

		DisallowedBookmakers: []string{
			"prizepicks", "underdog", "sleeper", "parlayplay", "dabble", "betr_picks",
			"unknown", "test", "demo",
		},
		EvenMoneyDefaultBooks: []string{"bovada", "mybookie"},
		PhantomRules: []PhantomRule{
			{Bookmaker: "bovada", Sport: "SOCCER", BetType: "ou", StatID: "points", Lines: []string{"1.0", "2.0", "3.0", "4.0"}},
			{Bookmaker: "betonline", Sport: "HOCKEY", BetType: "ou", StatID: "points", Lines: []string{"4.0", "5.0", "6.0", "7.0"}},
		},

		MaxProfitPctBySport:          map[string]float64{},
		AllowAboveCeiling:            map[string]bool{},
		TeamTotalMaxProfitPctBySport: map[string]float64{"SOCCER": 2.0},
		LineRanges: []LineRange{
			{Sport: "FOOTBALL", BetType: "sp", Period: "game", Min: -30, Max: 30, Step: 0.5},
			{Sport: "FOOTBALL", BetType: "ou", Period: "game", Min: 28, Max: 70, Step: 0.5},
		},

		SelectionDepth: 4,
	}
}

// LoadHeuristics decodes a TOML file over the defaults. Keys absent from the file
// keep their default values; unknown keys are an error.
func LoadHeuristics(path string) (*Heuristics, error) {
	h := DefaultHeuristics()
	if path == "" {
		return h, nil
	}

	md, err := toml.DecodeFile(path, h)
	if err != nil {
		return nil, fmt.Errorf("decode heuristics %s: %w", path, err)
	}

	// Tables in arrays are decoded into the existing default elements, so
	// replace them wholesale to avoid inheriting default fields.
	if md.IsDefined("phantom_rules") || md.IsDefined("line_ranges") {
		var tables struct {
			PhantomRules []PhantomRule `toml:"phantom_rules"`
			LineRanges   []LineRange   `toml:"line_ranges"`
		}
		if _, err := toml.DecodeFile(path, &tables); err != nil {
			return nil, fmt.Errorf("decode heuristics %s: %w", path, err)
		}
		if md.IsDefined("phantom_rules") {
			h.PhantomRules = tables.PhantomRules
		}
		if md.IsDefined("line_ranges") {
			h.LineRanges = tables.LineRanges
		}
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown heuristics keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("invalid heuristics %s: %w", path, err)
	}

	return h, nil
}

// Validate checks the thresholds are internally consistent.
func (h *Heuristics) Validate() error {
	if h.HighTierMin < h.MediumTierMin {
		return fmt.Errorf("high_tier_min (%v) must be >= medium_tier_min (%v)", h.HighTierMin, h.MediumTierMin)
	}

	if h.SelectionDepth < 1 {
		return fmt.Errorf("selection_depth must be at least 1, got %d", h.SelectionDepth)
	}

	for _, r := range h.LineRanges {
		if r.Min > r.Max {
			return fmt.Errorf("line range %s/%s has min %v > max %v", r.Sport, r.BetType, r.Min, r.Max)
		}
	}

	return nil
}

type bookSet map[string]struct{}

func newBookSet(books []string) bookSet {
	set := make(bookSet, len(books))
	for _, b := range books {
		set[strings.ToLower(b)] = struct{}{}
	}
	return set
}

func (s bookSet) has(book string) bool {
	_, ok := s[strings.ToLower(book)]
	return ok
}
