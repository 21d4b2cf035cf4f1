package markets

import (
	"sort"
	"strings"
	"time"

	"github.com/mselser95/sports-arb/pkg/cache"
	"github.com/mselser95/sports-arb/pkg/oddsmath"
	"github.com/mselser95/sports-arb/pkg/types"
	"go.uber.org/zap"
)

// Quote is one bookmaker's price for one side of one market. Quotes are values and
// never mutated; a newer quote for the same bookmaker, group and side replaces the older one.
type Quote struct {
	Bookmaker string
	OddID     string
	Side      string
	American  float64
	Decimal   float64
	Line      string // as quoted by the bookmaker
	GroupLine string // normalized, from the home side for spreads; "" when the market has no line
	UpdatedAt time.Time
}

// MarketGroup is the set of quotes that price the same proposition.
type MarketGroup struct {
	Key         string
	EventID     string
	SportID     string
	LeagueID    string
	EventTitle  string
	StartsAt    time.Time
	StatID      string
	PeriodID    string
	BetTypeID   string
	Variant     string
	Subject     string
	SubjectKind string
	Line        string // reference line; every quote's GroupLine must equal it
	Outcomes    []string
	Description string
	Quotes      []Quote
}

// IsTeamTotal reports whether the group is an over/under on one team.
func (g *MarketGroup) IsTeamTotal() bool {
	return g.BetTypeID == types.BetTypeOverUnder && g.SubjectKind == SubjectTeam
}

// IsGameTotal reports whether the group is a full-scoring total for the whole game.
func (g *MarketGroup) IsGameTotal() bool {
	return g.BetTypeID == types.BetTypeOverUnder && g.SubjectKind == SubjectAll && g.StatID == "points"
}

// IsTwoWayMoneyline reports whether the group is a home/away moneyline without a draw.
func (g *MarketGroup) IsTwoWayMoneyline() bool {
	return g.BetTypeID == types.BetTypeMoneyline
}

// GroupKey builds the canonical key: event, category and variant, period, stat,
// subject and normalized line. Components are escaped so keys cannot collide.
func GroupKey(eventID string, d Descriptor, variant string, line string) string {
	if line == "" {
		line = "-"
	}

	parts := []string{eventID, d.BetTypeID + ":" + variant, d.PeriodID, d.StatID, d.Subject(), line}
	for i := range parts {
		parts[i] = strings.ReplaceAll(parts[i], "|", "%7C")
	}

	return strings.Join(parts, "|")
}

// Supersede returns whichever quote was updated last. Ties keep current.
func Supersede(current Quote, incoming Quote) Quote {
	if incoming.UpdatedAt.After(current.UpdatedAt) {
		return incoming
	}
	return current
}

// Resolver turns provider events into market groups.
type Resolver struct {
	parser *CachedParser
	labels LabelTable
	logger *zap.Logger
}

// ResolverConfig holds resolver configuration.
type ResolverConfig struct {
	Cache  cache.Cache
	Labels LabelTable
	Logger *zap.Logger
}

// NewResolver creates a resolver. Labels default to DefaultLabels.
func NewResolver(cfg *ResolverConfig) *Resolver {
	labels := cfg.Labels
	if labels == nil {
		labels = DefaultLabels()
	}

	return &Resolver{
		parser: NewCachedParser(cfg.Cache),
		labels: labels,
		logger: cfg.Logger,
	}
}

type slotKey struct {
	group     string
	side      string
	bookmaker string
}

// GroupEvent groups every usable quote in the event. Events without team names or a
// start time, and quotes with missing or unparseable fields, are dropped rather than
// defaulted. The result is sorted by key.
func (r *Resolver) GroupEvent(event *types.Event) []*MarketGroup {
	if event.EventID == "" || !event.HasTeams() {
		QuotesDroppedTotal.WithLabelValues("missing-teams").Add(float64(countQuotes(event)))
		r.logger.Debug("event-dropped-missing-teams", zap.String("event-id", event.EventID))
		return nil
	}

	if event.Status.StartsAt.IsZero() {
		QuotesDroppedTotal.WithLabelValues("missing-start-time").Add(float64(countQuotes(event)))
		r.logger.Debug("event-dropped-missing-start-time", zap.String("event-id", event.EventID))
		return nil
	}

	groups := make(map[string]*MarketGroup)
	latest := make(map[slotKey]Quote)

	for _, mapKey := range sortedKeys(event.Odds) {
		odd := event.Odds[mapKey]
		oddID := odd.OddID
		if oddID == "" {
			oddID = mapKey
		}

		d, err := r.parser.Parse(oddID)
		if err != nil {
			QuotesDroppedTotal.WithLabelValues("unknown-odd-id").Add(float64(len(odd.ByBookmaker)))
			r.logger.Debug("odd-dropped-unparseable",
				zap.String("event-id", event.EventID),
				zap.String("odd-id", oddID),
				zap.Error(err))
			continue
		}

		for _, bookmaker := range sortedKeys(odd.ByBookmaker) {
			quote, ok := r.buildQuote(event.EventID, d, bookmaker, odd.ByBookmaker[bookmaker])
			if !ok {
				continue
			}

			for _, m := range d.Memberships() {
				key := GroupKey(event.EventID, d, m.Variant, quote.GroupLine)
				if _, exists := groups[key]; !exists {
					groups[key] = r.newGroup(event, d, m, key, quote.GroupLine)
				}

				slot := slotKey{group: key, side: d.SideID, bookmaker: bookmaker}
				winner := quote
				if current, exists := latest[slot]; exists {
					QuotesSupersededTotal.Inc()
					winner = Supersede(current, quote)
				}
				latest[slot] = winner
			}
		}
	}

	for slot, quote := range latest {
		groups[slot.group].Quotes = append(groups[slot.group].Quotes, quote)
		QuotesResolvedTotal.Inc()
	}

	result := make([]*MarketGroup, 0, len(groups))
	for _, key := range sortedKeys(groups) {
		g := groups[key]
		sort.Slice(g.Quotes, func(i, j int) bool {
			if g.Quotes[i].Side != g.Quotes[j].Side {
				return g.Quotes[i].Side < g.Quotes[j].Side
			}
			return g.Quotes[i].Bookmaker < g.Quotes[j].Bookmaker
		})
		result = append(result, g)
	}

	GroupsBuiltTotal.Add(float64(len(result)))

	return result
}

func (r *Resolver) buildQuote(eventID string, d Descriptor, bookmaker string, raw types.BookmakerOdds) (Quote, bool) {
	drop := func(reason string) (Quote, bool) {
		QuotesDroppedTotal.WithLabelValues(reason).Inc()
		r.logger.Debug("quote-dropped",
			zap.String("event-id", eventID),
			zap.String("odd-id", d.OddID),
			zap.String("bookmaker", bookmaker),
			zap.String("reason", reason))
		return Quote{}, false
	}

	if !raw.Available {
		return drop("unavailable")
	}

	if raw.LastUpdatedAt.IsZero() {
		return drop("missing-timestamp")
	}

	american, err := oddsmath.ParseAmerican(raw.Odds)
	if err != nil {
		return drop("malformed-odds")
	}

	decimalOdds, err := oddsmath.AmericanToDecimal(american)
	if err != nil {
		return drop("malformed-odds")
	}

	line := LineFor(d, raw)
	groupLine, err := GroupLine(d, line)
	if err != nil {
		return drop("invalid-line")
	}

	return Quote{
		Bookmaker: bookmaker,
		OddID:     d.OddID,
		Side:      d.SideID,
		American:  american,
		Decimal:   decimalOdds,
		Line:      line,
		GroupLine: groupLine,
		UpdatedAt: raw.LastUpdatedAt,
	}, true
}

func (r *Resolver) newGroup(event *types.Event, d Descriptor, m Membership, key string, line string) *MarketGroup {
	return &MarketGroup{
		Key:         key,
		EventID:     event.EventID,
		SportID:     event.SportID,
		LeagueID:    event.LeagueID,
		EventTitle:  event.Title(),
		StartsAt:    event.Status.StartsAt,
		StatID:      d.StatID,
		PeriodID:    d.PeriodID,
		BetTypeID:   d.BetTypeID,
		Variant:     m.Variant,
		Subject:     d.Subject(),
		SubjectKind: d.SubjectKind(),
		Line:        line,
		Outcomes:    m.Outcomes,
		Description: Describe(r.labels, event, d, m.Variant, line),
	}
}

func countQuotes(event *types.Event) int {
	n := 0
	for _, odd := range event.Odds {
		n += len(odd.ByBookmaker)
	}
	return n
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
