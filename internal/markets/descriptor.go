package markets

import (
	"fmt"
	"strings"

	"github.com/mselser95/sports-arb/pkg/types"
)

// Descriptor is the parsed form of a provider odd ID:
// {statID}-{statEntityID}-{periodID}-{betTypeID}-{sideID}.
type Descriptor struct {
	OddID     string
	StatID    string
	EntityID  string
	PeriodID  string
	BetTypeID string
	SideID    string
}

// Membership places a quote in one outcome set of a market.
// A single quote can belong to more than one set: an away price in a
// three-way market is both a 1X2 leg and the counter of home+draw.
type Membership struct {
	Variant  string
	Outcomes []string
}

//nolint:gochecknoglobals // static outcome tables
var twoWayOutcomes = map[string][]string{
	types.BetTypeMoneyline: {types.SideHome, types.SideAway},
	types.BetTypeSpread:    {types.SideHome, types.SideAway},
	types.BetTypeOverUnder: {types.SideOver, types.SideUnder},
	types.BetTypeEvenOdd:   {types.SideEven, types.SideOdd},
	types.BetTypeYesNo:     {types.SideYes, types.SideNo},
}

//nolint:gochecknoglobals // static outcome tables
var threeWayMemberships = map[string][]Membership{
	types.SideHome: {
		{Variant: "1x2", Outcomes: []string{types.SideHome, types.SideAway, types.SideDraw}},
		{Variant: types.SideAwayOrDraw, Outcomes: []string{types.SideAwayOrDraw, types.SideHome}},
	},
	types.SideAway: {
		{Variant: "1x2", Outcomes: []string{types.SideHome, types.SideAway, types.SideDraw}},
		{Variant: types.SideHomeOrDraw, Outcomes: []string{types.SideHomeOrDraw, types.SideAway}},
	},
	types.SideDraw: {
		{Variant: "1x2", Outcomes: []string{types.SideHome, types.SideAway, types.SideDraw}},
		{Variant: types.SideNotDraw, Outcomes: []string{types.SideNotDraw, types.SideDraw}},
	},
	types.SideHomeOrDraw: {
		{Variant: types.SideHomeOrDraw, Outcomes: []string{types.SideHomeOrDraw, types.SideAway}},
	},
	types.SideAwayOrDraw: {
		{Variant: types.SideAwayOrDraw, Outcomes: []string{types.SideAwayOrDraw, types.SideHome}},
	},
	types.SideNotDraw: {
		{Variant: types.SideNotDraw, Outcomes: []string{types.SideNotDraw, types.SideDraw}},
	},
}

// ParseOddID splits an odd ID into its parts. Player entity IDs are taken as
// everything between the stat and the period, so the last three parts anchor the parse.
func ParseOddID(oddID string) (Descriptor, error) {
	parts := strings.Split(oddID, "-")
	if len(parts) < 5 {
		return Descriptor{}, fmt.Errorf("%w: %q has %d parts", types.ErrUnknownOddID, oddID, len(parts))
	}

	n := len(parts)
	d := Descriptor{
		OddID:     oddID,
		StatID:    parts[0],
		EntityID:  strings.Join(parts[1:n-3], "-"),
		PeriodID:  parts[n-3],
		BetTypeID: parts[n-2],
		SideID:    parts[n-1],
	}

	for _, field := range []string{d.StatID, d.EntityID, d.PeriodID, d.BetTypeID, d.SideID} {
		if field == "" {
			return Descriptor{}, fmt.Errorf("%w: %q has an empty part", types.ErrUnknownOddID, oddID)
		}
	}

	if len(d.Memberships()) == 0 {
		return Descriptor{}, fmt.Errorf("%w: %q has bet type %q with side %q",
			types.ErrUnknownOddID, oddID, d.BetTypeID, d.SideID)
	}

	return d, nil
}

// Memberships returns every outcome set this side participates in.
// Compound sides only ever appear in their own variant.
func (d Descriptor) Memberships() []Membership {
	if d.BetTypeID == types.BetTypeMoneyline3Way {
		return threeWayMemberships[d.SideID]
	}

	outcomes, ok := twoWayOutcomes[d.BetTypeID]
	if !ok {
		return nil
	}

	for _, o := range outcomes {
		if o == d.SideID {
			return []Membership{{Variant: "2way", Outcomes: outcomes}}
		}
	}

	return nil
}

// Subject is the thing the market is about: "all" for game-level markets,
// "home"/"away" for team markets, or a player ID.
// Moneylines and spreads name the side as entity, but they are game-level markets.
func (d Descriptor) Subject() string {
	switch d.BetTypeID {
	case types.BetTypeMoneyline, types.BetTypeSpread, types.BetTypeMoneyline3Way:
		if d.EntityID == types.EntityHome || d.EntityID == types.EntityAway || d.EntityID == types.EntityAll {
			return types.EntityAll
		}
	}

	return d.EntityID
}

// SubjectKind buckets the subject into all, team or player.
func (d Descriptor) SubjectKind() string {
	switch d.Subject() {
	case types.EntityAll:
		return SubjectAll
	case types.EntityHome, types.EntityAway:
		return SubjectTeam
	default:
		return SubjectPlayer
	}
}

// HasLine reports whether quotes for this descriptor must carry a line.
func (d Descriptor) HasLine() bool {
	return d.BetTypeID == types.BetTypeSpread || d.BetTypeID == types.BetTypeOverUnder
}

// IsTeamTotal reports whether this is an over/under on one team's stat.
func (d Descriptor) IsTeamTotal() bool {
	return d.BetTypeID == types.BetTypeOverUnder && d.SubjectKind() == SubjectTeam
}

// Subject kinds.
const (
	SubjectAll    = "all"
	SubjectTeam   = "team"
	SubjectPlayer = "player"
)
