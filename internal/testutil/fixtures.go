package testutil

import (
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mselser95/sports-arb/pkg/types"
)

// NewEvent creates an event with team names and no odds.
func NewEvent(eventID string, sport string, startsAt time.Time) types.Event {
	return types.Event{
		EventID:  eventID,
		SportID:  sport,
		LeagueID: sport + "_LEAGUE",
		Teams: types.Teams{
			Home: types.Team{TeamID: "HOME_" + eventID, Names: types.TeamNames{Long: "Home " + eventID, Short: "HOM"}},
			Away: types.Team{TeamID: "AWAY_" + eventID, Names: types.TeamNames{Long: "Away " + eventID, Short: "AWY"}},
		},
		Status: types.EventStatus{StartsAt: startsAt},
		Odds:   make(map[string]types.Odd),
	}
}

// AddQuote adds one bookmaker price to the event under oddID.
// line is stored as spread for "sp" odds and overUnder otherwise; pass "" for none.
func AddQuote(event *types.Event, oddID string, bookmaker string, american string, line string, updatedAt time.Time) {
	odd, ok := event.Odds[oddID]
	if !ok {
		odd = types.Odd{OddID: oddID, ByBookmaker: make(map[string]types.BookmakerOdds)}
		parts := strings.Split(oddID, "-")
		if len(parts) == 5 {
			odd.StatID = parts[0]
			odd.StatEntityID = parts[1]
			odd.PeriodID = parts[2]
			odd.BetTypeID = parts[3]
			odd.SideID = parts[4]
		}
	}

	quote := types.BookmakerOdds{
		Odds:          american,
		LastUpdatedAt: updatedAt,
		Available:     true,
	}
	if odd.BetTypeID == types.BetTypeSpread {
		quote.Spread = line
	} else {
		quote.OverUnder = line
	}

	odd.ByBookmaker[bookmaker] = quote
	event.Odds[oddID] = odd
}

// MoneylineEvent builds an event with one home and one away moneyline price.
func MoneylineEvent(eventID string, sport string, startsAt time.Time, homeBook string, homeOdds string, awayBook string, awayOdds string, updatedAt time.Time) types.Event {
	event := NewEvent(eventID, sport, startsAt)
	AddQuote(&event, "points-home-game-ml-home", homeBook, homeOdds, "", updatedAt)
	AddQuote(&event, "points-away-game-ml-away", awayBook, awayOdds, "", updatedAt)
	return event
}

// EventsPage encodes a successful provider response page.
func EventsPage(events []types.Event, nextCursor string) []byte {
	body, err := json.Marshal(types.EventsResponse{
		Success:    true,
		Data:       events,
		NextCursor: nextCursor,
	})
	if err != nil {
		panic(err)
	}
	return body
}
