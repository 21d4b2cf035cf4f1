package types

import (
	"strings"
	"time"
)

// EventsResponse is one page of the provider's /events endpoint.
type EventsResponse struct {
	Success    bool    `json:"success"`
	Data       []Event `json:"data"`
	NextCursor string  `json:"nextCursor"`
	Error      string  `json:"error"`
}

// Event is a single fixture with its nested odds.
type Event struct {
	EventID  string         `json:"eventID"`
	SportID  string         `json:"sportID"`
	LeagueID string         `json:"leagueID"`
	Teams    Teams          `json:"teams"`
	Status   EventStatus    `json:"status"`
	Odds     map[string]Odd `json:"odds"`
}

// Teams holds the home and away sides of an event.
type Teams struct {
	Home Team `json:"home"`
	Away Team `json:"away"`
}

// Team identifies one side of an event.
type Team struct {
	TeamID string    `json:"teamID"`
	Names  TeamNames `json:"names"`
}

// TeamNames holds the display variants of a team name.
type TeamNames struct {
	Long   string `json:"long"`
	Medium string `json:"medium"`
	Short  string `json:"short"`
}

// Display returns the most descriptive non-empty name.
func (n TeamNames) Display() string {
	switch {
	case n.Long != "":
		return n.Long
	case n.Medium != "":
		return n.Medium
	default:
		return n.Short
	}
}

// EventStatus is the provider's lifecycle block for an event.
type EventStatus struct {
	StartsAt  time.Time `json:"startsAt"`
	Started   bool      `json:"started"`
	Ended     bool      `json:"ended"`
	Cancelled bool      `json:"cancelled"`
	Live      bool      `json:"live"`
}

// Odd is one outcome of one market with the per-bookmaker prices.
type Odd struct {
	OddID        string                   `json:"oddID"`
	StatID       string                   `json:"statID"`
	StatEntityID string                   `json:"statEntityID"`
	PeriodID     string                   `json:"periodID"`
	BetTypeID    string                   `json:"betTypeID"`
	SideID       string                   `json:"sideID"`
	PlayerID     string                   `json:"playerID"`
	ByBookmaker  map[string]BookmakerOdds `json:"byBookmaker"`
}

// BookmakerOdds is a single bookmaker's price for an Odd.
type BookmakerOdds struct {
	Odds          string    `json:"odds"`
	OverUnder     string    `json:"overUnder"`
	Spread        string    `json:"spread"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	Available     bool      `json:"available"`
}

// HasTeams reports whether both sides carry a usable name.
func (e *Event) HasTeams() bool {
	return strings.TrimSpace(e.Teams.Home.Names.Display()) != "" &&
		strings.TrimSpace(e.Teams.Away.Names.Display()) != ""
}

// Title returns "Away @ Home".
func (e *Event) Title() string {
	return e.Teams.Away.Names.Display() + " @ " + e.Teams.Home.Names.Display()
}
