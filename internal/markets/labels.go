package markets

import (
	"strings"
	"unicode"

	"github.com/mselser95/sports-arb/pkg/types"
)

// LabelKey selects a description template. Empty fields act as wildcards.
type LabelKey struct {
	Sport   string
	StatID  string
	BetType string
	Subject string
}

// LabelTable maps market shapes to description templates. Templates may use
// {period}, {stat}, {subject} and {line}. Labels are cosmetic: grouping never reads them.
type LabelTable map[LabelKey]string

const genericTemplate = "{period} {stat} ({bettype})"

// DefaultLabels returns the built-in description templates.
func DefaultLabels() LabelTable {
	return LabelTable{
		{BetType: types.BetTypeMoneyline, Subject: SubjectAll}:     "{period} Moneyline",
		{BetType: types.BetTypeMoneyline3Way, Subject: SubjectAll}: "{period} 3-Way Moneyline",
		{BetType: types.BetTypeSpread, Subject: SubjectAll}:        "{period} Spread {line}",
		{BetType: types.BetTypeOverUnder, Subject: SubjectAll}:     "{period} Total {stat} {line}",
		{BetType: types.BetTypeOverUnder, Subject: SubjectTeam}:    "{subject} Team Total {stat} {line}",
		{BetType: types.BetTypeOverUnder, Subject: SubjectPlayer}:  "{subject} {stat} Over/Under {line}",
		{BetType: types.BetTypeYesNo, Subject: SubjectAll}:         "{period} {stat} Yes/No",
		{BetType: types.BetTypeYesNo, Subject: SubjectPlayer}:      "{subject} {stat} Yes/No",
		{BetType: types.BetTypeEvenOdd, Subject: SubjectAll}:       "{period} {stat} Odd/Even",

		{StatID: "bothTeamsScored", BetType: types.BetTypeYesNo, Subject: SubjectAll}: "{period} Both Teams To Score",

		{Sport: "SOCCER", StatID: "points", BetType: types.BetTypeOverUnder, Subject: SubjectAll}:     "{period} Total Goals {line}",
		{Sport: "SOCCER", StatID: "points", BetType: types.BetTypeMoneyline3Way, Subject: SubjectAll}: "{period} Match Result",
		{Sport: "HOCKEY", StatID: "points", BetType: types.BetTypeOverUnder, Subject: SubjectAll}:     "{period} Total Goals {line}",
		{Sport: "HOCKEY", StatID: "points", BetType: types.BetTypeSpread, Subject: SubjectAll}:        "{period} Puck Line {line}",
		{Sport: "BASEBALL", StatID: "points", BetType: types.BetTypeOverUnder, Subject: SubjectAll}:   "{period} Total Runs {line}",
		{Sport: "BASEBALL", StatID: "points", BetType: types.BetTypeSpread, Subject: SubjectAll}:      "{period} Run Line {line}",
		{Sport: "FOOTBALL", StatID: "points", BetType: types.BetTypeSpread, Subject: SubjectAll}:      "{period} Point Spread {line}",
	}
}

// Merge returns a copy of t with other's entries layered on top.
func (t LabelTable) Merge(other LabelTable) LabelTable {
	merged := make(LabelTable, len(t)+len(other))
	for k, v := range t {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Template returns the most specific template for the descriptor.
func (t LabelTable) Template(sport string, d Descriptor) string {
	kind := d.SubjectKind()
	candidates := []LabelKey{
		{Sport: sport, StatID: d.StatID, BetType: d.BetTypeID, Subject: kind},
		{StatID: d.StatID, BetType: d.BetTypeID, Subject: kind},
		{Sport: sport, BetType: d.BetTypeID, Subject: kind},
		{BetType: d.BetTypeID, Subject: kind},
		{BetType: d.BetTypeID},
	}

	for _, key := range candidates {
		if tmpl, ok := t[key]; ok {
			return tmpl
		}
	}

	return genericTemplate
}

//nolint:gochecknoglobals // static display names
var periodNames = map[string]string{
	"game": "Full Game",
	"reg":  "Regulation",
	"1h":   "1st Half",
	"2h":   "2nd Half",
	"1q":   "1st Quarter",
	"2q":   "2nd Quarter",
	"3q":   "3rd Quarter",
	"4q":   "4th Quarter",
	"1p":   "1st Period",
	"2p":   "2nd Period",
	"3p":   "3rd Period",
	"1i":   "1st Inning",
	"1ix5": "First 5 Innings",
	"1ix7": "First 7 Innings",
}

//nolint:gochecknoglobals // static display names
var statNames = map[string]string{
	"points":                  "Points",
	"rebounds":                "Rebounds",
	"assists":                 "Assists",
	"threePointersMade":       "3-Pointers Made",
	"points+rebounds+assists": "Pts+Reb+Ast",
	"goals":                   "Goals",
	"shots_onGoal":            "Shots on Goal",
	"batting_hits":            "Hits",
	"batting_homeRuns":        "Home Runs",
	"pitching_strikeouts":     "Strikeouts",
	"passing_yards":           "Passing Yards",
	"rushing_yards":           "Rushing Yards",
	"receiving_yards":         "Receiving Yards",
	"touchdowns":              "Touchdowns",
}

//nolint:gochecknoglobals // static display names
var variantSuffixes = map[string]string{
	types.SideHomeOrDraw: " - Double Chance (Home or Draw)",
	types.SideAwayOrDraw: " - Double Chance (Away or Draw)",
	types.SideNotDraw:    " - No Draw",
}

// Describe renders a best-effort description of a market for display.
func Describe(table LabelTable, event *types.Event, d Descriptor, variant string, line string) string {
	tmpl := table.Template(event.SportID, d)

	replacer := strings.NewReplacer(
		"{period}", PeriodName(d.PeriodID),
		"{stat}", StatName(d.StatID),
		"{subject}", subjectName(event, d),
		"{line}", line,
		"{bettype}", d.BetTypeID,
	)

	desc := strings.Join(strings.Fields(replacer.Replace(tmpl)), " ")
	return desc + variantSuffixes[variant]
}

// PeriodName returns the display name of a period ID.
func PeriodName(periodID string) string {
	if name, ok := periodNames[periodID]; ok {
		return name
	}
	return strings.ToUpper(periodID)
}

// StatName returns the display name of a stat ID, humanizing unknown codes.
func StatName(statID string) string {
	if name, ok := statNames[statID]; ok {
		return name
	}
	return humanize(statID)
}

func subjectName(event *types.Event, d Descriptor) string {
	switch d.Subject() {
	case types.EntityAll:
		return ""
	case types.EntityHome:
		return event.Teams.Home.Names.Display()
	case types.EntityAway:
		return event.Teams.Away.Names.Display()
	default:
		return playerName(d.Subject())
	}
}

// playerName turns LEBRON_JAMES_1_NBA into "Lebron James".
func playerName(playerID string) string {
	parts := strings.Split(playerID, "_")
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || unicode.IsDigit(rune(p[0])) {
			break
		}
		words = append(words, strings.ToUpper(p[:1])+strings.ToLower(p[1:]))
	}
	if len(words) == 0 {
		return playerID
	}
	return strings.Join(words, " ")
}

// humanize splits snake_case and camelCase codes into title-cased words.
func humanize(code string) string {
	var (
		words   []string
		current []rune
	)

	flush := func() {
		if len(current) > 0 {
			words = append(words, string(unicode.ToUpper(current[0]))+string(current[1:]))
			current = current[:0]
		}
	}

	for _, r := range code {
		switch {
		case r == '_' || r == '+' || r == ' ':
			flush()
		case unicode.IsUpper(r):
			flush()
			current = append(current, unicode.ToLower(r))
		default:
			current = append(current, r)
		}
	}
	flush()

	if len(words) == 0 {
		return code
	}
	return strings.Join(words, " ")
}
