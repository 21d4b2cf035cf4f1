package types

// Bet type identifiers used in odd IDs.
const (
	BetTypeMoneyline     = "ml"
	BetTypeMoneyline3Way = "ml3way"
	BetTypeSpread        = "sp"
	BetTypeOverUnder     = "ou"
	BetTypeEvenOdd       = "eo"
	BetTypeYesNo         = "yn"
)

// Side identifiers used in odd IDs.
const (
	SideHome       = "home"
	SideAway       = "away"
	SideOver       = "over"
	SideUnder      = "under"
	SideYes        = "yes"
	SideNo         = "no"
	SideEven       = "even"
	SideOdd        = "odd"
	SideDraw       = "draw"
	SideHomeOrDraw = "home+draw"
	SideAwayOrDraw = "away+draw"
	SideNotDraw    = "not_draw"
)

// Stat entity identifiers that are not player IDs.
const (
	EntityAll  = "all"
	EntityHome = "home"
	EntityAway = "away"
)

// Period identifier for the whole match including overtime.
const PeriodGame = "game"

// GameState classifies an event at detection time.
type GameState string

const (
	GameStateLive     GameState = "LIVE"
	GameStateUpcoming GameState = "UPCOMING"
)
