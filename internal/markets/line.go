package markets

import (
	"fmt"
	"strings"

	"github.com/mselser95/sports-arb/pkg/types"
	"github.com/shopspring/decimal"
)

// LinePrecision is the number of decimal places lines are rounded to before comparison.
const LinePrecision int32 = 1

// NormalizeLine parses a spread or total and renders it at LinePrecision, so
// "2.5", "2.50" and "+2.5" all become "2.5". Pick'em spreads are zero.
func NormalizeLine(raw string) (string, error) {
	value, err := parseLine(raw)
	if err != nil {
		return "", err
	}

	return value.Round(LinePrecision).StringFixed(LinePrecision), nil
}

// GroupLine is the line used in the group key. Spreads are expressed from the
// home side, so home -3.5 and away +3.5 land in the same group.
func GroupLine(d Descriptor, raw string) (string, error) {
	if !d.HasLine() {
		return "", nil
	}

	value, err := parseLine(raw)
	if err != nil {
		return "", err
	}

	if d.BetTypeID == types.BetTypeSpread && d.SideID == types.SideAway {
		value = value.Neg()
	}

	return value.Round(LinePrecision).StringFixed(LinePrecision), nil
}

// LineFor picks the line field that applies to a descriptor's bet type.
func LineFor(d Descriptor, quote types.BookmakerOdds) string {
	if d.BetTypeID == types.BetTypeSpread {
		return quote.Spread
	}
	if d.BetTypeID == types.BetTypeOverUnder {
		return quote.OverUnder
	}
	return ""
}

func parseLine(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", types.ErrInvalidLine)
	}

	if strings.EqualFold(s, "pk") || strings.EqualFold(s, "pick") {
		return decimal.Zero, nil
	}

	value, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", types.ErrInvalidLine, raw)
	}

	return value, nil
}
