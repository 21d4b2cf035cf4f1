package oddsmath

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mselser95/sports-arb/pkg/types"
)

// ParseAmerican reads a sign-and-magnitude American odds string such as "+150", "-110" or "EVEN".
// Values strictly between -100 and +100 do not exist in the American format and are rejected.
func ParseAmerican(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", types.ErrMalformedOdds)
	}

	if strings.EqualFold(s, "even") || strings.EqualFold(s, "ev") {
		return 100, nil
	}

	value, err := strconv.ParseFloat(strings.TrimPrefix(s, "+"), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", types.ErrMalformedOdds, s)
	}

	if math.IsNaN(value) || math.IsInf(value, 0) || math.Abs(value) < 100 {
		return 0, fmt.Errorf("%w: %q out of range", types.ErrMalformedOdds, s)
	}

	return value, nil
}

// AmericanToDecimal converts American odds to decimal odds.
// American +150 → Decimal 2.50
// American -150 → Decimal 1.67
func AmericanToDecimal(american float64) (float64, error) {
	if math.Abs(american) < 100 {
		return 0, fmt.Errorf("%w: %v out of range", types.ErrMalformedOdds, american)
	}

	if american > 0 {
		return american/100.0 + 1.0, nil
	}

	return 100.0/math.Abs(american) + 1.0, nil
}

// DecimalToAmerican converts decimal odds to American odds.
// Decimal 2.50 → American +150
// Decimal 1.67 → American -149
func DecimalToAmerican(decimal float64) (float64, error) {
	if decimal <= 1.0 {
		return 0, fmt.Errorf("invalid decimal odds: must be > 1.0, got %v", decimal)
	}

	if decimal >= 2.0 {
		return math.Round((decimal - 1.0) * 100.0), nil
	}

	return math.Round(-100.0 / (decimal - 1.0)), nil
}

// FormatAmerican renders American odds with an explicit sign.
func FormatAmerican(american float64) string {
	if american > 0 {
		return "+" + strconv.FormatFloat(american, 'f', -1, 64)
	}
	return strconv.FormatFloat(american, 'f', -1, 64)
}
