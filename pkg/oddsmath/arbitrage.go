package oddsmath

import "math"

// ImpliedProbability converts decimal odds to implied probability.
// Decimal 2.00 → 0.50
func ImpliedProbability(decimal float64) float64 {
	if decimal <= 0 {
		return math.Inf(1)
	}
	return 1.0 / decimal
}

// InverseSum is the sum of implied probabilities across a set of decimal odds.
// A value below 1.0 means the set is an arbitrage.
func InverseSum(decimals []float64) float64 {
	var sum float64
	for _, d := range decimals {
		sum += ImpliedProbability(d)
	}
	return sum
}

// ProfitPercent returns the guaranteed return for an inverse sum, in percent.
// Sums at or above 1.0 yield 0.
func ProfitPercent(inverseSum float64) float64 {
	if inverseSum <= 0 || inverseSum >= 1.0 {
		return 0
	}
	return (1.0/inverseSum - 1.0) * 100.0
}

// StakeFractions splits a bankroll across legs so every outcome pays the same amount.
// Leg i receives (1/d_i) / sum of the bankroll.
func StakeFractions(decimals []float64) []float64 {
	sum := InverseSum(decimals)
	fractions := make([]float64, len(decimals))
	if sum <= 0 || math.IsInf(sum, 0) {
		return fractions
	}

	for i, d := range decimals {
		fractions[i] = ImpliedProbability(d) / sum
	}
	return fractions
}
