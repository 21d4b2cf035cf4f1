package oddsmath

import (
	"errors"
	"math"
	"testing"

	"github.com/mselser95/sports-arb/pkg/types"
)

const epsilon = 1e-6

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestAmericanToDecimal(t *testing.T) {
	tests := []struct {
		american float64
		want     float64
	}{
		{american: 150, want: 2.5},
		{american: 110, want: 2.1},
		{american: 100, want: 2.0},
		{american: -100, want: 2.0},
		{american: -110, want: 1.0 + 100.0/110.0},
		{american: -200, want: 1.5},
	}

	for _, tt := range tests {
		got, err := AmericanToDecimal(tt.american)
		if err != nil {
			t.Fatalf("%v: unexpected error %v", tt.american, err)
		}
		if !floatEquals(got, tt.want) {
			t.Errorf("%v: expected %v, got %v", tt.american, tt.want, got)
		}
	}
}

func TestAmericanToDecimal_OutOfRange(t *testing.T) {
	for _, american := range []float64{0, 50, -99} {
		_, err := AmericanToDecimal(american)
		if !errors.Is(err, types.ErrMalformedOdds) {
			t.Errorf("%v: expected ErrMalformedOdds, got %v", american, err)
		}
	}
}

func TestParseAmerican(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "+150", want: 150},
		{in: "-110", want: -110},
		{in: " 200 ", want: 200},
		{in: "EVEN", want: 100},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "+50", wantErr: true},
		{in: "NaN", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseAmerican(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestDecimalToAmerican_RoundTrip(t *testing.T) {
	for _, american := range []float64{150, -150, 250, -250, 100} {
		decimal, err := AmericanToDecimal(american)
		if err != nil {
			t.Fatal(err)
		}
		back, err := DecimalToAmerican(decimal)
		if err != nil {
			t.Fatal(err)
		}
		if american == -100 {
			american = 100
		}
		if back != american {
			t.Errorf("expected %v, got %v", american, back)
		}
	}
}

func TestProfitPercent_KnownArbitrage(t *testing.T) {
	sum := InverseSum([]float64{2.50, 2.10})

	if !floatEquals(sum, 0.4+1.0/2.1) {
		t.Errorf("unexpected inverse sum %v", sum)
	}

	profit := ProfitPercent(sum)
	if math.Abs(profit-14.13) > 0.05 {
		t.Errorf("expected profit near 14.1%%, got %v", profit)
	}
}

func TestProfitPercent_NoArbitrage(t *testing.T) {
	if got := ProfitPercent(InverseSum([]float64{1.91, 1.91})); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}

	if got := ProfitPercent(1.0); got != 0 {
		t.Errorf("expected 0 for a fair book, got %v", got)
	}
}

func TestStakeFractions(t *testing.T) {
	decimals := []float64{2.50, 2.10}
	fractions := StakeFractions(decimals)

	if !floatEquals(fractions[0]+fractions[1], 1.0) {
		t.Fatalf("fractions should sum to 1, got %v", fractions)
	}

	payoutA := fractions[0] * decimals[0]
	payoutB := fractions[1] * decimals[1]
	if !floatEquals(payoutA, payoutB) {
		t.Errorf("expected equal payouts, got %v and %v", payoutA, payoutB)
	}
}

func TestFormatAmerican(t *testing.T) {
	if got := FormatAmerican(150); got != "+150" {
		t.Errorf("expected +150, got %s", got)
	}
	if got := FormatAmerican(-110); got != "-110" {
		t.Errorf("expected -110, got %s", got)
	}
}
