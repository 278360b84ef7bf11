package tax

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromInclusiveRoundTrip(t *testing.T) {
	amounts := []float64{0, 0.01, 1, 9.99, 100, 119.99, 240, 1234.56, 99999.95}
	for _, rate := range AllowedRates {
		for _, inclusive := range amounts {
			got := FromInclusive(inclusive, rate)
			back := FromExclusive(got.Exclusive, rate)
			require.InDelta(t, inclusive, back.Inclusive, 0.01, "rate=%v inclusive=%v", rate, inclusive)
			require.InDelta(t, got.Tax, back.Tax, 0.01, "rate=%v inclusive=%v", rate, inclusive)
		}
	}
}

func TestFromInclusiveZeroRate(t *testing.T) {
	got := FromInclusive(150, RateZero)
	require.Equal(t, 150.0, got.Exclusive)
	require.Equal(t, 0.0, got.Tax)
	require.Equal(t, 150.0, got.Inclusive)
}

func TestFromExclusive(t *testing.T) {
	got := FromExclusive(100, RateStandard)
	require.Equal(t, 20.0, got.Tax)
	require.Equal(t, 120.0, got.Inclusive)

	got = FromExclusive(33.33, RateReduced)
	require.InDelta(t, 2.33, got.Tax, 0.001)
	require.InDelta(t, 35.66, got.Inclusive, 0.001)
}

func TestRecomputationIdempotent(t *testing.T) {
	first := FromInclusive(119.99, RateStandard)
	second := FromInclusive(first.Inclusive, RateStandard)
	require.Equal(t, first, second)
}

func TestBreakdownGroupsLineAmountsExactly(t *testing.T) {
	lines := []TaxedLine{
		{Rate: RateStandard, TaxAmount: 1.67},
		{Rate: RateStandard, TaxAmount: 0.83},
		{Rate: RateReduced, TaxAmount: 0.35},
		{Rate: RateZero, TaxAmount: 0},
		{Rate: RateMiddle, TaxAmount: 4.10},
	}
	entries := Breakdown(lines)
	require.Equal(t, []BreakdownEntry{
		{Rate: RateReduced, Amount: 0.35},
		{Rate: RateMiddle, Amount: 4.10},
		{Rate: RateStandard, Amount: 2.50},
	}, entries)
}

func TestBreakdownExcludesZeroTotals(t *testing.T) {
	entries := Breakdown([]TaxedLine{{Rate: RateZero, TaxAmount: 0}})
	require.Empty(t, entries)
}

func TestRateAllowed(t *testing.T) {
	for _, rate := range AllowedRates {
		require.True(t, RateAllowed(rate))
	}
	require.False(t, RateAllowed(19.6))
	require.False(t, RateAllowed(5.5))
}

func TestRound2HalfUp(t *testing.T) {
	require.Equal(t, 7.13, Round2(7.125))
	require.Equal(t, 0.13, Round2(0.125))
	require.Equal(t, 2.34, Round2(2.344))
}
