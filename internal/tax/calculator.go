// Package tax converts between tax-inclusive (TTC) and tax-exclusive (HT)
// amounts and aggregates per-rate breakdowns for a document.
package tax

import (
	"math"
	"sort"
)

// Allowed VAT rate percentages.
const (
	RateZero     = 0.0
	RateReduced  = 7.0
	RateMiddle   = 10.0
	RateStandard = 20.0
)

// AllowedRates lists the rates a document line may carry.
var AllowedRates = []float64{RateZero, RateReduced, RateMiddle, RateStandard}

// RateAllowed reports whether rate belongs to the fixed rate set.
func RateAllowed(rate float64) bool {
	for _, r := range AllowedRates {
		if rate == r {
			return true
		}
	}
	return false
}

// Round2 rounds to 2 decimal places, half up.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// Amounts holds the three derived figures of one line.
type Amounts struct {
	Exclusive float64
	Tax       float64
	Inclusive float64
}

// FromInclusive derives exclusive and tax amounts from a TTC amount.
// Rounding happens per line, before any aggregation.
func FromInclusive(inclusive, rate float64) Amounts {
	exclusive := Round2(inclusive / (1 + rate/100))
	taxAmount := Round2(exclusive * rate / 100)
	return Amounts{Exclusive: exclusive, Tax: taxAmount, Inclusive: inclusive}
}

// FromExclusive derives tax and inclusive amounts from an HT amount.
func FromExclusive(exclusive, rate float64) Amounts {
	taxAmount := Round2(exclusive * rate / 100)
	return Amounts{Exclusive: exclusive, Tax: taxAmount, Inclusive: Round2(exclusive + taxAmount)}
}

// TaxedLine is the slice of a document line the breakdown needs.
type TaxedLine struct {
	Rate      float64
	TaxAmount float64
}

// BreakdownEntry is one per-rate total.
type BreakdownEntry struct {
	Rate   float64
	Amount float64
}

// Breakdown sums already-rounded per-line tax amounts by rate. Zero-amount
// rates are excluded and entries come back sorted ascending by rate. The
// aggregate is never re-rounded; only line amounts are.
func Breakdown(lines []TaxedLine) []BreakdownEntry {
	byRate := make(map[float64]float64)
	for _, line := range lines {
		byRate[line.Rate] += line.TaxAmount
	}
	entries := make([]BreakdownEntry, 0, len(byRate))
	for rate, amount := range byRate {
		if amount == 0 {
			continue
		}
		entries = append(entries, BreakdownEntry{Rate: rate, Amount: amount})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Rate < entries[j].Rate })
	return entries
}
