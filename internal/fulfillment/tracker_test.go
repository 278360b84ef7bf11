package fulfillment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemainingNeverNegative(t *testing.T) {
	require.Equal(t, 6, Remaining(10, 4))
	require.Equal(t, 0, Remaining(10, 10))
	require.Equal(t, 0, Remaining(10, 25))
	require.Equal(t, 3, Remaining(3, 0))
}

func TestClamp(t *testing.T) {
	require.Equal(t, 6, Clamp(10, 6))
	require.Equal(t, 4, Clamp(4, 6))
	require.Equal(t, 0, Clamp(-2, 6))
	require.Equal(t, 0, Clamp(5, 0))
}

func TestLineAndDocumentComplete(t *testing.T) {
	require.True(t, LineComplete(5, 5))
	require.True(t, LineComplete(5, 7))
	require.False(t, LineComplete(5, 4))

	require.True(t, DocumentComplete([]Progress{{5, 5}, {2, 2}}))
	require.False(t, DocumentComplete([]Progress{{5, 5}, {2, 1}}))
	require.True(t, DocumentComplete(nil))
}

func TestAllOriginalItemsFulfilled(t *testing.T) {
	ordered := []OrderedLine{
		{ProductRef: "P1", Quantity: 4},
		{ProductRef: "P2", Quantity: 2},
	}

	require.False(t, AllOriginalItemsFulfilled(ordered, nil))
	require.False(t, AllOriginalItemsFulfilled(ordered, []Event{
		{ProductRef: "P1", Quantity: 4},
	}))
	require.False(t, AllOriginalItemsFulfilled(ordered, []Event{
		{ProductRef: "P1", Quantity: 2},
		{ProductRef: "P2", Quantity: 2},
	}))
	require.True(t, AllOriginalItemsFulfilled(ordered, []Event{
		{ProductRef: "P1", Quantity: 4},
		{ProductRef: "P2", Quantity: 2},
	}))
}

func TestAllOriginalItemsFulfilledCumulativeAcrossDocuments(t *testing.T) {
	ordered := []OrderedLine{{ProductRef: "P1", Quantity: 6}}

	// Two partial documents against the same order add up.
	history := []Event{
		{ProductRef: "P1", Quantity: 2},
		{ProductRef: "P1", Quantity: 3},
	}
	require.False(t, AllOriginalItemsFulfilled(ordered, history))

	history = append(history, Event{ProductRef: "P1", Quantity: 1})
	require.True(t, AllOriginalItemsFulfilled(ordered, history))
}

func TestAllOriginalItemsFulfilledSumsDuplicateOrderLines(t *testing.T) {
	ordered := []OrderedLine{
		{ProductRef: "P1", Quantity: 2},
		{ProductRef: "P1", Quantity: 3},
	}
	require.False(t, AllOriginalItemsFulfilled(ordered, []Event{{ProductRef: "P1", Quantity: 4}}))
	require.True(t, AllOriginalItemsFulfilled(ordered, []Event{{ProductRef: "P1", Quantity: 5}}))
}

func TestAllOriginalItemsFulfilledIgnoresUnknownProducts(t *testing.T) {
	ordered := []OrderedLine{{ProductRef: "P1", Quantity: 1}}
	require.True(t, AllOriginalItemsFulfilled(ordered, []Event{
		{ProductRef: "P1", Quantity: 1},
		{ProductRef: "P9", Quantity: 10},
	}))
}
