// Package fulfillment tracks ordered versus fulfilled quantities for
// commercial documents and decides completeness against an original order.
package fulfillment

// Remaining returns the quantity still to fulfill, never negative.
func Remaining(ordered, fulfilled int) int {
	if fulfilled >= ordered {
		return 0
	}
	return ordered - fulfilled
}

// Clamp bounds qty to [0, limit].
func Clamp(qty, limit int) int {
	if qty < 0 {
		return 0
	}
	if qty > limit {
		return limit
	}
	return qty
}

// LineComplete reports whether a single line has been fully fulfilled.
func LineComplete(ordered, fulfilled int) bool {
	return Remaining(ordered, fulfilled) == 0
}

// Progress pairs one line's ordered quantity with its cumulative fulfillment.
type Progress struct {
	Ordered   int
	Fulfilled int
}

// DocumentComplete reports whether every line is complete.
func DocumentComplete(lines []Progress) bool {
	for _, line := range lines {
		if !LineComplete(line.Ordered, line.Fulfilled) {
			return false
		}
	}
	return true
}

// OrderedLine is one line of the original order, keyed by product reference.
type OrderedLine struct {
	ProductRef string
	Quantity   int
}

// Event is one recorded quantity movement against the original order: a
// receipt, a delivery, or an approved/processed return line.
type Event struct {
	ProductRef string
	Quantity   int
}

// AllOriginalItemsFulfilled reports whether the cumulative fulfilled
// quantity meets or exceeds the ordered quantity for every product of the
// original order. Duplicate product references on either side are summed;
// a product absent from events counts as zero. Callers must pass the full
// qualifying history for the order, not just the document being saved.
func AllOriginalItemsFulfilled(ordered []OrderedLine, events []Event) bool {
	wanted := make(map[string]int, len(ordered))
	for _, line := range ordered {
		wanted[line.ProductRef] += line.Quantity
	}
	got := make(map[string]int, len(events))
	for _, evt := range events {
		got[evt.ProductRef] += evt.Quantity
	}
	for ref, qty := range wanted {
		if got[ref] < qty {
			return false
		}
	}
	return true
}
