package delivery

import (
	"fmt"
	"time"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/fulfillment"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/lifecycle"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/shared"
)

// Delivery note statuses. PENDING, IN_TRANSIT and DELIVERED derive from the
// delivered quantities; only CANCELLED is entered by action.
const (
	StatusPending   lifecycle.State = "PENDING"
	StatusInTransit lifecycle.State = "IN_TRANSIT"
	StatusDelivered lifecycle.State = "DELIVERED"
	StatusCancelled lifecycle.State = "CANCELLED"
)

// ActionCancel is the only direct action; everything else is derived.
const ActionCancel lifecycle.Action = "cancel"

// Transitions allows cancellation from any non-delivered state.
var Transitions = lifecycle.New(map[lifecycle.State]map[lifecycle.Action]lifecycle.State{
	StatusPending:   {ActionCancel: StatusCancelled},
	StatusInTransit: {ActionCancel: StatusCancelled},
})

// DeliveryNote is the document header plus its owned lines.
type DeliveryNote struct {
	ID          int64
	Number      string
	OrderRef    string
	CustomerRef string
	Status      lifecycle.State
	CreatedAt   time.Time
	Notes       string
	Lines       []Line
}

// Line is one item to deliver with its cumulative delivered count.
type Line struct {
	ID          int64
	NoteID      int64
	ProductRef  string
	Description string
	Quantity    int
	Delivered   int
	UnitPrice   float64
	TaxRate     float64
	TaxAmount   float64
	LineTotal   float64
}

// DeriveStatus computes the aggregate status from the delivered ratio.
// Zero delivered is pending, anything strictly between zero and the total
// is in transit, and full coverage is delivered.
func DeriveStatus(lines []Line) lifecycle.State {
	total, delivered := 0, 0
	for _, line := range lines {
		total += line.Quantity
		delivered += line.Delivered
	}
	switch {
	case delivered <= 0:
		return StatusPending
	case delivered < total:
		return StatusInTransit
	default:
		return StatusDelivered
	}
}

// ClampDelivered bounds a delivered edit to [0, quantity].
func (l Line) ClampDelivered(qty int) int {
	return fulfillment.Clamp(qty, l.Quantity)
}

// DeliveryEntry sets the absolute delivered quantity of one line.
type DeliveryEntry struct {
	LineID    int64
	Delivered int
}

var (
	// ErrNotFound indicates a missing delivery note.
	ErrNotFound = fmt.Errorf("delivery: note %w", shared.ErrNotFound)
	// ErrValidation indicates invalid delivery note input.
	ErrValidation = fmt.Errorf("delivery: %w", shared.ErrValidation)
	// ErrInvalidState indicates the note does not allow the operation.
	ErrInvalidState = fmt.Errorf("delivery: %w", shared.ErrInvalidState)
)
