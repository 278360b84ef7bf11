package purchasing

import (
	"fmt"
	"time"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/fulfillment"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/lifecycle"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/shared"
)

// Purchase order lifecycle statuses.
const (
	StatusDraft     lifecycle.State = "DRAFT"
	StatusSent      lifecycle.State = "SENT"
	StatusConfirmed lifecycle.State = "CONFIRMED"
	StatusPartial   lifecycle.State = "PARTIAL"
	StatusReceived  lifecycle.State = "RECEIVED"
	StatusCancelled lifecycle.State = "CANCELLED"
)

// Data-entry actions. PARTIAL and RECEIVED are never reached through the
// table: they derive exclusively from the receiving workflow.
const (
	ActionDispatch lifecycle.Action = "dispatch"
	ActionConfirm  lifecycle.Action = "confirm"
	ActionCancel   lifecycle.Action = "cancel"
)

// Transitions encodes the legal data-entry moves.
var Transitions = lifecycle.New(map[lifecycle.State]map[lifecycle.Action]lifecycle.State{
	StatusDraft: {
		ActionDispatch: StatusSent,
		ActionCancel:   StatusCancelled,
	},
	StatusSent: {
		ActionConfirm: StatusConfirmed,
		ActionCancel:  StatusCancelled,
	},
	StatusConfirmed: {
		ActionCancel: StatusCancelled,
	},
	StatusPartial: {
		ActionCancel: StatusCancelled,
	},
})

// PurchaseOrder is the document header plus its owned lines.
type PurchaseOrder struct {
	ID          int64
	Number      string
	SupplierRef string
	Status      lifecycle.State
	IssuedAt    time.Time
	ExpectedAt  time.Time
	Notes       string
	Lines       []Line
}

// Line is one ordered item with its running received count.
type Line struct {
	ID          int64
	OrderID     int64
	ProductRef  string
	Description string
	Quantity    int
	Received    int
	UnitPrice   float64
	TaxRate     float64
	TaxAmount   float64
	LineTotal   float64
}

// Remaining is the quantity still expected from the supplier.
func (l Line) Remaining() int {
	return fulfillment.Remaining(l.Quantity, l.Received)
}

// Progress lists the receiving progress of every line.
func (po PurchaseOrder) Progress() []fulfillment.Progress {
	progress := make([]fulfillment.Progress, 0, len(po.Lines))
	for _, line := range po.Lines {
		progress = append(progress, fulfillment.Progress{Ordered: line.Quantity, Fulfilled: line.Received})
	}
	return progress
}

// ReceiptEntry is one element of a receipt batch.
type ReceiptEntry struct {
	LineID int64
	Qty    int
}

var (
	// ErrNotFound indicates a missing purchase order.
	ErrNotFound = fmt.Errorf("purchasing: order %w", shared.ErrNotFound)
	// ErrValidation indicates invalid receiving input.
	ErrValidation = fmt.Errorf("purchasing: %w", shared.ErrValidation)
	// ErrInvalidState indicates the order does not allow the operation.
	ErrInvalidState = fmt.Errorf("purchasing: %w", shared.ErrInvalidState)
)
