package returns

import (
	"fmt"
	"time"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/lifecycle"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/shared"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/tax"
)

// Condition describes the state of a returned item.
type Condition string

// Known item conditions.
const (
	ConditionNew     Condition = "new"
	ConditionUsed    Condition = "used"
	ConditionDamaged Condition = "damaged"
)

// RefundFactor returns the refund multiplier for the condition.
func (c Condition) RefundFactor() float64 {
	switch c {
	case ConditionNew:
		return 1.0
	case ConditionUsed:
		return 0.8
	case ConditionDamaged:
		return 0.5
	}
	return 0
}

// Valid reports whether the condition is one of the known values.
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionUsed, ConditionDamaged:
		return true
	}
	return false
}

// Return note lifecycle statuses.
const (
	StatusPending   lifecycle.State = "PENDING"
	StatusApproved  lifecycle.State = "APPROVED"
	StatusRejected  lifecycle.State = "REJECTED"
	StatusProcessed lifecycle.State = "PROCESSED"
	StatusCancelled lifecycle.State = "CANCELLED"
)

// Workflow actions.
const (
	ActionApprove lifecycle.Action = "approve"
	ActionReject  lifecycle.Action = "reject"
	ActionProcess lifecycle.Action = "process"
	ActionCancel  lifecycle.Action = "cancel"
)

// Transitions encodes the legal moves. REJECTED and PROCESSED are terminal.
var Transitions = lifecycle.New(map[lifecycle.State]map[lifecycle.Action]lifecycle.State{
	StatusPending: {
		ActionApprove: StatusApproved,
		ActionReject:  StatusRejected,
		ActionCancel:  StatusCancelled,
	},
	StatusApproved: {
		ActionProcess: StatusProcessed,
		ActionCancel:  StatusCancelled,
	},
})

// ReturnNote is the document header plus its owned lines.
type ReturnNote struct {
	ID          int64
	Number      string
	OrderRef    string
	CustomerRef string
	Reason      string
	Status      lifecycle.State
	Notes       string
	CreatedAt   time.Time
	RefundTotal float64
	Lines       []Line
}

// Line is one returned item with its computed refund.
type Line struct {
	ID           int64
	NoteID       int64
	ProductRef   string
	Description  string
	Quantity     int
	UnitPrice    float64
	Condition    Condition
	Reason       string
	RefundAmount float64
}

// LineRefund computes the refund for one returned line. It is a pure
// function of quantity, unit price and condition, rounded at the line.
func LineRefund(unitPrice float64, quantity int, condition Condition) float64 {
	return tax.Round2(unitPrice * float64(quantity) * condition.RefundFactor())
}

// ComputeRefunds rewrites every line refund and the document total. Called
// whenever a quantity or condition changes.
func (n *ReturnNote) ComputeRefunds() {
	total := 0.0
	for i := range n.Lines {
		n.Lines[i].RefundAmount = LineRefund(n.Lines[i].UnitPrice, n.Lines[i].Quantity, n.Lines[i].Condition)
		total += n.Lines[i].RefundAmount
	}
	n.RefundTotal = tax.Round2(total)
}

// ItemCount sums the returned quantities across lines.
func (n ReturnNote) ItemCount() int {
	count := 0
	for _, line := range n.Lines {
		count += line.Quantity
	}
	return count
}

var (
	// ErrNotFound indicates a missing return note.
	ErrNotFound = fmt.Errorf("returns: note %w", shared.ErrNotFound)
	// ErrValidation indicates invalid return note input.
	ErrValidation = fmt.Errorf("returns: %w", shared.ErrValidation)
	// ErrInvalidState indicates the note does not allow the operation.
	ErrInvalidState = fmt.Errorf("returns: %w", shared.ErrInvalidState)
)
