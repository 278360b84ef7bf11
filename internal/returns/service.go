package returns

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/fulfillment"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/integration"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/lifecycle"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/orders"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (ReturnNote, error)
	List(ctx context.Context, limit, offset int, status lifecycle.State) ([]ReturnNote, error)
	ListByOrderRef(ctx context.Context, orderRef string) ([]ReturnNote, error)
}

// OrdersPort looks up the original order snapshot.
type OrdersPort interface {
	GetByRef(ctx context.Context, orderRef string) (orders.Order, error)
}

// AuditPort records workflow mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates the return note workflow.
type Service struct {
	repo             RepositoryPort
	orders           OrdersPort
	dispatcher       *integration.Dispatcher
	audit            AuditPort
	logger           *slog.Logger
	restockOnProcess bool
}

// NewService constructs the returns service. When restockOnProcess is set,
// new-condition restocks move from the approval step to the processing step.
func NewService(repo RepositoryPort, ordersPort OrdersPort, dispatcher *integration.Dispatcher, audit AuditPort, logger *slog.Logger, restockOnProcess bool) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, orders: ordersPort, dispatcher: dispatcher, audit: audit, logger: logger, restockOnProcess: restockOnProcess}
}

// CreateInput describes a new return note. Number must come pre-reserved.
type CreateInput struct {
	Number      string
	OrderRef    string
	CustomerRef string
	Reason      string
	Notes       string
	Lines       []LineInput
}

// LineInput describes one returned item.
type LineInput struct {
	ProductRef  string
	Description string
	Quantity    int
	UnitPrice   float64
	Condition   Condition
	Reason      string
}

func buildLines(inputs []LineInput) ([]Line, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	lines := make([]Line, 0, len(inputs))
	for _, in := range inputs {
		if in.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
		}
		if !in.Condition.Valid() {
			return nil, fmt.Errorf("%w: unknown condition %q", ErrValidation, in.Condition)
		}
		lines = append(lines, Line{
			ProductRef:  in.ProductRef,
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Condition:   in.Condition,
			Reason:      in.Reason,
		})
	}
	return lines, nil
}

// Create validates and persists a pending return note with computed refunds.
func (s *Service) Create(ctx context.Context, input CreateInput) (ReturnNote, error) {
	if input.Number == "" {
		return ReturnNote{}, fmt.Errorf("%w: number required", ErrValidation)
	}
	lines, err := buildLines(input.Lines)
	if err != nil {
		return ReturnNote{}, err
	}
	note := ReturnNote{
		Number:      input.Number,
		OrderRef:    input.OrderRef,
		CustomerRef: input.CustomerRef,
		Reason:      input.Reason,
		Notes:       input.Notes,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
		Lines:       lines,
	}
	note.ComputeRefunds()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateNote(ctx, note)
		if err != nil {
			return err
		}
		note.ID = id
		for i := range note.Lines {
			note.Lines[i].NoteID = id
			lineID, err := tx.InsertLine(ctx, note.Lines[i])
			if err != nil {
				return err
			}
			note.Lines[i].ID = lineID
		}
		return nil
	})
	if err != nil {
		return ReturnNote{}, err
	}
	s.recordAudit(ctx, "RETURN_CREATE", note.ID, map[string]any{"number": note.Number})
	return note, nil
}

// Get loads one return note.
func (s *Service) Get(ctx context.Context, id int64) (ReturnNote, error) {
	return s.repo.Get(ctx, id)
}

// List returns notes, optionally filtered by status.
func (s *Service) List(ctx context.Context, limit, offset int, status lifecycle.State) ([]ReturnNote, error) {
	return s.repo.List(ctx, limit, offset, status)
}

// UpdateLines replaces the lines of a pending note and recomputes refunds.
func (s *Service) UpdateLines(ctx context.Context, id int64, inputs []LineInput) (ReturnNote, error) {
	note, err := s.repo.Get(ctx, id)
	if err != nil {
		return ReturnNote{}, err
	}
	if note.Status != StatusPending {
		return ReturnNote{}, fmt.Errorf("%w: note %s is %s", ErrInvalidState, note.Number, note.Status)
	}
	lines, err := buildLines(inputs)
	if err != nil {
		return ReturnNote{}, err
	}
	note.Lines = lines
	note.ComputeRefunds()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteLines(ctx, id); err != nil {
			return err
		}
		for i := range note.Lines {
			note.Lines[i].NoteID = id
			lineID, err := tx.InsertLine(ctx, note.Lines[i])
			if err != nil {
				return err
			}
			note.Lines[i].ID = lineID
		}
		return tx.UpdateRefundTotal(ctx, id, note.RefundTotal)
	})
	if err != nil {
		return ReturnNote{}, err
	}
	s.recordAudit(ctx, "RETURN_UPDATE_LINES", id, map[string]any{"number": note.Number, "refund": note.RefundTotal})
	return note, nil
}

// Approve moves a pending note to approved and restocks every new-condition
// line that carries a product reference. Used and damaged items never go
// back to stock. Stock failures are reported, never fatal.
func (s *Service) Approve(ctx context.Context, id int64) (ReturnNote, *integration.Report, error) {
	note, err := s.repo.Get(ctx, id)
	if err != nil {
		return ReturnNote{}, nil, err
	}
	next, err := Transitions.Next(note.Status, ActionApprove)
	if err != nil {
		return ReturnNote{}, nil, err
	}
	if err := s.updateStatus(ctx, id, next); err != nil {
		return ReturnNote{}, nil, err
	}
	note.Status = next

	report := &integration.Report{}
	if !s.restockOnProcess {
		s.restockNewLines(ctx, report, note)
	}
	s.recordAudit(ctx, "RETURN_APPROVE", id, map[string]any{"number": note.Number})
	return note, report, nil
}

// Reject moves a pending note to rejected, appending the reason to the
// document notes. No external side effects.
func (s *Service) Reject(ctx context.Context, id int64, reason string) (ReturnNote, error) {
	note, err := s.repo.Get(ctx, id)
	if err != nil {
		return ReturnNote{}, err
	}
	next, err := Transitions.Next(note.Status, ActionReject)
	if err != nil {
		return ReturnNote{}, err
	}
	if reason != "" {
		if note.Notes != "" {
			note.Notes += "\n"
		}
		note.Notes += "Rejected: " + reason
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateNotes(ctx, id, note.Notes); err != nil {
			return err
		}
		return tx.UpdateStatus(ctx, id, next)
	})
	if err != nil {
		return ReturnNote{}, err
	}
	note.Status = next
	s.recordAudit(ctx, "RETURN_REJECT", id, map[string]any{"number": note.Number, "reason": reason})
	return note, nil
}

// Process moves an approved note to processed. If the note references an
// order, completeness is recomputed from the persisted approved/processed
// return history at decision time; only a fully covered order is marked
// refunded. The order is always annotated with a return summary.
func (s *Service) Process(ctx context.Context, id int64) (ReturnNote, *integration.Report, error) {
	note, err := s.repo.Get(ctx, id)
	if err != nil {
		return ReturnNote{}, nil, err
	}
	next, err := Transitions.Next(note.Status, ActionProcess)
	if err != nil {
		return ReturnNote{}, nil, err
	}
	if err := s.updateStatus(ctx, id, next); err != nil {
		return ReturnNote{}, nil, err
	}
	note.Status = next

	report := &integration.Report{}
	if s.restockOnProcess {
		s.restockNewLines(ctx, report, note)
	}
	if note.OrderRef != "" {
		complete, err := s.orderFullyReturned(ctx, note.OrderRef)
		if err != nil {
			s.logger.Warn("completeness check failed, order status left untouched",
				slog.String("order_ref", note.OrderRef), slog.Any("error", err))
		} else if complete {
			s.dispatcher.SetOrderStatus(ctx, report, note.OrderRef, "refunded")
		}
		s.dispatcher.AddOrderNote(ctx, report, note.OrderRef, OrderNoteText(note), true)
	}
	s.recordAudit(ctx, "RETURN_PROCESS", id, map[string]any{"number": note.Number, "order_ref": note.OrderRef})
	return note, report, nil
}

// Cancel takes a note out of the workflow from any non-terminal state.
func (s *Service) Cancel(ctx context.Context, id int64) (ReturnNote, error) {
	note, err := s.repo.Get(ctx, id)
	if err != nil {
		return ReturnNote{}, err
	}
	next, err := Transitions.Next(note.Status, ActionCancel)
	if err != nil {
		return ReturnNote{}, err
	}
	if err := s.updateStatus(ctx, id, next); err != nil {
		return ReturnNote{}, err
	}
	note.Status = next
	s.recordAudit(ctx, "RETURN_CANCEL", id, map[string]any{"number": note.Number})
	return note, nil
}

func (s *Service) updateStatus(ctx context.Context, id int64, status lifecycle.State) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, id, status)
	})
}

func (s *Service) restockNewLines(ctx context.Context, report *integration.Report, note ReturnNote) {
	for _, line := range note.Lines {
		if line.ProductRef == "" || line.Condition != ConditionNew {
			continue
		}
		s.dispatcher.IncreaseStock(ctx, report, line.ProductRef, line.Quantity)
	}
}

// orderFullyReturned scans the current approved/processed return history of
// the order and checks it covers every originally ordered quantity.
func (s *Service) orderFullyReturned(ctx context.Context, orderRef string) (bool, error) {
	order, err := s.orders.GetByRef(ctx, orderRef)
	if err != nil {
		return false, err
	}
	history, err := s.repo.ListByOrderRef(ctx, orderRef)
	if err != nil {
		return false, err
	}
	var events []fulfillment.Event
	for _, past := range history {
		if past.Status != StatusApproved && past.Status != StatusProcessed {
			continue
		}
		for _, line := range past.Lines {
			if line.ProductRef == "" {
				continue
			}
			events = append(events, fulfillment.Event{ProductRef: line.ProductRef, Quantity: line.Quantity})
		}
	}
	return fulfillment.AllOriginalItemsFulfilled(order.OrderedLines(), events), nil
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "return_note", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
