package purchasing

import (
	"context"
	"fmt"
	"time"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/fulfillment"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/integration"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/lifecycle"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/shared"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/tax"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (PurchaseOrder, error)
	List(ctx context.Context, limit, offset int, status lifecycle.State) ([]PurchaseOrder, error)
}

// AuditPort records workflow mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates the purchase order lifecycle and receiving workflow.
type Service struct {
	repo       RepositoryPort
	dispatcher *integration.Dispatcher
	audit      AuditPort
}

// NewService constructs the purchasing service.
func NewService(repo RepositoryPort, dispatcher *integration.Dispatcher, audit AuditPort) *Service {
	return &Service{repo: repo, dispatcher: dispatcher, audit: audit}
}

// CreateInput describes a new purchase order. Number must come pre-reserved
// from the numbering service; the workflow never generates its own.
type CreateInput struct {
	Number      string
	SupplierRef string
	ExpectedAt  time.Time
	Notes       string
	Lines       []LineInput
}

// LineInput describes one ordered item.
type LineInput struct {
	ProductRef  string
	Description string
	Quantity    int
	UnitPrice   float64
	TaxRate     float64
}

// Create validates the draft and persists it with derived tax amounts.
func (s *Service) Create(ctx context.Context, input CreateInput) (PurchaseOrder, error) {
	if input.Number == "" {
		return PurchaseOrder{}, fmt.Errorf("%w: number required", ErrValidation)
	}
	if len(input.Lines) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	po := PurchaseOrder{
		Number:      input.Number,
		SupplierRef: input.SupplierRef,
		Status:      StatusDraft,
		IssuedAt:    time.Now().UTC(),
		ExpectedAt:  input.ExpectedAt,
		Notes:       input.Notes,
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
		}
		if !tax.RateAllowed(line.TaxRate) {
			return PurchaseOrder{}, fmt.Errorf("%w: tax rate %.2f not allowed", ErrValidation, line.TaxRate)
		}
		amounts := tax.FromExclusive(tax.Round2(line.UnitPrice*float64(line.Quantity)), line.TaxRate)
		po.Lines = append(po.Lines, Line{
			ProductRef:  line.ProductRef,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TaxRate:     line.TaxRate,
			TaxAmount:   amounts.Tax,
			LineTotal:   amounts.Inclusive,
		})
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateOrder(ctx, po)
		if err != nil {
			return err
		}
		po.ID = id
		for i := range po.Lines {
			po.Lines[i].OrderID = id
			lineID, err := tx.InsertLine(ctx, po.Lines[i])
			if err != nil {
				return err
			}
			po.Lines[i].ID = lineID
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "PO_CREATE", po.ID, map[string]any{"number": po.Number})
	return po, nil
}

// Get loads one purchase order.
func (s *Service) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.Get(ctx, id)
}

// List returns purchase orders, optionally filtered by status.
func (s *Service) List(ctx context.Context, limit, offset int, status lifecycle.State) ([]PurchaseOrder, error) {
	return s.repo.List(ctx, limit, offset, status)
}

// Transition applies a data-entry action (dispatch, confirm, cancel). Once
// any receipt has occurred, only cancel remains legal: PARTIAL orders sit
// outside the dispatch/confirm rows of the table.
func (s *Service) Transition(ctx context.Context, id int64, action lifecycle.Action) (PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	next, err := Transitions.Next(po.Status, action)
	if err != nil {
		return PurchaseOrder{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, id, next)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Status = next
	s.recordAudit(ctx, "PO_"+string(action), id, map[string]any{"number": po.Number, "status": string(next)})
	return po, nil
}

// ReceiveGoods applies a receipt batch. Each entry is clamped to the line's
// remaining quantity and zero-valued entries are dropped; an empty effective
// batch is rejected before any mutation. The new state is computed fully in
// memory, persisted, and only then are stock side effects requested. Failed
// stock calls are reported alongside the saved order, never rolled back.
func (s *Service) ReceiveGoods(ctx context.Context, orderID int64, entries []ReceiptEntry, actorID int64) (PurchaseOrder, *integration.Report, error) {
	po, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	if po.Status == StatusCancelled || po.Status == StatusReceived {
		return PurchaseOrder{}, nil, fmt.Errorf("%w: order %s is %s", ErrInvalidState, po.Number, po.Status)
	}

	lineIndex := make(map[int64]int, len(po.Lines))
	for i, line := range po.Lines {
		lineIndex[line.ID] = i
	}

	type applied struct {
		line Line
		qty  int
	}
	var receipts []applied
	for _, entry := range entries {
		i, ok := lineIndex[entry.LineID]
		if !ok {
			return PurchaseOrder{}, nil, fmt.Errorf("%w: unknown line %d", ErrValidation, entry.LineID)
		}
		clamped := fulfillment.Clamp(entry.Qty, po.Lines[i].Remaining())
		if clamped == 0 {
			continue
		}
		po.Lines[i].Received += clamped
		receipts = append(receipts, applied{line: po.Lines[i], qty: clamped})
	}
	if len(receipts) == 0 {
		return PurchaseOrder{}, nil, fmt.Errorf("%w: nothing to receive", ErrValidation)
	}

	if fulfillment.DocumentComplete(po.Progress()) {
		po.Status = StatusReceived
	} else {
		po.Status = StatusPartial
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, receipt := range receipts {
			if err := tx.UpdateLineReceived(ctx, receipt.line.ID, receipt.line.Received); err != nil {
				return err
			}
		}
		return tx.UpdateStatus(ctx, orderID, po.Status)
	})
	if err != nil {
		return PurchaseOrder{}, nil, err
	}

	report := &integration.Report{}
	for _, receipt := range receipts {
		if receipt.line.ProductRef == "" {
			continue
		}
		s.dispatcher.IncreaseStock(ctx, report, receipt.line.ProductRef, receipt.qty)
	}

	s.recordAudit(ctx, "PO_RECEIVE", orderID, map[string]any{
		"number":   po.Number,
		"status":   string(po.Status),
		"lines":    len(receipts),
		"actor_id": actorID,
	})
	return po, report, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "purchase_order", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
