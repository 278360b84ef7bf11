package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/integration"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/lifecycle"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/shared"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/tax"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (DeliveryNote, error)
	List(ctx context.Context, limit, offset int, status lifecycle.State) ([]DeliveryNote, error)
}

// AuditPort records workflow mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates the delivery note workflow.
type Service struct {
	repo       RepositoryPort
	dispatcher *integration.Dispatcher
	audit      AuditPort
}

// NewService constructs the delivery service.
func NewService(repo RepositoryPort, dispatcher *integration.Dispatcher, audit AuditPort) *Service {
	return &Service{repo: repo, dispatcher: dispatcher, audit: audit}
}

// CreateInput describes a new delivery note. Number must come pre-reserved.
type CreateInput struct {
	Number      string
	OrderRef    string
	CustomerRef string
	Notes       string
	Lines       []LineInput
}

// LineInput describes one item to deliver.
type LineInput struct {
	ProductRef  string
	Description string
	Quantity    int
	Delivered   int
	UnitPrice   float64
	TaxRate     float64
}

// Create validates the note, clamps any initial delivered quantities, and
// persists it with its derived status and tax amounts.
func (s *Service) Create(ctx context.Context, input CreateInput) (DeliveryNote, error) {
	if input.Number == "" {
		return DeliveryNote{}, fmt.Errorf("%w: number required", ErrValidation)
	}
	if len(input.Lines) == 0 {
		return DeliveryNote{}, fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	note := DeliveryNote{
		Number:      input.Number,
		OrderRef:    input.OrderRef,
		CustomerRef: input.CustomerRef,
		Notes:       input.Notes,
		CreatedAt:   time.Now().UTC(),
	}
	for _, in := range input.Lines {
		if in.Quantity <= 0 {
			return DeliveryNote{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
		}
		if !tax.RateAllowed(in.TaxRate) {
			return DeliveryNote{}, fmt.Errorf("%w: tax rate %.2f not allowed", ErrValidation, in.TaxRate)
		}
		amounts := tax.FromExclusive(tax.Round2(in.UnitPrice*float64(in.Quantity)), in.TaxRate)
		line := Line{
			ProductRef:  in.ProductRef,
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			TaxRate:     in.TaxRate,
			TaxAmount:   amounts.Tax,
			LineTotal:   amounts.Inclusive,
		}
		line.Delivered = line.ClampDelivered(in.Delivered)
		note.Lines = append(note.Lines, line)
	}
	note.Status = DeriveStatus(note.Lines)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
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
		return DeliveryNote{}, err
	}
	s.recordAudit(ctx, "DELIVERY_CREATE", note.ID, map[string]any{"number": note.Number})
	return note, nil
}

// Get loads one delivery note.
func (s *Service) Get(ctx context.Context, id int64) (DeliveryNote, error) {
	return s.repo.Get(ctx, id)
}

// List returns delivery notes, optionally filtered by status.
func (s *Service) List(ctx context.Context, limit, offset int, status lifecycle.State) ([]DeliveryNote, error) {
	return s.repo.List(ctx, limit, offset, status)
}

// RecordDelivery applies absolute delivered quantities, clamped per line to
// [0, quantity], and re-derives the aggregate status. Entering DELIVERED
// requests order completion plus an annotation; entering IN_TRANSIT only
// requests a shipping status update, never completion. Cancelled notes
// reject further edits.
func (s *Service) RecordDelivery(ctx context.Context, id int64, entries []DeliveryEntry) (DeliveryNote, *integration.Report, error) {
	note, err := s.repo.Get(ctx, id)
	if err != nil {
		return DeliveryNote{}, nil, err
	}
	if note.Status == StatusCancelled {
		return DeliveryNote{}, nil, fmt.Errorf("%w: note %s is cancelled", ErrInvalidState, note.Number)
	}
	if len(entries) == 0 {
		return DeliveryNote{}, nil, fmt.Errorf("%w: no delivery entries", ErrValidation)
	}

	lineIndex := make(map[int64]int, len(note.Lines))
	for i, line := range note.Lines {
		lineIndex[line.ID] = i
	}
	for _, entry := range entries {
		i, ok := lineIndex[entry.LineID]
		if !ok {
			return DeliveryNote{}, nil, fmt.Errorf("%w: unknown line %d", ErrValidation, entry.LineID)
		}
		note.Lines[i].Delivered = note.Lines[i].ClampDelivered(entry.Delivered)
	}

	previous := note.Status
	note.Status = DeriveStatus(note.Lines)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, line := range note.Lines {
			if err := tx.UpdateLineDelivered(ctx, line.ID, line.Delivered); err != nil {
				return err
			}
		}
		return tx.UpdateStatus(ctx, id, note.Status)
	})
	if err != nil {
		return DeliveryNote{}, nil, err
	}

	report := &integration.Report{}
	if note.OrderRef != "" && note.Status != previous {
		switch note.Status {
		case StatusDelivered:
			s.dispatcher.SetOrderStatus(ctx, report, note.OrderRef, "completed")
			s.dispatcher.AddOrderNote(ctx, report, note.OrderRef, deliveryNoteText(note), false)
		case StatusInTransit:
			s.dispatcher.SetOrderStatus(ctx, report, note.OrderRef, "shipped")
		}
	}
	s.recordAudit(ctx, "DELIVERY_RECORD", id, map[string]any{"number": note.Number, "status": string(note.Status)})
	return note, report, nil
}

// Cancel takes a non-delivered note out of the workflow. Status derivation
// stops for cancelled notes.
func (s *Service) Cancel(ctx context.Context, id int64) (DeliveryNote, error) {
	note, err := s.repo.Get(ctx, id)
	if err != nil {
		return DeliveryNote{}, err
	}
	next, err := Transitions.Next(note.Status, ActionCancel)
	if err != nil {
		return DeliveryNote{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, id, next)
	})
	if err != nil {
		return DeliveryNote{}, err
	}
	note.Status = next
	s.recordAudit(ctx, "DELIVERY_CANCEL", id, map[string]any{"number": note.Number})
	return note, nil
}

func deliveryNoteText(note DeliveryNote) string {
	items := 0
	for _, line := range note.Lines {
		items += line.Delivered
	}
	return fmt.Sprintf("Delivery %s completed: %d item(s) delivered", note.Number, items)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "delivery_note", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
