package purchasing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/integration"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/lifecycle"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/shared"
)

type memoryRepo struct {
	nextID int64
	orders map[int64]*PurchaseOrder
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, orders: map[int64]*PurchaseOrder{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) Get(_ context.Context, id int64) (PurchaseOrder, error) {
	po, ok := m.orders[id]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	copied := *po
	copied.Lines = append([]Line(nil), po.Lines...)
	return copied, nil
}

func (m *memoryRepo) List(_ context.Context, _, _ int, status lifecycle.State) ([]PurchaseOrder, error) {
	var out []PurchaseOrder
	for _, po := range m.orders {
		if status == "" || po.Status == status {
			out = append(out, *po)
		}
	}
	return out, nil
}

func (m *memoryRepo) CreateOrder(_ context.Context, po PurchaseOrder) (int64, error) {
	id := m.nextID
	m.nextID++
	po.ID = id
	po.Lines = nil
	m.orders[id] = &po
	return id, nil
}

func (m *memoryRepo) InsertLine(_ context.Context, line Line) (int64, error) {
	po, ok := m.orders[line.OrderID]
	if !ok {
		return 0, fmt.Errorf("order %d not found", line.OrderID)
	}
	line.ID = m.nextID
	m.nextID++
	po.Lines = append(po.Lines, line)
	return line.ID, nil
}

func (m *memoryRepo) UpdateLineReceived(_ context.Context, lineID int64, received int) error {
	for _, po := range m.orders {
		for i := range po.Lines {
			if po.Lines[i].ID == lineID {
				po.Lines[i].Received = received
				return nil
			}
		}
	}
	return fmt.Errorf("line %d not found", lineID)
}

func (m *memoryRepo) UpdateStatus(_ context.Context, id int64, status lifecycle.State) error {
	po, ok := m.orders[id]
	if !ok {
		return fmt.Errorf("order %d not found", id)
	}
	po.Status = status
	return nil
}

type stockCall struct {
	ref string
	qty int
}

type stubChannel struct {
	stockCalls []stockCall
	stockErr   error
}

func (s *stubChannel) IncreaseStock(_ context.Context, productRef string, qty int) error {
	if s.stockErr != nil {
		return s.stockErr
	}
	s.stockCalls = append(s.stockCalls, stockCall{ref: productRef, qty: qty})
	return nil
}

func (s *stubChannel) SetOrderStatus(context.Context, string, string) error { return nil }

func (s *stubChannel) AddOrderNote(context.Context, string, string, bool) error { return nil }

func newTestService(channel *stubChannel) (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	dispatcher := integration.NewDispatcher(channel, nil, nil)
	return NewService(repo, dispatcher, nil), repo
}

func seedOrder(t *testing.T, svc *Service, lines ...LineInput) PurchaseOrder {
	t.Helper()
	po, err := svc.Create(context.Background(), CreateInput{
		Number:      "PO-2024-0001",
		SupplierRef: "SUP-1",
		ExpectedAt:  time.Now().Add(48 * time.Hour),
		Lines:       lines,
	})
	require.NoError(t, err)
	return po
}

func TestCreateDerivesTaxAmounts(t *testing.T) {
	svc, _ := newTestService(&stubChannel{})
	po := seedOrder(t, svc, LineInput{ProductRef: "P1", Description: "Widget", Quantity: 4, UnitPrice: 25, TaxRate: 20})

	require.Equal(t, StatusDraft, po.Status)
	require.Len(t, po.Lines, 1)
	require.InDelta(t, 20.0, po.Lines[0].TaxAmount, 0.001)
	require.InDelta(t, 120.0, po.Lines[0].LineTotal, 0.001)
}

func TestCreateRejectsUnknownTaxRate(t *testing.T) {
	svc, _ := newTestService(&stubChannel{})
	_, err := svc.Create(context.Background(), CreateInput{
		Number: "PO-2024-0002",
		Lines:  []LineInput{{Description: "Widget", Quantity: 1, UnitPrice: 10, TaxRate: 19.6}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestReceiveClampsToRemaining(t *testing.T) {
	channel := &stubChannel{}
	svc, _ := newTestService(channel)
	po := seedOrder(t, svc, LineInput{ProductRef: "P1", Description: "Widget", Quantity: 10, UnitPrice: 5, TaxRate: 20})

	_, _, err := svc.ReceiveGoods(context.Background(), po.ID, []ReceiptEntry{{LineID: po.Lines[0].ID, Qty: 4}}, 1)
	require.NoError(t, err)

	updated, report, err := svc.ReceiveGoods(context.Background(), po.ID, []ReceiptEntry{{LineID: po.Lines[0].ID, Qty: 10}}, 1)
	require.NoError(t, err)
	require.True(t, report.Empty())
	require.Equal(t, StatusReceived, updated.Status)
	require.Equal(t, 10, updated.Lines[0].Received)
	require.Equal(t, 0, updated.Lines[0].Remaining())

	require.Len(t, channel.stockCalls, 2)
	require.Equal(t, stockCall{ref: "P1", qty: 4}, channel.stockCalls[0])
	require.Equal(t, stockCall{ref: "P1", qty: 6}, channel.stockCalls[1])
}

func TestReceivePartialKeepsOrderOpen(t *testing.T) {
	svc, _ := newTestService(&stubChannel{})
	po := seedOrder(t, svc,
		LineInput{ProductRef: "P1", Description: "Widget", Quantity: 10, UnitPrice: 5, TaxRate: 20},
		LineInput{ProductRef: "P2", Description: "Gadget", Quantity: 2, UnitPrice: 8, TaxRate: 10},
	)

	updated, _, err := svc.ReceiveGoods(context.Background(), po.ID, []ReceiptEntry{{LineID: po.Lines[0].ID, Qty: 3}}, 1)
	require.NoError(t, err)
	require.Equal(t, StatusPartial, updated.Status)
	require.Equal(t, 7, updated.Lines[0].Remaining())
	require.Equal(t, 2, updated.Lines[1].Remaining())
}

func TestReceiveRejectsEmptyEffectiveBatch(t *testing.T) {
	svc, _ := newTestService(&stubChannel{})
	po := seedOrder(t, svc, LineInput{ProductRef: "P1", Description: "Widget", Quantity: 2, UnitPrice: 5, TaxRate: 20})

	_, _, err := svc.ReceiveGoods(context.Background(), po.ID, nil, 1)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, _, err = svc.ReceiveGoods(context.Background(), po.ID, []ReceiptEntry{{LineID: po.Lines[0].ID, Qty: 0}}, 1)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestReceiveRejectsUnknownLine(t *testing.T) {
	svc, _ := newTestService(&stubChannel{})
	po := seedOrder(t, svc, LineInput{ProductRef: "P1", Description: "Widget", Quantity: 2, UnitPrice: 5, TaxRate: 20})

	_, _, err := svc.ReceiveGoods(context.Background(), po.ID, []ReceiptEntry{{LineID: 9999, Qty: 1}}, 1)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestReceiveGuardsTerminalStates(t *testing.T) {
	svc, repo := newTestService(&stubChannel{})
	po := seedOrder(t, svc, LineInput{ProductRef: "P1", Description: "Widget", Quantity: 2, UnitPrice: 5, TaxRate: 20})

	require.NoError(t, repo.UpdateStatus(context.Background(), po.ID, StatusCancelled))
	_, _, err := svc.ReceiveGoods(context.Background(), po.ID, []ReceiptEntry{{LineID: po.Lines[0].ID, Qty: 1}}, 1)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	require.NoError(t, repo.UpdateStatus(context.Background(), po.ID, StatusReceived))
	_, _, err = svc.ReceiveGoods(context.Background(), po.ID, []ReceiptEntry{{LineID: po.Lines[0].ID, Qty: 1}}, 1)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestReceivePersistsDespiteStockFailure(t *testing.T) {
	channel := &stubChannel{stockErr: errors.New("channel unreachable")}
	svc, repo := newTestService(channel)
	po := seedOrder(t, svc, LineInput{ProductRef: "P1", Description: "Widget", Quantity: 5, UnitPrice: 5, TaxRate: 20})

	updated, report, err := svc.ReceiveGoods(context.Background(), po.ID, []ReceiptEntry{{LineID: po.Lines[0].ID, Qty: 5}}, 1)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, updated.Status)
	require.False(t, report.Empty())
	require.Len(t, report.Failures(), 1)
	require.ErrorIs(t, report.Failures()[0], integration.ErrSideEffect)

	stored, err := repo.Get(context.Background(), po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, stored.Status)
	require.Equal(t, 5, stored.Lines[0].Received)
}

func TestTransitionFollowsTable(t *testing.T) {
	svc, _ := newTestService(&stubChannel{})
	po := seedOrder(t, svc, LineInput{ProductRef: "P1", Description: "Widget", Quantity: 2, UnitPrice: 5, TaxRate: 20})

	sent, err := svc.Transition(context.Background(), po.ID, ActionDispatch)
	require.NoError(t, err)
	require.Equal(t, StatusSent, sent.Status)

	confirmed, err := svc.Transition(context.Background(), po.ID, ActionConfirm)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, confirmed.Status)

	_, err = svc.Transition(context.Background(), po.ID, ActionDispatch)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}
