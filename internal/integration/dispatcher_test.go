package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubChannel struct {
	stockErr error
	calls    []string
}

func (s *stubChannel) IncreaseStock(ctx context.Context, productRef string, qty int) error {
	s.calls = append(s.calls, "stock:"+productRef)
	return s.stockErr
}

func (s *stubChannel) SetOrderStatus(ctx context.Context, orderRef, status string) error {
	s.calls = append(s.calls, "status:"+orderRef+":"+status)
	return nil
}

func (s *stubChannel) AddOrderNote(ctx context.Context, orderRef, text string, customerVisible bool) error {
	s.calls = append(s.calls, "note:"+orderRef)
	return nil
}

type memJournal struct {
	entries []JournalEntry
}

func (m *memJournal) Record(ctx context.Context, entry JournalEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func TestDispatcherSuccessLeavesReportEmpty(t *testing.T) {
	ch := &stubChannel{}
	d := NewDispatcher(ch, nil, nil)
	var report Report
	d.SetOrderStatus(context.Background(), &report, "CMD-1", "refunded")
	require.True(t, report.Empty())
	require.Equal(t, []string{"status:CMD-1:refunded"}, ch.calls)
}

func TestDispatcherCapturesAndJournalsFailures(t *testing.T) {
	ch := &stubChannel{stockErr: errors.New("boom")}
	journal := &memJournal{}
	d := NewDispatcher(ch, journal, nil)

	var report Report
	d.IncreaseStock(context.Background(), &report, "P1", 4)

	require.False(t, report.Empty())
	failures := report.Failures()
	require.Len(t, failures, 1)
	require.Equal(t, OpIncreaseStock, failures[0].Op)
	require.Equal(t, "P1", failures[0].Ref)
	require.True(t, errors.Is(failures[0], ErrSideEffect))

	require.Len(t, journal.entries, 1)
	require.Equal(t, OpIncreaseStock, journal.entries[0].Op)
	require.Equal(t, map[string]any{"product_ref": "P1", "qty": 4}, journal.entries[0].Payload)
}

func TestReportRecordIgnoresNil(t *testing.T) {
	var report Report
	report.Record(OpAddOrderNote, "CMD-1", nil)
	require.True(t, report.Empty())
}
