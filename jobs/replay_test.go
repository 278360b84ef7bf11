package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/integration"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/shared"
)

type memJournal struct {
	pending  []integration.JournalEntry
	replayed []uuid.UUID
}

func (m *memJournal) ListPending(_ context.Context, limit int) ([]integration.JournalEntry, error) {
	if limit > len(m.pending) {
		limit = len(m.pending)
	}
	return m.pending[:limit], nil
}

func (m *memJournal) MarkReplayed(_ context.Context, id uuid.UUID) error {
	m.replayed = append(m.replayed, id)
	return nil
}

type memGuard struct {
	keys     map[string]bool
	conflict bool
}

func (g *memGuard) CheckAndInsert(_ context.Context, key, _ string) error {
	if g.conflict {
		return shared.ErrIdempotencyConflict
	}
	if g.keys == nil {
		g.keys = map[string]bool{}
	}
	g.keys[key] = true
	return nil
}

func (g *memGuard) Delete(_ context.Context, key string) error {
	delete(g.keys, key)
	return nil
}

type replayCall struct {
	op  string
	ref string
	qty int
	arg string
}

type stubChannel struct {
	calls []replayCall
	fail  error
}

func (s *stubChannel) IncreaseStock(_ context.Context, productRef string, qty int) error {
	if s.fail != nil {
		return s.fail
	}
	s.calls = append(s.calls, replayCall{op: integration.OpIncreaseStock, ref: productRef, qty: qty})
	return nil
}

func (s *stubChannel) SetOrderStatus(_ context.Context, orderRef, status string) error {
	if s.fail != nil {
		return s.fail
	}
	s.calls = append(s.calls, replayCall{op: integration.OpSetOrderStatus, ref: orderRef, arg: status})
	return nil
}

func (s *stubChannel) AddOrderNote(_ context.Context, orderRef, text string, _ bool) error {
	if s.fail != nil {
		return s.fail
	}
	s.calls = append(s.calls, replayCall{op: integration.OpAddOrderNote, ref: orderRef, arg: text})
	return nil
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func entry(op string, payload map[string]any) integration.JournalEntry {
	return integration.JournalEntry{ID: uuid.New(), Op: op, Payload: payload}
}

func TestReplayerAppliesPendingEntries(t *testing.T) {
	journal := &memJournal{pending: []integration.JournalEntry{
		entry(integration.OpIncreaseStock, map[string]any{"product_ref": "P1", "qty": float64(4)}),
		entry(integration.OpSetOrderStatus, map[string]any{"order_ref": "ORD-1", "status": "refunded"}),
	}}
	channel := &stubChannel{}
	replayer := NewReplayer(ReplayerConfig{
		Journal:     journal,
		Channel:     channel,
		Idempotency: &memGuard{},
		Locker:      testRedis(t),
	})

	require.NoError(t, replayer.HandleChannelReplay(context.Background(), NewChannelReplayTask()))

	require.Len(t, channel.calls, 2)
	require.Equal(t, replayCall{op: integration.OpIncreaseStock, ref: "P1", qty: 4}, channel.calls[0])
	require.Equal(t, replayCall{op: integration.OpSetOrderStatus, ref: "ORD-1", arg: "refunded"}, channel.calls[1])
	require.Len(t, journal.replayed, 2)
}

func TestReplayerSkipsWhenLockHeld(t *testing.T) {
	srv := miniredis.RunT(t)
	require.NoError(t, srv.Set(replayLockKey, "1"))
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})

	journal := &memJournal{pending: []integration.JournalEntry{
		entry(integration.OpIncreaseStock, map[string]any{"product_ref": "P1", "qty": float64(1)}),
	}}
	channel := &stubChannel{}
	replayer := NewReplayer(ReplayerConfig{Journal: journal, Channel: channel, Locker: client})

	require.NoError(t, replayer.HandleChannelReplay(context.Background(), NewChannelReplayTask()))
	require.Empty(t, channel.calls)
	require.Empty(t, journal.replayed)
}

func TestReplayerKeepsEntryOnFailure(t *testing.T) {
	journal := &memJournal{pending: []integration.JournalEntry{
		entry(integration.OpAddOrderNote, map[string]any{"order_ref": "ORD-1", "text": "note", "customer_visible": true}),
	}}
	guard := &memGuard{}
	channel := &stubChannel{fail: errors.New("still unreachable")}
	replayer := NewReplayer(ReplayerConfig{
		Journal:     journal,
		Channel:     channel,
		Idempotency: guard,
		Locker:      testRedis(t),
	})

	require.NoError(t, replayer.HandleChannelReplay(context.Background(), NewChannelReplayTask()))
	require.Empty(t, journal.replayed)
	require.Empty(t, guard.keys)
}

func TestReplayerSettlesIdempotencyConflict(t *testing.T) {
	journal := &memJournal{pending: []integration.JournalEntry{
		entry(integration.OpIncreaseStock, map[string]any{"product_ref": "P1", "qty": float64(2)}),
	}}
	channel := &stubChannel{}
	replayer := NewReplayer(ReplayerConfig{
		Journal:     journal,
		Channel:     channel,
		Idempotency: &memGuard{conflict: true},
		Locker:      testRedis(t),
	})

	require.NoError(t, replayer.HandleChannelReplay(context.Background(), NewChannelReplayTask()))
	require.Empty(t, channel.calls)
	require.Len(t, journal.replayed, 1)
}
