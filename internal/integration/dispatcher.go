package integration

import (
	"context"
	"log/slog"
)

// FailureStore journals failed calls for later replay.
type FailureStore interface {
	Record(ctx context.Context, entry JournalEntry) error
}

// Dispatcher issues channel calls on behalf of the workflows and applies
// the non-fatal failure policy: a failed call is recorded in the report and
// journaled, and never propagated as an error to the caller.
type Dispatcher struct {
	channel OrderChannel
	journal FailureStore
	logger  *slog.Logger
}

// NewDispatcher constructs a dispatcher. journal may be nil.
func NewDispatcher(channel OrderChannel, journal FailureStore, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{channel: channel, journal: journal, logger: logger}
}

// IncreaseStock requests a stock increase, capturing any failure.
func (d *Dispatcher) IncreaseStock(ctx context.Context, report *Report, productRef string, qty int) {
	if d == nil || d.channel == nil {
		return
	}
	err := d.channel.IncreaseStock(ctx, productRef, qty)
	d.capture(ctx, report, OpIncreaseStock, productRef, err, map[string]any{
		"product_ref": productRef,
		"qty":         qty,
	})
}

// SetOrderStatus requests an order status change, capturing any failure.
func (d *Dispatcher) SetOrderStatus(ctx context.Context, report *Report, orderRef, status string) {
	if d == nil || d.channel == nil {
		return
	}
	err := d.channel.SetOrderStatus(ctx, orderRef, status)
	d.capture(ctx, report, OpSetOrderStatus, orderRef, err, map[string]any{
		"order_ref": orderRef,
		"status":    status,
	})
}

// AddOrderNote requests an order annotation, capturing any failure.
func (d *Dispatcher) AddOrderNote(ctx context.Context, report *Report, orderRef, text string, customerVisible bool) {
	if d == nil || d.channel == nil {
		return
	}
	err := d.channel.AddOrderNote(ctx, orderRef, text, customerVisible)
	d.capture(ctx, report, OpAddOrderNote, orderRef, err, map[string]any{
		"order_ref":        orderRef,
		"text":             text,
		"customer_visible": customerVisible,
	})
}

func (d *Dispatcher) capture(ctx context.Context, report *Report, op, ref string, err error, payload map[string]any) {
	if err == nil {
		return
	}
	report.Record(op, ref, err)
	if d.logger != nil {
		d.logger.Warn("side effect failed, journaled for replay",
			slog.String("op", op), slog.String("ref", ref), slog.Any("error", err))
	}
	if d.journal != nil {
		if jerr := d.journal.Record(ctx, JournalEntry{Op: op, Ref: ref, Payload: payload, Reason: err.Error()}); jerr != nil && d.logger != nil {
			d.logger.Error("journal side effect failure", slog.Any("error", jerr))
		}
	}
}
