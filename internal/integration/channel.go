// Package integration connects the document workflows to the external
// storefront order/inventory system. All three channel operations are
// fire-and-forget from the workflows' perspective: their outcome is captured
// and reported, never allowed to roll back a local state transition.
package integration

import "context"

// Channel operation names used in failure reports and journal entries.
const (
	OpIncreaseStock  = "increase_stock"
	OpSetOrderStatus = "set_order_status"
	OpAddOrderNote   = "add_order_note"
)

// OrderChannel is the narrow contract the workflows hold on the storefront.
type OrderChannel interface {
	// IncreaseStock raises the storefront stock for a product reference.
	IncreaseStock(ctx context.Context, productRef string, qty int) error
	// SetOrderStatus changes the status of a storefront order.
	SetOrderStatus(ctx context.Context, orderRef string, status string) error
	// AddOrderNote attaches an annotation to a storefront order.
	AddOrderNote(ctx context.Context, orderRef string, text string, customerVisible bool) error
}
