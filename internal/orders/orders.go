// Package orders exposes the locally synced storefront order snapshots.
// Documents reference an order by its storefront reference only; the
// snapshot is the lookup-only source of original ordered quantities for
// completeness checks.
package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/fulfillment"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/shared"
)

// Order is the snapshot header plus its lines.
type Order struct {
	Ref         string
	CustomerRef string
	Currency    string
	Lines       []Line
}

// Line is one snapshot order line.
type Line struct {
	ProductRef  string
	Description string
	Quantity    int
	UnitPrice   float64
}

// OrderedLines projects the snapshot into the fulfillment tracker's shape.
func (o Order) OrderedLines() []fulfillment.OrderedLine {
	lines := make([]fulfillment.OrderedLine, 0, len(o.Lines))
	for _, line := range o.Lines {
		if line.ProductRef == "" {
			continue
		}
		lines = append(lines, fulfillment.OrderedLine{ProductRef: line.ProductRef, Quantity: line.Quantity})
	}
	return lines
}

// Repository reads order snapshots. Writes happen in the sync layer, not here.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByRef loads one order snapshot with its lines.
func (r *Repository) GetByRef(ctx context.Context, orderRef string) (Order, error) {
	var order Order
	err := r.pool.QueryRow(ctx, `SELECT ref, customer_ref, currency FROM order_snapshots WHERE ref=$1`, orderRef).
		Scan(&order.Ref, &order.CustomerRef, &order.Currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, fmt.Errorf("orders: %s: %w", orderRef, shared.ErrNotFound)
		}
		return Order{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT product_ref, description, quantity, unit_price
FROM order_snapshot_lines WHERE order_ref=$1 ORDER BY id`, orderRef)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ProductRef, &line.Description, &line.Quantity, &line.UnitPrice); err != nil {
			return Order{}, err
		}
		order.Lines = append(order.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return Order{}, err
	}
	return order, nil
}
