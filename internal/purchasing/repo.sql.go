package purchasing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/lifecycle"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	CreateOrder(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	UpdateLineReceived(ctx context.Context, lineID int64, received int) error
	UpdateStatus(ctx context.Context, id int64, status lifecycle.State) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// Get returns a purchase order with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := r.pool.QueryRow(ctx, `SELECT id, number, COALESCE(supplier_ref,''), status, issued_at, COALESCE(expected_at, issued_at), COALESCE(notes,'')
FROM purchase_orders WHERE id=$1`, id).
		Scan(&po.ID, &po.Number, &po.SupplierRef, &po.Status, &po.IssuedAt, &po.ExpectedAt, &po.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, COALESCE(product_ref,''), description, quantity, received, unit_price, tax_rate, tax_amount, line_total
FROM purchase_order_lines WHERE order_id=$1 ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductRef, &line.Description, &line.Quantity, &line.Received, &line.UnitPrice, &line.TaxRate, &line.TaxAmount, &line.LineTotal); err != nil {
			return PurchaseOrder{}, err
		}
		po.Lines = append(po.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

// List returns purchase order headers, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int, status lifecycle.State) ([]PurchaseOrder, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, number, COALESCE(supplier_ref,''), status, issued_at, COALESCE(expected_at, issued_at), COALESCE(notes,'')
FROM purchase_orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status=$1 ORDER BY issued_at DESC LIMIT $2 OFFSET $3`
		args = append(args, status, limit, offset)
	} else {
		query += ` ORDER BY issued_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []PurchaseOrder
	for rows.Next() {
		var po PurchaseOrder
		if err := rows.Scan(&po.ID, &po.Number, &po.SupplierRef, &po.Status, &po.IssuedAt, &po.ExpectedAt, &po.Notes); err != nil {
			return nil, err
		}
		orders = append(orders, po)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (tx *txRepo) CreateOrder(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_orders (number, supplier_ref, status, issued_at, expected_at, notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW()) RETURNING id`, po.Number, po.SupplierRef, po.Status, po.IssuedAt, nullTime(po.ExpectedAt), po.Notes).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertLine(ctx context.Context, line Line) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_order_lines (order_id, product_ref, description, quantity, received, unit_price, tax_rate, tax_amount, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		line.OrderID, line.ProductRef, line.Description, line.Quantity, line.Received, line.UnitPrice, line.TaxRate, line.TaxAmount, line.LineTotal).Scan(&id)
	return id, err
}

func (tx *txRepo) UpdateLineReceived(ctx context.Context, lineID int64, received int) error {
	_, err := tx.tx.Exec(ctx, `UPDATE purchase_order_lines SET received=$1 WHERE id=$2`, received, lineID)
	return err
}

func (tx *txRepo) UpdateStatus(ctx context.Context, id int64, status lifecycle.State) error {
	_, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	return err
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
