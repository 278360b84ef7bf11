package delivery

import (
	"context"
	"errors"

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
	CreateNote(ctx context.Context, note DeliveryNote) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	UpdateLineDelivered(ctx context.Context, lineID int64, delivered int) error
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

// Get loads one delivery note with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (DeliveryNote, error) {
	var note DeliveryNote
	err := r.pool.QueryRow(ctx, `SELECT id, number, COALESCE(order_ref,''), COALESCE(customer_ref,''), status, created_at, COALESCE(notes,'')
FROM delivery_notes WHERE id=$1`, id).
		Scan(&note.ID, &note.Number, &note.OrderRef, &note.CustomerRef, &note.Status, &note.CreatedAt, &note.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DeliveryNote{}, ErrNotFound
		}
		return DeliveryNote{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, note_id, COALESCE(product_ref,''), description, quantity, delivered, unit_price, tax_rate, tax_amount, line_total
FROM delivery_note_lines WHERE note_id=$1 ORDER BY id`, id)
	if err != nil {
		return DeliveryNote{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.NoteID, &line.ProductRef, &line.Description, &line.Quantity, &line.Delivered, &line.UnitPrice, &line.TaxRate, &line.TaxAmount, &line.LineTotal); err != nil {
			return DeliveryNote{}, err
		}
		note.Lines = append(note.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return DeliveryNote{}, err
	}
	return note, nil
}

// List returns delivery note headers, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int, status lifecycle.State) ([]DeliveryNote, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, number, COALESCE(order_ref,''), COALESCE(customer_ref,''), status, created_at, COALESCE(notes,'')
FROM delivery_notes`
	args := []any{}
	if status != "" {
		query += ` WHERE status=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, status, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var notes []DeliveryNote
	for rows.Next() {
		var note DeliveryNote
		if err := rows.Scan(&note.ID, &note.Number, &note.OrderRef, &note.CustomerRef, &note.Status, &note.CreatedAt, &note.Notes); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

func (tx *txRepo) CreateNote(ctx context.Context, note DeliveryNote) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO delivery_notes (number, order_ref, customer_ref, status, created_at, notes)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		note.Number, note.OrderRef, note.CustomerRef, note.Status, note.CreatedAt, note.Notes).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertLine(ctx context.Context, line Line) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO delivery_note_lines (note_id, product_ref, description, quantity, delivered, unit_price, tax_rate, tax_amount, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		line.NoteID, line.ProductRef, line.Description, line.Quantity, line.Delivered, line.UnitPrice, line.TaxRate, line.TaxAmount, line.LineTotal).Scan(&id)
	return id, err
}

func (tx *txRepo) UpdateLineDelivered(ctx context.Context, lineID int64, delivered int) error {
	_, err := tx.tx.Exec(ctx, `UPDATE delivery_note_lines SET delivered=$1 WHERE id=$2`, delivered, lineID)
	return err
}

func (tx *txRepo) UpdateStatus(ctx context.Context, id int64, status lifecycle.State) error {
	_, err := tx.tx.Exec(ctx, `UPDATE delivery_notes SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	return err
}
