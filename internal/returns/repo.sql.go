package returns

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
	CreateNote(ctx context.Context, note ReturnNote) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	DeleteLines(ctx context.Context, noteID int64) error
	UpdateStatus(ctx context.Context, id int64, status lifecycle.State) error
	UpdateNotes(ctx context.Context, id int64, notes string) error
	UpdateRefundTotal(ctx context.Context, id int64, total float64) error
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

const noteColumns = `id, number, COALESCE(order_ref,''), COALESCE(customer_ref,''), COALESCE(reason,''), status, COALESCE(notes,''), created_at, refund_total`

func scanNote(row pgx.Row) (ReturnNote, error) {
	var note ReturnNote
	err := row.Scan(&note.ID, &note.Number, &note.OrderRef, &note.CustomerRef, &note.Reason, &note.Status, &note.Notes, &note.CreatedAt, &note.RefundTotal)
	return note, err
}

// Get loads one return note with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (ReturnNote, error) {
	note, err := scanNote(r.pool.QueryRow(ctx, `SELECT `+noteColumns+` FROM return_notes WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReturnNote{}, ErrNotFound
		}
		return ReturnNote{}, err
	}
	note.Lines, err = r.loadLines(ctx, id)
	if err != nil {
		return ReturnNote{}, err
	}
	return note, nil
}

func (r *Repository) loadLines(ctx context.Context, noteID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, note_id, COALESCE(product_ref,''), description, quantity, unit_price, condition, COALESCE(reason,''), refund_amount
FROM return_note_lines WHERE note_id=$1 ORDER BY id`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.NoteID, &line.ProductRef, &line.Description, &line.Quantity, &line.UnitPrice, &line.Condition, &line.Reason, &line.RefundAmount); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// List returns note headers, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int, status lifecycle.State) ([]ReturnNote, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + noteColumns + ` FROM return_notes`
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
	var notes []ReturnNote
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// ListByOrderRef returns every note referencing the order, lines included.
// Completeness checks scan this at decision time.
func (r *Repository) ListByOrderRef(ctx context.Context, orderRef string) ([]ReturnNote, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+noteColumns+` FROM return_notes WHERE order_ref=$1 ORDER BY id`, orderRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var notes []ReturnNote
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range notes {
		notes[i].Lines, err = r.loadLines(ctx, notes[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return notes, nil
}

func (tx *txRepo) CreateNote(ctx context.Context, note ReturnNote) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO return_notes (number, order_ref, customer_ref, reason, status, notes, created_at, refund_total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		note.Number, note.OrderRef, note.CustomerRef, note.Reason, note.Status, note.Notes, note.CreatedAt, note.RefundTotal).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertLine(ctx context.Context, line Line) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO return_note_lines (note_id, product_ref, description, quantity, unit_price, condition, reason, refund_amount)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		line.NoteID, line.ProductRef, line.Description, line.Quantity, line.UnitPrice, line.Condition, line.Reason, line.RefundAmount).Scan(&id)
	return id, err
}

func (tx *txRepo) DeleteLines(ctx context.Context, noteID int64) error {
	_, err := tx.tx.Exec(ctx, `DELETE FROM return_note_lines WHERE note_id=$1`, noteID)
	return err
}

func (tx *txRepo) UpdateStatus(ctx context.Context, id int64, status lifecycle.State) error {
	_, err := tx.tx.Exec(ctx, `UPDATE return_notes SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	return err
}

func (tx *txRepo) UpdateNotes(ctx context.Context, id int64, notes string) error {
	_, err := tx.tx.Exec(ctx, `UPDATE return_notes SET notes=$1, updated_at=NOW() WHERE id=$2`, notes, id)
	return err
}

func (tx *txRepo) UpdateRefundTotal(ctx context.Context, id int64, total float64) error {
	_, err := tx.tx.Exec(ctx, `UPDATE return_notes SET refund_total=$1, updated_at=NOW() WHERE id=$2`, total, id)
	return err
}
