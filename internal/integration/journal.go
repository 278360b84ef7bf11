package integration

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// JournalEntry is one failed channel call kept for replay. Payload holds the
// original call parameters keyed per operation.
type JournalEntry struct {
	ID         uuid.UUID
	Op         string
	Ref        string
	Payload    map[string]any
	Reason     string
	OccurredAt time.Time
	ReplayedAt *time.Time
}

// Journal persists failed channel calls in side_effect_journal.
type Journal struct {
	pool *pgxpool.Pool
}

// NewJournal constructs the journal.
func NewJournal(pool *pgxpool.Pool) *Journal {
	return &Journal{pool: pool}
}

// Record inserts a journal entry.
func (j *Journal) Record(ctx context.Context, entry JournalEntry) error {
	if j == nil {
		return errors.New("integration: journal not initialised")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return err
	}
	_, err = j.pool.Exec(ctx, `INSERT INTO side_effect_journal (id, op, ref, payload, reason, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6)`, entry.ID, entry.Op, entry.Ref, payload, entry.Reason, entry.OccurredAt)
	return err
}

// ListPending returns entries not yet replayed, oldest first.
func (j *Journal) ListPending(ctx context.Context, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.pool.Query(ctx, `SELECT id, op, ref, payload, reason, occurred_at, replayed_at
FROM side_effect_journal WHERE replayed_at IS NULL ORDER BY occurred_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		var entry JournalEntry
		var payload []byte
		if err := rows.Scan(&entry.ID, &entry.Op, &entry.Ref, &payload, &entry.Reason, &entry.OccurredAt, &entry.ReplayedAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &entry.Payload); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkReplayed stamps an entry after a successful replay.
func (j *Journal) MarkReplayed(ctx context.Context, id uuid.UUID) error {
	tag, err := j.pool.Exec(ctx, `UPDATE side_effect_journal SET replayed_at=NOW() WHERE id=$1 AND replayed_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
