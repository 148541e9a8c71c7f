package db

import (
	"context"
	"time"
)

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
)

// ValidStatus reports whether s is a known transfer status.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusPaid
}

type NewTransfer struct {
	GroupID   int64
	From      string
	To        string
	Amount    int64
	Status    string
	CreatedBy string
}

type Transfer struct {
	ID        int64      `json:"id"`
	GroupID   int64      `json:"group_id"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	Amount    int64      `json:"amount"`
	Status    string     `json:"status"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

const transferColumns = `id, group_id, from_name, to_name, amount, status, created_by, created_at, paid_at`

func scanTransfer(row scanner) (*Transfer, error) {
	var t Transfer
	if err := row.Scan(&t.ID, &t.GroupID, &t.From, &t.To, &t.Amount, &t.Status, &t.CreatedBy, &t.CreatedAt, &t.PaidAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTransfer inserts one transfer record. An empty status means pending.
func (db *DB) CreateTransfer(ctx context.Context, nt NewTransfer) (*Transfer, error) {
	if nt.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if nt.Status == "" {
		nt.Status = StatusPending
	}
	if !ValidStatus(nt.Status) {
		return nil, ErrInvalidStatus
	}

	return scanTransfer(db.pool.QueryRow(ctx,
		`INSERT INTO transfers (group_id, from_name, to_name, amount, status, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+transferColumns,
		nt.GroupID, nt.From, nt.To, nt.Amount, nt.Status, nt.CreatedBy,
	))
}

func (db *DB) Transfer(ctx context.Context, id int64) (*Transfer, error) {
	t, err := scanTransfer(db.pool.QueryRow(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// ListTransfers returns a group's transfers, newest first. An empty status returns all.
func (db *DB) ListTransfers(ctx context.Context, groupID int64, status string) ([]Transfer, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+transferColumns+`
		 FROM transfers
		 WHERE group_id = $1 AND ($2 = '' OR status = $2)
		 ORDER BY created_at DESC, id`,
		groupID, status,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// UpdateTransferStatus sets the status and records when a transfer was paid.
func (db *DB) UpdateTransferStatus(ctx context.Context, id int64, status string) (*Transfer, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	t, err := scanTransfer(db.pool.QueryRow(ctx,
		`UPDATE transfers
		 SET status = $2,
		     paid_at = CASE WHEN $2 = 'paid' THEN COALESCE(paid_at, CURRENT_TIMESTAMP) ELSE NULL END
		 WHERE id = $1
		 RETURNING `+transferColumns,
		id, status,
	))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}
