package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Invitation is a single-use group invitation. InviterName is empty until
// the inviter has logged in once.
type Invitation struct {
	ID          int64     `json:"id"`
	GroupID     int64     `json:"group_id"`
	Token       string    `json:"token"`
	CreatedBy   string    `json:"created_by"`
	InviterName string    `json:"inviter_name"`
	Used        bool      `json:"used"`
	Accepted    bool      `json:"accepted"`
	CreatedAt   time.Time `json:"created_at"`
}

const invitationColumns = `id, group_id, token, created_by,
	COALESCE((SELECT u.name FROM users u WHERE u.discord_id = created_by), ''),
	used, accepted, created_at`

func scanInvitation(row scanner) (*Invitation, error) {
	var inv Invitation
	if err := row.Scan(&inv.ID, &inv.GroupID, &inv.Token, &inv.CreatedBy, &inv.InviterName, &inv.Used, &inv.Accepted, &inv.CreatedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}

// CreateInvitation creates a single-use invitation with a random token.
func (db *DB) CreateInvitation(ctx context.Context, groupID int64, createdBy string) (*Invitation, error) {
	inv, err := scanInvitation(db.pool.QueryRow(ctx,
		`INSERT INTO group_invitations (group_id, token, created_by)
		 VALUES ($1, $2, $3)
		 RETURNING `+invitationColumns,
		groupID, uuid.NewString(), createdBy,
	))
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (db *DB) InvitationByToken(ctx context.Context, token string) (*Invitation, error) {
	inv, err := scanInvitation(db.pool.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM group_invitations WHERE token = $1`,
		token,
	))
	if err != nil {
		return nil, notFound(err)
	}
	return inv, nil
}

// RespondInvitation marks an invitation used. When accepted, userID joins the group.
func (db *DB) RespondInvitation(ctx context.Context, token, userID string, accept bool) (*Invitation, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inv, err := scanInvitation(tx.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM group_invitations WHERE token = $1 FOR UPDATE`,
		token,
	))
	if err != nil {
		return nil, notFound(err)
	}
	if inv.Used {
		return nil, ErrInvitationUsed
	}

	if _, err := tx.Exec(ctx,
		`UPDATE group_invitations SET used = TRUE, accepted = $2, responded_by = $3 WHERE id = $1`,
		inv.ID, accept, userID,
	); err != nil {
		return nil, err
	}
	if accept {
		if _, err := tx.Exec(ctx,
			`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			inv.GroupID, userID,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	inv.Used = true
	inv.Accepted = accept
	return inv, nil
}
