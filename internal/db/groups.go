package db

import (
	"context"
	"time"
)

// Member is a group member. Name is empty until the user has logged in once.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Group struct {
	ID                      int64     `json:"id"`
	Name                    string    `json:"name"`
	OwnerID                 string    `json:"owner_id"`
	OwnerName               string    `json:"owner_name"`
	ChannelID               *string   `json:"channel_id,omitempty"`
	ReminderEnabled         bool      `json:"reminder_enabled"`
	ReminderIntervalMinutes int       `json:"reminder_interval_minutes"`
	Members                 []Member  `json:"members"`
	CreatedAt               time.Time `json:"created_at"`
}

// HasMember reports whether userID owns or belongs to the group.
func (g *Group) HasMember(userID string) bool {
	if g.OwnerID == userID {
		return true
	}
	for _, m := range g.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

const groupColumns = `g.id, g.name, g.owner_id,
	COALESCE((SELECT u.name FROM users u WHERE u.discord_id = g.owner_id), ''),
	g.channel_id, g.reminder_enabled, g.reminder_interval_minutes, g.created_at,
	COALESCE((
		SELECT json_agg(json_build_object('id', m.user_id, 'name', COALESCE(u.name, '')) ORDER BY m.joined_at)
		FROM group_members m LEFT JOIN users u ON u.discord_id = m.user_id
		WHERE m.group_id = g.id
	), '[]'::json)`

type scanner interface {
	Scan(dest ...any) error
}

func scanGroup(row scanner) (*Group, error) {
	var g Group
	if err := row.Scan(&g.ID, &g.Name, &g.OwnerID, &g.OwnerName, &g.ChannelID, &g.ReminderEnabled, &g.ReminderIntervalMinutes, &g.CreatedAt, &g.Members); err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateGroup creates a group owned by ownerID, who also becomes its first member.
func (db *DB) CreateGroup(ctx context.Context, name, ownerID string) (*Group, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO groups (name, owner_id) VALUES ($1, $2) RETURNING id`,
		name, ownerID,
	).Scan(&id); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`,
		id, ownerID,
	); err != nil {
		return nil, err
	}

	g, err := scanGroup(tx.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups g WHERE g.id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

// Group returns a group with its members.
func (db *DB) Group(ctx context.Context, groupID int64) (*Group, error) {
	g, err := scanGroup(db.pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups g WHERE g.id = $1`, groupID))
	if err != nil {
		return nil, notFound(err)
	}
	return g, nil
}

// GroupsForUser returns groups the user owns or belongs to, newest first.
func (db *DB) GroupsForUser(ctx context.Context, userID string) ([]Group, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+groupColumns+`
		 FROM groups g
		 WHERE g.owner_id = $1
		    OR EXISTS (SELECT 1 FROM group_members m WHERE m.group_id = g.id AND m.user_id = $1)
		 ORDER BY g.created_at DESC, g.id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// IsGroupMember reports whether the user owns or belongs to the group.
func (db *DB) IsGroupMember(ctx context.Context, groupID int64, userID string) (bool, error) {
	var ok bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM groups g
			WHERE g.id = $1
			  AND (g.owner_id = $2 OR EXISTS (SELECT 1 FROM group_members m WHERE m.group_id = g.id AND m.user_id = $2))
		)`,
		groupID, userID,
	).Scan(&ok)
	return ok, err
}

// ConfigureReminders binds a group to a Discord channel for pending transfer reminders.
// An interval of zero disables reminders but keeps the channel.
func (db *DB) ConfigureReminders(ctx context.Context, groupID int64, channelID string, intervalMinutes int) error {
	ct, err := db.pool.Exec(ctx,
		`UPDATE groups
		 SET channel_id = $2,
		     reminder_enabled = $3,
		     reminder_interval_minutes = $4,
		     next_reminder_at = NULL
		 WHERE id = $1`,
		groupID, channelID, intervalMinutes > 0, intervalMinutes,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
