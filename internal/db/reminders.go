package db

import (
	"context"
	"time"
)

type ReminderDue struct {
	GroupID         int64
	GroupName       string
	ChannelID       string
	IntervalMinutes int
}

// DueReminders returns groups whose reminder is due and that still have pending transfers.
func (db *DB) DueReminders(ctx context.Context, now time.Time) ([]ReminderDue, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT g.id, g.name, g.channel_id, g.reminder_interval_minutes
		 FROM groups g
		 WHERE g.reminder_enabled = TRUE
		   AND g.channel_id IS NOT NULL
		   AND (g.next_reminder_at IS NULL OR g.next_reminder_at <= $1)
		   AND EXISTS (
			 SELECT 1 FROM transfers t
			 WHERE t.group_id = g.id AND t.status = 'pending'
		   )`,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []ReminderDue
	for rows.Next() {
		var r ReminderDue
		if err := rows.Scan(&r.GroupID, &r.GroupName, &r.ChannelID, &r.IntervalMinutes); err != nil {
			return nil, err
		}
		targets = append(targets, r)
	}
	return targets, rows.Err()
}

// MarkReminderSent updates reminder schedule timestamps.
func (db *DB) MarkReminderSent(ctx context.Context, groupID int64, sentAt time.Time, nextDue time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE groups
		 SET last_reminder_at = $2, next_reminder_at = $3
		 WHERE id = $1`,
		groupID, sentAt, nextDue,
	)
	return err
}

// DelayReminder updates next_reminder_at without touching last_reminder_at.
func (db *DB) DelayReminder(ctx context.Context, groupID int64, nextDue time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE groups
		 SET next_reminder_at = $2
		 WHERE id = $1`,
		groupID, nextDue,
	)
	return err
}
