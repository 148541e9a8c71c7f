package db

import "context"

// UpsertUser stores the Discord identity of a user who logged in.
func (db *DB) UpsertUser(ctx context.Context, discordID, name string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO users (discord_id, name)
		 VALUES ($1, $2)
		 ON CONFLICT (discord_id) DO UPDATE SET name = EXCLUDED.name, updated_at = CURRENT_TIMESTAMP`,
		discordID, name,
	)
	return err
}
