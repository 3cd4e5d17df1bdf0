package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bobarin/storyboard/internal/store"
)

var _ store.Backend = (*DB)(nil)

// Get implements store.Backend over the app_state table.
func (db *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := db.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state %s: %w", key, err)
	}
	return value, nil
}

// Put upserts the value for key.
func (db *DB) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO app_state (key, value, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := db.ExecContext(ctx, query, key, string(value)); err != nil {
		return fmt.Errorf("failed to put state %s: %w", key, err)
	}
	return nil
}
