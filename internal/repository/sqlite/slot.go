package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/todo-manager/internal/repository"
)

// compile-time check that *DB implements repository.KeyValueStore
var _ repository.KeyValueStore = (*DB)(nil)

// Get decodes the slot's JSON into dst. Query and decode failures are logged
// and reported as an absent slot.
func (db *DB) Get(ctx context.Context, key string, dst any) bool {
	var value string
	err := db.conn.GetContext(ctx, &value, `SELECT value FROM slots WHERE key = ?`, key)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			db.logger.Warn("slot read failed",
				slog.String("slot", key),
				slog.String("error", err.Error()),
			)
		}
		return false
	}

	if value == "null" {
		return false
	}

	if err := json.Unmarshal([]byte(value), dst); err != nil {
		db.logger.Warn("slot holds corrupt data",
			slog.String("slot", key),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// Set replaces the slot with the JSON encoding of value.
func (db *DB) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("sqlite: encoding slot %q: %w", key, err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: writing slot %q: %w", key, err)
	}
	return nil
}
