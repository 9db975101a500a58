// Package sqlite implements repository.KeyValueStore on an embedded SQLite
// database. Each slot is one row whose value column holds the JSON document.
//
// SCHEMA:
//
//	slots(key TEXT PRIMARY KEY, value TEXT, updated_at DATETIME)
//
//	key    value                                       updated_at
//	users  [{"email":"a@b.com",...}]                  2024-01-01 10:00:00
//	user   {"email":"a@b.com",...} or null            2024-01-01 10:00:00
//	todos  [{"user":"a@b.com","data":[...]}]           2024-01-01 10:05:00
//
// WHY ONE ROW PER SLOT AND NOT A TABLE PER ENTITY?
// The repositories read a whole slot, change it and write it back. Storing
// the document as-is keeps the on-disk layout identical to the memory store,
// so a database can be inspected with a single SELECT and a damaged row
// behaves exactly like a damaged memory slot (it reads as absent).
//
// modernc.org/sqlite is a pure Go port of SQLite, so the binary needs no C
// toolchain. sqlx adds Get/Select helpers on top of database/sql.
//
// dbPath examples:
//   - "data/todos.db"  file-based, survives restarts
//   - ":memory:"       in-memory, used by tests
package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB owns the connection pool. It implements repository.KeyValueStore.
type DB struct {
	conn   *sqlx.DB
	logger *slog.Logger
}

// New opens the database at dbPath and runs migrations.
func New(dbPath string, logger *slog.Logger) (*DB, error) {
	conn, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// One connection: an in-memory database exists per connection, and the
	// store's read-modify-write model expects a single writer anyway.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn, logger: logger}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by the health route.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS slots (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating slots table: %w", err)
	}
	return nil
}
