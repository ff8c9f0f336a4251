// Package sqlite implements repository.Store on an embedded SQLite file.
//
// The whole key space lives in one table:
//
//	kv(key TEXT PRIMARY KEY, value BLOB, updated_at INTEGER)
//
// modernc.org/sqlite is a pure Go build of SQLite, so the binary needs no C
// toolchain. Use ":memory:" for a throwaway database in tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/rilmas/internal/repository"

	// registers the "sqlite" driver with database/sql
	_ "modernc.org/sqlite"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB pool limited to one connection.
//
// One connection keeps a ":memory:" database alive for the life of the DB and
// matches the single-writer model of the device store.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/rilmas.db" → file-based store
//   - ":memory:"       → in-memory store, lost on Close
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight.
	// In-memory databases answer "memory" and carry on.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn, now: time.Now}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the underlying pool. Wherever New is called, defer Close.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Get returns the blob stored under key.
func (db *DB) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`,
		key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("sqlite: getting %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes value under key, replacing any previous value.
func (db *DB) Set(ctx context.Context, key string, value []byte) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		db.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Deleting a missing key affects zero rows and is fine.
func (db *DB) Remove(ctx context.Context, key string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite: removing %s: %w", key, err)
	}
	return nil
}

// migrate creates the schema. Every step is idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value BLOB NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating kv table: %w", err)
	}

	// v2: track when each key was last written.
	if err := db.addColumnIfNotExists("kv", "updated_at",
		"INTEGER NOT NULL DEFAULT 0"); err != nil {
		return fmt.Errorf("adding updated_at to kv: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it is not there yet.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
