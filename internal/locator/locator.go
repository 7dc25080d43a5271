// Package locator provides a SQLite-backed id -> file path hint table that
// lets the document store skip the linear folder scan for known prompts.
//
// The table is a cache only: entries may be stale after external edits and the
// store verifies every hint by decoding the hinted file.
package locator

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS locations (
	id         TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_locations_path ON locations(path);
`

// DB wraps a sql.DB with path hint operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("locator: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("locator: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("locator: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Lookup returns the last known path for id.
func (db *DB) Lookup(id string) (string, bool) {
	var p string
	err := db.conn.QueryRow(`SELECT path FROM locations WHERE id = ?`, id).Scan(&p)
	if err != nil {
		return "", false
	}
	return p, true
}

// Remember records path as the location of id.
func (db *DB) Remember(id, path string) error {
	_, err := db.conn.Exec(`
		INSERT INTO locations (id, path, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path       = excluded.path,
			updated_at = excluded.updated_at
	`, id, path, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("locator: remember: %w", err)
	}
	return nil
}

// Forget drops the hint for id. Forgetting an unknown id is not an error.
func (db *DB) Forget(id string) error {
	if _, err := db.conn.Exec(`DELETE FROM locations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("locator: forget: %w", err)
	}
	return nil
}

// Reset replaces every hint with paths in a single transaction.
func (db *DB) Reset(paths map[string]string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("locator: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM locations`); err != nil {
		return fmt.Errorf("locator: clear: %w", err)
	}
	if len(paths) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO locations (id, path, updated_at) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("locator: prepare insert: %w", err)
		}
		defer stmt.Close()
		now := time.Now().UTC()
		for id, p := range paths {
			if _, err := stmt.Exec(id, p, now); err != nil {
				return fmt.Errorf("locator: insert: %w", err)
			}
		}
	}
	return tx.Commit()
}

// Count returns the number of stored hints.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM locations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("locator: count: %w", err)
	}
	return n, nil
}
