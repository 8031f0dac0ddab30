package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentVersion = 2

// Store is the local cache: per-(date, task) entries plus singleton meta
// values. Every method is atomic on its own; there are no cross-entry
// transactions.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at dbPath with the pragmas every
// hard75 database uses. Callers own schema setup.
func Open(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}
	return db, nil
}

// New opens (or creates) the local cache at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, &StorageError{Op: "migrate", Err: err}
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}
	if version < 2 {
		if err := s.migrateV2(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

// migrateV1 creates the single-image schema. The image_* columns are only
// read for rows that predate v2 and are cleared on the next write.
func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS entries (
		date             TEXT NOT NULL,
		task_key         TEXT NOT NULL,
		completed        INTEGER NOT NULL DEFAULT 0,
		description      TEXT NOT NULL DEFAULT '',
		image_blob       BLOB,
		image_type       TEXT NOT NULL DEFAULT '',
		image_remote_url TEXT NOT NULL DEFAULT '',
		image_storage_id TEXT NOT NULL DEFAULT '',
		updated_at       TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		PRIMARY KEY (date, task_key)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_date ON entries(date);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

func (s *Store) migrateV2() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS entry_images_local (
		date      TEXT NOT NULL,
		task_key  TEXT NOT NULL,
		position  INTEGER NOT NULL,
		data      BLOB NOT NULL,
		mime_type TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (date, task_key, position),
		FOREIGN KEY (date, task_key) REFERENCES entries(date, task_key) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS entry_images_remote (
		date       TEXT NOT NULL,
		task_key   TEXT NOT NULL,
		position   INTEGER NOT NULL,
		storage_id TEXT NOT NULL DEFAULT '',
		url        TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (date, task_key, position),
		FOREIGN KEY (date, task_key) REFERENCES entries(date, task_key) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// DefaultDBPath returns ~/.config/hard75/hard75.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "hard75", "hard75.db"), nil
}
