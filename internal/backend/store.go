package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/hard75/internal/store"
)

const schemaVersion = 1

// Record is one stored entry as the backend keeps it.
type Record struct {
	Date            string
	TaskKey         string
	Completed       bool
	Description     string
	ImageStorageID  string
	ImageStorageIDs []string
	UpdatedAt       int64 // epoch milliseconds
}

// SaveParams is an entry write. Nil image fields keep what is stored.
type SaveParams struct {
	Date            string
	TaskKey         string
	Completed       bool
	Description     string
	ImageStorageID  *string
	ImageStorageIDs *[]string
	ClearImage      bool
}

type Blob struct {
	ID          string
	ContentType string
	Data        []byte
}

// Store is the authoritative entry and blob store behind the HTTP API.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore opens (or creates) the backend database at dbPath.
func OpenStore(dbPath string) (*Store, error) {
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate backend: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS remote_entries (
			date              TEXT NOT NULL,
			task_key          TEXT NOT NULL,
			completed         INTEGER NOT NULL DEFAULT 0,
			description       TEXT NOT NULL DEFAULT '',
			image_storage_id  TEXT NOT NULL DEFAULT '',
			image_storage_ids TEXT NOT NULL DEFAULT '[]',
			updated_at        INTEGER NOT NULL,
			PRIMARY KEY (date, task_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_remote_entries_date ON remote_entries(date)`,
		`CREATE TABLE IF NOT EXISTS blobs (
			id           TEXT PRIMARY KEY,
			content_type TEXT NOT NULL,
			data         BLOB NOT NULL,
			created_at   INTEGER NOT NULL
		)`,
		fmt.Sprintf("PRAGMA user_version = %d", schemaVersion),
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return tx.Commit()
}

// ListByDate returns every record for date ordered by task key.
func (s *Store) ListByDate(ctx context.Context, date string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, task_key, completed, description, image_storage_id, image_storage_ids, updated_at
		 FROM remote_entries WHERE date = ? ORDER BY task_key`, date)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc rowScanner) (Record, error) {
	var (
		r   Record
		ids string
	)
	if err := sc.Scan(&r.Date, &r.TaskKey, &r.Completed, &r.Description, &r.ImageStorageID, &ids, &r.UpdatedAt); err != nil {
		return Record{}, fmt.Errorf("scan entry: %w", err)
	}
	if err := json.Unmarshal([]byte(ids), &r.ImageStorageIDs); err != nil {
		return Record{}, fmt.Errorf("decode storage ids: %w", err)
	}
	if r.ImageStorageIDs == nil {
		r.ImageStorageIDs = []string{}
	}
	return r, nil
}

func (s *Store) get(ctx context.Context, tx *sql.Tx, date, taskKey string) (*Record, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT date, task_key, completed, description, image_storage_id, image_storage_ids, updated_at
		 FROM remote_entries WHERE date = ? AND task_key = ?`, date, taskKey)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Save upserts the entry for (p.Date, p.TaskKey) and returns its id.
// ClearImage empties both image fields; otherwise a nil image field keeps
// the stored value. UpdatedAt is always set to the current time.
func (s *Store) Save(ctx context.Context, p SaveParams) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	existing, err := s.get(ctx, tx, p.Date, p.TaskKey)
	if err != nil {
		return "", err
	}

	rec := Record{
		Date:            p.Date,
		TaskKey:         p.TaskKey,
		Completed:       p.Completed,
		Description:     p.Description,
		ImageStorageIDs: []string{},
		UpdatedAt:       s.now().UnixMilli(),
	}
	if !p.ClearImage {
		switch {
		case p.ImageStorageID != nil && *p.ImageStorageID != "":
			rec.ImageStorageID = *p.ImageStorageID
		case existing != nil:
			rec.ImageStorageID = existing.ImageStorageID
		}
		switch {
		case p.ImageStorageIDs != nil:
			rec.ImageStorageIDs = append(rec.ImageStorageIDs, (*p.ImageStorageIDs)...)
		case existing != nil:
			rec.ImageStorageIDs = existing.ImageStorageIDs
		}
	}

	ids, err := json.Marshal(rec.ImageStorageIDs)
	if err != nil {
		return "", fmt.Errorf("encode storage ids: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO remote_entries (date, task_key, completed, description, image_storage_id, image_storage_ids, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(date, task_key) DO UPDATE SET
			completed = excluded.completed,
			description = excluded.description,
			image_storage_id = excluded.image_storage_id,
			image_storage_ids = excluded.image_storage_ids,
			updated_at = excluded.updated_at`,
		rec.Date, rec.TaskKey, rec.Completed, rec.Description, rec.ImageStorageID, string(ids), rec.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("save entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save: %w", err)
	}
	return rec.Date + "|" + rec.TaskKey, nil
}

// PutBlob stores data and returns its new storage id.
func (s *Store) PutBlob(ctx context.Context, contentType string, data []byte) (string, error) {
	id := uuid.NewString()
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs (id, content_type, data, created_at) VALUES (?, ?, ?, ?)`,
		id, contentType, data, s.now().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("put blob: %w", err)
	}
	return id, nil
}

// GetBlob returns the blob stored under id, or nil if there is none.
func (s *Store) GetBlob(ctx context.Context, id string) (*Blob, error) {
	b := Blob{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT content_type, data FROM blobs WHERE id = ?`, id,
	).Scan(&b.ContentType, &b.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get blob: %w", err)
	}
	return &b, nil
}

// HasBlob reports whether id names a stored blob.
func (s *Store) HasBlob(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blobs WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check blob: %w", err)
	}
	return n > 0, nil
}
