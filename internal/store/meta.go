package store

import (
	"database/sql"
	"errors"
)

// GetMeta returns the value stored under key and whether it exists.
func (s *Store) GetMeta(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr("get meta "+key, err)
	}
	return value, true, nil
}

func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return storageErr("set meta "+key, err)
}

func (s *Store) ListMeta() ([]Meta, error) {
	rows, err := s.db.Query(`SELECT key, value FROM meta ORDER BY key`)
	if err != nil {
		return nil, storageErr("list meta", err)
	}
	defer rows.Close()

	var meta []Meta
	for rows.Next() {
		var m Meta
		if err := rows.Scan(&m.Key, &m.Value); err != nil {
			return nil, storageErr("scan meta", err)
		}
		meta = append(meta, m)
	}
	return meta, storageErr("list meta", rows.Err())
}
