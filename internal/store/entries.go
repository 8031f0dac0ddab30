package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/hard75/internal/program"
)

const entryColumns = `date, task_key, completed, description, image_blob, image_type, image_remote_url, image_storage_id, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// legacyImage holds the single-image columns from the v1 schema.
type legacyImage struct {
	blob      []byte
	mimeType  string
	remoteURL string
	storageID string
}

type imageSet struct {
	local  []LocalImage
	remote []RemoteImage
}

func scanEntry(r rowScanner) (Entry, legacyImage, error) {
	var e Entry
	var l legacyImage
	var key, updatedAt string
	var completed int
	err := r.Scan(&e.Date, &key, &completed, &e.Description, &l.blob, &l.mimeType, &l.remoteURL, &l.storageID, &updatedAt)
	if err != nil {
		return Entry{}, legacyImage{}, err
	}
	e.TaskKey = program.TaskKey(key)
	e.Completed = completed == 1
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return e, l, nil
}

// withImages attaches the stored image lists, falling back to the legacy
// single-image columns when a row has never been written by the v2 schema.
func withImages(e Entry, l legacyImage, set *imageSet) Entry {
	e.ImagesLocal = []LocalImage{}
	e.ImagesRemote = []RemoteImage{}
	if set != nil {
		e.ImagesLocal = append(e.ImagesLocal, set.local...)
		e.ImagesRemote = append(e.ImagesRemote, set.remote...)
	}
	if len(e.ImagesLocal) == 0 && len(l.blob) > 0 {
		e.ImagesLocal = append(e.ImagesLocal, LocalImage{Data: l.blob, MIMEType: l.mimeType})
	}
	if len(e.ImagesRemote) == 0 && (l.remoteURL != "" || l.storageID != "") {
		e.ImagesRemote = append(e.ImagesRemote, RemoteImage{StorageID: l.storageID, URL: l.remoteURL})
	}
	return e
}

// GetEntry returns the cached entry for (date, key), or nil if none exists.
func (s *Store) GetEntry(date string, key program.TaskKey) (*Entry, error) {
	row := s.db.QueryRow(
		`SELECT `+entryColumns+` FROM entries WHERE date = ? AND task_key = ?`, date, string(key),
	)
	e, legacy, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(fmt.Sprintf("get entry %s/%s", date, key), err)
	}

	images, err := s.loadImages(date, key)
	if err != nil {
		return nil, err
	}
	e = withImages(e, legacy, images[key])
	return &e, nil
}

// ListEntriesByDate returns every cached entry for date, ordered by task key.
func (s *Store) ListEntriesByDate(date string) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT `+entryColumns+` FROM entries WHERE date = ? ORDER BY task_key`, date,
	)
	if err != nil {
		return nil, storageErr("list entries "+date, err)
	}
	defer rows.Close()

	type scanned struct {
		e Entry
		l legacyImage
	}
	var found []scanned
	for rows.Next() {
		e, l, err := scanEntry(rows)
		if err != nil {
			return nil, storageErr("scan entry", err)
		}
		found = append(found, scanned{e, l})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list entries "+date, err)
	}
	if len(found) == 0 {
		return nil, nil
	}

	images, err := s.loadImages(date, "")
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(found))
	for _, f := range found {
		entries = append(entries, withImages(f.e, f.l, images[f.e.TaskKey]))
	}
	return entries, nil
}

// ListEntries returns all cached entries in the filter's date range, ordered
// by date then task key.
func (s *Store) ListEntries(f EntryFilter) ([]Entry, error) {
	query := `SELECT DISTINCT date FROM entries WHERE 1=1`
	var args []any
	if f.From != "" {
		query += ` AND date >= ?`
		args = append(args, f.From)
	}
	if f.To != "" {
		query += ` AND date <= ?`
		args = append(args, f.To)
	}
	query += ` ORDER BY date`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("list entry dates", err)
	}
	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			rows.Close()
			return nil, storageErr("scan entry date", err)
		}
		dates = append(dates, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storageErr("list entry dates", err)
	}

	var entries []Entry
	for _, d := range dates {
		day, err := s.ListEntriesByDate(d)
		if err != nil {
			return nil, err
		}
		entries = append(entries, day...)
	}
	return entries, nil
}

// PutEntry upserts e keyed by (Date, TaskKey), replacing its image lists.
func (s *Store) PutEntry(e Entry) error {
	op := fmt.Sprintf("put entry %s/%s", e.Date, e.TaskKey)
	if e.Date == "" || e.TaskKey == "" {
		return storageErr(op, errors.New("entry has no key"))
	}
	updatedAt := e.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return storageErr(op, err)
	}
	defer tx.Rollback()

	completed := 0
	if e.Completed {
		completed = 1
	}
	_, err = tx.Exec(
		`INSERT INTO entries (`+entryColumns+`) VALUES (?, ?, ?, ?, NULL, '', '', '', ?)
		 ON CONFLICT(date, task_key) DO UPDATE SET
			completed = excluded.completed,
			description = excluded.description,
			image_blob = NULL,
			image_type = '',
			image_remote_url = '',
			image_storage_id = '',
			updated_at = excluded.updated_at`,
		e.Date, string(e.TaskKey), completed, e.Description, updatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return storageErr(op, err)
	}

	for _, table := range []string{"entry_images_local", "entry_images_remote"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE date = ? AND task_key = ?`, e.Date, string(e.TaskKey)); err != nil {
			return storageErr(op, err)
		}
	}
	for i, img := range e.ImagesLocal {
		data := img.Data
		if data == nil {
			data = []byte{}
		}
		_, err := tx.Exec(
			`INSERT INTO entry_images_local (date, task_key, position, data, mime_type) VALUES (?, ?, ?, ?, ?)`,
			e.Date, string(e.TaskKey), i, data, img.MIMEType,
		)
		if err != nil {
			return storageErr(op, err)
		}
	}
	for i, img := range e.ImagesRemote {
		_, err := tx.Exec(
			`INSERT INTO entry_images_remote (date, task_key, position, storage_id, url) VALUES (?, ?, ?, ?, ?)`,
			e.Date, string(e.TaskKey), i, img.StorageID, img.URL,
		)
		if err != nil {
			return storageErr(op, err)
		}
	}

	return storageErr(op, tx.Commit())
}

// loadImages returns image lists for date, keyed by task. An empty key loads
// every task of the day.
func (s *Store) loadImages(date string, key program.TaskKey) (map[program.TaskKey]*imageSet, error) {
	filter := ` WHERE date = ?`
	args := []any{date}
	if key != "" {
		filter += ` AND task_key = ?`
		args = append(args, string(key))
	}
	order := ` ORDER BY task_key, position`

	sets := make(map[program.TaskKey]*imageSet)
	get := func(k string) *imageSet {
		set, ok := sets[program.TaskKey(k)]
		if !ok {
			set = &imageSet{}
			sets[program.TaskKey(k)] = set
		}
		return set
	}

	rows, err := s.db.Query(`SELECT task_key, data, mime_type FROM entry_images_local`+filter+order, args...)
	if err != nil {
		return nil, storageErr("load local images", err)
	}
	for rows.Next() {
		var k string
		var img LocalImage
		if err := rows.Scan(&k, &img.Data, &img.MIMEType); err != nil {
			rows.Close()
			return nil, storageErr("scan local image", err)
		}
		set := get(k)
		set.local = append(set.local, img)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storageErr("load local images", err)
	}

	rows, err = s.db.Query(`SELECT task_key, storage_id, url FROM entry_images_remote`+filter+order, args...)
	if err != nil {
		return nil, storageErr("load remote images", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var img RemoteImage
		if err := rows.Scan(&k, &img.StorageID, &img.URL); err != nil {
			return nil, storageErr("scan remote image", err)
		}
		set := get(k)
		set.remote = append(set.remote, img)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("load remote images", err)
	}
	return sets, nil
}

// GetDailyProgress counts completed entries per date in [from, to].
func (s *Store) GetDailyProgress(from, to string) ([]DailyProgress, error) {
	rows, err := s.db.Query(`
		SELECT date, COALESCE(SUM(completed), 0), COUNT(*)
		FROM entries
		WHERE date >= ? AND date <= ?
		GROUP BY date
		ORDER BY date`,
		from, to,
	)
	if err != nil {
		return nil, storageErr("daily progress", err)
	}
	defer rows.Close()

	var progress []DailyProgress
	for rows.Next() {
		var p DailyProgress
		if err := rows.Scan(&p.Date, &p.Completed, &p.Recorded); err != nil {
			return nil, storageErr("scan daily progress", err)
		}
		progress = append(progress, p)
	}
	return progress, storageErr("daily progress", rows.Err())
}
