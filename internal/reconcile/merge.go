package reconcile

import (
	"math"
	"time"

	"github.com/sadopc/hard75/internal/program"
	"github.com/sadopc/hard75/internal/remote"
	"github.com/sadopc/hard75/internal/store"
)

// DayView is the merged state of every task for one date.
type DayView struct {
	Date    string
	entries map[program.TaskKey]store.Entry
}

// Entry returns the merged entry for key, or the empty shape if the task has
// no record.
func (v DayView) Entry(key program.TaskKey) store.Entry {
	if e, ok := v.entries[key]; ok {
		return e.Clone()
	}
	return store.NewEntry(v.Date, key)
}

// Ordered returns one entry per task in display order.
func (v DayView) Ordered() []store.Entry {
	out := make([]store.Entry, 0, len(program.Tasks))
	for _, t := range program.Tasks {
		out = append(out, v.Entry(t.Key))
	}
	return out
}

// Completed is the number of tasks marked done.
func (v DayView) Completed() int {
	n := 0
	for _, t := range program.Tasks {
		if v.entries[t.Key].Completed {
			n++
		}
	}
	return n
}

func (v DayView) Total() int { return len(program.Tasks) }

// Percent is the rounded share of completed tasks.
func (v DayView) Percent() int {
	return int(math.Round(float64(v.Completed()) / float64(v.Total()) * 100))
}

// Merge overlays remote rows onto the cached entries of date. It is pure:
// the same inputs always produce an equal view, and neither input is
// modified.
//
// For each remote row the description wins when non-empty, completed wins
// unless the task derives it, the remote image list is replaced wholesale,
// local images are kept and updatedAt is the later of the two.
func Merge(date string, local []store.Entry, rows []remote.Row) DayView {
	entries := make(map[program.TaskKey]store.Entry, len(program.Tasks))
	for _, e := range local {
		if !e.TaskKey.Valid() {
			continue
		}
		entries[e.TaskKey] = e.Clone()
	}

	for _, row := range rows {
		key, ok := rowTask(date, row)
		if !ok {
			continue
		}
		e, ok := entries[key]
		if !ok {
			e = store.NewEntry(date, key)
		}
		entries[key] = overlay(e, row, true)
	}

	// The cap only shapes the view. Pending local images it hides stay in
	// the cache.
	for key, e := range entries {
		e.Date = date
		entries[key] = applyPolicy(e)
	}
	return DayView{Date: date, entries: entries}
}

// rowTask returns the task of row when it belongs to date.
func rowTask(date string, row remote.Row) (program.TaskKey, bool) {
	key := program.TaskKey(row.TaskKey)
	if !key.Valid() || (row.Date != "" && row.Date != date) {
		return "", false
	}
	return key, true
}

// overlay applies row to e. The remote image list and the later updatedAt
// always apply; description and completion only when fields is set.
func overlay(e store.Entry, row remote.Row, fields bool) store.Entry {
	if fields {
		if row.Description != "" {
			e.Description = row.Description
		}
		if !Derived(e.TaskKey) {
			e.Completed = row.Completed
		}
	}
	e.ImagesRemote = remoteImages(row)
	if row.UpdatedAt > 0 {
		if ts := time.UnixMilli(row.UpdatedAt).UTC(); ts.After(e.UpdatedAt) {
			e.UpdatedAt = ts
		}
	}
	return e
}

// remoteImages maps a row's image list, falling back to the legacy single
// image when the row predates multi-image support.
func remoteImages(row remote.Row) []store.RemoteImage {
	if row.Images != nil {
		out := make([]store.RemoteImage, len(row.Images))
		for i, img := range row.Images {
			out[i] = store.RemoteImage{StorageID: img.StorageID, URL: img.URL}
		}
		return out
	}
	if row.ImageURL != nil && *row.ImageURL != "" {
		img := store.RemoteImage{URL: *row.ImageURL}
		if row.ImageStorageID != nil {
			img.StorageID = *row.ImageStorageID
		}
		return []store.RemoteImage{img}
	}
	return []store.RemoteImage{}
}
