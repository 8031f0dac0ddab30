// Package reconcile merges the local entry cache with the remote backend and
// applies every write to the cache first. Remote failures are logged and
// absorbed here; only local storage failures reach callers.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/sadopc/hard75/internal/imaging"
	"github.com/sadopc/hard75/internal/program"
	"github.com/sadopc/hard75/internal/remote"
	"github.com/sadopc/hard75/internal/store"
)

// ErrUnknownTask is returned for task keys outside the fixed task list.
var ErrUnknownTask = errors.New("unknown task")

// Cache is the local entry store. *store.Store satisfies it.
type Cache interface {
	GetEntry(date string, key program.TaskKey) (*store.Entry, error)
	ListEntriesByDate(date string) ([]store.Entry, error)
	PutEntry(e store.Entry) error
}

// Gateway is the remote backend. *remote.Client satisfies it.
type Gateway interface {
	ListByDate(ctx context.Context, date string) ([]remote.Row, error)
	Save(ctx context.Context, req remote.SaveRequest) (string, error)
	UploadImages(ctx context.Context, blobs []imaging.Blob) ([]remote.ImageRef, error)
}

// Compressor turns raw image bytes into an upload-ready blob.
// *imaging.Pipeline satisfies it.
type Compressor interface {
	Compress(raw []byte) imaging.Blob
}

type Reconciler struct {
	cache  Cache
	remote Gateway
	images Compressor
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Reconciler)

// WithRemote enables remote sync through g.
func WithRemote(g Gateway) Option {
	return func(r *Reconciler) { r.remote = g }
}

func WithCompressor(c Compressor) Option {
	return func(r *Reconciler) { r.images = c }
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// New returns a reconciler over cache. Without WithRemote it works purely
// locally.
func New(cache Cache, opts ...Option) *Reconciler {
	r := &Reconciler{
		cache:  cache,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.images == nil {
		r.images = imaging.New(imaging.DefaultOptions(), r.logger)
	}
	return r
}

func (r *Reconciler) RemoteEnabled() bool { return r.remote != nil }

// LoadDay returns the merged view of date. A failing remote is treated as
// having no rows. Remote images are written through to the cache so later
// writes forward them instead of replacing them.
func (r *Reconciler) LoadDay(ctx context.Context, date string) (DayView, error) {
	if err := validDate(date); err != nil {
		return DayView{}, err
	}
	local, err := r.cache.ListEntriesByDate(date)
	if err != nil {
		return DayView{}, fmt.Errorf("load day %s: %w", date, err)
	}

	var rows []remote.Row
	if r.remote != nil {
		rows, err = r.remote.ListByDate(ctx, date)
		if err != nil {
			r.logger.Warn("remote list failed, using local cache", "op", "list", "date", date, "error", err)
			rows = nil
		}
	}
	if err := r.absorb(date, local, rows); err != nil {
		return DayView{}, err
	}
	return Merge(date, local, rows), nil
}

// absorb stores the remote side of rows in the cache. Description and
// completion are only taken from rows at least as new as the cached entry,
// so unsent offline edits survive until the next write sends them.
func (r *Reconciler) absorb(date string, local []store.Entry, rows []remote.Row) error {
	cached := make(map[program.TaskKey]store.Entry, len(local))
	for _, e := range local {
		cached[e.TaskKey] = e
	}
	for _, row := range rows {
		key, ok := rowTask(date, row)
		if !ok {
			continue
		}
		cur, had := cached[key]
		if !had {
			cur = store.NewEntry(date, key)
		}
		newer := !had || row.UpdatedAt >= cur.UpdatedAt.UnixMilli()
		next := derive(overlay(cur.Clone(), row, newer))
		next.Date = date
		if had && sameSynced(cur, next) {
			continue
		}
		if err := r.cache.PutEntry(next); err != nil {
			return fmt.Errorf("cache remote %s/%s: %w", date, key, err)
		}
		cached[key] = next
	}
	return nil
}

func sameSynced(a, b store.Entry) bool {
	return a.Completed == b.Completed &&
		a.Description == b.Description &&
		a.UpdatedAt.Equal(b.UpdatedAt) &&
		slices.Equal(a.ImagesRemote, b.ImagesRemote)
}

// ApplyPatch merges p into the stored entry for (date, key), persists it
// and forwards the result to the backend. The returned entry is what the
// cache now holds.
func (r *Reconciler) ApplyPatch(ctx context.Context, date string, key program.TaskKey, p Patch) (store.Entry, error) {
	e, err := r.update(date, key, p.Apply)
	if err != nil {
		return store.Entry{}, err
	}
	ids := e.StorageIDs()
	r.forward(ctx, "save", remote.SaveRequest{
		Date:            e.Date,
		TaskKey:         string(e.TaskKey),
		Completed:       e.Completed,
		Description:     e.Description,
		ImageStorageIDs: &ids,
	})
	return e, nil
}

// update re-reads the cached entry, applies fn and the task policy, stamps
// it and writes it back.
func (r *Reconciler) update(date string, key program.TaskKey, fn func(store.Entry) store.Entry) (store.Entry, error) {
	if err := validDate(date); err != nil {
		return store.Entry{}, err
	}
	if !key.Valid() {
		return store.Entry{}, fmt.Errorf("%w: %q", ErrUnknownTask, key)
	}

	e, err := r.current(date, key)
	if err != nil {
		return store.Entry{}, err
	}
	e = applyPolicy(fn(e))
	e.Date = date
	e.TaskKey = key
	e.UpdatedAt = r.now().UTC()

	if err := r.cache.PutEntry(e); err != nil {
		return store.Entry{}, fmt.Errorf("save %s/%s: %w", date, key, err)
	}
	return e, nil
}

func (r *Reconciler) current(date string, key program.TaskKey) (store.Entry, error) {
	existing, err := r.cache.GetEntry(date, key)
	if err != nil {
		return store.Entry{}, fmt.Errorf("read %s/%s: %w", date, key, err)
	}
	if existing == nil {
		return store.NewEntry(date, key), nil
	}
	return existing.Clone(), nil
}

// forward sends req to the backend and drops any failure.
func (r *Reconciler) forward(ctx context.Context, op string, req remote.SaveRequest) {
	if r.remote == nil {
		return
	}
	if _, err := r.remote.Save(ctx, req); err != nil {
		remoteWriteFailures.Inc()
		r.logger.Warn("remote save failed, kept locally",
			"op", op, "date", req.Date, "task", req.TaskKey, "error", err)
	}
}

func validDate(date string) error {
	if _, err := program.ParseDate(date); err != nil {
		return err
	}
	return nil
}
