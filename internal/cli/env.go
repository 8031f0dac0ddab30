package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sadopc/hard75/internal/config"
	"github.com/sadopc/hard75/internal/imaging"
	"github.com/sadopc/hard75/internal/logging"
	"github.com/sadopc/hard75/internal/reconcile"
	"github.com/sadopc/hard75/internal/remote"
	"github.com/sadopc/hard75/internal/store"
)

// env is everything a client command needs, opened from config.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	rec    *reconcile.Reconciler

	closers []io.Closer
}

// openEnv loads config and opens the local cache. Interactive runs log to
// the configured file since the terminal belongs to the TUI.
func openEnv(configPath string, interactive bool) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg}
	if interactive {
		logger, closer, err := logging.File(cfg.Log.File, cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		e.logger = logger
		e.closers = append(e.closers, closer)
	} else {
		logger, err := logging.Stderr(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		e.logger = logger
	}

	s, err := store.New(cfg.DBPath)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("open local cache: %w", err)
	}
	e.store = s
	e.closers = append(e.closers, s)

	opts := []reconcile.Option{
		reconcile.WithLogger(e.logger),
		reconcile.WithCompressor(imaging.New(cfg.ImageOptions(), e.logger)),
	}
	if cfg.SyncEnabled() {
		client, err := remote.NewClient(cfg.Remote.URL,
			remote.WithTimeout(cfg.Remote.Timeout),
			remote.WithLogger(e.logger),
		)
		if err != nil {
			e.Close()
			return nil, err
		}
		opts = append(opts, reconcile.WithRemote(client))
		e.logger.Debug("sync enabled", "url", cfg.Remote.URL)
	}
	e.rec = reconcile.New(s, opts...)
	return e, nil
}

// Close releases resources in reverse order of acquisition.
func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
