package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sadopc/hard75/internal/tui"
)

func runTUI(cmd *cobra.Command, configPath string) error {
	e, err := openEnv(configPath, true)
	if err != nil {
		return err
	}
	defer e.Close()

	if addr := e.cfg.MetricsAddr; addr != "" {
		stop := serveMetrics(addr, e)
		defer stop()
	}

	e.logger.Info("starting tracker", "db", e.cfg.DBPath, "sync", e.rec.RemoteEnabled())
	app := tui.NewApp(e.store, e.rec, e.cfg.NoteDebounce)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	return err
}

// serveMetrics exposes the process counters on addr until the returned stop
// func is called.
func serveMetrics(addr string, e *env) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Warn("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
