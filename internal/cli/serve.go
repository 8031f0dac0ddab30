package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/sadopc/hard75/internal/backend"
	"github.com/sadopc/hard75/internal/config"
	"github.com/sadopc/hard75/internal/logging"
)

func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sync backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			logger, err := logging.Stderr(cfg.Log.Level)
			if err != nil {
				return err
			}

			st, err := backend.OpenStore(cfg.Server.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			gin.SetMode(gin.ReleaseMode)
			srv := backend.NewServer(st, backend.Options{PublicURL: cfg.Server.PublicURL, Logger: logger})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logger.Info("backend store opened", "db", cfg.Server.DBPath)
			return srv.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}
