package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sentriage/sentriage/internal/report"
	"github.com/sentriage/sentriage/internal/server"
	"github.com/sentriage/sentriage/internal/trust"
)

func newServeCmd() *cobra.Command {
	var port int
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the sentriage API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			logger := newLogger(cfg)

			// Trusted users: a live file watcher when configured, else a
			// static snapshot of whatever providers the config names.
			var src trust.Source
			if cfg.TrustedUsers.Watch {
				w, err := trust.NewWatcher(cfg.TrustedUsers.File, logger)
				if err != nil {
					return err
				}
				defer w.Close() //nolint:errcheck // best-effort cleanup
				src = w
			} else {
				set, err := loadTrusted(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				src = trust.Static(set)
			}

			store, err := report.NewStore(cfg.Store.Path, logger)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck // best-effort cleanup

			srv, err := server.NewServer(cfg, src, store, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server port")
	cmd.Flags().StringVar(&bind, "bind", "", "address to bind (default: 127.0.0.1)")
	return cmd
}
