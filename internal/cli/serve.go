package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pixlkit/pixl/pkg/library"
	"github.com/pixlkit/pixl/pkg/server"
)

// serveCommand creates the "serve" command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		dir     string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the pixl HTTP API on the configured storage and event bus.

Books, exports and live change events (Server-Sent Events) are served
until the process receives SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg := c.cfg
			if dir != "" {
				cfg.Storage.Path = dir
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			lib, closeLib, err := openLibrary(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeLib(); err != nil {
					logger.Warn("Close backends", "err", err)
				}
			}()

			exporter, closeCache, err := c.newExporter(noCache)
			if err != nil {
				return err
			}
			defer closeCache()

			if retention := cfg.Events.Retention.Duration; retention > 0 {
				go pruneEvents(ctx, lib, retention, logger)
			}

			srv := server.New(lib, exporter, logger, server.WithHeartbeat(cfg.Server.Heartbeat.Duration))
			logger.Info("Listening", "addr", addr, "storage", cfg.Storage.Backend, "events", cfg.Events.Backend)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :3000)")
	cmd.Flags().StringVar(&dir, "dir", "", "base path for file storage (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the export cache")
	return cmd
}

// pruneEvents drops events older than retention until ctx is done. It
// runs at least hourly, and more often for short retention periods.
func pruneEvents(ctx context.Context, lib *library.Service, retention time.Duration, logger *log.Logger) {
	t := time.NewTicker(min(retention, time.Hour))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := lib.PruneEvents(ctx, now.Add(-retention))
			if err != nil {
				logger.Warn("Prune events", "err", err)
				continue
			}
			logger.Debug("Pruned events", "books", n, "retention", retention)
		}
	}
}
