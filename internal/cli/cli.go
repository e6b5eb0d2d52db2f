// Package cli implements the pixl command-line interface.
//
// Commands work on books either directly through the configured storage
// backend or, with --remote, through a running pixl server:
//
//   - serve: run the HTTP API
//   - new, info, list: create and inspect books
//   - draw: apply a JSON batch of drawing operations
//   - export: write frames as PNG or BMP
//   - view: interactive terminal viewer
//   - path: show or change the server's base path
//   - cache, config: housekeeping
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context so helpers can log without extra
// parameters.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/pixlkit/pixl/pkg/buildinfo"
	"github.com/pixlkit/pixl/pkg/cache"
	"github.com/pixlkit/pixl/pkg/config"
	"github.com/pixlkit/pixl/pkg/render"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "pixl"

	// cachePrefix scopes export cache keys shared through Redis.
	cachePrefix = "pixl:"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        config.Config

	remote    bool
	serverURL string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "pixl draws multi-frame pixel art",
		Long:          `pixl stores multi-frame pixel books, applies drawing operations to them, and serves them over HTTP with live change events.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			cmd.SetContext(withLogger(commandContext(cmd), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/pixl/config.toml)")
	flags.BoolVar(&c.remote, "remote", false, "talk to a running server instead of the storage backend")
	flags.StringVar(&c.serverURL, "server", "", "server URL; implies --remote (default from config)")

	// Register all subcommands
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.newCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.drawCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.pathCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file. A log level from the file applies
// unless the logger was already switched to debug by --verbose. An
// explicit --server implies --remote.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	if c.Logger.GetLevel() != log.DebugLevel {
		c.Logger.SetLevel(cfg.Level())
	}
	if c.serverURL != "" {
		c.remote = true
	} else {
		c.serverURL = cfg.Server.URL
	}
	return nil
}

// =============================================================================
// Export Cache
// =============================================================================

// newExporter builds an exporter on the configured cache backend.
func (c *CLI) newExporter(noCache bool) (*render.Exporter, func(), error) {
	ch, err := c.newCache(noCache)
	if err != nil {
		return nil, nil, err
	}
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), cachePrefix)
	return render.NewExporter(ch, keyer, c.cfg.Cache.TTL.Duration), func() { ch.Close() }, nil
}

func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(newRedisClient(c.cfg.Events), cachePrefix+"cache:"), nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		c.Logger.Warn("Export cache disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

func newRedisClient(ev config.Events) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     ev.RedisAddr,
		Password: ev.RedisPassword,
		DB:       ev.RedisDB,
	})
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, or the XDG default.
func (c *CLI) cacheDir() (string, error) {
	if c.cfg.Cache.Dir != "" {
		return c.cfg.Cache.Dir, nil
	}
	return cacheDir()
}

// cacheDir returns the cache directory using XDG standard (~/.cache/pixl/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// commandContext returns the command's context, never nil.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
