// Package cli implements the azdiagram command-line interface.
//
// # Commands
//
//   - collect: query Azure (or a recorded snapshot) and write graph JSON
//   - render: turn graph JSON into a .drawio document and optional previews
//   - diagram: collect and render in one run
//   - history: list and compare recorded generations of a diagram
//   - serve, mcp: expose rendering over HTTP or the Model Context Protocol
//   - doctor: check the Azure CLI installation and login
//   - cache: manage the local cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/azdiagram/pkg/buildinfo"
	"github.com/matzehuels/azdiagram/pkg/cache"
	"github.com/matzehuels/azdiagram/pkg/config"
	"github.com/matzehuels/azdiagram/pkg/pipeline"
	"github.com/matzehuels/azdiagram/pkg/snapshot"
)

// =============================================================================
// Constants
// =============================================================================

const appName = "azdiagram"

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
}

// New creates a new CLI instance with a default logger and the built-in
// configuration.
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
		Use:          appName,
		Short:        "azdiagram draws Azure resource inventories as draw.io diagrams",
		Long:         `azdiagram collects Azure resources and their relationships, groups them by region, resource group and network, and writes an editable draw.io diagram.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/azdiagram/config.toml)")

	root.AddCommand(c.collectCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.diagramCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.mcpCommand())
	root.AddCommand(c.doctorCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	var (
		cfg config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.Load(c.configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner from the loaded configuration.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.openCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(ch, nil, c.Logger)
	r.Table = c.cfg.Table()
	r.Params = c.cfg.LayoutParams()
	if ttl := c.cfg.Cache.TTL.Duration; ttl > 0 {
		r.CollectTTL = ttl
	}
	return r, nil
}

func (c *CLI) openCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache || c.cfg.Cache.Backend == config.CacheNone {
		return cache.NewNullCache(), nil
	}
	ch, err := cache.Open(ctx, c.cfg.Cache.Backend, c.cfg.Cache.Dir, c.cfg.Cache.RedisURL)
	if err != nil {
		if c.cfg.Cache.Backend == config.CacheRedis {
			return nil, err
		}
		c.Logger.Warn("cache disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return ch, nil
}

// openHistory opens the configured generation store. dsn overrides the
// config file when set.
func (c *CLI) openHistory(ctx context.Context, dsn string) (snapshot.Store, error) {
	if dsn == "" {
		dsn = c.cfg.History.DSN
	}
	return snapshot.Open(ctx, dsn)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured file cache directory, falling back to
// the per-user cache directory.
func (c *CLI) cacheDir() (string, error) {
	if c.cfg.Cache.Dir != "" {
		return c.cfg.Cache.Dir, nil
	}
	return cache.DefaultDir()
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatDrawio}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}
