package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/azdiagram/pkg/cache"
	"github.com/matzehuels/azdiagram/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the cache of inventories and previews",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand. It clears the
// configured backend: the cache directory, or the azdiagram keys in Redis.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if c.cfg.Cache.Backend == config.CacheNone {
				printInfo("Caching is disabled in the config")
				return nil
			}
			ch, err := cache.Open(ctx, c.cfg.Cache.Backend, c.cfg.Cache.Dir, c.cfg.Cache.RedisURL)
			if err != nil {
				return err
			}
			defer ch.Close()

			clearer, ok := ch.(cache.Clearer)
			if !ok {
				printWarning("cache backend %q cannot be cleared", c.cfg.Cache.Backend)
				return nil
			}
			count, err := clearer.Clear(ctx)
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			if count == 0 {
				printInfo("Cache is empty")
				return nil
			}
			printSuccess("Cleared %d cached entries", count)
			if fc, ok := ch.(*cache.FileCache); ok {
				printDetail("Directory: %s", fc.Dir())
			}
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
