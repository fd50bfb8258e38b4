package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loreboard/loreboard/pkg/cache"
	"github.com/loreboard/loreboard/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the layout cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached layouts",
		Long: `Clear all cached layouts from the configured backend.

The file cache is emptied. On Redis only keys under the configured key
prefix are removed, so other deployments sharing the database keep theirs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.Config.Cache
			if cfg.Backend == config.CacheNone {
				printInfo("Caching is disabled")
				return nil
			}
			if cfg.Backend == config.CacheFile {
				dir, err := c.cacheDir()
				if err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					printInfo("Cache is empty")
					return nil
				}
			}

			lc, err := c.newCache(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer lc.Close()
			clearer, ok := lc.(cache.Clearer)
			if !ok {
				printWarning("The %s cache is unavailable; nothing was cleared", cfg.Backend)
				return nil
			}

			count, err := clearer.Clear(cmd.Context(), cfg.KeyPrefix)
			if err != nil {
				return err
			}
			printSuccess("Cleared %d cached layouts", count)
			if fc, ok := lc.(*cache.FileCache); ok {
				printDetail("Directory: %s", fc.Dir())
			} else {
				printDetail("Redis %s, prefix %q", cfg.RedisAddr, cfg.KeyPrefix)
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
