package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/craftlaunch/pkg/cache"
	"github.com/matzehuels/craftlaunch/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the version metadata cache",
		Long: `Manage the cache of version lists and descriptors. Downloaded game files are
not part of it; they stay in the installation directory.`,
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached version metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			switch cfg.Cache.Backend {
			case config.BackendRedis:
				printWarning("Redis entries expire on their own; clear them with redis-cli if needed")
				return nil
			case config.BackendNone:
				printInfo("Caching is disabled")
				return nil
			}

			fc, err := cache.NewFileCache(cfg.Layout().Cache())
			if err != nil {
				return err
			}
			defer fc.Close()
			n, err := fc.Clear()
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			printSuccess("Cleared %d cached entries", n)
			printDetail("Directory: %s", fc.Dir())
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
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Layout().Cache())
			return nil
		},
	}
}
