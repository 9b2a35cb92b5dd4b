package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/segmenter/pkg/cache"
	"github.com/matzehuels/segmenter/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the segmentation result cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached partitions and artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			return clearCache(cmd.Context(), cfg)
		},
	}
}

func clearCache(ctx context.Context, cfg *config.Config) error {
	if cfg.Cache.Backend == config.CacheNone {
		printInfo("Caching is disabled")
		return nil
	}

	backend, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	clearer, ok := backend.(cache.Clearer)
	if !ok {
		return fmt.Errorf("cache backend %q cannot be cleared", cfg.Cache.Backend)
	}

	if fc, ok := backend.(*cache.FileCache); ok {
		n, err := fc.Len()
		if err != nil {
			return err
		}
		if n == 0 {
			printInfo("Cache is empty")
			return nil
		}
		if err := clearer.Clear(ctx); err != nil {
			return err
		}
		printSuccess("Cleared %d cached entries", n)
		printDetail("Directory: %s", fc.Dir())
		return nil
	}

	if err := clearer.Clear(ctx); err != nil {
		return err
	}
	printSuccess("Cleared cache")
	return nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache location",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			loc, err := cacheLocation(cfg)
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(stdout, loc)
			return nil
		},
	}
}

// cacheLocation is the directory or URL the configured backend uses.
func cacheLocation(cfg *config.Config) (string, error) {
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		return cfg.Cache.RedisURL, nil
	case config.CacheNone:
		return "", nil
	default:
		return cacheDirFor(cfg)
	}
}
