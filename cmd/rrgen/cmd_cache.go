package main

import (
	"fmt"
	"path/filepath"

	"github.com/spboyer/rrgen/internal/cache"
	"github.com/spf13/cobra"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the scoring cache",
		Long: `Manage the scoring cache.

When caching is on (cache.enabled in .rrgen.yaml, or --cache), engine scores
are stored on disk keyed by the engine, the metric selection, the engine
options and every reference and generated report. Scoring the same inputs
again reads the stored scores instead of calling the engine.`,
	}

	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the scoring cache",
		Long: `Remove all cached scores. The next evaluation calls the scoring engine
for every request.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cacheClear(cmd, dir)
		},
	}

	cmd.Flags().StringVar(&dir, "cache-dir", "", "Cache directory to clear (default: cache.dir from config)")

	return cmd
}

func cacheClear(cmd *cobra.Command, dir string) error {
	if dir == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dir = cfg.CacheDir()
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving cache directory: %w", err)
	}

	if err := cache.New(absDir).Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", absDir) //nolint:errcheck
	return nil
}
