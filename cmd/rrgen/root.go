package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spboyer/rrgen/internal/projectconfig"
	"github.com/spf13/cobra"
)

var version = "dev"

// configFile is the --config flag; empty means search upward from the
// working directory.
var configFile string

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rrgen",
		Short: "rrgen - radiology report generation and evaluation",
		Long: `rrgen generates radiology reports from chest X-ray images with a
vision-language model and scores them against reference reports.

It runs inference over the Indiana University dataset, computes report
quality metrics through a RadEval scoring engine, and writes timestamped
predictions files and metrics reports.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file (default: search for "+projectconfig.FileName+")")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newEvaluateCommand())
	cmd.AddCommand(newInferCommand())
	cmd.AddCommand(newScoreCommand())
	cmd.AddCommand(newCheckCommand())
	cmd.AddCommand(newCompareCommand())
	cmd.AddCommand(newMetricsCommand())
	cmd.AddCommand(newCacheCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}

// loadConfig honours --config, otherwise searches upward from the working
// directory.
func loadConfig() (*projectconfig.ProjectConfig, error) {
	if configFile != "" {
		return projectconfig.LoadFile(configFile)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	cfg, err := projectconfig.Load(wd)
	if err != nil {
		return nil, err
	}
	if src := cfg.Source(); src != "" {
		slog.Debug("Loaded config", "path", src)
	}
	return cfg, nil
}
