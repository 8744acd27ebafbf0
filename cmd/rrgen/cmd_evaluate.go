package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spboyer/rrgen/internal/catalog"
	"github.com/spboyer/rrgen/internal/orchestration"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type evaluateFlags struct {
	predictionsFile string
	metrics         []string
	model           string
	output          string
	format          string
	interactive     bool
	cache           cacheFlags
}

func newEvaluateCommand() *cobra.Command {
	var flags evaluateFlags

	cmd := &cobra.Command{
		Use:   "evaluate [--predictions_file PATH] [--metrics NAME...]",
		Short: "Score a predictions file and write a metrics report",
		Long: `Score generated reports against their ground truth and write a metrics report.

With no --predictions_file the newest predictions_*.json in the configured
predictions directory is used. With no --metrics every metric in the catalog
is computed. Metric names may be comma-separated or space-separated:

  rrgen evaluate --metrics bleu,green
  rrgen evaluate --metrics bleu green radgraph

Run "rrgen metrics" to list the available names.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 && !cmd.Flags().Changed("metrics") {
				return fmt.Errorf("unexpected arguments %v: metric names must follow --metrics", args)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.metrics = append(flags.metrics, args...)
			return runEvaluate(cmd, &flags)
		},
	}

	cmd.Flags().StringVar(&flags.predictionsFile, "predictions_file", "", "Predictions file to score (default: latest in the predictions directory)")
	cmd.Flags().StringSliceVar(&flags.metrics, "metrics", nil, "Metrics to compute (default: all)")
	cmd.Flags().StringVar(&flags.model, "model", "", "Model name to record (default: from the predictions file)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Report filename inside the results directory (default: evaluation_metrics_<timestamp>.json)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "table", "Output format: table or json")
	cmd.Flags().BoolVarP(&flags.interactive, "interactive", "i", false, "Choose metrics interactively")
	addCacheFlags(cmd, &flags.cache)

	return cmd
}

func runEvaluate(cmd *cobra.Command, flags *evaluateFlags) error {
	if flags.format != "table" && flags.format != "json" {
		return fmt.Errorf("unsupported format %q: must be table or json", flags.format)
	}

	metrics := flags.metrics
	if flags.interactive {
		if len(metrics) > 0 {
			return errors.New("--interactive cannot be combined with --metrics")
		}
		picked, err := promptMetrics(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		metrics = picked
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	useCache, err := flags.cache.useCache(cfg)
	if err != nil {
		return err
	}

	evaluator, err := newEvaluator(cfg, metrics, useCache)
	if err != nil {
		return err
	}

	pipeline, progress, err := newPipeline(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer progress.Close()

	outcome, err := pipeline.EvaluateFile(cmd.Context(), evaluator, orchestration.EvaluateArgs{
		PredictionsFile: flags.predictionsFile,
		Model:           flags.model,
		OutputFilename:  flags.output,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flags.format == "json" {
		data, err := json.MarshalIndent(outcome.Report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		fmt.Fprintln(out, string(data)) //nolint:errcheck
		return nil
	}
	fmt.Fprint(out, formatSummary(outcome.Report, outcome.ReportPath)) //nolint:errcheck
	return nil
}

// promptMetrics is a test hook for replacing the interactive metric picker.
var promptMetrics = defaultPromptMetrics

func defaultPromptMetrics(in io.Reader, out io.Writer) ([]string, error) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil, errors.New("--interactive requires a terminal")
	}

	options := make([]huh.Option[string], 0, len(catalog.All()))
	for _, m := range catalog.All() {
		options = append(options, huh.NewOption(fmt.Sprintf("%-10s %s", m, m.Description()), m.String()).Selected(true))
	}

	var selected []string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Metrics to compute").
				Options(options...).
				Value(&selected).
				Validate(func(s []string) error {
					if len(s) == 0 {
						return errors.New("select at least one metric")
					}
					return nil
				}),
		),
	).WithInput(in).WithOutput(out).Run()
	if err != nil {
		return nil, fmt.Errorf("metric selection failed: %w", err)
	}
	return selected, nil
}
