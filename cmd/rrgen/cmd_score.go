package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/spboyer/rrgen/internal/orchestration"
	"github.com/spf13/cobra"
)

// exampleReferences and exampleHypotheses are the pair scored by
// `rrgen score --example`.
var (
	exampleReferences = []string{
		"Mild cardiomegaly with small bilateral pleural effusions and basilar atelectasis.",
		"No pleural effusions or pneumothoraces.",
	}
	exampleHypotheses = []string{
		"Mildly enlarged cardiac silhouette with small pleural effusions and dependent bibasilar atelectasis.",
		"No pleural effusions or pneumothoraces.",
	}
	exampleMetrics = []string{"radcliq", "green", "semb"}
)

type scoreFlags struct {
	refs    string
	hyps    string
	metrics []string
	model   string
	output  string
	example bool
	cache   cacheFlags
}

func newScoreCommand() *cobra.Command {
	var flags scoreFlags

	cmd := &cobra.Command{
		Use:   "score --refs FILE --hyps FILE",
		Short: "Score line-aligned reference and hypothesis files",
		Long: `Score reports that are not in a predictions file. Line N of --hyps is
compared with line N of --refs; both files must have the same number of lines.

Use --example to score a built-in pair of reports as a smoke test of the
scoring engine.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScore(cmd, &flags)
		},
	}

	cmd.Flags().StringVar(&flags.refs, "refs", "", "File with one reference report per line")
	cmd.Flags().StringVar(&flags.hyps, "hyps", "", "File with one generated report per line")
	cmd.Flags().StringSliceVar(&flags.metrics, "metrics", nil, "Metrics to compute (default: all)")
	cmd.Flags().StringVar(&flags.model, "model", "", "Model name to record in the report")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Report filename inside the results directory")
	cmd.Flags().BoolVar(&flags.example, "example", false, "Score the built-in example reports")
	addCacheFlags(cmd, &flags.cache)

	return cmd
}

func runScore(cmd *cobra.Command, flags *scoreFlags) error {
	var refs, hyps []string
	metrics := flags.metrics
	model := flags.model

	switch {
	case flags.example:
		if flags.refs != "" || flags.hyps != "" {
			return errors.New("--example cannot be combined with --refs or --hyps")
		}
		refs, hyps = exampleReferences, exampleHypotheses
		if len(metrics) == 0 {
			metrics = exampleMetrics
		}
		if model == "" {
			model = "example_model"
		}
	case flags.refs == "" || flags.hyps == "":
		return errors.New("both --refs and --hyps are required")
	default:
		var err error
		if refs, err = readLines(flags.refs); err != nil {
			return err
		}
		if hyps, err = readLines(flags.hyps); err != nil {
			return err
		}
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

	outcome, err := pipeline.ScoreTexts(cmd.Context(), evaluator, orchestration.ScoreArgs{
		References:     refs,
		Hypotheses:     hyps,
		Model:          model,
		OutputFilename: flags.output,
	})
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), formatSummary(outcome.Report, outcome.ReportPath)) //nolint:errcheck
	return nil
}

// readLines returns every line of path without line terminators.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}
