package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spboyer/rrgen/internal/results"
	"github.com/spboyer/rrgen/internal/validation"
	"github.com/spf13/cobra"
)

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [file...]",
		Short: "Validate predictions files, metrics reports and config files",
		Long: `Validate files against the rrgen file formats.

The kind of each file is taken from its name:
  predictions_*.json         predictions file
  evaluation_metrics_*.json  metrics report
  *.yaml, *.yml              project config

Use --kind to override detection. With no arguments, checks the loaded
config file and the latest predictions file.`,
		RunE: runCheck,
	}
	cmd.Flags().String("format", "text", "Output format: text | json")
	cmd.Flags().String("kind", "", "File kind for every argument: predictions | report | config")
	return cmd
}

type checkResult struct {
	Path   string   `json:"path"`
	Kind   string   `json:"kind"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format %q: must be text or json", format)
	}
	kindFlag, _ := cmd.Flags().GetString("kind")

	paths := args
	if len(paths) == 0 {
		defaults, err := defaultCheckPaths()
		if err != nil {
			return err
		}
		paths = defaults
	}

	checked := make([]checkResult, 0, len(paths))
	failed := 0
	for _, p := range paths {
		r, err := checkFile(p, validation.Kind(kindFlag))
		if err != nil {
			return err
		}
		if !r.Valid {
			failed++
		}
		checked = append(checked, r)
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		data, err := json.MarshalIndent(checked, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal check results: %w", err)
		}
		fmt.Fprintln(out, string(data)) //nolint:errcheck
	} else {
		printCheckResults(out, checked)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed validation", failed, len(checked))
	}
	return nil
}

func checkFile(path string, kind validation.Kind) (checkResult, error) {
	if kind == "" {
		detected, err := validation.DetectKind(path)
		if err != nil {
			return checkResult{}, fmt.Errorf("%w (use --kind)", err)
		}
		kind = detected
	}

	errs, err := validation.ValidateFile(path, kind)
	if err != nil {
		return checkResult{}, err
	}
	return checkResult{Path: path, Kind: string(kind), Valid: len(errs) == 0, Errors: errs}, nil
}

func defaultCheckPaths() ([]string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	var paths []string
	if src := cfg.Source(); src != "" {
		paths = append(paths, src)
	}
	latest, err := results.LatestPredictions(cfg.PredictionsDir())
	switch {
	case err == nil:
		paths = append(paths, latest)
	case errors.Is(err, results.ErrDirectoryNotFound), errors.Is(err, results.ErrNoPredictionFiles):
		// no predictions yet
	default:
		return nil, err
	}

	if len(paths) == 0 {
		return nil, errors.New("nothing to check: no config file and no predictions found")
	}
	return paths, nil
}

func printCheckResults(w io.Writer, checked []checkResult) {
	for _, r := range checked {
		icon := "✅"
		if !r.Valid {
			icon = "❌"
		}
		fmt.Fprintf(w, "%s %s (%s)\n", icon, r.Path, r.Kind) //nolint:errcheck
		for _, e := range r.Errors {
			fmt.Fprintf(w, "     - %s\n", e) //nolint:errcheck
		}
	}
}
