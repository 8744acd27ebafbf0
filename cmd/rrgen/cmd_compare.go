package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spboyer/rrgen/internal/models"
	"github.com/spboyer/rrgen/internal/results"
	"github.com/spboyer/rrgen/internal/statistics"
	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var compareOutputFormat string

// compareBootstrapSeed keeps bootstrap intervals stable between runs.
const compareBootstrapSeed = 42

func newCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <report1.json> <report2.json> [report3.json ...]",
		Short: "Compare multiple metrics reports",
		Long: `Compare metrics reports from several evaluation runs side by side.

Loads two or more evaluation_metrics_*.json files and shows every score per
report, the delta between the last and the first report, and the mean and
spread across all of them.

Use --format markdown for a table to paste into a pull request or notebook,
or --format html for a standalone HTML fragment.`,
		Args: cobra.MinimumNArgs(2),
		RunE: compareCommandE,
	}

	cmd.Flags().StringVarP(&compareOutputFormat, "format", "f", "table", "Output format: table, json, markdown or html")

	return cmd
}

// metricComparison holds one score across all compared reports.
type metricComparison struct {
	Metric  string             `json:"metric"`
	Scores  []*float64         `json:"scores"`
	Delta   *float64           `json:"delta"`
	Summary statistics.Summary `json:"summary"`
}

// comparisonReport is the full comparison output.
type comparisonReport struct {
	Files      []string           `json:"files"`
	Models     []string           `json:"models"`
	Timestamps []string           `json:"timestamps"`
	Metrics    []metricComparison `json:"metrics"`
}

func compareCommandE(cmd *cobra.Command, args []string) error {
	switch compareOutputFormat {
	case "table", "json", "markdown", "html":
	default:
		return fmt.Errorf("unsupported format %q: must be table, json, markdown or html", compareOutputFormat)
	}

	reports := make([]*models.MetricsReport, 0, len(args))
	for _, path := range args {
		r, err := results.LoadReport(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		reports = append(reports, r)
	}

	report := buildComparisonReport(args, reports)

	switch compareOutputFormat {
	case "json":
		return printComparisonJSON(cmd.OutOrStdout(), report)
	case "markdown":
		fmt.Fprint(cmd.OutOrStdout(), comparisonMarkdown(report)) //nolint:errcheck
		return nil
	case "html":
		return printComparisonHTML(cmd.OutOrStdout(), report)
	}
	printComparisonTable(cmd.OutOrStdout(), report)
	return nil
}

func buildComparisonReport(files []string, reports []*models.MetricsReport) *comparisonReport {
	report := &comparisonReport{
		Files: files,
	}

	// Collect every score label in first-seen order, keyed by report index.
	var labels []string
	values := make(map[string][]float64)
	for i, r := range reports {
		report.Models = append(report.Models, r.Metadata.Model)
		report.Timestamps = append(report.Timestamps, r.Metadata.Timestamp)
		for _, line := range r.Metrics.Flatten() {
			label := scoreLabel(line)
			if _, ok := values[label]; !ok {
				labels = append(labels, label)
				values[label] = nanSlice(len(reports))
			}
			values[label][i] = line.Value
		}
	}

	n := len(reports)
	for _, label := range labels {
		v := values[label]
		mc := metricComparison{
			Metric:  label,
			Scores:  make([]*float64, n),
			Summary: statistics.SummarizeWithSeed(v, compareBootstrapSeed),
		}
		for i, s := range v {
			if !math.IsNaN(s) {
				mc.Scores[i] = &s
			}
		}
		if d := v[n-1] - v[0]; !math.IsNaN(d) {
			mc.Delta = &d
		}
		report.Metrics = append(report.Metrics, mc)
	}

	return report
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

func printComparisonTable(w io.Writer, r *comparisonReport) {
	var b strings.Builder

	// Header
	b.WriteString(strings.Repeat("=", 70) + "\n")
	b.WriteString(" COMPARISON REPORT\n")
	b.WriteString(strings.Repeat("=", 70) + "\n\n")

	// File listing
	for i, f := range r.Files {
		b.WriteString(fmt.Sprintf("  [%d] %s  (model: %s, %s)\n", i+1, f, r.Models[i], r.Timestamps[i]))
	}
	b.WriteString("\n")

	labelWidth := len("Metric")
	for _, mc := range r.Metrics {
		labelWidth = max(labelWidth, runewidth.StringWidth(mc.Metric))
	}

	// Column header
	b.WriteString("  " + padRight("Metric", labelWidth))
	for i := range r.Files {
		b.WriteString("  " + padRight(fmt.Sprintf("[%d]", i+1), 9))
	}
	b.WriteString("  " + padRight("Delta", 10) + "  Mean ± SD\n")
	b.WriteString(strings.Repeat("-", 70) + "\n")

	for _, mc := range r.Metrics {
		b.WriteString("  " + padRight(mc.Metric, labelWidth))
		for _, s := range mc.Scores {
			if s == nil {
				b.WriteString("  " + padRight("n/a", 9))
			} else {
				b.WriteString(fmt.Sprintf("  %-9.4f", *s))
			}
		}

		delta := "n/a"
		if mc.Delta != nil {
			deltaIcon := " "
			if *mc.Delta > 0 {
				deltaIcon = "↑"
			} else if *mc.Delta < 0 {
				deltaIcon = "↓"
			}
			delta = fmt.Sprintf("%s%+.4f", deltaIcon, *mc.Delta)
		}
		b.WriteString("  " + padRight(delta, 10))
		b.WriteString(fmt.Sprintf("  %.4f ± %.4f\n", mc.Summary.Mean, mc.Summary.StdDev))
	}
	b.WriteString("\n")

	fmt.Fprint(w, b.String()) //nolint:errcheck
}

func printComparisonJSON(w io.Writer, r *comparisonReport) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal comparison report: %w", err)
	}
	fmt.Fprintln(w, string(data)) //nolint:errcheck
	return nil
}

// comparisonMarkdown renders r as a GitHub-flavored markdown table.
func comparisonMarkdown(r *comparisonReport) string {
	var b strings.Builder

	b.WriteString("## Comparison report\n\n")
	for i, f := range r.Files {
		b.WriteString(fmt.Sprintf("%d. `%s` (model: %s, %s)\n", i+1, f, r.Models[i], r.Timestamps[i]))
	}
	b.WriteString("\n| Metric |")
	for i := range r.Files {
		b.WriteString(fmt.Sprintf(" [%d] |", i+1))
	}
	b.WriteString(" Delta | Mean ± SD |\n|---|")
	for range r.Files {
		b.WriteString("---:|")
	}
	b.WriteString("---:|---:|\n")

	for _, mc := range r.Metrics {
		b.WriteString("| " + strings.ReplaceAll(mc.Metric, "|", "\\|") + " |")
		for _, s := range mc.Scores {
			if s == nil {
				b.WriteString(" n/a |")
			} else {
				b.WriteString(fmt.Sprintf(" %.4f |", *s))
			}
		}
		if mc.Delta == nil {
			b.WriteString(" n/a |")
		} else {
			b.WriteString(fmt.Sprintf(" %+.4f |", *mc.Delta))
		}
		b.WriteString(fmt.Sprintf(" %.4f ± %.4f |\n", mc.Summary.Mean, mc.Summary.StdDev))
	}

	return b.String()
}

func printComparisonHTML(w io.Writer, r *comparisonReport) error {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var buf bytes.Buffer
	if err := md.Convert([]byte(comparisonMarkdown(r)), &buf); err != nil {
		return fmt.Errorf("failed to render comparison report: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
