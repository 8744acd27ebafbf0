package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spboyer/rrgen/internal/models"
)

const ruleWidth = 60

// formatDuration formats a duration in a consistent, human-readable way.
// This ensures stable output regardless of Go version changes.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(100 * time.Millisecond).String()
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

// scoreLabel names one flattened score row.
func scoreLabel(line models.ScoreLine) string {
	if line.Key == "" {
		return line.Metric
	}
	return line.Metric + "." + line.Key
}

// formatSummary renders the metrics table for one report.
func formatSummary(report *models.MetricsReport, reportPath string) string {
	var b strings.Builder
	lines := report.Metrics.Flatten()

	labelWidth := len("Metric")
	for _, l := range lines {
		labelWidth = max(labelWidth, runewidth.StringWidth(scoreLabel(l)))
	}

	b.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	b.WriteString(" EVALUATION RESULTS\n")
	b.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	b.WriteString(fmt.Sprintf("  Model:       %s\n", report.Metadata.Model))
	if report.Metadata.PredictionsFile != nil {
		b.WriteString(fmt.Sprintf("  Predictions: %s\n", *report.Metadata.PredictionsFile))
	}
	b.WriteString(fmt.Sprintf("  Metrics:     %s\n", strings.Join(report.Metadata.MetricsUsed, ", ")))
	b.WriteString(strings.Repeat("-", ruleWidth) + "\n")

	b.WriteString(fmt.Sprintf("  %s  %s\n", padRight("Metric", labelWidth), "Score"))
	for _, l := range lines {
		b.WriteString(fmt.Sprintf("  %s  %.4f\n", padRight(scoreLabel(l), labelWidth), l.Value))
	}
	if len(lines) == 0 {
		b.WriteString("  (no numeric scores)\n")
	}

	b.WriteString(strings.Repeat("-", ruleWidth) + "\n")
	if reportPath != "" {
		b.WriteString(fmt.Sprintf("Results saved to: %s\n", reportPath))
	}
	return b.String()
}
