// Package results writes predictions files and metrics reports, and reads
// predictions back for evaluation.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spboyer/rrgen/internal/models"
)

// TimestampLayout is the layout of the timestamp token in generated
// filenames and in file metadata.
const TimestampLayout = "20060102_150405"

const (
	PredictionsPrefix = "predictions_"
	ReportPrefix      = "evaluation_metrics_"

	defaultModelName = "unknown"
)

// Now is the clock used for timestamps. Tests replace it.
var Now = time.Now

// SavePredictionsArgs holds the arguments for SavePredictions.
type SavePredictionsArgs struct {
	Predictions []models.PredictionRecord
	// ModelName defaults to "unknown".
	ModelName string
	// Filename defaults to predictions_<timestamp>.json.
	Filename string
}

// SavePredictions writes a predictions file into outputDir, creating the
// directory if needed, and returns the path written. An existing file at the
// same path is overwritten.
func SavePredictions(outputDir string, args SavePredictionsArgs) (string, error) {
	timestamp := Now().Format(TimestampLayout)

	predictions := args.Predictions
	if predictions == nil {
		predictions = []models.PredictionRecord{}
	}

	batch := models.PredictionsBatch{
		Metadata: models.PredictionsMetadata{
			Timestamp:  timestamp,
			NumSamples: len(predictions),
			Model:      orDefault(args.ModelName, defaultModelName),
		},
		Predictions: predictions,
	}

	filename := orDefault(args.Filename, PredictionsPrefix+timestamp+".json")
	return writeJSON(outputDir, filename, batch)
}

// SaveResultsArgs holds the arguments for SaveResults.
type SaveResultsArgs struct {
	Metrics models.MetricScores
	// ModelName defaults to "unknown".
	ModelName string
	// MetricsUsed defaults to the metric names present in Metrics.
	MetricsUsed []string
	// Filename defaults to evaluation_metrics_<timestamp>.json.
	Filename string
	// PredictionsFile records which predictions file was scored, if any.
	PredictionsFile string
}

// SaveResults writes a metrics report into outputDir and returns the path
// written. An existing file at the same path is overwritten.
func SaveResults(outputDir string, args SaveResultsArgs) (string, error) {
	timestamp := Now().Format(TimestampLayout)

	metrics := args.Metrics
	if metrics == nil {
		metrics = models.MetricScores{}
	}

	metricsUsed := args.MetricsUsed
	if len(metricsUsed) == 0 {
		metricsUsed = metrics.Names()
	}

	var predictionsFile *string
	if args.PredictionsFile != "" {
		p := args.PredictionsFile
		predictionsFile = &p
	}

	report := models.MetricsReport{
		Metadata: models.ReportMetadata{
			Timestamp:       timestamp,
			RunID:           uuid.NewString(),
			Model:           orDefault(args.ModelName, defaultModelName),
			MetricsUsed:     metricsUsed,
			PredictionsFile: predictionsFile,
		},
		Metrics: metrics,
	}

	filename := orDefault(args.Filename, ReportPrefix+timestamp+".json")
	return writeJSON(outputDir, filename, report)
}

func writeJSON(dir, filename string, v any) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling %s: %w", filename, err)
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
