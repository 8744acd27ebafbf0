package models

import (
	"fmt"
	"sort"
)

// MetricScores maps a catalog metric name to the engine's score for it.
// Values are float64 for most metrics and map[string]any when the engine
// reports several sub-scores.
type MetricScores map[string]any

// Names returns the metric names in sorted order.
func (s MetricScores) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scalar returns the score for name when it is a single number.
func (s MetricScores) Scalar(name string) (float64, bool) {
	return toFloat(s[name])
}

// ScoreLine is one printable row of a flattened score set.
type ScoreLine struct {
	Metric string
	Key    string
	Value  float64
}

// Flatten expands nested scores into one line per numeric leaf, ordered by
// metric name and then key. Scalar metrics produce a line with an empty Key.
func (s MetricScores) Flatten() []ScoreLine {
	var lines []ScoreLine
	for _, name := range s.Names() {
		lines = append(lines, flattenValue(name, "", s[name])...)
	}
	return lines
}

func flattenValue(metric, prefix string, v any) []ScoreLine {
	if f, ok := toFloat(v); ok {
		return []ScoreLine{{Metric: metric, Key: prefix, Value: f}}
	}
	nested, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(nested))
	for k := range nested {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []ScoreLine
	for _, k := range keys {
		key := k
		if prefix != "" {
			key = fmt.Sprintf("%s.%s", prefix, k)
		}
		lines = append(lines, flattenValue(metric, key, nested[k])...)
	}
	return lines
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// ReportMetadata is the envelope header of a metrics report.
type ReportMetadata struct {
	Timestamp       string   `json:"timestamp"`
	RunID           string   `json:"run_id,omitempty"`
	Model           string   `json:"model"`
	MetricsUsed     []string `json:"metrics_used"`
	PredictionsFile *string  `json:"predictions_file"`
}

// MetricsReport is the on-disk shape of an evaluation_metrics_*.json file.
type MetricsReport struct {
	Metadata ReportMetadata `json:"metadata"`
	Metrics  MetricScores   `json:"metrics"`
}
