package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spboyer/rrgen/internal/models"
)

var (
	// ErrDirectoryNotFound is returned when the predictions directory is missing.
	ErrDirectoryNotFound = errors.New("predictions directory not found")
	// ErrNoPredictionFiles is returned when a directory holds no predictions_*.json.
	ErrNoPredictionFiles = errors.New("no prediction files found")
	// ErrFileNotFound is returned when an explicit file path does not exist.
	ErrFileNotFound = errors.New("file not found")
)

var timestampToken = regexp.MustCompile(`^predictions_(\d{8}_\d{6})`)

type candidate struct {
	name string
	at   time.Time
}

// LatestPredictions returns the newest predictions_*.json in dir. Files are
// ordered by the timestamp embedded in their name; a file without a parsable
// timestamp is placed by its modification time. Equal times fall back to the
// lexically greatest name.
func LatestPredictions(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
		}
		return "", fmt.Errorf("reading %s: %w", dir, err)
	}

	var best *candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(PredictionsPrefix+"*.json", e.Name()); !ok {
			continue
		}

		c := candidate{name: e.Name()}
		if t, ok := parseNameTimestamp(e.Name()); ok {
			c.at = t
		} else {
			info, err := e.Info()
			if err != nil {
				continue
			}
			c.at = info.ModTime()
		}

		if best == nil || c.at.After(best.at) || (c.at.Equal(best.at) && c.name > best.name) {
			best = &c
		}
	}

	if best == nil {
		return "", fmt.Errorf("%w in: %s", ErrNoPredictionFiles, dir)
	}

	path := filepath.Join(dir, best.name)
	slog.Debug("Selected latest predictions", "path", path)
	return path, nil
}

func parseNameTimestamp(name string) (time.Time, bool) {
	m := timestampToken.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimestampLayout, m[1], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// LoadPredictions reads a predictions file. Only JSON syntax is checked:
// field types are coerced where possible, unknown fields are kept in
// Raw, and [models.PredictionsBatch.Validate] checks the sample-count
// invariant.
func LoadPredictions(path string) (*models.PredictionsBatch, error) {
	var raw map[string]any
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}

	batch := &models.PredictionsBatch{Raw: raw}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           batch,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("building predictions decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return batch, nil
}

// LoadReport reads a metrics report.
func LoadReport(path string) (*models.MetricsReport, error) {
	var report models.MetricsReport
	if err := readJSON(path, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
