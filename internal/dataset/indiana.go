package dataset

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// File layout of the Indiana University chest X-ray collection.
const (
	ReportsFile     = "indiana_reports.csv"
	ProjectionsFile = "indiana_projections.csv"
	ImagesSubdir    = "images/images_normalized"
)

// Sample is one image paired with the report written for its study.
type Sample struct {
	UID        string
	Filename   string
	Projection string
	ImagePath  string
	Report     string
}

// LoadIndiana joins the projections table (one row per image) with the
// reports table (one row per study) on uid. Projection order is kept, and
// studies with empty findings or impression are dropped.
func LoadIndiana(dataDir string) ([]Sample, error) {
	projPath := filepath.Join(dataDir, ProjectionsFile)
	projections, err := LoadCSV(projPath)
	if err != nil {
		return nil, err
	}
	if err := RequireColumns(projPath, projections, "uid", "filename"); err != nil {
		return nil, err
	}

	reportsPath := filepath.Join(dataDir, ReportsFile)
	reports, err := LoadCSV(reportsPath)
	if err != nil {
		return nil, err
	}
	if err := RequireColumns(reportsPath, reports, "uid", "findings", "impression"); err != nil {
		return nil, err
	}

	byUID := GroupBy(reports, "uid")
	imagesDir := filepath.Join(dataDir, filepath.FromSlash(ImagesSubdir))

	var samples []Sample
	dropped := 0
	for _, p := range projections {
		for _, r := range byUID[p["uid"]] {
			findings := strings.TrimSpace(r["findings"])
			impression := strings.TrimSpace(r["impression"])
			if findings == "" || impression == "" {
				dropped++
				continue
			}
			samples = append(samples, Sample{
				UID:        p["uid"],
				Filename:   p["filename"],
				Projection: p["projection"],
				ImagePath:  filepath.Join(imagesDir, p["filename"]),
				Report:     FormatReport(findings, impression),
			})
		}
	}

	slog.Debug("Loaded dataset", "dir", dataDir, "samples", len(samples), "dropped", dropped)

	if len(samples) == 0 {
		return nil, fmt.Errorf("dataset: no usable samples in %s", dataDir)
	}
	return samples, nil
}

// FormatReport renders the ground-truth report text for a study.
func FormatReport(findings, impression string) string {
	return fmt.Sprintf("Findings: %s\nImpression: %s", findings, impression)
}
