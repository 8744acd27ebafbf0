package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spboyer/rrgen/internal/models"
	"github.com/spboyer/rrgen/internal/utils"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with args and captures its output.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(bytes.NewReader(nil))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// scoringServer fakes the engine's /score endpoint. Each request body is
// decoded into the returned slice.
func scoringServer(t *testing.T, scores map[string]any) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var requests []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		requests = append(requests, req)
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"scores": scores}))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

// writeProject creates a project directory with a .rrgen.yaml pointing at
// url and returns the config path.
func writeProject(t *testing.T, url string, extra string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := "scoring:\n  url: \"" + url + "\"\n" + extra
	path := filepath.Join(dir, ".rrgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return dir, path
}

func writeBatch(t *testing.T, dir, name string, model string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	batch := models.PredictionsBatch{
		Metadata: models.PredictionsMetadata{Timestamp: "20250101_120000", NumSamples: 2, Model: model},
		Predictions: []models.PredictionRecord{
			{Index: utils.Ptr(0), Filename: "1.png", GroundTruth: "Findings: a\nImpression: b", Prediction: "a b"},
			{Index: utils.Ptr(1), Filename: "2.png", GroundTruth: "Findings: c\nImpression: d", Prediction: "c d"},
		},
	}
	data, err := json.MarshalIndent(batch, "", "  ")
	require.NoError(t, err)
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func writeReport(t *testing.T, dir, name string, report models.MetricsReport) string {
	t.Helper()
	data, err := json.MarshalIndent(report, "", "  ")
	require.NoError(t, err)
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}
