package inference

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spboyer/rrgen/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 8, 4))))
}

func testSamples(t *testing.T) []dataset.Sample {
	dir := t.TempDir()
	ok := filepath.Join(dir, "1.png")
	writePNG(t, ok)
	return []dataset.Sample{
		{Filename: "1.png", ImagePath: ok, Report: "Findings: a\nImpression: b"},
		{Filename: "2.png", ImagePath: filepath.Join(dir, "missing.png"), Report: "Findings: c\nImpression: d"},
		{Filename: "3.png", ImagePath: ok, Report: "Findings: e\nImpression: f"},
	}
}

func TestRunner_Run(t *testing.T) {
	var progress bytes.Buffer
	r, err := NewRunner(RunnerArgs{Model: NewMockModel("mock-vlm"), Progress: &progress})
	require.NoError(t, err)
	assert.Equal(t, "mock-vlm", r.ModelName())

	records, err := r.Run(context.Background(), testSamples(t), 0)
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i, rec := range records {
		require.NotNil(t, rec.Index)
		assert.Equal(t, i, *rec.Index)
	}
	assert.Equal(t, "1.png", records[0].Filename)
	assert.Equal(t, "Findings: a\nImpression: b", records[0].GroundTruth)
	assert.Equal(t, "Mock report for 8x4 image.", records[0].Prediction)

	// Missing image is replaced, not fatal.
	assert.Equal(t, "Mock report: no image available.", records[1].Prediction)

	assert.Equal(t, 3, strings.Count(progress.String(), "\n"))
	assert.Contains(t, progress.String(), "[3/3] 3.png")
}

func TestRunner_Limit(t *testing.T) {
	r, err := NewRunner(RunnerArgs{Model: NewMockModel("m")})
	require.NoError(t, err)

	records, err := r.Run(context.Background(), testSamples(t), 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = r.Run(context.Background(), testSamples(t), 10)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

type recordingModel struct {
	requests []*GenerateRequest
	failOn   int
}

func (m *recordingModel) Name() string { return "recording" }

func (m *recordingModel) Generate(_ context.Context, req *GenerateRequest) (string, error) {
	m.requests = append(m.requests, req)
	if len(m.requests) == m.failOn {
		return "", errors.New("CUDA error: device-side assert triggered")
	}
	return "ok", nil
}

func TestRunner_RequestDefaults(t *testing.T) {
	model := &recordingModel{}
	r, err := NewRunner(RunnerArgs{Model: model})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), testSamples(t)[:1], 0)
	require.NoError(t, err)
	require.Len(t, model.requests, 1)
	assert.Equal(t, DefaultMaxTokens, model.requests[0].MaxTokens)
	assert.Equal(t, DefaultInstructions(), model.requests[0].Instructions)
	assert.Contains(t, model.requests[0].Instructions, "radiology assistant")
}

func TestRunner_ModelErrorAbortsBatch(t *testing.T) {
	model := &recordingModel{failOn: 2}
	r, err := NewRunner(RunnerArgs{Model: model, MaxTokens: 64, Instructions: "Describe."})
	require.NoError(t, err)

	records, err := r.Run(context.Background(), testSamples(t), 0)
	require.Error(t, err)
	assert.Nil(t, records)
	assert.Contains(t, err.Error(), "sample 1 (2.png)")
	assert.Contains(t, err.Error(), "device-side assert")
	assert.Len(t, model.requests, 2)
	assert.Equal(t, 64, model.requests[0].MaxTokens)
}

func TestNewRunner_RequiresModel(t *testing.T) {
	_, err := NewRunner(RunnerArgs{})
	require.Error(t, err)
}
