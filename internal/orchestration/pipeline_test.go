package orchestration

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spboyer/rrgen/internal/dataset"
	"github.com/spboyer/rrgen/internal/evaluation"
	"github.com/spboyer/rrgen/internal/inference"
	"github.com/spboyer/rrgen/internal/models"
	"github.com/spboyer/rrgen/internal/radeval"
	"github.com/spboyer/rrgen/internal/results"
	"github.com/spboyer/rrgen/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeArchiver struct {
	uploaded []string
	err      error
}

func (f *fakeArchiver) Upload(_ context.Context, paths ...string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var names []string
	for _, p := range paths {
		f.uploaded = append(f.uploaded, p)
		names = append(names, "runs/"+filepath.Base(p))
	}
	return names, nil
}

func writePredictions(t *testing.T, dir, name string, batch models.PredictionsBatch) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data, err := json.Marshal(batch)
	require.NoError(t, err)
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func twoRecordBatch() models.PredictionsBatch {
	return models.PredictionsBatch{
		Metadata: models.PredictionsMetadata{Timestamp: "20250101_120000", NumSamples: 2, Model: "nvidia-reason-3b"},
		Predictions: []models.PredictionRecord{
			{Index: utils.Ptr(0), Filename: "a.png", GroundTruth: "Findings: clear\nImpression: normal", Prediction: "Normal chest."},
			{Index: utils.Ptr(1), Filename: "b.png", GroundTruth: "Findings: effusion\nImpression: small", Prediction: "Small effusion."},
		},
	}
}

func TestEvaluateFile_LatestPredictions(t *testing.T) {
	root := t.TempDir()
	predsDir := filepath.Join(root, "predictions")
	resultsDir := filepath.Join(root, "results")
	writePredictions(t, predsDir, "predictions_20240101_000000.json", models.PredictionsBatch{})
	latest := writePredictions(t, predsDir, "predictions_20250101_120000.json", twoRecordBatch())

	ctrl := gomock.NewController(t)
	engine := radeval.NewMockEngine(ctrl)
	engine.EXPECT().Score(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req *radeval.Request) (radeval.Scores, error) {
		assert.Equal(t, []string{"Normal chest.", "Small effusion."}, req.Hyps)
		assert.Equal(t, radeval.Flags{DoBLEU: true}, req.Flags)
		return radeval.Scores{"bleu": 0.42}, nil
	})

	evaluator, err := evaluation.New(engine, []string{"bleu"})
	require.NoError(t, err)

	archiver := &fakeArchiver{}
	p := NewPipeline(resultsDir, predsDir, WithArchiver(archiver))
	var events []EventType
	p.OnProgress(func(e ProgressEvent) { events = append(events, e.EventType) })

	outcome, err := p.EvaluateFile(context.Background(), evaluator, EvaluateArgs{})
	require.NoError(t, err)

	assert.Equal(t, latest, outcome.PredictionsPath)
	assert.Equal(t, resultsDir, filepath.Dir(outcome.ReportPath))
	assert.Equal(t, "nvidia-reason-3b", outcome.Report.Metadata.Model)
	assert.Equal(t, []string{"bleu"}, outcome.Report.Metadata.MetricsUsed)
	require.NotNil(t, outcome.Report.Metadata.PredictionsFile)
	assert.Equal(t, latest, *outcome.Report.Metadata.PredictionsFile)
	v, ok := outcome.Report.Metrics.Scalar("bleu")
	require.True(t, ok)
	assert.InDelta(t, 0.42, v, 1e-9)

	assert.Equal(t, []string{outcome.ReportPath}, archiver.uploaded)
	assert.Equal(t, []string{"runs/" + filepath.Base(outcome.ReportPath)}, outcome.Archived)
	assert.Equal(t, []EventType{EventScoringStart, EventScoringComplete, EventReportSaved, EventArchived}, events)
}

func TestEvaluateFile_ModelOverrideAndFilename(t *testing.T) {
	root := t.TempDir()
	path := writePredictions(t, root, "custom.json", twoRecordBatch())

	ctrl := gomock.NewController(t)
	engine := radeval.NewMockEngine(ctrl)
	engine.EXPECT().Score(gomock.Any(), gomock.Any()).Return(radeval.Scores{"green": 0.5}, nil)

	evaluator, err := evaluation.New(engine, []string{"green"})
	require.NoError(t, err)

	p := NewPipeline(filepath.Join(root, "out"), filepath.Join(root, "unused"))
	outcome, err := p.EvaluateFile(context.Background(), evaluator, EvaluateArgs{
		PredictionsFile: path,
		Model:           "llava",
		OutputFilename:  "report.json",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "out", "report.json"), outcome.ReportPath)
	assert.Equal(t, "llava", outcome.Report.Metadata.Model)
	assert.Nil(t, outcome.Archived)
}

func TestEvaluateFile_NoPredictions(t *testing.T) {
	ctrl := gomock.NewController(t)
	evaluator, err := evaluation.New(radeval.NewMockEngine(ctrl), nil)
	require.NoError(t, err)

	dir := t.TempDir()
	p := NewPipeline(dir, dir)
	_, err = p.EvaluateFile(context.Background(), evaluator, EvaluateArgs{})
	require.Error(t, err)
	assert.ErrorIs(t, err, results.ErrNoPredictionFiles)
}

func TestEvaluateFile_InconsistentSampleCountStillScored(t *testing.T) {
	root := t.TempDir()
	batch := twoRecordBatch()
	batch.Metadata.NumSamples = 5
	path := writePredictions(t, root, "bad.json", batch)

	ctrl := gomock.NewController(t)
	engine := radeval.NewMockEngine(ctrl)
	engine.EXPECT().Score(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req *radeval.Request) (radeval.Scores, error) {
		assert.Len(t, req.Hyps, 2)
		return radeval.Scores{"bleu": 0.3}, nil
	})

	evaluator, err := evaluation.New(engine, []string{"bleu"})
	require.NoError(t, err)

	outcome, err := NewPipeline(root, root).EvaluateFile(context.Background(), evaluator, EvaluateArgs{PredictionsFile: path})
	require.NoError(t, err)
	assert.FileExists(t, outcome.ReportPath)
}

func TestEvaluateFile_MissingMetricWritesPartialReport(t *testing.T) {
	root := t.TempDir()
	path := writePredictions(t, root, "p.json", twoRecordBatch())
	resultsDir := filepath.Join(root, "results")

	ctrl := gomock.NewController(t)
	engine := radeval.NewMockEngine(ctrl)
	engine.EXPECT().Score(gomock.Any(), gomock.Any()).Return(radeval.Scores{"bleu": 0.3}, nil)

	evaluator, err := evaluation.New(engine, []string{"bleu", "green"})
	require.NoError(t, err)

	archiver := &fakeArchiver{}
	_, err = NewPipeline(resultsDir, root, WithArchiver(archiver)).EvaluateFile(context.Background(), evaluator, EvaluateArgs{
		PredictionsFile: path,
		OutputFilename:  "partial.json",
	})
	var missing *evaluation.MissingScoreError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, err.Error(), "partial report saved to")

	report, err := results.LoadReport(filepath.Join(resultsDir, "partial.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{"bleu"}, report.Metadata.MetricsUsed)
	assert.Contains(t, report.Metrics, "bleu")
	assert.NotContains(t, report.Metrics, "green")
	assert.Empty(t, archiver.uploaded)
}

func TestEvaluateFile_AllMetricsMissingWritesNothing(t *testing.T) {
	root := t.TempDir()
	path := writePredictions(t, root, "p.json", twoRecordBatch())
	resultsDir := filepath.Join(root, "results")

	ctrl := gomock.NewController(t)
	engine := radeval.NewMockEngine(ctrl)
	engine.EXPECT().Score(gomock.Any(), gomock.Any()).Return(radeval.Scores{"unrelated": 1.0}, nil)

	evaluator, err := evaluation.New(engine, []string{"green"})
	require.NoError(t, err)

	_, err = NewPipeline(resultsDir, root).EvaluateFile(context.Background(), evaluator, EvaluateArgs{PredictionsFile: path})
	var missing *evaluation.MissingScoreError
	require.ErrorAs(t, err, &missing)
	assert.NoDirExists(t, resultsDir)
}

func TestEvaluateFile_EngineErrorWritesNothing(t *testing.T) {
	root := t.TempDir()
	path := writePredictions(t, root, "p.json", twoRecordBatch())
	resultsDir := filepath.Join(root, "results")

	ctrl := gomock.NewController(t)
	engine := radeval.NewMockEngine(ctrl)
	engine.EXPECT().Score(gomock.Any(), gomock.Any()).Return(nil, errors.New("scorer down"))

	evaluator, err := evaluation.New(engine, []string{"bleu"})
	require.NoError(t, err)

	_, err = NewPipeline(resultsDir, root).EvaluateFile(context.Background(), evaluator, EvaluateArgs{PredictionsFile: path})
	require.EqualError(t, err, "scorer down")
	assert.NoDirExists(t, resultsDir)
}

func TestScoreTexts(t *testing.T) {
	root := t.TempDir()

	ctrl := gomock.NewController(t)
	engine := radeval.NewMockEngine(ctrl)
	engine.EXPECT().Score(gomock.Any(), gomock.Any()).Return(radeval.Scores{
		"radgraph_simple": 0.5, "radgraph_partial": 0.4, "radgraph_complete": 0.3,
	}, nil)

	evaluator, err := evaluation.New(engine, []string{"radgraph"})
	require.NoError(t, err)

	outcome, err := NewPipeline(root, root).ScoreTexts(context.Background(), evaluator, ScoreArgs{
		References: []string{"a", "b"},
		Hypotheses: []string{"a", "c"},
	})
	require.NoError(t, err)
	assert.Nil(t, outcome.Report.Metadata.PredictionsFile)
	assert.Equal(t, "unknown", outcome.Report.Metadata.Model)
	assert.Equal(t, map[string]any{
		"radgraph_simple": 0.5, "radgraph_partial": 0.4, "radgraph_complete": 0.3,
	}, outcome.Report.Metrics["radgraph"])
}

func TestScoreTexts_LengthMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	evaluator, err := evaluation.New(radeval.NewMockEngine(ctrl), []string{"bleu"})
	require.NoError(t, err)

	_, err = NewPipeline(t.TempDir(), "").ScoreTexts(context.Background(), evaluator, ScoreArgs{
		References: []string{"a", "b"},
		Hypotheses: []string{"a"},
	})
	var mismatch *evaluation.LengthMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestInfer(t *testing.T) {
	root := t.TempDir()
	predsDir := filepath.Join(root, "predictions")

	runner, err := inference.NewRunner(inference.RunnerArgs{Model: inference.NewMockModel("mock-vlm")})
	require.NoError(t, err)

	samples := []dataset.Sample{
		{UID: "1", Filename: "1.png", ImagePath: filepath.Join(root, "missing-1.png"), Report: "Findings: a\nImpression: b"},
		{UID: "2", Filename: "2.png", ImagePath: filepath.Join(root, "missing-2.png"), Report: "Findings: c\nImpression: d"},
		{UID: "3", Filename: "3.png", ImagePath: filepath.Join(root, "missing-3.png"), Report: "Findings: e\nImpression: f"},
	}

	archiver := &fakeArchiver{}
	p := NewPipeline(root, predsDir, WithArchiver(archiver))
	var started []int
	p.OnProgress(func(e ProgressEvent) {
		if e.EventType == EventInferenceStart {
			started = append(started, e.Samples)
		}
	})
	outcome, err := p.Infer(context.Background(), runner, InferArgs{Samples: samples, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, started, "start event counts samples after the limit")

	batch, err := results.LoadPredictions(outcome.PredictionsPath)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Metadata.NumSamples)
	assert.Equal(t, "mock-vlm", batch.Metadata.Model)
	require.Len(t, batch.Predictions, 2)
	assert.Equal(t, "1.png", batch.Predictions[0].Filename)
	assert.Equal(t, "Mock report: no image available.", batch.Predictions[0].Prediction)
	assert.Equal(t, []string{outcome.PredictionsPath}, archiver.uploaded)
}

func TestInfer_ArchiveFailure(t *testing.T) {
	root := t.TempDir()
	runner, err := inference.NewRunner(inference.RunnerArgs{Model: inference.NewMockModel("m")})
	require.NoError(t, err)

	p := NewPipeline(root, root, WithArchiver(&fakeArchiver{err: errors.New("denied")}))
	_, err = p.Infer(context.Background(), runner, InferArgs{})
	require.EqualError(t, err, "denied")
}
