// Package orchestration ties the evaluation and inference steps to the files
// they read and write.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/spboyer/rrgen/internal/dataset"
	"github.com/spboyer/rrgen/internal/evaluation"
	"github.com/spboyer/rrgen/internal/inference"
	"github.com/spboyer/rrgen/internal/models"
	"github.com/spboyer/rrgen/internal/results"
)

// Archiver publishes written files. *archive.Archiver implements it.
type Archiver interface {
	Upload(ctx context.Context, localPaths ...string) ([]string, error)
}

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

// EventType constants
const (
	EventScoringStart     EventType = "scoring_start"
	EventScoringComplete  EventType = "scoring_complete"
	EventReportSaved      EventType = "report_saved"
	EventInferenceStart   EventType = "inference_start"
	EventPredictionsSaved EventType = "predictions_saved"
	EventArchived         EventType = "archived"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType  EventType
	Path       string
	Metrics    []string
	Samples    int
	DurationMs int64
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithArchiver uploads every file the pipeline writes.
func WithArchiver(a Archiver) PipelineOption {
	return func(p *Pipeline) {
		p.archiver = a
	}
}

// Pipeline runs evaluation and inference end to end.
type Pipeline struct {
	resultsDir     string
	predictionsDir string
	archiver       Archiver

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// NewPipeline creates a Pipeline writing reports to resultsDir and
// predictions files to predictionsDir.
func NewPipeline(resultsDir, predictionsDir string, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		resultsDir:     resultsDir,
		predictionsDir: predictionsDir,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// OnProgress registers a progress listener
func (p *Pipeline) OnProgress(listener ProgressListener) {
	p.progressMu.Lock()
	defer p.progressMu.Unlock()
	p.listeners = append(p.listeners, listener)
}

func (p *Pipeline) notify(event ProgressEvent) {
	p.progressMu.Lock()
	listeners := append([]ProgressListener(nil), p.listeners...)
	p.progressMu.Unlock()

	for _, l := range listeners {
		l(event)
	}
}

// EvaluateArgs holds the arguments for Pipeline.EvaluateFile.
type EvaluateArgs struct {
	// PredictionsFile is scored. Empty picks the latest file in the
	// predictions directory.
	PredictionsFile string
	// Model overrides the model name from the predictions metadata.
	Model string
	// OutputFilename overrides the generated report filename.
	OutputFilename string
}

// Outcome describes what a pipeline step produced.
type Outcome struct {
	Report          *models.MetricsReport
	ReportPath      string
	PredictionsPath string
	Archived        []string
}

// EvaluateFile scores a predictions file and writes a metrics report.
func (p *Pipeline) EvaluateFile(ctx context.Context, evaluator *evaluation.Evaluator, args EvaluateArgs) (*Outcome, error) {
	path := args.PredictionsFile
	if path == "" {
		latest, err := results.LatestPredictions(p.predictionsDir)
		if err != nil {
			return nil, err
		}
		path = latest
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	batch, err := results.LoadPredictions(path)
	if err != nil {
		return nil, err
	}
	if err := batch.Validate(); err != nil {
		slog.Warn("Scoring predictions as listed", "path", path, "problem", err)
	}

	model := args.Model
	if model == "" {
		model = batch.Metadata.Model
	}

	outcome, err := p.score(ctx, evaluator, scoreArgs{
		refs:            batch.References(),
		hyps:            batch.Hypotheses(),
		model:           model,
		filename:        args.OutputFilename,
		predictionsFile: path,
	})
	if err != nil {
		return nil, err
	}
	outcome.PredictionsPath = path
	return outcome, nil
}

// ScoreArgs holds the arguments for Pipeline.ScoreTexts.
type ScoreArgs struct {
	References     []string
	Hypotheses     []string
	Model          string
	OutputFilename string
}

// ScoreTexts scores parallel reference and hypothesis lists that did not come
// from a predictions file.
func (p *Pipeline) ScoreTexts(ctx context.Context, evaluator *evaluation.Evaluator, args ScoreArgs) (*Outcome, error) {
	return p.score(ctx, evaluator, scoreArgs{
		refs:     args.References,
		hyps:     args.Hypotheses,
		model:    args.Model,
		filename: args.OutputFilename,
	})
}

type scoreArgs struct {
	refs, hyps      []string
	model           string
	filename        string
	predictionsFile string
}

func (p *Pipeline) score(ctx context.Context, evaluator *evaluation.Evaluator, args scoreArgs) (*Outcome, error) {
	if evaluator == nil {
		return nil, errors.New("orchestration: evaluator is required")
	}

	p.notify(ProgressEvent{EventType: EventScoringStart, Metrics: evaluator.Metrics(), Samples: len(args.refs)})
	start := time.Now()

	scores, err := evaluator.Evaluate(ctx, args.refs, args.hyps)
	if err != nil {
		var missing *evaluation.MissingScoreError
		if errors.As(err, &missing) && len(scores) > 0 {
			return nil, p.savePartial(args, scores, err)
		}
		return nil, err
	}

	p.notify(ProgressEvent{
		EventType:  EventScoringComplete,
		Metrics:    scores.Names(),
		Samples:    len(args.refs),
		DurationMs: time.Since(start).Milliseconds(),
	})

	reportPath, err := results.SaveResults(p.resultsDir, results.SaveResultsArgs{
		Metrics:         scores,
		ModelName:       args.model,
		MetricsUsed:     evaluator.Metrics(),
		Filename:        args.filename,
		PredictionsFile: args.predictionsFile,
	})
	if err != nil {
		return nil, err
	}
	p.notify(ProgressEvent{EventType: EventReportSaved, Path: reportPath})

	report, err := results.LoadReport(reportPath)
	if err != nil {
		return nil, err
	}

	archived, err := p.archive(ctx, reportPath)
	if err != nil {
		return nil, err
	}

	return &Outcome{Report: report, ReportPath: reportPath, Archived: archived}, nil
}

// savePartial writes the metrics the engine did return, then reports
// scoreErr with the partial report's path.
func (p *Pipeline) savePartial(args scoreArgs, scores models.MetricScores, scoreErr error) error {
	reportPath, err := results.SaveResults(p.resultsDir, results.SaveResultsArgs{
		Metrics:         scores,
		ModelName:       args.model,
		MetricsUsed:     scores.Names(),
		Filename:        args.filename,
		PredictionsFile: args.predictionsFile,
	})
	if err != nil {
		return errors.Join(scoreErr, err)
	}
	p.notify(ProgressEvent{EventType: EventReportSaved, Path: reportPath})
	slog.Warn("Saved partial report", "path", reportPath, "metrics", scores.Names())
	return fmt.Errorf("%w (partial report saved to %s)", scoreErr, reportPath)
}

// InferArgs holds the arguments for Pipeline.Infer.
type InferArgs struct {
	Samples []dataset.Sample
	// Limit caps the number of samples; zero means all.
	Limit int
	// OutputFilename overrides the generated predictions filename.
	OutputFilename string
}

// Infer generates a report for each sample and writes a predictions file.
func (p *Pipeline) Infer(ctx context.Context, runner *inference.Runner, args InferArgs) (*Outcome, error) {
	if runner == nil {
		return nil, errors.New("orchestration: runner is required")
	}

	total := len(args.Samples)
	if args.Limit > 0 && args.Limit < total {
		total = args.Limit
	}
	p.notify(ProgressEvent{EventType: EventInferenceStart, Samples: total})

	records, err := runner.Run(ctx, args.Samples, args.Limit)
	if err != nil {
		return nil, err
	}

	path, err := results.SavePredictions(p.predictionsDir, results.SavePredictionsArgs{
		Predictions: records,
		ModelName:   runner.ModelName(),
		Filename:    args.OutputFilename,
	})
	if err != nil {
		return nil, err
	}
	p.notify(ProgressEvent{EventType: EventPredictionsSaved, Path: path, Samples: len(records)})

	archived, err := p.archive(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Outcome{PredictionsPath: path, Archived: archived}, nil
}

func (p *Pipeline) archive(ctx context.Context, paths ...string) ([]string, error) {
	if p.archiver == nil {
		return nil, nil
	}
	names, err := p.archiver.Upload(ctx, paths...)
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		p.notify(ProgressEvent{EventType: EventArchived, Path: n})
	}
	return names, nil
}
