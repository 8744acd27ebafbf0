package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spboyer/rrgen/internal/archive"
	"github.com/spboyer/rrgen/internal/cache"
	"github.com/spboyer/rrgen/internal/evaluation"
	"github.com/spboyer/rrgen/internal/orchestration"
	"github.com/spboyer/rrgen/internal/projectconfig"
	"github.com/spboyer/rrgen/internal/radeval"
	"github.com/spboyer/rrgen/internal/spinner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// newArchiver is a test hook for replacing the blob uploader.
var newArchiver = func(cfg projectconfig.ArchiveConfig) (orchestration.Archiver, error) {
	return archive.New(archive.Config{
		AccountURL: cfg.AccountURL,
		Container:  cfg.Container,
		Prefix:     cfg.Prefix,
		Compress:   cfg.Compress,
	})
}

// cacheFlags are the scoring cache switches shared by evaluate and score.
type cacheFlags struct {
	enable  bool
	disable bool
}

func addCacheFlags(cmd *cobra.Command, f *cacheFlags) {
	cmd.Flags().BoolVar(&f.enable, "cache", false, "Cache engine scores (default: cache.enabled from config)")
	cmd.Flags().BoolVar(&f.disable, "no-cache", false, "Always call the scoring engine")
}

// useCache applies the flags on top of cache.enabled.
func (f cacheFlags) useCache(cfg *projectconfig.ProjectConfig) (bool, error) {
	switch {
	case f.enable && f.disable:
		return false, errors.New("--cache and --no-cache are mutually exclusive")
	case f.enable:
		return true, nil
	case f.disable:
		return false, nil
	default:
		return cfg.CacheEnabled(), nil
	}
}

// newEvaluator builds an evaluator for metrics using the configured engine.
// An empty metrics list falls back to scoring.metrics, then the full catalog.
func newEvaluator(cfg *projectconfig.ProjectConfig, metrics []string, useCache bool) (*evaluation.Evaluator, error) {
	if len(metrics) == 0 {
		metrics = cfg.Scoring.Metrics
	}

	opts, err := cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	engineCfg := cfg.EngineConfig()
	engine, err := radeval.New(engineCfg)
	if err != nil {
		return nil, err
	}
	if useCache {
		slog.Debug("Scoring cache enabled", "dir", cfg.CacheDir())
		engine = cache.Wrap(engine, cache.New(cfg.CacheDir()), engineCfg.ID())
	}
	return evaluation.New(engine, metrics, evaluation.WithOptions(opts))
}

// newPipeline wires the configured directories, the archiver and progress
// output on w. Callers must Close the returned reporter.
func newPipeline(cfg *projectconfig.ProjectConfig, w io.Writer) (*orchestration.Pipeline, *progressReporter, error) {
	var opts []orchestration.PipelineOption
	if cfg.ArchiveEnabled() {
		a, err := newArchiver(cfg.Archive)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, orchestration.WithArchiver(a))
	}

	progress := &progressReporter{w: w, spin: isTerminal(w)}
	p := orchestration.NewPipeline(cfg.ResultsDir(), cfg.PredictionsDir(), opts...)
	p.OnProgress(progress.handle)
	return p, progress, nil
}

// progressReporter prints pipeline events. On a terminal the scoring call
// shows a spinner.
type progressReporter struct {
	w    io.Writer
	spin bool
	stop func() time.Duration
}

func (r *progressReporter) handle(e orchestration.ProgressEvent) {
	switch e.EventType {
	case orchestration.EventScoringStart:
		msg := fmt.Sprintf("Computing %s on %d samples", strings.Join(e.Metrics, ", "), e.Samples)
		if r.spin {
			r.stop = spinner.Start(r.w, msg)
		} else {
			fmt.Fprintln(r.w, msg+"...") //nolint:errcheck
		}
	case orchestration.EventScoringComplete:
		r.Close()
		fmt.Fprintf(r.w, "Scoring finished in %s\n", formatDuration(time.Duration(e.DurationMs)*time.Millisecond)) //nolint:errcheck
	case orchestration.EventInferenceStart:
		fmt.Fprintf(r.w, "Generating reports for %d samples\n", e.Samples) //nolint:errcheck
	case orchestration.EventArchived:
		fmt.Fprintf(r.w, "Archived: %s\n", e.Path) //nolint:errcheck
	}
}

// Close stops the spinner if one is running.
func (r *progressReporter) Close() {
	if r.stop != nil {
		r.stop()
		r.stop = nil
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
