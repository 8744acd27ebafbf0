// Package evaluation validates a metric selection, configures the scoring
// engine for exactly that selection, and maps the engine's raw output back
// onto catalog metric names.
package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spboyer/rrgen/internal/catalog"
	"github.com/spboyer/rrgen/internal/models"
	"github.com/spboyer/rrgen/internal/radeval"
)

// LengthMismatchError is returned when references and predictions are not
// position-aligned.
type LengthMismatchError struct {
	References  int
	Predictions int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("length mismatch: %d references vs %d predictions", e.References, e.Predictions)
}

// MissingScoreError is returned when the engine computed nothing that
// belongs to one or more requested metrics.
type MissingScoreError struct {
	// Metric is the first missing metric in selection order.
	Metric   catalog.Metric
	Missing  []catalog.Metric
	Returned []string
}

func (e *MissingScoreError) Error() string {
	if len(e.Missing) > 1 {
		names := make([]string, len(e.Missing))
		for i, m := range e.Missing {
			names[i] = string(m)
		}
		return fmt.Sprintf("engine returned no score for metrics %s (got keys: %s)", strings.Join(names, ", "), strings.Join(e.Returned, ", "))
	}
	return fmt.Sprintf("engine returned no score for metric %q (got keys: %s)", e.Metric, strings.Join(e.Returned, ", "))
}

// Option customizes an Evaluator.
type Option func(*Evaluator)

// WithOptions forwards engine settings that are not metric switches.
func WithOptions(opts radeval.Options) Option {
	return func(e *Evaluator) {
		e.options = opts
	}
}

// Evaluator scores predicted reports against references with a fixed metric
// selection.
type Evaluator struct {
	engine    radeval.Engine
	selection catalog.Selection
	flags     radeval.Flags
	options   radeval.Options
}

// New validates metrics and builds an Evaluator. An empty list selects the
// whole catalog. Invalid names fail with *catalog.InvalidMetricError.
func New(engine radeval.Engine, metrics []string, opts ...Option) (*Evaluator, error) {
	if engine == nil {
		return nil, fmt.Errorf("evaluation: engine is required")
	}

	selection, err := catalog.ParseSelection(metrics)
	if err != nil {
		return nil, err
	}

	e := &Evaluator{
		engine:    engine,
		selection: selection,
		flags:     FlagsFor(selection),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// FlagsFor switches on exactly the engine flags of the selected metrics.
func FlagsFor(selection catalog.Selection) radeval.Flags {
	return radeval.Flags{
		DoRadCliQ:   selection.Contains(catalog.RadCliQ),
		DoBLEU:      selection.Contains(catalog.BLEU),
		DoBERTScore: selection.Contains(catalog.BERTScore),
		DoCheXbert:  selection.Contains(catalog.SembScore),
		DoRadGraph:  selection.Contains(catalog.RadGraph),
		DoRaTEScore: selection.Contains(catalog.RaTEScore),
		DoGREEN:     selection.Contains(catalog.GREEN),
	}
}

// Metrics returns the validated metric names in request order.
func (e *Evaluator) Metrics() []string {
	return e.selection.Names()
}

// Flags returns the engine flags this evaluator sends.
func (e *Evaluator) Flags() radeval.Flags {
	return e.flags
}

// Evaluate scores predictions against references. The returned map has one
// key per requested metric. Engine errors are returned as-is. When the
// engine leaves out requested metrics the error is a *MissingScoreError
// and the scores it did compute are returned alongside it.
func (e *Evaluator) Evaluate(ctx context.Context, references, predictions []string) (models.MetricScores, error) {
	if len(references) != len(predictions) {
		return nil, &LengthMismatchError{References: len(references), Predictions: len(predictions)}
	}

	slog.Debug("Evaluating", "metrics", e.selection.Names(), "pairs", len(references))

	raw, err := e.engine.Score(ctx, &radeval.Request{
		Refs:    references,
		Hyps:    predictions,
		Flags:   e.flags,
		Options: e.options,
	})
	if err != nil {
		return nil, err
	}

	return mapScores(e.selection, raw)
}

// mapScores groups raw engine keys under the catalog metric they belong to.
// A metric that owns one key gets that value directly; a metric that owns
// several gets a nested map keyed by the engine's names.
func mapScores(selection catalog.Selection, raw radeval.Scores) (models.MetricScores, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(models.MetricScores, selection.Len())
	var missing []catalog.Metric
	for _, m := range selection.Metrics() {
		var owned []string
		for _, k := range keys {
			if belongsTo(m, k) {
				owned = append(owned, k)
			}
		}

		switch len(owned) {
		case 0:
			missing = append(missing, m)
		case 1:
			out[string(m)] = raw[owned[0]]
		default:
			nested := make(map[string]any, len(owned))
			for _, k := range owned {
				nested[k] = raw[k]
			}
			out[string(m)] = nested
		}
	}
	if len(missing) > 0 {
		return out, &MissingScoreError{Metric: missing[0], Missing: missing, Returned: keys}
	}
	return out, nil
}

func belongsTo(m catalog.Metric, key string) bool {
	lower := strings.ToLower(key)
	for _, prefix := range m.ResultPrefixes() {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
