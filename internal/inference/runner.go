package inference

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spboyer/rrgen/internal/dataset"
	"github.com/spboyer/rrgen/internal/models"
	"github.com/spboyer/rrgen/internal/utils"
)

// RunnerArgs holds the arguments for creating a Runner.
type RunnerArgs struct {
	Model Model
	// Instructions defaults to DefaultInstructions().
	Instructions string
	// MaxTokens defaults to DefaultMaxTokens.
	MaxTokens int
	// Progress receives one line per finished sample. Nil disables it.
	Progress io.Writer
}

// Runner generates one prediction per dataset sample, in order.
type Runner struct {
	model        Model
	instructions string
	maxTokens    int
	progress     io.Writer
}

// NewRunner creates a [Runner].
func NewRunner(args RunnerArgs) (*Runner, error) {
	if args.Model == nil {
		return nil, fmt.Errorf("inference: runner requires a model")
	}
	r := &Runner{
		model:        args.Model,
		instructions: args.Instructions,
		maxTokens:    args.MaxTokens,
		progress:     args.Progress,
	}
	if r.instructions == "" {
		r.instructions = DefaultInstructions()
	}
	if r.maxTokens <= 0 {
		r.maxTokens = DefaultMaxTokens
	}
	return r, nil
}

// ModelName is the name recorded in the predictions file.
func (r *Runner) ModelName() string {
	return r.model.Name()
}

// Run generates reports for the first limit samples (all of them when limit
// is zero or negative). A sample whose image cannot be read is sent with a
// blank placeholder image. Any model error stops the run.
func (r *Runner) Run(ctx context.Context, samples []dataset.Sample, limit int) ([]models.PredictionRecord, error) {
	total := len(samples)
	if limit > 0 && limit < total {
		total = limit
	}

	start := time.Now()
	records := make([]models.PredictionRecord, 0, total)
	for i := 0; i < total; i++ {
		sample := samples[i]
		img := dataset.LoadImageOrPlaceholder(sample.ImagePath)

		sampleStart := time.Now()
		prediction, err := r.GenerateReport(ctx, img)
		event := utils.SampleEvent{
			Index:       i,
			Filename:    sample.Filename,
			Placeholder: img.Placeholder,
			DurationMs:  time.Since(sampleStart).Milliseconds(),
			Err:         err,
		}
		if err != nil {
			utils.SampleToSlog(event)
			return nil, fmt.Errorf("sample %d (%s): %w", i, sample.Filename, err)
		}
		event.Report = &prediction
		utils.SampleToSlog(event)

		records = append(records, models.PredictionRecord{
			Index:       utils.Ptr(i),
			Filename:    sample.Filename,
			GroundTruth: sample.Report,
			Prediction:  prediction,
		})

		if r.progress != nil {
			fmt.Fprintf(r.progress, "Inference [%d/%d] %s\n", i+1, total, sample.Filename) //nolint:errcheck
		}
	}

	slog.Debug("Inference finished", "samples", total, "durationMs", time.Since(start).Milliseconds())
	return records, nil
}

// GenerateReport runs the model on a single image.
func (r *Runner) GenerateReport(ctx context.Context, img *dataset.Image) (string, error) {
	return r.model.Generate(ctx, &GenerateRequest{
		Instructions: r.instructions,
		Image:        img,
		MaxTokens:    r.maxTokens,
	})
}
