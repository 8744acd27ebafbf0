package main

import (
	"fmt"

	"github.com/spboyer/rrgen/internal/dataset"
	"github.com/spboyer/rrgen/internal/inference"
	"github.com/spboyer/rrgen/internal/orchestration"
	"github.com/spboyer/rrgen/internal/projectconfig"
	"github.com/spf13/cobra"
)

type inferFlags struct {
	numSamples int
	dataDir    string
	model      string
	baseURL    string
	maxTokens  int
	filters    []string
	output     string
	mock       bool
}

func newInferCommand() *cobra.Command {
	var flags inferFlags

	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Generate reports for dataset images and write a predictions file",
		Long: `Generate a radiology report for each dataset image with a vision-language
model served over an OpenAI-compatible API, and write the reports together
with their ground truth to a predictions file.

Images that cannot be read are sent as a blank placeholder. A model error
stops the run without writing a file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInfer(cmd, &flags)
		},
	}

	cmd.Flags().IntVarP(&flags.numSamples, "num_samples", "n", 0, "Number of samples to process (default: all)")
	cmd.Flags().StringVar(&flags.dataDir, "data-dir", "", "Dataset directory (default: paths.data)")
	cmd.Flags().StringVar(&flags.model, "model", "", "Served model name (default: inference.model)")
	cmd.Flags().StringVar(&flags.baseURL, "base-url", "", "OpenAI-compatible endpoint (default: inference.base_url)")
	cmd.Flags().IntVar(&flags.maxTokens, "max-tokens", 0, "Maximum tokens per report (default: inference.max_tokens)")
	cmd.Flags().StringSliceVar(&flags.filters, "filter", nil, "Only process samples whose filename or uid matches a glob")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Predictions filename (default: predictions_<timestamp>.json)")
	cmd.Flags().BoolVar(&flags.mock, "mock", false, "Use a deterministic mock model instead of the server")

	return cmd
}

func runInfer(cmd *cobra.Command, flags *inferFlags) error {
	if flags.numSamples < 0 {
		return fmt.Errorf("--num_samples must not be negative, got %d", flags.numSamples)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dataDir := flags.dataDir
	if dataDir == "" {
		dataDir = cfg.DataDir()
	}
	samples, err := dataset.LoadIndiana(dataDir)
	if err != nil {
		return err
	}
	samples, err = orchestration.FilterSamples(samples, flags.filters)
	if err != nil {
		return err
	}

	model, err := newModel(cfg, flags)
	if err != nil {
		return err
	}

	maxTokens := flags.maxTokens
	if maxTokens == 0 {
		maxTokens = cfg.Inference.MaxTokens
	}
	runner, err := inference.NewRunner(inference.RunnerArgs{
		Model:     model,
		MaxTokens: maxTokens,
		Progress:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	pipeline, progress, err := newPipeline(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer progress.Close()

	outcome, err := pipeline.Infer(cmd.Context(), runner, orchestration.InferArgs{
		Samples:        samples,
		Limit:          flags.numSamples,
		OutputFilename: flags.output,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Predictions saved to: %s\n", outcome.PredictionsPath) //nolint:errcheck
	return nil
}

func newModel(cfg *projectconfig.ProjectConfig, flags *inferFlags) (inference.Model, error) {
	name := flags.model
	if name == "" {
		name = cfg.Inference.Model
	}
	if flags.mock {
		return inference.NewMockModel(name), nil
	}

	baseURL := flags.baseURL
	if baseURL == "" {
		baseURL = cfg.Inference.BaseURL
	}
	return inference.NewOpenAIModel(inference.OpenAIModelArgs{
		Model:   name,
		BaseURL: baseURL,
		APIKey:  cfg.APIKey(),
		Timeout: cfg.InferenceTimeout(),
	})
}
