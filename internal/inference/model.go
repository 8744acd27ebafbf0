// Package inference generates radiology reports from chest X-ray images with
// a vision-language model and collects them as prediction records.
package inference

import (
	"context"

	"github.com/spboyer/rrgen/internal/dataset"
)

// DefaultMaxTokens caps the length of one generated report.
const DefaultMaxTokens = 1024

// Model generates text for a single image prompt.
type Model interface {
	// Name identifies the model in saved predictions.
	Name() string

	// Generate returns only the newly generated text, never the prompt.
	Generate(ctx context.Context, req *GenerateRequest) (string, error)
}

// GenerateRequest is one single-turn multimodal prompt. Decoding is always
// greedy; there is no sampling knob.
type GenerateRequest struct {
	Instructions string
	Image        *dataset.Image
	MaxTokens    int
}
