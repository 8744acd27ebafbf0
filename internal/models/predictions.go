package models

import "fmt"

// PredictionRecord is one generated report paired with its ground truth.
type PredictionRecord struct {
	Index       *int   `json:"index,omitempty"`
	Filename    string `json:"filename"`
	GroundTruth string `json:"ground_truth"`
	Prediction  string `json:"prediction"`
}

// PredictionsMetadata is the envelope header of a predictions file.
type PredictionsMetadata struct {
	Timestamp  string `json:"timestamp"`
	NumSamples int    `json:"num_samples"`
	Model      string `json:"model"`
}

// PredictionsBatch is the on-disk shape of a predictions file.
type PredictionsBatch struct {
	Metadata    PredictionsMetadata `json:"metadata"`
	Predictions []PredictionRecord  `json:"predictions"`

	// Raw is the document as read from disk, including fields the typed
	// view does not know. Nil for batches built in memory.
	Raw map[string]any `json:"-"`
}

// Validate checks the num_samples invariant.
func (b *PredictionsBatch) Validate() error {
	if b.Metadata.NumSamples != len(b.Predictions) {
		return fmt.Errorf("predictions metadata reports %d samples but file holds %d", b.Metadata.NumSamples, len(b.Predictions))
	}
	return nil
}

// References returns the ground-truth texts in record order.
func (b *PredictionsBatch) References() []string {
	refs := make([]string, len(b.Predictions))
	for i, p := range b.Predictions {
		refs[i] = p.GroundTruth
	}
	return refs
}

// Hypotheses returns the generated texts in record order.
func (b *PredictionsBatch) Hypotheses() []string {
	hyps := make([]string, len(b.Predictions))
	for i, p := range b.Predictions {
		hyps[i] = p.Prediction
	}
	return hyps
}

