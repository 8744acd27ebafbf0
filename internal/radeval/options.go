package radeval

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Options are the engine settings rrgen forwards verbatim. Anything the
// engine accepts beyond the metric switches has to be listed here; unknown
// keys are rejected by DecodeOptions.
type Options struct {
	DoDetails         bool   `json:"do_details,omitempty" mapstructure:"do_details"`
	ShowProgress      bool   `json:"show_progress,omitempty" mapstructure:"show_progress"`
	BERTScoreModel    string `json:"bertscore_model,omitempty" mapstructure:"bertscore_model"`
	GreenModel        string `json:"green_model,omitempty" mapstructure:"green_model"`
	GreenBatchSize    int    `json:"green_batch_size,omitempty" mapstructure:"green_batch_size"`
	RadGraphModelType string `json:"radgraph_model_type,omitempty" mapstructure:"radgraph_model_type"`
}

// DecodeOptions converts a free-form map (typically from .rrgen.yaml) into
// Options.
func DecodeOptions(raw map[string]any) (Options, error) {
	var opts Options
	if len(raw) == 0 {
		return opts, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &opts,
		ErrorUnused: true,
	})
	if err != nil {
		return opts, fmt.Errorf("radeval: building options decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return Options{}, fmt.Errorf("radeval: invalid engine options: %w", err)
	}
	return opts, nil
}
