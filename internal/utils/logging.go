package utils

import (
	"context"
	"log/slog"
)

// SampleEvent describes one finished inference sample.
type SampleEvent struct {
	Index       int
	Filename    string
	Placeholder bool
	DurationMs  int64
	Report      *string
	Err         error
}

// SampleToSlog logs a SampleEvent at debug level. Generated text is only
// included when present.
func SampleToSlog(event SampleEvent) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := []any{
		"index", event.Index,
		"filename", event.Filename,
		"placeholder", event.Placeholder,
		"durationMs", event.DurationMs,
	}

	attrs = addIf(attrs, "report", event.Report)
	if event.Err != nil {
		attrs = append(attrs, "error", event.Err.Error())
	}

	slog.Debug("Sample finished", attrs...)
}

func addIf[T any](attrs []any, name string, v *T) []any {
	if v != nil {
		attrs = append(attrs, name)
		attrs = append(attrs, *v)
	}

	return attrs
}
