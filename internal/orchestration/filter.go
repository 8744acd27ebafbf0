package orchestration

import (
	"fmt"
	"path/filepath"

	"github.com/spboyer/rrgen/internal/dataset"
)

// FilterSamples returns the subset of samples whose Filename or UID matches
// at least one of the given glob patterns. An empty patterns slice returns
// all samples unchanged.
func FilterSamples(samples []dataset.Sample, patterns []string) ([]dataset.Sample, error) {
	if len(patterns) == 0 {
		return samples, nil
	}

	var matched []dataset.Sample
	for _, s := range samples {
		ok, err := matchesAny(s, patterns)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, s)
		}
	}
	return matched, nil
}

// matchesAny reports whether a sample's Filename or UID matches any pattern.
func matchesAny(s dataset.Sample, patterns []string) (bool, error) {
	for _, p := range patterns {
		nameMatch, err := filepath.Match(p, s.Filename)
		if err != nil {
			return false, fmt.Errorf("invalid sample filter pattern %q: %w", p, err)
		}
		if nameMatch {
			return true, nil
		}
		uidMatch, err := filepath.Match(p, s.UID)
		if err != nil {
			return false, fmt.Errorf("invalid sample filter pattern %q: %w", p, err)
		}
		if uidMatch {
			return true, nil
		}
	}
	return false, nil
}
