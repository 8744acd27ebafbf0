// Package statistics aggregates metric scores across evaluation reports.
package statistics

import (
	"math"
	"math/rand/v2"
	"slices"
)

// ConfidenceInterval is a percentile bootstrap interval for the mean score
// of one metric.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	NumBootstraps   int     `json:"num_bootstraps"`
}

// DefaultBootstrapIterations is the number of resamples per interval.
const DefaultBootstrapIterations = 10000

// BootstrapCI resamples scores with a random seed. confidenceLevel is in
// (0, 1), e.g. 0.95. Fewer than two scores give a zero-width interval at
// the mean.
func BootstrapCI(scores []float64, confidenceLevel float64) ConfidenceInterval {
	return BootstrapCIWithSeed(scores, confidenceLevel, -1)
}

// BootstrapCIWithSeed is BootstrapCI with a fixed seed. A negative seed
// draws a random one.
func BootstrapCIWithSeed(scores []float64, confidenceLevel float64, seed int64) ConfidenceInterval {
	ci := ConfidenceInterval{Mean: Mean(scores), ConfidenceLevel: confidenceLevel}
	if len(scores) < 2 {
		ci.Lower, ci.Upper = ci.Mean, ci.Mean
		return ci
	}

	means := resampleMeans(scores, DefaultBootstrapIterations, newRand(seed))
	slices.Sort(means)

	tail := (1 - confidenceLevel) / 2
	ci.Lower = means[percentileIndex(tail, len(means))]
	ci.Upper = means[percentileIndex(1-tail, len(means))]
	ci.NumBootstraps = len(means)
	return ci
}

func newRand(seed int64) *rand.Rand {
	if seed < 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), 0))
}

// resampleMeans draws iterations samples of len(scores) with replacement
// and returns the mean of each.
func resampleMeans(scores []float64, iterations int, rng *rand.Rand) []float64 {
	means := make([]float64, iterations)
	n := len(scores)
	for i := range means {
		sum := 0.0
		for range n {
			sum += scores[rng.IntN(n)]
		}
		means[i] = sum / float64(n)
	}
	return means
}

// percentileIndex maps quantile q onto an index of a sorted slice of n.
func percentileIndex(q float64, n int) int {
	return min(int(math.Floor(q*float64(n))), n-1)
}
