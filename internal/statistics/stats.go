package statistics

import "math"

// Mean computes the arithmetic mean of a float64 slice.
// Returns 0 for empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance computes the population variance of a float64 slice.
// Returns 0 for empty input.
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return sumSq / float64(len(values))
}

// StdDev computes the population standard deviation.
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// ConfidenceInterval95 returns the 95% confidence interval (low, high)
// using the normal approximation (z=1.96). Returns (mean, mean) when
// fewer than 2 data points are available.
func ConfidenceInterval95(values []float64) (float64, float64) {
	n := len(values)
	m := Mean(values)
	if n < 2 {
		return m, m
	}
	// sample standard deviation (Bessel's correction)
	sumSq := 0.0
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	sampleSD := math.Sqrt(sumSq / float64(n-1))
	margin := 1.96 * sampleSD / math.Sqrt(float64(n))
	return m - margin, m + margin
}

// Summary aggregates one metric's scores across several reports.
type Summary struct {
	N         int                `json:"n"`
	Mean      float64            `json:"mean"`
	StdDev    float64            `json:"stddev"`
	Min       float64            `json:"min"`
	Max       float64            `json:"max"`
	CI95Low   float64            `json:"ci95_low"`
	CI95High  float64            `json:"ci95_high"`
	Bootstrap ConfidenceInterval `json:"bootstrap"`
}

// Summarize computes a Summary, skipping NaN entries (metrics missing from
// some reports).
func Summarize(values []float64) Summary {
	return summarize(values, -1)
}

// SummarizeWithSeed is like Summarize with a fixed bootstrap seed.
func SummarizeWithSeed(values []float64, seed int64) Summary {
	return summarize(values, seed)
}

func summarize(values []float64, seed int64) Summary {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}

	s := Summary{N: len(present)}
	if s.N == 0 {
		return s
	}
	s.Mean = Mean(present)
	s.StdDev = StdDev(present)
	s.Min, s.Max = present[0], present[0]
	for _, v := range present[1:] {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.CI95Low, s.CI95High = ConfidenceInterval95(present)
	s.Bootstrap = BootstrapCIWithSeed(present, 0.95, seed)
	return s
}
