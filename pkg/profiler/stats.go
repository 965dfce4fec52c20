package profiler

import (
	"math"
	"sort"
)

// Summary is the statistics for one event name. It is one of Empty, Single
// or Aggregate.
type Summary interface {
	summary()
}

// Empty is the summary of no durations
type Empty struct{}

// Single is the summary of exactly one duration
type Single struct {
	Value float64 `json:"value" yaml:"value"`
}

// Aggregate is the summary of two or more durations. Variance and StdDev are
// population statistics (divided by Count).
type Aggregate struct {
	Count    int     `json:"count" yaml:"count"`
	Min      float64 `json:"min" yaml:"min"`
	Max      float64 `json:"max" yaml:"max"`
	Mean     float64 `json:"mean" yaml:"mean"`
	Median   float64 `json:"median" yaml:"median"`
	StdDev   float64 `json:"stdev" yaml:"stdev"`
	Variance float64 `json:"variance" yaml:"variance"`
}

func (Empty) summary()     {}
func (Single) summary()    {}
func (Aggregate) summary() {}

// Summarize reduces durations (microseconds) to a Summary. values is not
// modified.
func Summarize(values []int64) Summary {
	switch len(values) {
	case 0:
		return Empty{}
	case 1:
		return Single{Value: float64(values[0])}
	}

	sorted := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sorted[i] = float64(v)
		sum += float64(v)
	}
	sort.Float64s(sorted)

	n := len(sorted)
	mean := sum / float64(n)

	var sq float64
	for _, v := range sorted {
		d := v - mean
		sq += d * d
	}
	variance := sq / float64(n)

	return Aggregate{
		Count:    n,
		Min:      sorted[0],
		Max:      sorted[n-1],
		Mean:     mean,
		Median:   median(sorted),
		StdDev:   math.Sqrt(variance),
		Variance: variance,
	}
}

// median expects sorted input with at least one element
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
