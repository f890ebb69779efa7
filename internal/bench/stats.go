// Package bench holds the replay harness's latency statistics. Hand-rolled
// rather than imported, matching the original implementation's own
// dependency-free Stats trait.
package bench

import "math"

// Stats summarizes a set of latency samples (nanoseconds per batch).
type Stats struct {
	Mean   float64
	StdDev float64
	Total  uint64
}

// Summarize computes mean and sample standard deviation over samples.
func Summarize(samples []uint64) Stats {
	if len(samples) == 0 {
		return Stats{}
	}

	var total uint64
	for _, s := range samples {
		total += s
	}
	mean := float64(total) / float64(len(samples))

	var variance float64
	if len(samples) >= 2 {
		var sumSq float64
		for _, s := range samples {
			d := float64(s) - mean
			sumSq += d * d
		}
		// Sample variance: divide by len-1, not len.
		variance = sumSq / float64(len(samples)-1)
	}

	return Stats{Mean: mean, StdDev: math.Sqrt(variance), Total: total}
}

// Score matches the original harness's single-number summary.
func (s Stats) Score() float64 {
	return 0.5 * (s.Mean + s.StdDev)
}
