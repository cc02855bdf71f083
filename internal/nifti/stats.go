package nifti

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the scaled intensity distribution of a volume.
type Stats struct {
	Mean   float64
	StdDev float64
	P02    float64 // 2nd percentile
	Median float64
	P98    float64 // 98th percentile
}

// ComputeStats sorts a copy of the field, so it costs O(n log n); callers
// that need it repeatedly should hold on to the result.
func (v *Volume) ComputeStats() Stats {
	xs := make([]float64, len(v.Data))
	for i, s := range v.Data {
		xs[i] = float64(s)
	}
	sort.Float64s(xs)
	mean, std := stat.MeanStdDev(xs, nil)
	return Stats{
		Mean:   mean,
		StdDev: std,
		P02:    stat.Quantile(0.02, stat.Empirical, xs, nil),
		Median: stat.Quantile(0.5, stat.Empirical, xs, nil),
		P98:    stat.Quantile(0.98, stat.Empirical, xs, nil),
	}
}

// Histogram buckets scaled intensity into bins equal-width bins spanning
// [Min, Max]. A flat volume lands entirely in the first bin.
func (v *Volume) Histogram(bins int) []float64 {
	counts := make([]float64, bins)
	if bins < 1 || len(v.Data) == 0 {
		return counts
	}
	if v.Max == v.Min {
		counts[0] = float64(len(v.Data))
		return counts
	}
	xs := make([]float64, len(v.Data))
	for i, s := range v.Data {
		xs[i] = float64(s)
	}
	sort.Float64s(xs)
	dividers := make([]float64, bins+1)
	floats.Span(dividers, float64(v.Min), float64(v.Max))
	// Half-open bins would drop the max sample.
	dividers[bins] = math.Nextafter(float64(v.Max), math.Inf(1))
	return stat.Histogram(counts, dividers, xs, nil)
}

// SuggestWindow proposes a window level and width (both in [0,1]) that
// bracket the 2nd-98th percentile of normalized intensity, trimming the
// background peak and outlier hot spots that flatten naive contrast.
func (v *Volume) SuggestWindow() (level, width float64) {
	if v.Max == v.Min {
		return 0.5, 1
	}
	s := v.ComputeStats()
	rng := float64(v.Max) - float64(v.Min)
	lo := (s.P02 - float64(v.Min)) / rng
	hi := (s.P98 - float64(v.Min)) / rng
	if hi <= lo {
		return 0.5, 1
	}
	return (lo + hi) / 2, hi - lo
}
