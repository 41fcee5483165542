package metrics

import (
	"math"
	"sort"
)

// Percentile returns the nearest-rank p-th percentile (p in [0, 100]) of
// values. It does not mutate values; the input is copied before sorting.
//
// Given a sorted sequence of length n, the p-th percentile is the element
// at index max(0, ceil(n*p/100) - 1). An empty slice returns 0.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(math.Ceil(float64(n)*p/100)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// Percentiles computes Percentile for every p in ps against a single sort
// of values, avoiding the repeated O(n log n) cost of calling Percentile
// once per requested percentile.
func Percentiles(values []float64, ps []float64) map[float64]float64 {
	result := make(map[float64]float64, len(ps))
	if len(values) == 0 {
		for _, p := range ps {
			result[p] = 0
		}
		return result
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	for _, p := range ps {
		idx := int(math.Ceil(float64(n)*p/100)) - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= n {
			idx = n - 1
		}
		result[p] = sorted[idx]
	}
	return result
}
