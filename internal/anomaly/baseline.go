// Package anomaly maintains rolling price baselines and scores listing
// prices against them. Baselines are recomputed from persisted snapshot
// history on every run; they are never stored, so repeated runs over the
// same history always agree.
package anomaly

import (
	"math"

	"dealradar/internal/domain"
)

// ComputeBaseline aggregates price samples from ordered snapshot history
// (oldest..newest) into a baseline for one query key. Zero prices are
// excluded: free or placeholder listings would drag the mean without
// describing the market. The caller passes history that predates the run
// being scored, so a listing is never compared against itself.
func ComputeBaseline(queryKey string, history []*domain.Snapshot) domain.PriceBaseline {
	var prices []float64
	for _, snap := range history {
		if snap == nil || snap.QueryKey != queryKey {
			continue
		}
		for _, l := range snap.Listings {
			if l.Price > 0 {
				prices = append(prices, l.Price)
			}
		}
	}

	b := domain.PriceBaseline{QueryKey: queryKey, Count: len(prices)}
	if len(prices) == 0 {
		return b
	}

	b.Mean = mean(prices)
	b.Stddev = sampleStddev(prices, b.Mean)
	return b
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStddev calculates sample standard deviation (n-1 denominator).
func sampleStddev(xs []float64, mean float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, x := range xs {
		diff := x - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}
