package anomaly

import (
	"math"

	"dealradar/internal/domain"
)

// DefaultMinSamples is the baseline sample count below which scoring is
// undefined. Overridable per target.
const DefaultMinSamples = 5

// DefaultThreshold is the z magnitude that marks a price anomalous.
const DefaultThreshold = 2.0

// DefaultBaselineRuns bounds the baseline window when a target does not
// configure one. An unbounded window would let months-old prices dominate
// the mean.
const DefaultBaselineRuns = 30

// Score computes the z-score of a listing price against the pre-update
// baseline for the same query key.
//
// Cold start: below minSamples the score is undefined rather than
// numerically unstable; such listings surface via the "new" alert path only.
//
// Zero variance: when every historical price is identical, a differing
// price is a boundary anomaly clamped to ±BoundaryZ instead of a division
// by zero; an equal price scores 0.
func Score(listing domain.Listing, baseline domain.PriceBaseline, minSamples int) domain.Score {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	if baseline.Count < minSamples {
		return domain.Score{}
	}

	diff := listing.Price - baseline.Mean
	if baseline.Stddev == 0 {
		if diff == 0 {
			return domain.Score{Z: 0, Defined: true}
		}
		return domain.Score{
			Z:        math.Copysign(domain.BoundaryZ, diff),
			Defined:  true,
			Boundary: true,
		}
	}

	return domain.Score{Z: diff / baseline.Stddev, Defined: true}
}
