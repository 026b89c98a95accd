package domain

import "time"

// BaselineWindow bounds how much snapshot history feeds a price baseline.
// Runs limits by number of most recent runs, Span by age. When both are set
// a snapshot must satisfy both to contribute. Zero values mean unbounded.
type BaselineWindow struct {
	Runs int           `yaml:"runs"`
	Span time.Duration `yaml:"span"`
}

// PriceBaseline holds the rolling price statistics for one query key.
// Derived entirely from persisted snapshot history each run; never stored.
type PriceBaseline struct {
	QueryKey string
	Count    int     // number of price samples in the window
	Mean     float64
	Stddev   float64 // sample standard deviation (n-1)
}

// BoundaryZ is the clamped deviation assigned when the baseline has zero
// variance and the observed price differs from the mean. Finite so scores
// survive JSON round-trips, large enough to dominate any real z-score.
const BoundaryZ = 99.0

// Score is the anomaly-detection statistic for one listing price.
// Defined is false below the minimum sample count (cold start); such
// listings are alertable via the "new" path only.
type Score struct {
	Z        float64 `json:"z"`
	Defined  bool    `json:"defined"`
	Boundary bool    `json:"boundary,omitempty"` // zero-variance baseline, price differs from mean
}

// AnomalousLow reports whether the score marks a below-mean anomaly at the
// given threshold magnitude. Only this direction triggers alerts; above-mean
// deviations are "overpriced" and reported but never dispatched.
func (s Score) AnomalousLow(threshold float64) bool {
	return s.Defined && s.Z <= -threshold
}

// AnomalousHigh reports an above-mean deviation at the given threshold magnitude.
func (s Score) AnomalousHigh(threshold float64) bool {
	return s.Defined && s.Z >= threshold
}
