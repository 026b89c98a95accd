package domain

// PriceFilters bounds accepted prices for a target. Nil means unbounded.
type PriceFilters struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

// Accepts reports whether a price passes the filter.
func (f PriceFilters) Accepts(price float64) bool {
	if f.Min != nil && price < *f.Min {
		return false
	}
	if f.Max != nil && price > *f.Max {
		return false
	}
	return true
}

// Target is one configured search query. QueryKey scopes snapshots, baselines
// and alert records; no state is ever shared across query keys.
type Target struct {
	QueryKey           string
	SearchTerms        string
	Platform           Platform
	PriceFilters       PriceFilters
	MinBaselineSamples int
	AnomalyThreshold   float64 // z magnitude; only below-mean deviations alert
	BaselineWindow     BaselineWindow
}
