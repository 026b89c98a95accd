package domain

// PriceObservation is one (run, listing) price point for the analytics sink.
type PriceObservation struct {
	RunID      string
	QueryKey   string
	ListingID  string
	Price      float64
	Currency   string
	ObservedAt int64 // Unix timestamp in milliseconds
}

// PriceTrendPoint is one UTC day of aggregated price observations.
type PriceTrendPoint struct {
	Day      string // YYYY-MM-DD
	QueryKey string
	Count    int
	Mean     float64
	Min      float64
	Max      float64
}
