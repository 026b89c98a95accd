package domain

// AlertReason distinguishes why a listing was forwarded.
type AlertReason string

const (
	AlertReasonNew     AlertReason = "new"
	AlertReasonAnomaly AlertReason = "anomaly"
)

// AlertRecord is one forwarded listing, persisted alongside snapshots to
// enforce at-most-once alerting across runs. Price is the price at alert
// time: a later price change makes the listing eligible again.
type AlertRecord struct {
	ListingID string      `json:"listing_id"`
	QueryKey  string      `json:"query_key"`
	RunID     string      `json:"run_id"`
	Reason    AlertReason `json:"reason"`
	Price     float64     `json:"price"`
	Score     *Score      `json:"score,omitempty"` // nil when alerted via the new path without a defined score
	AlertedAt int64       `json:"alerted_at"`      // Unix timestamp in milliseconds
	Delivered bool        `json:"delivered"`       // false when dispatch failed; the id is still consumed
}

// Alert is one selected listing on its way to the dispatcher.
type Alert struct {
	Listing Listing
	Reason  AlertReason
	Score   *Score
}
