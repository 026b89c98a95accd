package domain

// Platform identifies a source marketplace.
type Platform string

const (
	PlatformCarousell  Platform = "carousell"
	PlatformEbay       Platform = "ebay"
	PlatformSlickdeals Platform = "slickdeals"
)

// RawRecord is one unprocessed scraped record as produced by a Fetcher.
// Fields are free-form text straight from the source page or API payload.
type RawRecord struct {
	Platform  Platform `json:"platform"`
	ItemID    string   `json:"item_id,omitempty"` // platform-native listing id, if known
	URL       string   `json:"url,omitempty"`
	Title     string   `json:"title"`
	PriceText string   `json:"price_text"`
	Seller    string   `json:"seller,omitempty"`
	Location  string   `json:"location,omitempty"`
}

// Listing is one normalized observation of a marketplace item at a point in time.
// Immutable once created; a changed listing is a new Listing value with the same ID.
type Listing struct {
	ID         string   `json:"id"` // deterministic hash of the platform natural key
	QueryKey   string   `json:"query_key"`
	Platform   Platform `json:"platform"`
	Title      string   `json:"title"`
	Price      float64  `json:"price"` // always >= 0; unparsable prices never enter the pipeline
	Currency   string   `json:"currency"`
	URL        string   `json:"url,omitempty"`
	Seller     string   `json:"seller,omitempty"`
	Location   string   `json:"location,omitempty"`
	ObservedAt int64    `json:"observed_at"` // Unix timestamp in milliseconds, time of the capturing run
}

// RejectReason classifies why the normalizer refused a raw record.
type RejectReason string

const (
	RejectMissingPrice RejectReason = "missing_price"
	RejectMissingID    RejectReason = "missing_id"
	RejectMalformed    RejectReason = "malformed"
)

// Rejection reports one dropped raw record. Rejections are counted per run,
// never fatal.
type Rejection struct {
	QueryKey string
	Reason   RejectReason
	Detail   string
}
