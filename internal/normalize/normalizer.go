// Package normalize converts raw scraped records into canonical listings.
// Normalization is a pure transformation: every failure is returned as a
// typed rejection and counted by the caller, never thrown.
package normalize

import (
	"fmt"
	"strings"

	"dealradar/internal/domain"
	"dealradar/internal/idhash"
)

// defaultCurrency is assumed when the price text carries no symbol.
var defaultCurrency = map[domain.Platform]string{
	domain.PlatformCarousell:  "SGD",
	domain.PlatformEbay:       "USD",
	domain.PlatformSlickdeals: "USD",
}

// Normalize converts one raw record into a Listing scoped to queryKey, or
// rejects it with a reason code. observedAt is the run capture time in
// milliseconds and is the only non-derived field; the listing id is a pure
// function of the record's natural key.
func Normalize(raw domain.RawRecord, queryKey string, observedAt int64) (domain.Listing, *domain.Rejection) {
	if raw.Platform == "" {
		return domain.Listing{}, reject(queryKey, domain.RejectMalformed, "record has no platform")
	}

	key := naturalKey(raw)
	if key == "" {
		return domain.Listing{}, reject(queryKey, domain.RejectMissingID, "no item id and no absolute URL")
	}

	price, currency, ok := ParsePrice(raw.PriceText)
	if !ok {
		return domain.Listing{}, reject(queryKey, domain.RejectMissingPrice, fmt.Sprintf("unparsable price %q", raw.PriceText))
	}
	if currency == "" {
		currency = defaultCurrency[raw.Platform]
	}

	return domain.Listing{
		ID:         idhash.ComputeListingID(raw.Platform, key),
		QueryKey:   queryKey,
		Platform:   raw.Platform,
		Title:      strings.TrimSpace(raw.Title),
		Price:      price,
		Currency:   currency,
		URL:        strings.TrimSpace(raw.URL),
		Seller:     strings.TrimSpace(raw.Seller),
		Location:   strings.TrimSpace(raw.Location),
		ObservedAt: observedAt,
	}, nil
}

// naturalKey picks the stable platform key: the platform item id when
// present, otherwise the canonicalized listing URL.
func naturalKey(raw domain.RawRecord) string {
	if id := strings.TrimSpace(raw.ItemID); id != "" {
		return "item:" + id
	}
	if u := idhash.CanonicalURL(raw.URL); u != "" {
		return "url:" + u
	}
	return ""
}

func reject(queryKey string, reason domain.RejectReason, detail string) *domain.Rejection {
	return &domain.Rejection{QueryKey: queryKey, Reason: reason, Detail: detail}
}
