package normalize

import (
	"testing"

	"dealradar/internal/domain"
)

const testObservedAt = int64(1704067200000)

func validRaw() domain.RawRecord {
	return domain.RawRecord{
		Platform:  domain.PlatformCarousell,
		URL:       "https://www.carousell.sg/p/x399-taichi-123456?ref=search",
		Title:     "ASRock X399 Taichi",
		PriceText: "S$350",
		Seller:    "boardseller",
		Location:  "Singapore",
	}
}

func TestNormalize_ValidRecord(t *testing.T) {
	listing, rej := Normalize(validRaw(), "x399-carousell", testObservedAt)
	if rej != nil {
		t.Fatalf("unexpected rejection: %+v", rej)
	}

	if listing.Price != 350 {
		t.Errorf("price = %v, want 350", listing.Price)
	}
	if listing.Currency != "SGD" {
		t.Errorf("currency = %q, want SGD", listing.Currency)
	}
	if listing.QueryKey != "x399-carousell" {
		t.Errorf("query_key = %q", listing.QueryKey)
	}
	if listing.ObservedAt != testObservedAt {
		t.Errorf("observed_at = %d, want %d", listing.ObservedAt, testObservedAt)
	}
	if len(listing.ID) != 64 {
		t.Errorf("id should be a 64-char hash, got %q", listing.ID)
	}
}

func TestNormalize_IDStableAcrossRescrapes(t *testing.T) {
	// Same listing re-scraped later: different tracking params, different
	// observed_at, changed price. The id must not move.
	first := validRaw()
	second := validRaw()
	second.URL = "https://www.carousell.sg/p/x399-taichi-123456?ref=feed&pos=3"
	second.PriceText = "S$320"

	l1, rej := Normalize(first, "x399-carousell", testObservedAt)
	if rej != nil {
		t.Fatalf("unexpected rejection: %+v", rej)
	}
	l2, rej := Normalize(second, "x399-carousell", testObservedAt+3600_000)
	if rej != nil {
		t.Fatalf("unexpected rejection: %+v", rej)
	}

	if l1.ID != l2.ID {
		t.Errorf("re-scraped listing changed id: %s -> %s", l1.ID, l2.ID)
	}
	if l2.Price != 320 {
		t.Errorf("second observation price = %v, want 320", l2.Price)
	}
}

func TestNormalize_ItemIDPreferredOverURL(t *testing.T) {
	withID := validRaw()
	withID.ItemID = "123456"

	sameIDOtherURL := withID
	sameIDOtherURL.URL = "https://www.carousell.sg/p/completely-renamed-listing-123456"

	l1, _ := Normalize(withID, "q", testObservedAt)
	l2, _ := Normalize(sameIDOtherURL, "q", testObservedAt)

	if l1.ID != l2.ID {
		t.Error("listings sharing a platform item id must share a listing id")
	}
}

func TestNormalize_MissingPrice(t *testing.T) {
	for _, priceText := range []string{"Free", "", "contact seller"} {
		raw := validRaw()
		raw.PriceText = priceText

		_, rej := Normalize(raw, "q", testObservedAt)
		if rej == nil {
			t.Fatalf("price %q should be rejected", priceText)
		}
		if rej.Reason != domain.RejectMissingPrice {
			t.Errorf("price %q reason = %s, want %s", priceText, rej.Reason, domain.RejectMissingPrice)
		}
	}
}

func TestNormalize_MissingID(t *testing.T) {
	raw := validRaw()
	raw.URL = ""
	raw.ItemID = ""

	_, rej := Normalize(raw, "q", testObservedAt)
	if rej == nil {
		t.Fatal("record without id or URL should be rejected")
	}
	if rej.Reason != domain.RejectMissingID {
		t.Errorf("reason = %s, want %s", rej.Reason, domain.RejectMissingID)
	}
}

func TestNormalize_Malformed(t *testing.T) {
	raw := validRaw()
	raw.Platform = ""

	_, rej := Normalize(raw, "q", testObservedAt)
	if rej == nil {
		t.Fatal("record without platform should be rejected")
	}
	if rej.Reason != domain.RejectMalformed {
		t.Errorf("reason = %s, want %s", rej.Reason, domain.RejectMalformed)
	}
}
