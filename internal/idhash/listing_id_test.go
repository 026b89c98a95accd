package idhash

import (
	"testing"

	"dealradar/internal/domain"
)

func TestComputeListingID_Deterministic(t *testing.T) {
	id1 := ComputeListingID(domain.PlatformCarousell, "https://www.carousell.sg/p/x399-taichi-123456")
	id2 := ComputeListingID(domain.PlatformCarousell, "https://www.carousell.sg/p/x399-taichi-123456")

	if id1 != id2 {
		t.Errorf("same input should produce same id: %s != %s", id1, id2)
	}
	if len(id1) != 64 {
		t.Errorf("expected 64-char hex hash, got %d chars", len(id1))
	}
}

func TestComputeListingID_DiffersByPlatform(t *testing.T) {
	key := "item-123456"
	id1 := ComputeListingID(domain.PlatformCarousell, key)
	id2 := ComputeListingID(domain.PlatformEbay, key)

	if id1 == id2 {
		t.Error("same natural key on different platforms must not collide")
	}
}

func TestComputeListingID_DiffersByKey(t *testing.T) {
	id1 := ComputeListingID(domain.PlatformCarousell, "item-1")
	id2 := ComputeListingID(domain.PlatformCarousell, "item-2")

	if id1 == id2 {
		t.Error("different natural keys must produce different ids")
	}
}

func TestCanonicalURL_StripsVolatileParts(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "tracking query",
			in:   "https://www.carousell.sg/p/x399-taichi-123456?t-source=search&t-id=abc",
			want: "https://www.carousell.sg/p/x399-taichi-123456",
		},
		{
			name: "fragment",
			in:   "https://www.carousell.sg/p/x399-taichi-123456#details",
			want: "https://www.carousell.sg/p/x399-taichi-123456",
		},
		{
			name: "trailing slash",
			in:   "https://www.carousell.sg/p/x399-taichi-123456/",
			want: "https://www.carousell.sg/p/x399-taichi-123456",
		},
		{
			name: "host case",
			in:   "HTTPS://WWW.Carousell.SG/p/x399-taichi-123456",
			want: "https://www.carousell.sg/p/x399-taichi-123456",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CanonicalURL(tc.in)
			if got != tc.want {
				t.Errorf("CanonicalURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCanonicalURL_RejectsRelative(t *testing.T) {
	if got := CanonicalURL("/p/x399-taichi-123456"); got != "" {
		t.Errorf("relative URL should canonicalize to empty, got %q", got)
	}
	if got := CanonicalURL("not a url"); got != "" {
		t.Errorf("garbage should canonicalize to empty, got %q", got)
	}
}

func TestCanonicalURL_EquivalentFormsShareID(t *testing.T) {
	a := ComputeListingID(domain.PlatformCarousell, CanonicalURL("https://www.carousell.sg/p/board-1?ref=feed"))
	b := ComputeListingID(domain.PlatformCarousell, CanonicalURL("https://www.carousell.sg/p/board-1/"))

	if a != b {
		t.Error("equivalent URL forms must map to the same listing id")
	}
}
