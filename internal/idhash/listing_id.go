package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"dealradar/internal/domain"
)

// ComputeListingID computes a deterministic listing id using SHA256.
// Formula: SHA256(platform|natural_key)
// Returns hex-encoded hash (64 characters).
//
// The natural key is the platform item id when available, otherwise the
// canonicalized listing URL. The same real-world listing must always map to
// the same id across runs; dedup correctness depends on it.
func ComputeListingID(platform domain.Platform, naturalKey string) string {
	data := fmt.Sprintf("%s|%s", string(platform), naturalKey)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// CanonicalURL reduces a listing URL to its stable form: lowercased scheme
// and host, no query string, no fragment, no trailing slash. Marketplaces
// append volatile tracking parameters to the same listing between page
// loads; those must not change the id.
// Returns "" when the input is not an absolute URL.
func CanonicalURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || u.Scheme == "" {
		return ""
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}
