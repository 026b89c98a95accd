package normalize

import (
	"strconv"
	"strings"
)

// currencyPrefixes maps price-text prefixes to ISO currency codes.
// Ordered longest-first at lookup so "S$" wins over "$".
var currencyPrefixes = []struct {
	prefix   string
	currency string
}{
	{"S$", "SGD"},
	{"US$", "USD"},
	{"SGD", "SGD"},
	{"USD", "USD"},
	{"RM", "MYR"},
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
}

// ParsePrice extracts a non-negative amount and currency code from free-form
// price text. Tolerates currency symbols, thousands separators and ranges;
// on a range the lower bound is taken (policy: ranges advertise "from" prices,
// the lower bound is the one actually asked).
// Returns ok=false when no amount can be derived ("Free", empty, no digits).
func ParsePrice(text string) (amount float64, currency string, ok bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, "", false
	}

	for _, cp := range currencyPrefixes {
		if strings.HasPrefix(s, cp.prefix) {
			currency = cp.currency
			s = strings.TrimSpace(strings.TrimPrefix(s, cp.prefix))
			break
		}
	}

	num := firstNumericToken(s)
	if num == "" {
		return 0, "", false
	}

	num = strings.ReplaceAll(num, ",", "")
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v < 0 {
		return 0, "", false
	}
	return v, currency, true
}

// firstNumericToken returns the first run of digits, commas and at most one
// decimal point. On range text ("250-300", "250 – 300") this is the lower
// bound by construction.
func firstNumericToken(s string) string {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}

	var b strings.Builder
	sawDot := false
	for _, r := range s[start:] {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',':
			b.WriteRune(r)
		case r == '.' && !sawDot:
			sawDot = true
			b.WriteRune(r)
		default:
			return strings.TrimRight(b.String(), ".,")
		}
	}
	return strings.TrimRight(b.String(), ".,")
}
