package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dealradar/internal/domain"
)

// Default configuration values.
const (
	DefaultFetchTimeout = 20 * time.Second
	DefaultMaxAttempts  = 3
	DefaultRetryDelay   = 1 * time.Second
	defaultUserAgent    = "dealradar/1.0"

	maxResponseBytes = 8 << 20
)

// HTTPJSONSource fetches records from a JSON search API.
//
// Expected endpoint:
//
//	GET {base}/api/search?q=...
//	  -> either {"records":[...]} or a bare array
//
// Site-specific scraping (browser automation, TLS impersonation) stays in an
// external collaborator that exposes this shape.
type HTTPJSONSource struct {
	baseURL   string
	client    *http.Client
	userAgent string
	retry     RetryConfig
	logger    zerolog.Logger
}

// HTTPJSONOptions configures HTTPJSONSource.
type HTTPJSONOptions struct {
	BaseURL     string
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
	// ProxyURL is a credential-bearing connection string. It is used to build
	// the transport and is never logged or echoed in errors.
	ProxyURL string
	Logger   zerolog.Logger
}

// NewHTTPJSONSource creates a source for the given search API.
func NewHTTPJSONSource(opts HTTPJSONOptions) (*HTTPJSONSource, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url")
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &HTTPJSONSource{
		baseURL:   strings.TrimRight(base, "/"),
		client:    &http.Client{Timeout: timeout, Transport: transport},
		userAgent: userAgent,
		retry:     RetryConfig{MaxAttempts: attempts, BaseDelay: retryDelay, Logger: opts.Logger},
		logger:    opts.Logger,
	}, nil
}

// Compile-time interface check.
var _ Fetcher = (*HTTPJSONSource)(nil)

// wireRecord is the JSON shape search APIs return per listing.
type wireRecord struct {
	ItemID    string `json:"item_id,omitempty"`
	URL       string `json:"url,omitempty"`
	Title     string `json:"title"`
	PriceText string `json:"price_text,omitempty"`
	Price     string `json:"price,omitempty"`
	Seller    string `json:"seller,omitempty"`
	Location  string `json:"location,omitempty"`
}

func (w wireRecord) toRaw(platform domain.Platform) domain.RawRecord {
	priceText := w.PriceText
	if priceText == "" {
		priceText = w.Price
	}
	return domain.RawRecord{
		Platform:  platform,
		ItemID:    w.ItemID,
		URL:       w.URL,
		Title:     w.Title,
		PriceText: priceText,
		Seller:    w.Seller,
		Location:  w.Location,
	}
}

// Fetch queries the search API for the target's search terms.
func (s *HTTPJSONSource) Fetch(ctx context.Context, target domain.Target) ([]domain.RawRecord, error) {
	endpoint := fmt.Sprintf("%s/api/search?q=%s", s.baseURL, url.QueryEscape(target.SearchTerms))

	var wires []wireRecord
	err := s.retry.Do(ctx, "search "+target.QueryKey, func() error {
		var err error
		wires, err = s.search(ctx, endpoint)
		return err
	})
	if err != nil {
		return nil, err
	}

	records := make([]domain.RawRecord, 0, len(wires))
	for _, w := range wires {
		records = append(records, w.toRaw(target.Platform))
	}

	s.logger.Debug().
		Str("query_key", target.QueryKey).
		Int("records", len(records)).
		Msg("fetched search results")

	return records, nil
}

func (s *HTTPJSONSource) search(ctx context.Context, endpoint string) ([]wireRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search responded %d", resp.StatusCode)
	}

	// Accept both {"records":[...]} and a bare array.
	var wrapped struct {
		Records []wireRecord `json:"records"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Records != nil {
		return wrapped.Records, nil
	}

	var bare []wireRecord
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return bare, nil
}
