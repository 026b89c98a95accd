package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dealradar/internal/domain"
)

// Default configuration values.
const (
	DefaultSendTimeout = 10 * time.Second

	maxEmbedTitle = 100

	colorAnomaly = 0xFF5733
	colorNew     = 0x33FF57
)

// DiscordDispatcher delivers alerts as Discord webhook embeds. The webhook
// URL is a credential: it is held in memory only and never appears in
// errors or logs.
type DiscordDispatcher struct {
	webhookURL string
	client     *http.Client
}

// DiscordOption configures DiscordDispatcher.
type DiscordOption func(*DiscordDispatcher)

// WithClient sets a custom http.Client.
func WithClient(client *http.Client) DiscordOption {
	return func(d *DiscordDispatcher) {
		d.client = client
	}
}

// NewDiscordDispatcher creates a dispatcher for the given webhook URL.
func NewDiscordDispatcher(webhookURL string, opts ...DiscordOption) (*DiscordDispatcher, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("discord webhook url is empty")
	}
	d := &DiscordDispatcher{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: DefaultSendTimeout},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Compile-time interface check.
var _ Dispatcher = (*DiscordDispatcher)(nil)

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp"`
	Fields      []embedField `json:"fields,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Send posts one alert as a rich embed. Discord answers 200 or 204 on
// success.
func (d *DiscordDispatcher) Send(ctx context.Context, alert domain.Alert) error {
	body, err := json.Marshal(webhookPayload{Embeds: []embed{buildEmbed(alert)}})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", sanitizeURLError(err, d.webhookURL))
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}

func buildEmbed(alert domain.Alert) embed {
	l := alert.Listing

	title := l.Title
	// Discord's limit counts characters; byte slicing could split a
	// multi-byte rune in a scraped title.
	if runes := []rune(title); len(runes) > maxEmbedTitle {
		title = string(runes[:maxEmbedTitle])
	}

	desc := fmt.Sprintf("**Price:** %s%.2f", currencySymbol(l.Currency), l.Price)
	if alert.Score != nil && alert.Score.Defined {
		desc += fmt.Sprintf(" | **Z-Score:** %.2f", alert.Score.Z)
	}

	color := colorNew
	if alert.Reason == domain.AlertReasonAnomaly {
		color = colorAnomaly
	}

	return embed{
		Title:       title,
		Description: desc,
		Color:       color,
		Timestamp:   time.UnixMilli(l.ObservedAt).UTC().Format(time.RFC3339),
		Fields: []embedField{
			{Name: "Source", Value: titleCase(string(l.Platform)), Inline: true},
			{Name: "Link", Value: fmt.Sprintf("[View Listing](%s)", l.URL), Inline: true},
		},
	}
}

func titleCase(s string) string {
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func currencySymbol(currency string) string {
	switch currency {
	case "SGD":
		return "S$"
	case "USD":
		return "$"
	case "EUR":
		return "€"
	case "GBP":
		return "£"
	default:
		return currency + " "
	}
}

// sanitizeURLError strips the webhook URL that net/http bakes into
// transport errors before the error reaches any log line.
func sanitizeURLError(err error, secret string) error {
	msg := strings.ReplaceAll(err.Error(), secret, "[webhook]")
	return fmt.Errorf("%s", msg)
}
