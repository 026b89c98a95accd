package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"dealradar/internal/domain"
)

func sampleAlert() domain.Alert {
	z := domain.Score{Z: -2.5, Defined: true}
	return domain.Alert{
		Listing: domain.Listing{
			ID:       "id-a",
			Platform: domain.PlatformCarousell,
			Title:    "ASRock X399 Taichi TR4",
			Price:    250,
			Currency: "SGD",
			URL:      "https://carousell.sg/p/id-a",
		},
		Reason: domain.AlertReasonAnomaly,
		Score:  &z,
	}
}

func TestDiscordDispatcher_Send(t *testing.T) {
	var payload webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d, err := NewDiscordDispatcher(srv.URL)
	if err != nil {
		t.Fatalf("NewDiscordDispatcher: %v", err)
	}

	if err := d.Send(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(payload.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(payload.Embeds))
	}
	e := payload.Embeds[0]
	if e.Title != "ASRock X399 Taichi TR4" {
		t.Errorf("title = %q", e.Title)
	}
	if !strings.Contains(e.Description, "S$250.00") || !strings.Contains(e.Description, "-2.50") {
		t.Errorf("description = %q", e.Description)
	}
	if e.Color != colorAnomaly {
		t.Errorf("color = %x, want %x", e.Color, colorAnomaly)
	}
}

func TestDiscordDispatcher_SendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d, err := NewDiscordDispatcher(srv.URL)
	if err != nil {
		t.Fatalf("NewDiscordDispatcher: %v", err)
	}

	if err := d.Send(context.Background(), sampleAlert()); err == nil {
		t.Fatal("expected error on 429 response")
	}
}

func TestDiscordDispatcher_ErrorNeverLeaksURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	secret := srv.URL + "/api/webhooks/123/token-abc"
	srv.Close() // force a transport error

	d, err := NewDiscordDispatcher(secret)
	if err != nil {
		t.Fatalf("NewDiscordDispatcher: %v", err)
	}

	err = d.Send(context.Background(), sampleAlert())
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), "token-abc") {
		t.Errorf("error leaks webhook url: %v", err)
	}
}

func TestDiscordDispatcher_TruncatesLongTitle(t *testing.T) {
	a := sampleAlert()
	a.Listing.Title = strings.Repeat("x", 300)

	e := buildEmbed(a)
	if n := utf8.RuneCountInString(e.Title); n != maxEmbedTitle {
		t.Errorf("title length = %d runes, want %d", n, maxEmbedTitle)
	}
}

func TestDiscordDispatcher_TruncatesOnRuneBoundary(t *testing.T) {
	a := sampleAlert()
	a.Listing.Title = strings.Repeat("技", 300)

	e := buildEmbed(a)
	if !utf8.ValidString(e.Title) {
		t.Fatalf("truncated title is not valid UTF-8: %q", e.Title)
	}
	if n := utf8.RuneCountInString(e.Title); n != maxEmbedTitle {
		t.Errorf("title length = %d runes, want %d", n, maxEmbedTitle)
	}
}

func TestDiscordDispatcher_EmptyURLRejected(t *testing.T) {
	if _, err := NewDiscordDispatcher(""); err == nil {
		t.Fatal("expected error for empty webhook url")
	}
}
