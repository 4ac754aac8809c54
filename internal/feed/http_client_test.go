package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/config"
	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

func TestHTTPSource_FetchEvents(t *testing.T) {
	var gotUserAgent, gotAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			http.NotFound(w, r)
			return
		}
		gotUserAgent = r.Header.Get("User-Agent")
		gotAPIKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{
				"id": "ev-1",
				"sport": "football",
				"league": "Premier League",
				"title": "Liverpool vs Man City",
				"start_time": "2026-09-05T15:00:00Z",
				"outcomes": [
					{"slot": "home", "name": "Liverpool", "odds": 2.5},
					{"slot": "draw", "name": "Draw", "odds": 3.4},
					{"slot": "away", "name": "Man City", "odds": 2.95}
				]
			}
		]`))
	}))
	defer server.Close()

	src := NewHTTPSource(config.SourceConfig{
		Name:    "bookmaker-a",
		BaseURL: server.URL,
		Headers: map[string]string{"X-Api-Key": "secret"},
	}, "test-agent/1.0", 5*time.Second)

	events, err := src.FetchEvents(context.Background())
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}

	if gotUserAgent != "test-agent/1.0" {
		t.Errorf("User-Agent = %q", gotUserAgent)
	}
	if gotAPIKey != "secret" {
		t.Errorf("X-Api-Key = %q", gotAPIKey)
	}

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.SourceID != "bookmaker-a" || ev.ExternalID != "ev-1" {
		t.Errorf("event identity = %s/%s", ev.SourceID, ev.ExternalID)
	}
	if len(ev.Outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(ev.Outcomes))
	}
	if got := ev.Outcomes[models.SlotDraw].Odds; got != 3.4 {
		t.Errorf("draw odds = %.2f, want 3.4", got)
	}
}

func TestHTTPSource_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	src := NewHTTPSource(config.SourceConfig{
		Name:    "flaky",
		BaseURL: server.URL,
		Retries: 3,
	}, "", 5*time.Second)

	events, err := src.FetchEvents(context.Background())
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Errorf("events = %v, want empty slice", events)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server called %d times, want 3", got)
	}
}

func TestHTTPSource_ExhaustedRetriesReturnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	src := NewHTTPSource(config.SourceConfig{
		Name:    "down",
		BaseURL: server.URL,
		Retries: 1,
	}, "", 5*time.Second)

	if _, err := src.FetchEvents(context.Background()); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
}

func TestFetchAll_SkipsFailingSources(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": "ev-1", "title": "A vs B", "outcomes": []}]`))
	}))
	defer server.Close()

	good := NewHTTPSource(config.SourceConfig{Name: "good", BaseURL: server.URL}, "", 5*time.Second)
	bad := NewHTTPSource(config.SourceConfig{Name: "bad", BaseURL: "http://127.0.0.1:1"}, "", time.Second)

	results := FetchAll(context.Background(), []Source{good, bad}, 5*time.Second)

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if _, ok := results["good"]; !ok {
		t.Errorf("missing result for good source: %v", results)
	}
}
