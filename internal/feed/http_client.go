package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/config"
	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

// HTTPSource fetches a bookmaker's event list from its JSON feed endpoint.
// Bookmakers that rotate their public hostname expose a mirror URL; the real
// feed host is resolved once per process through a headless browser and
// cached.
type HTTPSource struct {
	name      string
	baseURL   string
	mirrorURL string
	headers   map[string]string
	userAgent string
	retries   int
	client    *http.Client

	mu          sync.Mutex
	resolvedURL string
}

func NewHTTPSource(sc config.SourceConfig, userAgent string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSource{
		name:      sc.Name,
		baseURL:   strings.TrimSuffix(sc.BaseURL, "/"),
		mirrorURL: sc.MirrorURL,
		headers:   sc.Headers,
		userAgent: userAgent,
		retries:   sc.Retries,
		client:    &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Name() string { return s.name }

// eventPayload is the wire format shared by the feed endpoints.
type eventPayload struct {
	ID        string           `json:"id"`
	Sport     string           `json:"sport"`
	League    string           `json:"league"`
	Title     string           `json:"title"`
	StartTime time.Time        `json:"start_time"`
	Outcomes  []outcomePayload `json:"outcomes"`
}

type outcomePayload struct {
	Slot string  `json:"slot"`
	Name string  `json:"name"`
	Odds float64 `json:"odds"`
}

func (s *HTTPSource) FetchEvents(ctx context.Context) ([]models.SourceEvent, error) {
	base, err := s.feedURL(ctx)
	if err != nil {
		return nil, err
	}

	var payload []eventPayload
	if err := s.getJSON(ctx, base+"/events", &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch events from %s: %w", s.name, err)
	}

	events := make([]models.SourceEvent, 0, len(payload))
	for _, p := range payload {
		ev := models.SourceEvent{
			SourceID:     s.name,
			ExternalID:   p.ID,
			Sport:        p.Sport,
			League:       p.League,
			DisplayTitle: p.Title,
			StartTime:    p.StartTime,
			Outcomes:     map[models.OutcomeSlot]models.OutcomeQuote{},
		}
		for _, o := range p.Outcomes {
			slot := models.OutcomeSlot(o.Slot)
			ev.Outcomes[slot] = models.OutcomeQuote{
				Slot:        slot,
				DisplayName: o.Name,
				Odds:        o.Odds,
			}
		}
		events = append(events, ev)
	}
	return events, nil
}

// getJSON performs a GET with retries and decodes the JSON response. Retries
// back off linearly; the last error is returned.
func (s *HTTPSource) getJSON(ctx context.Context, url string, out any) error {
	attempts := s.retries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
			slog.Debug("retrying feed request",
				"source", s.name,
				"url", url,
				"attempt", attempt+1)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if s.userAgent != "" {
			req.Header.Set("User-Agent", s.userAgent)
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range s.headers {
			req.Header.Set(k, v)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			continue
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to decode response: %w", err)
			continue
		}
		return nil
	}
	return lastErr
}

// feedURL returns the base URL to fetch from, resolving the mirror redirect
// on first use.
func (s *HTTPSource) feedURL(ctx context.Context) (string, error) {
	if s.mirrorURL == "" {
		return s.baseURL, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolvedURL != "" {
		return s.resolvedURL, nil
	}

	resolved, err := s.resolveMirror(ctx)
	if err != nil {
		if s.baseURL != "" {
			slog.Warn("mirror resolution failed, using base URL",
				"source", s.name,
				"error", err)
			return s.baseURL, nil
		}
		return "", fmt.Errorf("failed to resolve mirror for %s: %w", s.name, err)
	}

	slog.Info("resolved feed mirror", "source", s.name, "url", resolved)
	s.resolvedURL = resolved
	return resolved, nil
}

// resolveMirror loads the mirror page in a headless browser and captures the
// URL it lands on after the redirect chain settles. Plain HTTP redirects are
// not enough here: the mirrors redirect via JavaScript.
func (s *HTTPSource) resolveMirror(ctx context.Context) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, 30*time.Second)
	defer cancelTimeout()

	var finalURL string
	err := chromedp.Run(timeoutCtx,
		chromedp.Navigate(s.mirrorURL),
		chromedp.Sleep(3*time.Second),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return "", fmt.Errorf("failed to load mirror page: %w", err)
	}
	if finalURL == "" || finalURL == "about:blank" {
		return "", fmt.Errorf("mirror page returned no final URL")
	}
	return strings.TrimSuffix(finalURL, "/"), nil
}
