// Package arbitrage implements the scan pipeline: reconcile per-bookmaker
// events into matches, pick the best price per outcome, run the arbitrage
// math and rank what comes out.
package arbitrage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/feed"
	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/cache"
	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/config"
	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/storage"
)

// ScanSummary is the outcome of one refresh cycle, kept in an in-process
// snapshot so HTTP handlers serve the latest results without re-scanning.
type ScanSummary struct {
	ScannedAt     time.Time            `json:"scanned_at"`
	Sources       int                  `json:"sources"`
	Events        int                  `json:"events"`
	Matches       int                  `json:"matches"`
	Opportunities []models.Opportunity `json:"opportunities"`
}

// Scanner runs the full pipeline: fetch every source, persist the events,
// reconcile, select best prices, calculate and rank, store and alert.
// Can run on demand or asynchronously on a ticker.
type Scanner struct {
	cfg      *config.ScannerConfig
	sources  []feed.Source
	events   storage.EventStore
	opps     storage.OpportunityStore
	redis    *storage.RedisClient
	notifier *TelegramNotifier

	fetchTimeout time.Duration
	snapshot     *cache.Snapshot[ScanSummary]

	scanMu sync.Mutex // one scan at a time

	asyncTicker  *time.Ticker
	asyncMu      sync.RWMutex
	asyncStopped bool
	asyncCtx     context.Context
	asyncCancel  context.CancelFunc

	// now is replaced in tests.
	now func() time.Time
}

// NewScanner wires the pipeline. redis and notifier may be nil; the scanner
// then skips snapshot caching and alerting respectively.
func NewScanner(cfg *config.ScannerConfig, sources []feed.Source, events storage.EventStore, opps storage.OpportunityStore, redis *storage.RedisClient, notifier *TelegramNotifier, fetchTimeout time.Duration) *Scanner {
	return &Scanner{
		cfg:          cfg,
		sources:      sources,
		events:       events,
		opps:         opps,
		redis:        redis,
		notifier:     notifier,
		fetchTimeout: fetchTimeout,
		snapshot:     cache.New[ScanSummary](),
		now:          time.Now,
	}
}

// Start runs the scanner until ctx is cancelled, with the periodic loop
// active from the beginning.
func (s *Scanner) Start(ctx context.Context) error {
	s.asyncMu.Lock()
	s.asyncCtx, s.asyncCancel = context.WithCancel(ctx)
	s.asyncMu.Unlock()

	if err := s.StartAsync(); err != nil {
		return err
	}

	<-ctx.Done()
	s.StopAsync()
	return nil
}

// Scan runs one full refresh cycle and returns its summary. Concurrent calls
// serialize; the pipeline itself is single-threaded past the fetch stage.
func (s *Scanner) Scan(ctx context.Context) (ScanSummary, error) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	start := s.now()
	eventsBySource := feed.FetchAll(ctx, s.sources, s.fetchTimeout)
	if len(eventsBySource) == 0 {
		// Total fetch failure yields an empty cycle, not an error; the last
		// good snapshot stays in place for the HTTP surface.
		slog.Warn("no source returned events, skipping cycle")
		return ScanSummary{ScannedAt: start}, nil
	}

	totalEvents := 0
	for sourceID, events := range eventsBySource {
		totalEvents += len(events)
		if err := s.events.ReplaceSourceEvents(ctx, sourceID, events); err != nil {
			slog.Error("failed to persist source events",
				"source", sourceID,
				"error", err)
		}
		if s.redis != nil {
			if err := s.redis.StoreSourceEvents(ctx, sourceID, events); err != nil {
				slog.Error("failed to cache source events",
					"source", sourceID,
					"error", err)
			}
		}
	}

	matches := Reconcile(FlattenBySource(eventsBySource))

	entries := make([]Entry, 0, len(matches))
	for i := range matches {
		best, ok := SelectBest(&matches[i])
		if !ok {
			continue
		}
		odds := make(map[models.OutcomeSlot]float64, len(best))
		for slot, price := range best {
			odds[slot] = price.Odds
		}
		entries = append(entries, Entry{
			Match:  matches[i],
			Best:   best,
			Result: Calculate(odds, s.cfg.Stake),
		})
	}

	opportunities := Rank(entries, s.cfg.MinProfit, s.now)

	alertCount := 0
	for i := range opportunities {
		opp := &opportunities[i]
		shouldAlert := s.shouldAlert(ctx, opp)

		isNew, err := s.opps.StoreOpportunity(ctx, opp)
		if err != nil {
			slog.Error("failed to store opportunity",
				"match", opp.MatchTitle,
				"error", err)
		} else if isNew {
			slog.Info("new opportunity discovered",
				"match", opp.MatchTitle,
				"profit_percent", opp.ProfitPercent)
		}

		if shouldAlert && s.notifier != nil {
			if err := s.notifier.SendOpportunityAlert(ctx, opp, s.cfg.AlertThreshold); err != nil {
				slog.Error("failed to queue alert",
					"match", opp.MatchTitle,
					"error", err)
			} else {
				alertCount++
			}
		}
	}

	if s.cfg.InactiveAfter > 0 {
		if n, err := s.opps.MarkInactiveOlderThan(ctx, s.cfg.InactiveAfter); err != nil {
			slog.Error("failed to expire old opportunities", "error", err)
		} else if n > 0 {
			slog.Info("expired old opportunities", "count", n)
		}
	}

	summary := ScanSummary{
		ScannedAt:     start,
		Sources:       len(eventsBySource),
		Events:        totalEvents,
		Matches:       len(matches),
		Opportunities: opportunities,
	}
	s.snapshot.Replace(summary)

	slog.Info("scan cycle complete",
		"sources", summary.Sources,
		"events", summary.Events,
		"matches", summary.Matches,
		"opportunities", len(opportunities),
		"alerts", alertCount,
		"duration", s.now().Sub(start).String())
	return summary, nil
}

// shouldAlert decides whether an opportunity warrants a Telegram alert.
// The cooldown is measured against the last stored sighting, which every scan
// cycle refreshes: a persistent unchanged opportunity alerts once and then
// stays quiet until it disappears for longer than the cooldown, drops below
// the threshold and crosses it again, or improves by the configured minimum.
func (s *Scanner) shouldAlert(ctx context.Context, opp *models.Opportunity) bool {
	if s.notifier == nil || s.cfg.AlertThreshold <= 0 || opp.ProfitPercent < s.cfg.AlertThreshold {
		return false
	}

	lastProfit, lastSeen, err := s.opps.GetLastOpportunity(ctx, opp.CanonicalKey)
	if err != nil {
		slog.Error("failed to get last opportunity", "error", err)
		// Better a duplicate alert than a missed one.
		return true
	}
	if lastSeen.IsZero() {
		return true
	}
	if lastProfit < s.cfg.AlertThreshold {
		slog.Info("profit crossed alert threshold",
			"match", opp.MatchTitle,
			"previous", lastProfit,
			"current", opp.ProfitPercent)
		return true
	}
	if s.now().Sub(lastSeen) > s.cfg.AlertCooldown {
		return true
	}
	if opp.ProfitPercent-lastProfit >= s.cfg.AlertMinIncrease {
		slog.Info("profit increased within cooldown, re-alerting",
			"match", opp.MatchTitle,
			"previous", lastProfit,
			"current", opp.ProfitPercent)
		return true
	}
	return false
}

// LastSummary returns the most recent scan summary and whether one exists.
func (s *Scanner) LastSummary() (ScanSummary, bool) {
	summary, _, ok := s.snapshot.Get()
	return summary, ok
}

// SummaryStale reports whether the cached summary is older than the
// configured max age (or missing entirely).
func (s *Scanner) SummaryStale() bool {
	return s.snapshot.Stale(s.cfg.SnapshotMaxAge)
}

// StartAsync starts or restarts the periodic scan loop.
func (s *Scanner) StartAsync() error {
	s.asyncMu.Lock()
	defer s.asyncMu.Unlock()

	if s.asyncTicker != nil && !s.asyncStopped {
		slog.Info("scanner: periodic loop is already running")
		return nil
	}

	if s.asyncCancel != nil {
		s.asyncCancel()
	}
	s.asyncCtx, s.asyncCancel = context.WithCancel(context.Background())

	s.asyncStopped = false
	if s.asyncTicker != nil {
		s.asyncTicker.Stop()
	}
	s.asyncTicker = time.NewTicker(s.cfg.Interval)

	slog.Info("scanner: starting periodic loop", "interval", s.cfg.Interval.String())
	go s.runAsync(s.asyncCtx)
	return nil
}

func (s *Scanner) runAsync(ctx context.Context) {
	// Run immediately on start
	s.scanOnce(ctx)

	for {
		s.asyncMu.RLock()
		stopped := s.asyncStopped
		s.asyncMu.RUnlock()
		if stopped {
			slog.Info("scanner: periodic loop stopped by user")
			return
		}

		select {
		case <-ctx.Done():
			slog.Info("scanner: stopping periodic loop")
			return
		case <-s.asyncTicker.C:
			s.asyncMu.RLock()
			stopped = s.asyncStopped
			s.asyncMu.RUnlock()
			if stopped {
				slog.Info("scanner: periodic loop stopped by user")
				return
			}
			s.scanOnce(ctx)
		}
	}
}

func (s *Scanner) scanOnce(ctx context.Context) {
	if _, err := s.Scan(ctx); err != nil {
		slog.Error("scan cycle failed", "error", err)
	}
}

// StopAsync stops the periodic scan loop.
func (s *Scanner) StopAsync() {
	s.asyncMu.Lock()
	defer s.asyncMu.Unlock()

	if !s.asyncStopped && s.asyncTicker != nil {
		s.asyncStopped = true
		s.asyncTicker.Stop()
		if s.asyncCancel != nil {
			s.asyncCancel()
		}
		slog.Info("scanner: periodic loop stopped")
	}
}

// IsAsyncRunning reports whether the periodic loop is currently active.
func (s *Scanner) IsAsyncRunning() bool {
	s.asyncMu.RLock()
	defer s.asyncMu.RUnlock()
	return s.asyncTicker != nil && !s.asyncStopped
}
