// Package feed supplies per-bookmaker event lists to the scanner. Sources are
// the system's only I/O on the input side; the core pipeline never fetches.
package feed

import (
	"context"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/config"
	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

// Source supplies one bookmaker's fully materialized event list per refresh
// cycle. Implementations own their timeouts, retries and backoff; the scanner
// receives lists, never streams.
type Source interface {
	Name() string
	FetchEvents(ctx context.Context) ([]models.SourceEvent, error)
}

// BuildSources constructs every configured source: one HTTP client per
// bookmaker entry, plus the simulated bookmakers when the simulator is
// enabled. Returns an empty slice when nothing is configured.
func BuildSources(cfg *config.FeedConfig) []Source {
	sources := make([]Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		sources = append(sources, NewHTTPSource(sc, cfg.UserAgent, cfg.Timeout))
	}
	if cfg.Simulator.Enabled {
		sources = append(sources, NewSimulatedSources(&cfg.Simulator)...)
	}
	return sources
}
