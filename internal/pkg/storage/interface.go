package storage

import (
	"context"
	"time"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

// EventStore persists per-bookmaker event lists between refresh cycles.
type EventStore interface {
	// UpsertSourceEvent inserts or updates one event keyed by
	// (source_id, external_id).
	UpsertSourceEvent(ctx context.Context, ev *models.SourceEvent) error

	// ReplaceSourceEvents atomically replaces everything stored for one
	// bookmaker with the given refresh cycle's list.
	ReplaceSourceEvents(ctx context.Context, sourceID string, events []models.SourceEvent) error

	// GetSourceEvents returns the stored list for one bookmaker.
	GetSourceEvents(ctx context.Context, sourceID string) ([]models.SourceEvent, error)

	// GetAllSourceEvents returns every bookmaker's stored list.
	GetAllSourceEvents(ctx context.Context) (map[string][]models.SourceEvent, error)

	Close() error
}

// OpportunityStore persists detected opportunities and owns the cross-cycle
// dedup rule: an opportunity for the same match at near-equal profit is an
// update of the existing row, not a new discovery.
type OpportunityStore interface {
	// StoreOpportunity saves an opportunity. Returns true when it counted as
	// newly discovered (no active row for the match within the profit
	// tolerance), false when it refreshed an existing one.
	StoreOpportunity(ctx context.Context, opp *models.Opportunity) (bool, error)

	// GetActiveOpportunities returns active opportunities ordered by profit
	// descending, at most limit.
	GetActiveOpportunities(ctx context.Context, limit int) ([]models.Opportunity, error)

	// GetLastOpportunity returns the most recent stored profit for a match
	// key and the time that sighting was stored or last refreshed, or
	// (0, zero time, nil) when none exists.
	GetLastOpportunity(ctx context.Context, canonicalKey string) (profit float64, lastSeen time.Time, err error)

	// MarkInactiveByKey deactivates every opportunity for a match key.
	MarkInactiveByKey(ctx context.Context, canonicalKey string) error

	// MarkInactiveOlderThan deactivates opportunities discovered before the
	// cutoff age and returns how many rows changed.
	MarkInactiveOlderThan(ctx context.Context, age time.Duration) (int64, error)

	Close() error
}
