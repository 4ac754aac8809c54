package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

var (
	_ EventStore       = (*MemoryStorage)(nil)
	_ OpportunityStore = (*MemoryStorage)(nil)
)

// MemoryStorage is an in-memory EventStore/OpportunityStore. Used when no
// Postgres DSN is configured and throughout the tests. Same dedup semantics
// as the Postgres implementation.
type MemoryStorage struct {
	mu            sync.RWMutex
	events        map[string][]models.SourceEvent
	opportunities []memOpportunity

	// Now is replaced in tests.
	Now func() time.Time
}

type memOpportunity struct {
	opp models.Opportunity

	// seenAt is bumped on every store or refresh; the alert cooldown is
	// measured against it, not against the discovery time.
	seenAt time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		events: map[string][]models.SourceEvent{},
		Now:    time.Now,
	}
}

func (s *MemoryStorage) UpsertSourceEvent(ctx context.Context, ev *models.SourceEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.events[ev.SourceID]
	for i := range list {
		if list[i].ExternalID == ev.ExternalID {
			list[i] = *ev
			return nil
		}
	}
	s.events[ev.SourceID] = append(list, *ev)
	return nil
}

func (s *MemoryStorage) ReplaceSourceEvents(ctx context.Context, sourceID string, events []models.SourceEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[sourceID] = append([]models.SourceEvent(nil), events...)
	return nil
}

func (s *MemoryStorage) GetSourceEvents(ctx context.Context, sourceID string) ([]models.SourceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.SourceEvent(nil), s.events[sourceID]...), nil
}

func (s *MemoryStorage) GetAllSourceEvents(ctx context.Context) (map[string][]models.SourceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string][]models.SourceEvent, len(s.events))
	for sourceID, list := range s.events {
		result[sourceID] = append([]models.SourceEvent(nil), list...)
	}
	return result, nil
}

func (s *MemoryStorage) StoreOpportunity(ctx context.Context, opp *models.Opportunity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.opportunities) - 1; i >= 0; i-- {
		existing := &s.opportunities[i].opp
		if existing.CanonicalKey != opp.CanonicalKey || !existing.IsActive {
			continue
		}
		diff := opp.ProfitPercent - existing.ProfitPercent
		if diff < profitDedupTolerance && diff > -profitDedupTolerance {
			discovered := existing.DiscoveredAt
			*existing = *opp
			existing.DiscoveredAt = discovered
			s.opportunities[i].seenAt = opp.DiscoveredAt
			return false, nil
		}
		existing.IsActive = false
		break
	}

	s.opportunities = append(s.opportunities, memOpportunity{opp: *opp, seenAt: opp.DiscoveredAt})
	return true, nil
}

func (s *MemoryStorage) GetActiveOpportunities(ctx context.Context, limit int) ([]models.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	var out []models.Opportunity
	for i := range s.opportunities {
		if s.opportunities[i].opp.IsActive {
			out = append(out, s.opportunities[i].opp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ProfitPercent > out[j].ProfitPercent
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStorage) GetLastOpportunity(ctx context.Context, canonicalKey string) (float64, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.opportunities) - 1; i >= 0; i-- {
		if s.opportunities[i].opp.CanonicalKey == canonicalKey {
			return s.opportunities[i].opp.ProfitPercent, s.opportunities[i].seenAt, nil
		}
	}
	return 0, time.Time{}, nil
}

func (s *MemoryStorage) MarkInactiveByKey(ctx context.Context, canonicalKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.opportunities {
		if s.opportunities[i].opp.CanonicalKey == canonicalKey {
			s.opportunities[i].opp.IsActive = false
		}
	}
	return nil
}

func (s *MemoryStorage) MarkInactiveOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.Now().Add(-age)
	var n int64
	for i := range s.opportunities {
		opp := &s.opportunities[i].opp
		if opp.IsActive && opp.DiscoveredAt.Before(cutoff) {
			opp.IsActive = false
			n++
		}
	}
	return n, nil
}

func (s *MemoryStorage) Close() error { return nil }
