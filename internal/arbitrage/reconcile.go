package arbitrage

import (
	"log/slog"
	"sort"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

// Reconcile groups per-bookmaker events describing the same real-world match
// under one canonical key. Events whose outcome map is empty are skipped (they
// cannot contribute a price for any slot). Groups with fewer than two
// contributing bookmakers are dropped: no cross-source comparison is possible.
//
// Output order is the order of first appearance of each key in the input,
// which makes the whole pipeline deterministic for a fixed input order.
func Reconcile(events []models.SourceEvent) []models.ReconciledMatch {
	byKey := map[string]*models.ReconciledMatch{}
	var order []string

	for i := range events {
		ev := &events[i]
		if len(ev.Outcomes) == 0 {
			slog.Warn("Reconcile: skipping event without outcomes",
				"source_id", ev.SourceID,
				"external_id", ev.ExternalID,
				"title", ev.DisplayTitle)
			continue
		}

		key := models.KeyForEvent(ev)
		m, ok := byKey[key]
		if !ok {
			m = &models.ReconciledMatch{
				CanonicalKey:      key,
				DisplayTitle:      ev.DisplayTitle,
				Sport:             ev.Sport,
				League:            ev.League,
				StartTime:         ev.StartTime,
				PerSourceOutcomes: map[string]map[models.OutcomeSlot]models.OutcomeQuote{},
			}
			byKey[key] = m
			order = append(order, key)
		}

		if _, seen := m.PerSourceOutcomes[ev.SourceID]; !seen {
			m.Sources = append(m.Sources, ev.SourceID)
		} else {
			// One event list per source per cycle, so this should not happen;
			// when it does, the later event wins.
			slog.Warn("Reconcile: duplicate event from same source for key",
				"source_id", ev.SourceID,
				"external_id", ev.ExternalID,
				"canonical_key", key)
		}
		m.PerSourceOutcomes[ev.SourceID] = ev.Outcomes
	}

	matches := make([]models.ReconciledMatch, 0, len(order))
	for _, key := range order {
		m := byKey[key]
		if m.SourceCount() < 2 {
			continue
		}
		matches = append(matches, *m)
	}
	return matches
}

// FlattenBySource turns the fetch collaborator's per-source event lists into
// one slice with a fixed source iteration order (sorted by source id), so that
// reconciliation and tie-breaking are reproducible run to run.
func FlattenBySource(eventsBySource map[string][]models.SourceEvent) []models.SourceEvent {
	ids := make([]string, 0, len(eventsBySource))
	for id := range eventsBySource {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var flat []models.SourceEvent
	for _, id := range ids {
		flat = append(flat, eventsBySource[id]...)
	}
	return flat
}
