package arbitrage

import (
	"math"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

// isValidOdd reports whether v is a usable decimal odd. Anything at or below
// 1.0 implies zero or negative return and must never win best-price selection.
func isValidOdd(v float64) bool {
	return v > 1.0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// requiredSlots derives the full slot set the match logically needs from the
// union of slots quoted by its bookmakers: a draw quote anywhere makes it a
// three-way market, player slots make it a two-way head-to-head, anything
// else is a two-way home/away market.
func requiredSlots(m *models.ReconciledMatch) []models.OutcomeSlot {
	union := map[models.OutcomeSlot]bool{}
	for _, outcomes := range m.PerSourceOutcomes {
		for slot := range outcomes {
			union[slot] = true
		}
	}
	switch {
	case union[models.SlotDraw]:
		return []models.OutcomeSlot{models.SlotHome, models.SlotDraw, models.SlotAway}
	case union[models.SlotPlayer1] || union[models.SlotPlayer2]:
		return []models.OutcomeSlot{models.SlotPlayer1, models.SlotPlayer2}
	default:
		return []models.OutcomeSlot{models.SlotHome, models.SlotAway}
	}
}

// SelectBest picks, per required outcome slot, the bookmaker offering the
// strictly greatest odds. Ties keep the earliest source in the match's
// contribution order. Returns false when any required slot has no valid quote:
// a match with a missing leg cannot be analyzed for arbitrage.
func SelectBest(m *models.ReconciledMatch) (models.BestPriceSet, bool) {
	best := models.BestPriceSet{}
	for _, slot := range requiredSlots(m) {
		var top models.BestPrice
		found := false
		for _, sourceID := range m.Sources {
			quote, ok := m.PerSourceOutcomes[sourceID][slot]
			if !ok || !isValidOdd(quote.Odds) {
				continue
			}
			if !found || quote.Odds > top.Odds {
				top = models.BestPrice{
					SourceID:    sourceID,
					DisplayName: quote.DisplayName,
					Odds:        quote.Odds,
				}
				found = true
			}
		}
		if !found {
			return nil, false
		}
		best[slot] = top
	}
	return best, true
}
