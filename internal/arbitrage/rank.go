package arbitrage

import (
	"sort"
	"time"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

// Entry pairs a reconciled match with its best-price set and the arbitrage
// math for it; the input unit of ranking.
type Entry struct {
	Match  models.ReconciledMatch
	Best   models.BestPriceSet
	Result models.ArbitrageResult
}

// slotOrder fixes leg ordering inside an opportunity for stable output.
var slotOrder = map[models.OutcomeSlot]int{
	models.SlotHome:    0,
	models.SlotDraw:    1,
	models.SlotAway:    2,
	models.SlotPlayer1: 3,
	models.SlotPlayer2: 4,
}

// Rank filters entries to those at or above minProfit and orders them by
// profit percentage descending. The sort is stable, so equal-profit entries
// keep their upstream (reconciliation) order. minProfit may be negative to
// surface near-miss combinations for diagnostics.
//
// Deduplication across refresh cycles is deliberately not done here; the
// persistence collaborator decides what counts as "new".
func Rank(entries []Entry, minProfit float64, now func() time.Time) []models.Opportunity {
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Result.ProfitPercent >= minProfit {
			kept = append(kept, e)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Result.ProfitPercent > kept[j].Result.ProfitPercent
	})

	discovered := now()
	opportunities := make([]models.Opportunity, 0, len(kept))
	for _, e := range kept {
		opportunities = append(opportunities, models.Opportunity{
			MatchTitle:    e.Match.DisplayTitle,
			CanonicalKey:  e.Match.CanonicalKey,
			Sport:         e.Match.Sport,
			League:        e.Match.League,
			StartTime:     e.Match.StartTime,
			ProfitPercent: e.Result.ProfitPercent,
			Investment:    e.Result.TotalInvestment,
			ExpectedRet:   e.Result.ExpectedReturn,
			Legs:          buildLegs(e.Best, e.Result),
			IsActive:      true,
			DiscoveredAt:  discovered,
		})
	}
	return opportunities
}

func buildLegs(best models.BestPriceSet, result models.ArbitrageResult) []models.Leg {
	legs := make([]models.Leg, 0, len(best))
	for slot, price := range best {
		legs = append(legs, models.Leg{
			SourceID:     price.SourceID,
			Slot:         slot,
			OutcomeLabel: price.DisplayName,
			Odds:         price.Odds,
			Stake:        result.StakePerSlot[slot],
		})
	}
	sort.Slice(legs, func(i, j int) bool {
		return slotOrder[legs[i].Slot] < slotOrder[legs[j].Slot]
	})
	return legs
}
