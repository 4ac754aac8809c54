package arbitrage

import (
	"testing"
	"time"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

func entryWithProfit(key string, profit float64) Entry {
	return Entry{
		Match: models.ReconciledMatch{
			CanonicalKey: key,
			DisplayTitle: key,
		},
		Best: models.BestPriceSet{
			models.SlotHome: {SourceID: "alpha", DisplayName: "H", Odds: 3.0},
			models.SlotDraw: {SourceID: "beta", DisplayName: "Draw", Odds: 4.0},
			models.SlotAway: {SourceID: "alpha", DisplayName: "A", Odds: 4.0},
		},
		Result: models.ArbitrageResult{
			IsArbitrage:   profit > 0,
			ProfitPercent: profit,
			StakePerSlot: map[models.OutcomeSlot]float64{
				models.SlotHome: 40,
				models.SlotDraw: 30,
				models.SlotAway: 30,
			},
			TotalInvestment: 100,
			ExpectedReturn:  100 + profit,
		},
	}
}

func TestRank_FiltersAndOrdersByProfit(t *testing.T) {
	now := func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	entries := []Entry{
		entryWithProfit("c vs d", 1.2),
		entryWithProfit("a vs b", 4.5),
		entryWithProfit("e vs f", -2.0),
		entryWithProfit("g vs h", 0.4),
	}

	opportunities := Rank(entries, 0.5, now)

	if len(opportunities) != 2 {
		t.Fatalf("got %d opportunities, want 2", len(opportunities))
	}
	if opportunities[0].CanonicalKey != "a vs b" || opportunities[1].CanonicalKey != "c vs d" {
		t.Errorf("order = [%s, %s], want [a vs b, c vs d]",
			opportunities[0].CanonicalKey, opportunities[1].CanonicalKey)
	}
	for _, opp := range opportunities {
		if !opp.IsActive {
			t.Errorf("%s: IsActive = false, want true", opp.CanonicalKey)
		}
		if !opp.DiscoveredAt.Equal(now()) {
			t.Errorf("%s: DiscoveredAt = %v, want %v", opp.CanonicalKey, opp.DiscoveredAt, now())
		}
	}
}

func TestRank_NegativeThresholdKeepsNearMisses(t *testing.T) {
	now := func() time.Time { return time.Unix(0, 0) }
	entries := []Entry{entryWithProfit("a vs b", -3.3)}

	opportunities := Rank(entries, -5.0, now)

	if len(opportunities) != 1 {
		t.Fatalf("got %d opportunities, want 1", len(opportunities))
	}
	if opportunities[0].ProfitPercent != -3.3 {
		t.Errorf("ProfitPercent = %.2f, want -3.3", opportunities[0].ProfitPercent)
	}
}

func TestRank_LegsOrderedBySlot(t *testing.T) {
	now := func() time.Time { return time.Unix(0, 0) }
	opportunities := Rank([]Entry{entryWithProfit("a vs b", 2.0)}, 0, now)

	if len(opportunities) != 1 {
		t.Fatalf("got %d opportunities, want 1", len(opportunities))
	}
	legs := opportunities[0].Legs
	if len(legs) != 3 {
		t.Fatalf("got %d legs, want 3", len(legs))
	}
	wantSlots := []models.OutcomeSlot{models.SlotHome, models.SlotDraw, models.SlotAway}
	for i, want := range wantSlots {
		if legs[i].Slot != want {
			t.Errorf("legs[%d].Slot = %s, want %s", i, legs[i].Slot, want)
		}
	}
	if legs[0].Stake != 40 || legs[1].Stake != 30 || legs[2].Stake != 30 {
		t.Errorf("leg stakes = %.0f/%.0f/%.0f, want 40/30/30", legs[0].Stake, legs[1].Stake, legs[2].Stake)
	}
}

func TestRank_EqualProfitKeepsInputOrder(t *testing.T) {
	now := func() time.Time { return time.Unix(0, 0) }
	entries := []Entry{
		entryWithProfit("first vs second", 2.0),
		entryWithProfit("third vs fourth", 2.0),
	}

	opportunities := Rank(entries, 0, now)

	if len(opportunities) != 2 {
		t.Fatalf("got %d opportunities, want 2", len(opportunities))
	}
	if opportunities[0].CanonicalKey != "first vs second" {
		t.Errorf("stable sort violated: first = %s", opportunities[0].CanonicalKey)
	}
}
