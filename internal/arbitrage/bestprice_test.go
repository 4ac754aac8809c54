package arbitrage

import (
	"testing"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

func matchWithOutcomes(perSource map[string]map[models.OutcomeSlot]models.OutcomeQuote, order ...string) *models.ReconciledMatch {
	return &models.ReconciledMatch{
		CanonicalKey:      "a vs b",
		DisplayTitle:      "A vs B",
		Sources:           order,
		PerSourceOutcomes: perSource,
	}
}

func TestSelectBest_PicksHighestPerSlot(t *testing.T) {
	m := matchWithOutcomes(map[string]map[models.OutcomeSlot]models.OutcomeQuote{
		"alpha": threeWayOutcomes(2.50, 3.30, 2.80, "A", "B"),
		"beta":  threeWayOutcomes(2.45, 3.40, 2.95, "A", "B"),
	}, "alpha", "beta")

	best, ok := SelectBest(m)
	if !ok {
		t.Fatal("SelectBest returned false")
	}

	tests := []struct {
		slot   models.OutcomeSlot
		source string
		odds   float64
	}{
		{models.SlotHome, "alpha", 2.50},
		{models.SlotDraw, "beta", 3.40},
		{models.SlotAway, "beta", 2.95},
	}
	for _, tt := range tests {
		got := best[tt.slot]
		if got.SourceID != tt.source || got.Odds != tt.odds {
			t.Errorf("best[%s] = %s@%.2f, want %s@%.2f", tt.slot, got.SourceID, got.Odds, tt.source, tt.odds)
		}
	}
}

func TestSelectBest_TieKeepsEarliestSource(t *testing.T) {
	m := matchWithOutcomes(map[string]map[models.OutcomeSlot]models.OutcomeQuote{
		"alpha": threeWayOutcomes(2.50, 3.30, 2.80, "A", "B"),
		"beta":  threeWayOutcomes(2.50, 3.30, 2.80, "A", "B"),
	}, "alpha", "beta")

	best, ok := SelectBest(m)
	if !ok {
		t.Fatal("SelectBest returned false")
	}
	for slot, price := range best {
		if price.SourceID != "alpha" {
			t.Errorf("best[%s].SourceID = %q, want alpha (first in contribution order)", slot, price.SourceID)
		}
	}
}

func TestSelectBest_MissingLegExcludesMatch(t *testing.T) {
	// beta quotes a draw, making this a three-way market, but nobody has an
	// away price.
	m := matchWithOutcomes(map[string]map[models.OutcomeSlot]models.OutcomeQuote{
		"alpha": {
			models.SlotHome: {Slot: models.SlotHome, DisplayName: "A", Odds: 2.5},
		},
		"beta": {
			models.SlotHome: {Slot: models.SlotHome, DisplayName: "A", Odds: 2.4},
			models.SlotDraw: {Slot: models.SlotDraw, DisplayName: "Draw", Odds: 3.3},
		},
	}, "alpha", "beta")

	if _, ok := SelectBest(m); ok {
		t.Fatal("SelectBest returned true for a match with no away quote")
	}
}

func TestSelectBest_RejectsOddsAtOrBelowOne(t *testing.T) {
	m := matchWithOutcomes(map[string]map[models.OutcomeSlot]models.OutcomeQuote{
		"alpha": {
			models.SlotHome: {Slot: models.SlotHome, DisplayName: "A", Odds: 0.95},
			models.SlotAway: {Slot: models.SlotAway, DisplayName: "B", Odds: 2.8},
		},
		"beta": {
			models.SlotHome: {Slot: models.SlotHome, DisplayName: "A", Odds: 2.4},
			models.SlotAway: {Slot: models.SlotAway, DisplayName: "B", Odds: 2.7},
		},
	}, "alpha", "beta")

	best, ok := SelectBest(m)
	if !ok {
		t.Fatal("SelectBest returned false")
	}
	if best[models.SlotHome].SourceID != "beta" {
		t.Errorf("home price came from %q, want beta (alpha's 0.95 is invalid)", best[models.SlotHome].SourceID)
	}

	// When every quote for a slot is invalid the whole match is out.
	m2 := matchWithOutcomes(map[string]map[models.OutcomeSlot]models.OutcomeQuote{
		"alpha": {
			models.SlotHome: {Slot: models.SlotHome, DisplayName: "A", Odds: 0.95},
			models.SlotAway: {Slot: models.SlotAway, DisplayName: "B", Odds: 2.8},
		},
		"beta": {
			models.SlotHome: {Slot: models.SlotHome, DisplayName: "A", Odds: 1.0},
			models.SlotAway: {Slot: models.SlotAway, DisplayName: "B", Odds: 2.7},
		},
	}, "alpha", "beta")
	if _, ok := SelectBest(m2); ok {
		t.Fatal("SelectBest returned true with no valid home quote")
	}
}

func TestSelectBest_TwoWayMarket(t *testing.T) {
	m := matchWithOutcomes(map[string]map[models.OutcomeSlot]models.OutcomeQuote{
		"alpha": {
			models.SlotPlayer1: {Slot: models.SlotPlayer1, DisplayName: "P1", Odds: 2.1},
			models.SlotPlayer2: {Slot: models.SlotPlayer2, DisplayName: "P2", Odds: 1.7},
		},
		"beta": {
			models.SlotPlayer1: {Slot: models.SlotPlayer1, DisplayName: "P1", Odds: 1.9},
			models.SlotPlayer2: {Slot: models.SlotPlayer2, DisplayName: "P2", Odds: 2.2},
		},
	}, "alpha", "beta")

	best, ok := SelectBest(m)
	if !ok {
		t.Fatal("SelectBest returned false")
	}
	if len(best) != 2 {
		t.Fatalf("got %d slots, want 2", len(best))
	}
	if best[models.SlotPlayer1].Odds != 2.1 || best[models.SlotPlayer2].Odds != 2.2 {
		t.Errorf("best = %+v", best)
	}
}
