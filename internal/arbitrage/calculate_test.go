package arbitrage

import (
	"math"
	"testing"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestCalculate_ThreeWayArbitrage(t *testing.T) {
	odds := map[models.OutcomeSlot]float64{
		models.SlotHome: 3.0,
		models.SlotDraw: 4.0,
		models.SlotAway: 4.0,
	}

	result := Calculate(odds, 100)

	if !result.IsArbitrage {
		t.Fatalf("expected arbitrage for odds %v", odds)
	}
	if !almostEqual(result.ProfitPercent, 16.6667, 0.01) {
		t.Errorf("ProfitPercent = %.4f, want ~16.67", result.ProfitPercent)
	}
	if !almostEqual(result.StakePerSlot[models.SlotHome], 40.0, 0.01) {
		t.Errorf("home stake = %.4f, want 40", result.StakePerSlot[models.SlotHome])
	}
	if !almostEqual(result.StakePerSlot[models.SlotDraw], 30.0, 0.01) {
		t.Errorf("draw stake = %.4f, want 30", result.StakePerSlot[models.SlotDraw])
	}
	if !almostEqual(result.StakePerSlot[models.SlotAway], 30.0, 0.01) {
		t.Errorf("away stake = %.4f, want 30", result.StakePerSlot[models.SlotAway])
	}
	if !almostEqual(result.ExpectedReturn, 120.0, 0.01) {
		t.Errorf("ExpectedReturn = %.4f, want 120", result.ExpectedReturn)
	}
}

func TestCalculate_PayoutIsOutcomeIndependent(t *testing.T) {
	odds := map[models.OutcomeSlot]float64{
		models.SlotHome: 2.45,
		models.SlotDraw: 3.9,
		models.SlotAway: 3.15,
	}

	result := Calculate(odds, 250)

	totalStaked := 0.0
	for slot, stake := range result.StakePerSlot {
		totalStaked += stake
		payout := stake * odds[slot]
		if !almostEqual(payout, result.ExpectedReturn, 1e-9) {
			t.Errorf("payout for %s = %.9f, want %.9f", slot, payout, result.ExpectedReturn)
		}
	}
	if !almostEqual(totalStaked, 250, 1e-9) {
		t.Errorf("stakes sum to %.9f, want 250", totalStaked)
	}
}

func TestCalculate_NotArbitrage(t *testing.T) {
	// Best prices across books can still imply more than 100% probability.
	odds := map[models.OutcomeSlot]float64{
		models.SlotHome: 2.50,
		models.SlotDraw: 3.40,
		models.SlotAway: 2.95,
	}

	result := Calculate(odds, 100)

	if result.IsArbitrage {
		t.Fatalf("expected no arbitrage for odds %v", odds)
	}
	if result.ProfitPercent >= 0 {
		t.Errorf("ProfitPercent = %.4f, want negative", result.ProfitPercent)
	}
	if !almostEqual(result.ProfitPercent, -3.31, 0.01) {
		t.Errorf("ProfitPercent = %.4f, want ~-3.31", result.ProfitPercent)
	}
}

func TestCalculate_TwoWayArbitrage(t *testing.T) {
	odds := map[models.OutcomeSlot]float64{
		models.SlotPlayer1: 2.10,
		models.SlotPlayer2: 2.20,
	}

	result := Calculate(odds, 100)

	if !result.IsArbitrage {
		t.Fatalf("expected arbitrage for odds %v", odds)
	}
	if !almostEqual(result.ProfitPercent, 6.9264, 0.01) {
		t.Errorf("ProfitPercent = %.4f, want ~6.93", result.ProfitPercent)
	}
}

func TestCalculate_InvalidInputs(t *testing.T) {
	tests := []struct {
		name  string
		odds  map[models.OutcomeSlot]float64
		stake float64
	}{
		{
			name:  "empty odds",
			odds:  map[models.OutcomeSlot]float64{},
			stake: 100,
		},
		{
			name: "zero stake",
			odds: map[models.OutcomeSlot]float64{
				models.SlotHome: 3.0,
				models.SlotAway: 3.0,
			},
			stake: 0,
		},
		{
			name: "odd at one",
			odds: map[models.OutcomeSlot]float64{
				models.SlotHome: 1.0,
				models.SlotAway: 3.0,
			},
			stake: 100,
		},
		{
			name: "odd below one",
			odds: map[models.OutcomeSlot]float64{
				models.SlotHome: 0.95,
				models.SlotAway: 3.0,
			},
			stake: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Calculate(tt.odds, tt.stake)
			if result.IsArbitrage {
				t.Error("expected zero result, got arbitrage")
			}
			if result.TotalInvestment != 0 || len(result.StakePerSlot) != 0 {
				t.Errorf("expected zero result, got %+v", result)
			}
		})
	}
}

func TestKellyFraction(t *testing.T) {
	tests := []struct {
		name        string
		odds        float64
		probability float64
		want        float64
	}{
		{"positive edge", 2.5, 0.5, 0.1667},
		{"no edge", 2.0, 0.5, 0},
		{"negative edge clamps to zero", 2.0, 0.4, 0},
		{"invalid odds", 1.0, 0.5, 0},
		{"invalid probability", 2.0, 1.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := KellyFraction(tt.odds, tt.probability)
			if !almostEqual(got, tt.want, 0.001) {
				t.Errorf("KellyFraction(%.2f, %.2f) = %.4f, want %.4f", tt.odds, tt.probability, got, tt.want)
			}
		})
	}
}
