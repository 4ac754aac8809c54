package arbitrage

import "github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"

// Calculate runs the arbitrage math over one odds vector: one decimal odd per
// outcome slot, each possibly from a different bookmaker.
//
// A combination is an arbitrage iff the implied probabilities sum below one.
// Stakes are split so that stake_i * odds_i is identical for every slot, which
// makes the payout outcome-independent and equal to stake / sum_reciprocals.
//
// This is a calculation, not a validation gate: an invalid input (odds <= 1.0,
// non-positive stake, empty vector) yields a zero non-arbitrage result rather
// than an error. Filtering invalid quotes is the selector's job.
func Calculate(oddsBySlot map[models.OutcomeSlot]float64, stake float64) models.ArbitrageResult {
	if len(oddsBySlot) == 0 || stake <= 0 {
		return models.ArbitrageResult{}
	}
	for _, odd := range oddsBySlot {
		if !isValidOdd(odd) {
			return models.ArbitrageResult{}
		}
	}

	sumReciprocals := 0.0
	for _, odd := range oddsBySlot {
		sumReciprocals += 1.0 / odd
	}

	stakes := make(map[models.OutcomeSlot]float64, len(oddsBySlot))
	for slot, odd := range oddsBySlot {
		stakes[slot] = stake * (1.0 / odd) / sumReciprocals
	}

	return models.ArbitrageResult{
		IsArbitrage:     sumReciprocals < 1.0,
		ProfitPercent:   (1.0 - sumReciprocals) * 100.0,
		StakePerSlot:    stakes,
		TotalInvestment: stake,
		ExpectedReturn:  stake / sumReciprocals,
	}
}

// KellyFraction returns the optimal bankroll fraction for a single bet at the
// given decimal odds and estimated win probability. Provided as a sizing
// utility for alert formatting; the arbitrage stake split never uses it.
func KellyFraction(decimalOdds, probability float64) float64 {
	if decimalOdds <= 1.0 || probability <= 0 || probability >= 1 {
		return 0
	}
	b := decimalOdds - 1.0
	k := (b*probability - (1.0 - probability)) / b
	if k < 0 {
		return 0
	}
	return k
}
