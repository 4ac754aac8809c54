package models

import "time"

// OutcomeSlot is the semantic role of one possible result of an event.
type OutcomeSlot string

const (
	SlotHome    OutcomeSlot = "home"
	SlotDraw    OutcomeSlot = "draw"
	SlotAway    OutcomeSlot = "away"
	SlotPlayer1 OutcomeSlot = "player1"
	SlotPlayer2 OutcomeSlot = "player2"
)

// OutcomeQuote is one priced outcome of an event from one bookmaker.
type OutcomeQuote struct {
	Slot        OutcomeSlot `json:"slot"`
	DisplayName string      `json:"display_name"`
	Odds        float64     `json:"odds"`
}

// SourceEvent is one bookmaker's view of one event. Produced fresh on each
// refresh cycle and never mutated; the next cycle supersedes it.
type SourceEvent struct {
	SourceID     string                       `json:"source_id"`
	ExternalID   string                       `json:"external_id"` // bookmaker-local, collides across sources
	Sport        string                       `json:"sport"`
	League       string                       `json:"league"`
	DisplayTitle string                       `json:"display_title"`
	StartTime    time.Time                    `json:"start_time"`
	Outcomes     map[OutcomeSlot]OutcomeQuote `json:"outcomes"`
}

// ReconciledMatch is the fan-in of all SourceEvents sharing one canonical key.
// Metadata fields come from the first event encountered for the key.
type ReconciledMatch struct {
	CanonicalKey string    `json:"canonical_key"`
	DisplayTitle string    `json:"display_title"`
	Sport        string    `json:"sport"`
	League       string    `json:"league"`
	StartTime    time.Time `json:"start_time"`

	// Sources records contribution order; PerSourceOutcomes is keyed by it.
	// Iterating Sources keeps downstream selection deterministic.
	Sources           []string                                `json:"sources"`
	PerSourceOutcomes map[string]map[OutcomeSlot]OutcomeQuote `json:"per_source_outcomes"`
}

// SourceCount returns the number of bookmakers contributing to the match.
func (m *ReconciledMatch) SourceCount() int {
	return len(m.Sources)
}

// BestPrice is the maximum odds offered for one slot and where it came from.
type BestPrice struct {
	SourceID    string  `json:"source_id"`
	DisplayName string  `json:"display_name"`
	Odds        float64 `json:"odds"`
}

// BestPriceSet maps every required outcome slot of a match to its best price.
// It is only constructed when all required slots are covered.
type BestPriceSet map[OutcomeSlot]BestPrice

// ArbitrageResult is the outcome of the arbitrage calculation for one match.
type ArbitrageResult struct {
	IsArbitrage     bool                    `json:"is_arbitrage"`
	ProfitPercent   float64                 `json:"profit_percent"` // negative means guaranteed loss
	StakePerSlot    map[OutcomeSlot]float64 `json:"stake_per_slot"`
	TotalInvestment float64                 `json:"total_investment"`
	ExpectedReturn  float64                 `json:"expected_return"`
}

// Leg is one bet of an opportunity: which bookmaker, which outcome, how much.
type Leg struct {
	SourceID     string      `json:"source_id"`
	Slot         OutcomeSlot `json:"slot"`
	OutcomeLabel string      `json:"outcome_label"`
	Odds         float64     `json:"odds"`
	Stake        float64     `json:"stake"`
}

// Opportunity is the externally consumed unit: a reconciled match plus its
// best-price combination and the arbitrage math for it.
type Opportunity struct {
	MatchTitle    string    `json:"match_title"`
	CanonicalKey  string    `json:"canonical_key"`
	Sport         string    `json:"sport"`
	League        string    `json:"league"`
	StartTime     time.Time `json:"start_time"`
	ProfitPercent float64   `json:"profit_percent"`
	Investment    float64   `json:"investment"`
	ExpectedRet   float64   `json:"expected_return"`
	Legs          []Leg     `json:"legs"`
	IsActive      bool      `json:"is_active"`
	DiscoveredAt  time.Time `json:"discovered_at"`
}
