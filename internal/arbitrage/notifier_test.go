package arbitrage

import (
	"strings"
	"testing"
	"time"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

func TestFormatOpportunityAlert(t *testing.T) {
	n := &TelegramNotifier{}
	opp := &models.Opportunity{
		MatchTitle:    "Liverpool vs Man City",
		CanonicalKey:  "liverpool vs man",
		Sport:         "football",
		League:        "Premier League",
		StartTime:     time.Date(2026, 9, 5, 15, 0, 0, 0, time.UTC),
		ProfitPercent: 16.67,
		Investment:    100,
		ExpectedRet:   120,
		Legs: []models.Leg{
			{SourceID: "alpha", Slot: models.SlotHome, OutcomeLabel: "Liverpool", Odds: 3.0, Stake: 40},
			{SourceID: "beta", Slot: models.SlotDraw, OutcomeLabel: "Draw", Odds: 4.0, Stake: 30},
			{SourceID: "alpha", Slot: models.SlotAway, OutcomeLabel: "Man City", Odds: 4.0, Stake: 30},
		},
	}

	msg := n.formatOpportunityAlert(opp, 1.0)

	for _, want := range []string{
		"*Arbitrage Alert (1.0%+)*",
		"Liverpool vs Man City",
		"Premier League",
		"*Profit: 16.67%*",
		"Invest 100.00 → return 120.00",
		"Liverpool @ *3.00* (alpha): stake 40.00",
		"Kick-off: 2026-09-05 15:00 UTC",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("alert message missing %q:\n%s", want, msg)
		}
	}

	// Per-leg Kelly sizing against the no-vig probabilities: the home leg's
	// implied probability is (1/3)/0.8333 = 0.4, giving a 10% fraction.
	if !strings.Contains(msg, "kelly 10.0%") {
		t.Errorf("alert message missing home-leg kelly fraction:\n%s", msg)
	}
	if !strings.Contains(msg, "kelly 6.7%") {
		t.Errorf("alert message missing draw-leg kelly fraction:\n%s", msg)
	}
}

func TestFormatOpportunityAlert_EscapesMarkdown(t *testing.T) {
	n := &TelegramNotifier{}
	opp := &models.Opportunity{
		MatchTitle:    "Atletico_B vs Union*C",
		CanonicalKey:  "atletico_b vs union*c",
		ProfitPercent: 2.0,
		Investment:    100,
		ExpectedRet:   102,
	}

	msg := n.formatOpportunityAlert(opp, 1.0)

	if !strings.Contains(msg, `Atletico\_B vs Union\*C`) {
		t.Errorf("match title not escaped:\n%s", msg)
	}
}
