package feed

import (
	"context"
	"testing"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/config"
	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

func simulatorConfig() *config.SimulatorConfig {
	return &config.SimulatorConfig{
		Enabled:         true,
		Sources:         []string{"simbet-alpha", "simbet-beta"},
		MatchesPerCycle: 6,
		Seed:            42,
	}
}

func TestSimulatedSources_ShareFixtures(t *testing.T) {
	sources := NewSimulatedSources(simulatorConfig())
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}

	ctx := context.Background()
	alphaEvents, err := sources[0].FetchEvents(ctx)
	if err != nil {
		t.Fatalf("FetchEvents(alpha): %v", err)
	}
	betaEvents, err := sources[1].FetchEvents(ctx)
	if err != nil {
		t.Fatalf("FetchEvents(beta): %v", err)
	}

	if len(alphaEvents) == 0 || len(alphaEvents) != len(betaEvents) {
		t.Fatalf("event counts differ: alpha=%d beta=%d", len(alphaEvents), len(betaEvents))
	}

	// Both bookmakers quote the same fixtures; spellings may differ but the
	// canonical keys must line up.
	for i := range alphaEvents {
		if alphaEvents[i].ExternalID != betaEvents[i].ExternalID {
			t.Errorf("fixture %d: external ids differ: %q vs %q",
				i, alphaEvents[i].ExternalID, betaEvents[i].ExternalID)
		}
		keyA := models.KeyForEvent(&alphaEvents[i])
		keyB := models.KeyForEvent(&betaEvents[i])
		if keyA != keyB {
			t.Errorf("fixture %d: keys differ: %q vs %q (titles %q / %q)",
				i, keyA, keyB, alphaEvents[i].DisplayTitle, betaEvents[i].DisplayTitle)
		}
	}
}

func TestSimulatedSources_QuotesAreUsableOdds(t *testing.T) {
	sources := NewSimulatedSources(simulatorConfig())

	events, err := sources[0].FetchEvents(context.Background())
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}

	for _, ev := range events {
		if len(ev.Outcomes) != 3 {
			t.Errorf("%s: got %d outcomes, want 3", ev.ExternalID, len(ev.Outcomes))
		}
		for slot, quote := range ev.Outcomes {
			if quote.Odds <= 1.0 {
				t.Errorf("%s %s: odds %.2f, want > 1.0", ev.ExternalID, slot, quote.Odds)
			}
		}
		if ev.SourceID != sources[0].Name() {
			t.Errorf("SourceID = %q, want %q", ev.SourceID, sources[0].Name())
		}
	}
}

func TestSimulatedSources_DefaultsWhenUnconfigured(t *testing.T) {
	cfg := &config.SimulatorConfig{Enabled: true, MatchesPerCycle: 4, Seed: 1}
	sources := NewSimulatedSources(cfg)
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2 defaults", len(sources))
	}
	names := map[string]bool{}
	for _, s := range sources {
		names[s.Name()] = true
	}
	if !names["simbet-alpha"] || !names["simbet-beta"] {
		t.Errorf("default names = %v", names)
	}
}

func TestBuildSources(t *testing.T) {
	cfg := &config.FeedConfig{
		Sources: []config.SourceConfig{
			{Name: "bookmaker-a", BaseURL: "https://feeds.example/v1"},
		},
		Simulator: config.SimulatorConfig{
			Enabled:         true,
			Sources:         []string{"simbet-alpha"},
			MatchesPerCycle: 2,
			Seed:            1,
		},
	}

	sources := BuildSources(cfg)
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}
	if sources[0].Name() != "bookmaker-a" || sources[1].Name() != "simbet-alpha" {
		t.Errorf("names = [%s, %s]", sources[0].Name(), sources[1].Name())
	}
}
