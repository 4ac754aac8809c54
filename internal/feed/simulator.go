package feed

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/config"
	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

// The simulator generates a fixed set of football fixtures and serves them
// from several fake bookmakers, each quoting slightly perturbed odds and
// spelling the team names its own way. It exists to exercise the full
// pipeline (reconciliation across naming variants, best-price selection,
// occasional real arbitrage windows) without any live feed.

// simFixture is one scheduled match shared by every simulated bookmaker.
type simFixture struct {
	id        string
	home      string
	away      string
	league    string
	startTime time.Time
	baseOdds  map[models.OutcomeSlot]float64
}

// simWorld holds the fixture set and RNG shared by all simulated bookmakers,
// so their quotes describe the same matches.
type simWorld struct {
	mu       sync.Mutex
	rng      *rand.Rand
	fixtures []simFixture
}

// Per-bookmaker spelling variants. Distinct spellings of the same club must
// still reconcile into one match downstream.
var simNameVariants = map[string]map[string]string{
	"simbet-alpha": {
		"Manchester City":   "Man City",
		"Manchester United": "Man Utd",
		"Tottenham":         "Spurs",
		"Wolverhampton":     "Wolves",
	},
	"simbet-beta": {
		"Manchester City":   "Manchester City FC",
		"Manchester United": "Manchester United FC",
		"Newcastle":         "Newcastle United",
	},
}

var simTeams = []string{
	"Arsenal",
	"Aston Villa",
	"Brighton",
	"Chelsea",
	"Everton",
	"Leicester City",
	"Liverpool",
	"Manchester City",
	"Manchester United",
	"Newcastle",
	"Tottenham",
	"West Ham",
	"Wolverhampton",
}

func newSimWorld(cfg *config.SimulatorConfig, now time.Time) *simWorld {
	seed := cfg.Seed
	if seed == 0 {
		seed = now.UnixNano()
	}
	w := &simWorld{rng: rand.New(rand.NewSource(seed))}

	// Each team appears at most once, so no two fixtures share a canonical key.
	count := cfg.MatchesPerCycle
	teams := append([]string(nil), simTeams...)
	w.rng.Shuffle(len(teams), func(i, j int) { teams[i], teams[j] = teams[j], teams[i] })
	if count > len(teams)/2 {
		count = len(teams) / 2
	}

	for i := 0; i < count; i++ {
		home := teams[2*i]
		away := teams[2*i+1]

		// Base odds around a roughly fair three-way book.
		homeOdds := roundOdds(1.8 + w.rng.Float64()*2.2)
		drawOdds := roundOdds(3.0 + w.rng.Float64()*1.5)
		awayOdds := roundOdds(1.8 + w.rng.Float64()*2.2)

		w.fixtures = append(w.fixtures, simFixture{
			id:        fmt.Sprintf("sim-%03d", i+1),
			home:      home,
			away:      away,
			league:    "Premier League",
			startTime: now.Add(time.Duration(6+i) * time.Hour).Truncate(time.Minute),
			baseOdds: map[models.OutcomeSlot]float64{
				models.SlotHome: homeOdds,
				models.SlotDraw: drawOdds,
				models.SlotAway: awayOdds,
			},
		})
	}
	return w
}

// quote returns a bookmaker's current odds for a fixture: the base odds
// perturbed by up to ±8%. With several bookmakers disagreeing this much, a
// fraction of cycles produce genuine sum-of-reciprocals arbitrage.
func (w *simWorld) quote(fix *simFixture) map[models.OutcomeSlot]float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[models.OutcomeSlot]float64, len(fix.baseOdds))
	for slot, base := range fix.baseOdds {
		factor := 0.92 + w.rng.Float64()*0.16
		out[slot] = roundOdds(base * factor)
	}
	return out
}

func (w *simWorld) snapshot() []simFixture {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]simFixture(nil), w.fixtures...)
}

func roundOdds(v float64) float64 {
	return math.Round(v*100) / 100
}

// SimulatedSource is one fake bookmaker backed by the shared fixture world.
type SimulatedSource struct {
	name  string
	world *simWorld
}

// NewSimulatedSources builds one simulated bookmaker per configured name, all
// sharing a fixture world. Defaults to simbet-alpha and simbet-beta when no
// names are configured.
func NewSimulatedSources(cfg *config.SimulatorConfig) []Source {
	names := cfg.Sources
	if len(names) == 0 {
		names = []string{"simbet-alpha", "simbet-beta"}
	}
	world := newSimWorld(cfg, time.Now())

	sources := make([]Source, 0, len(names))
	for _, name := range names {
		sources = append(sources, &SimulatedSource{name: name, world: world})
	}
	return sources
}

func (s *SimulatedSource) Name() string { return s.name }

func (s *SimulatedSource) FetchEvents(ctx context.Context) ([]models.SourceEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fixtures := s.world.snapshot()
	events := make([]models.SourceEvent, 0, len(fixtures))
	for i := range fixtures {
		fix := &fixtures[i]
		home := s.teamName(fix.home)
		away := s.teamName(fix.away)
		odds := s.world.quote(fix)

		ev := models.SourceEvent{
			SourceID:     s.name,
			ExternalID:   fix.id,
			Sport:        "football",
			League:       fix.league,
			DisplayTitle: home + " vs " + away,
			StartTime:    fix.startTime,
			Outcomes: map[models.OutcomeSlot]models.OutcomeQuote{
				models.SlotHome: {Slot: models.SlotHome, DisplayName: home, Odds: odds[models.SlotHome]},
				models.SlotDraw: {Slot: models.SlotDraw, DisplayName: "Draw", Odds: odds[models.SlotDraw]},
				models.SlotAway: {Slot: models.SlotAway, DisplayName: away, Odds: odds[models.SlotAway]},
			},
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *SimulatedSource) teamName(canonical string) string {
	if variants, ok := simNameVariants[s.name]; ok {
		if v, ok := variants[canonical]; ok {
			return v
		}
	}
	return canonical
}
