package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

// FetchAll fetches every source in parallel and returns whatever succeeded,
// keyed by source name. A failing source is logged and skipped; one slow or
// broken bookmaker must not block the refresh cycle.
func FetchAll(ctx context.Context, sources []Source, timeout time.Duration) map[string][]models.SourceEvent {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var (
		mu      sync.Mutex
		results = make(map[string][]models.SourceEvent, len(sources))
		wg      sync.WaitGroup
	)

	for _, src := range sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			events, err := src.FetchEvents(fetchCtx)
			elapsed := time.Since(start)
			if err != nil {
				slog.Error("source fetch failed",
					"source", src.Name(),
					"duration", elapsed.String(),
					"error", err)
				return
			}

			slog.Info("source fetch completed",
				"source", src.Name(),
				"events", len(events),
				"duration", elapsed.String())

			mu.Lock()
			results[src.Name()] = events
			mu.Unlock()
		}(src)
	}

	wg.Wait()
	return results
}
