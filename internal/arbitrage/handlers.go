package arbitrage

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

// RegisterHandlers mounts the scanner's HTTP endpoints on mux.
func (s *Scanner) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/opportunities", s.handleOpportunities)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/scan", s.handleScan)
	mux.HandleFunc("/async/start", s.handleStartAsync)
	mux.HandleFunc("/async/stop", s.handleStopAsync)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// handleStatus reports the scanner's loop state and last cycle summary.
func (s *Scanner) handleStatus(w http.ResponseWriter, r *http.Request) {
	summary, ok := s.LastSummary()
	resp := map[string]any{
		"async_running":  s.IsAsyncRunning(),
		"snapshot_stale": s.SummaryStale(),
	}
	if ok {
		resp["last_scan"] = map[string]any{
			"scanned_at":    summary.ScannedAt.UTC().Format(time.RFC3339),
			"sources":       summary.Sources,
			"events":        summary.Events,
			"matches":       summary.Matches,
			"opportunities": len(summary.Opportunities),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleOpportunities serves active opportunities from storage, ordered by
// profit descending. ?limit= caps the result (default 50).
func (s *Scanner) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	opportunities, err := s.opps.GetActiveOpportunities(r.Context(), limit)
	if err != nil {
		slog.Error("failed to load opportunities", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load opportunities",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":         len(opportunities),
		"opportunities": opportunities,
	})
}

// handleEvents serves the latest stored event lists, preferring the Redis
// snapshot and falling back to the relational store. ?source= filters to one
// bookmaker.
func (s *Scanner) handleEvents(w http.ResponseWriter, r *http.Request) {
	sourceID := r.URL.Query().Get("source")

	if sourceID != "" {
		events, err := s.sourceEvents(r, sourceID)
		if err != nil {
			slog.Error("failed to load events", "source", sourceID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to load events",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"source": sourceID,
			"count":  len(events),
			"events": events,
		})
		return
	}

	all, err := s.allEvents(r)
	if err != nil {
		slog.Error("failed to load events", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load events",
		})
		return
	}
	total := 0
	for _, list := range all {
		total += len(list)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  total,
		"events": all,
	})
}

func (s *Scanner) sourceEvents(r *http.Request, sourceID string) ([]models.SourceEvent, error) {
	if s.redis != nil {
		events, err := s.redis.GetSourceEvents(r.Context(), sourceID)
		if err == nil && events != nil {
			return events, nil
		}
		if err != nil {
			slog.Warn("redis snapshot read failed, falling back to storage",
				"source", sourceID,
				"error", err)
		}
	}
	return s.events.GetSourceEvents(r.Context(), sourceID)
}

func (s *Scanner) allEvents(r *http.Request) (map[string][]models.SourceEvent, error) {
	if s.redis != nil {
		all, err := s.redis.GetAllSourceEvents(r.Context())
		if err == nil && len(all) > 0 {
			return all, nil
		}
		if err != nil {
			slog.Warn("redis snapshot read failed, falling back to storage", "error", err)
		}
	}
	return s.events.GetAllSourceEvents(r.Context())
}

// handleScan triggers one refresh cycle synchronously and returns its summary.
func (s *Scanner) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error": "method not allowed, use POST",
		})
		return
	}

	summary, err := s.Scan(r.Context())
	if err != nil {
		slog.Error("manual scan failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleStartAsync starts the periodic scan loop.
func (s *Scanner) handleStartAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error": "method not allowed, use POST",
		})
		return
	}

	if s.IsAsyncRunning() {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "already_running",
			"message": "Periodic scanning is already running",
		})
		return
	}

	if err := s.StartAsync(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "failed to start periodic scanning",
			"message": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "started",
		"message": "Periodic scanning started successfully",
	})
}

// handleStopAsync stops the periodic scan loop.
func (s *Scanner) handleStopAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error": "method not allowed, use POST",
		})
		return
	}

	if !s.IsAsyncRunning() {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "already_stopped",
			"message": "Periodic scanning is not running",
		})
		return
	}

	s.StopAsync()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "stopped",
		"message": "Periodic scanning stopped successfully",
	})
}
