package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/config"
)

// BatchHandler is a slog.Handler that buffers records and ships them to an
// HTTP log ingest endpoint in batches, on a flush interval or when the buffer
// fills up, whichever comes first.
type BatchHandler struct {
	cfg    config.LoggingConfig
	client *http.Client
	level  slog.Level

	bufferMu sync.Mutex
	buffer   []logEntry

	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
}

type logEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Service   string         `json:"service"`
	Message   string         `json:"message"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// NewBatchHandler creates a shipping handler. The token may come from the
// LOG_INGEST_TOKEN environment variable instead of the config file.
func NewBatchHandler(cfg config.LoggingConfig) (*BatchHandler, error) {
	if cfg.Token == "" {
		cfg.Token = os.Getenv("LOG_INGEST_TOKEN")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("log ingest endpoint is required")
	}

	var level slog.Level
	switch cfg.Level {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	h := &BatchHandler{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		level:  level,
		buffer: make([]logEntry, 0, cfg.BatchSize),
		ticker: time.NewTicker(cfg.FlushInterval),
		done:   make(chan struct{}),
	}

	h.wg.Add(1)
	go h.flushLoop()

	return h, nil
}

func (h *BatchHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *BatchHandler) Handle(ctx context.Context, record slog.Record) error {
	if !h.Enabled(ctx, record.Level) {
		return nil
	}

	entry := logEntry{
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Service:   h.cfg.ServiceLabel,
		Message:   record.Message,
		Payload:   make(map[string]any),
	}
	record.Attrs(func(a slog.Attr) bool {
		entry.Payload[a.Key] = a.Value.Any()
		return true
	})

	h.bufferMu.Lock()
	h.buffer = append(h.buffer, entry)
	shouldFlush := len(h.buffer) >= h.cfg.BatchSize
	h.bufferMu.Unlock()

	if shouldFlush {
		go h.flush()
	}
	return nil
}

// WithAttrs and WithGroup return the handler unchanged; batched shipping does
// not track handler-level attribute scoping.
func (h *BatchHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *BatchHandler) WithGroup(name string) slog.Handler       { return h }

func (h *BatchHandler) flushLoop() {
	defer h.wg.Done()
	for {
		select {
		case <-h.ticker.C:
			h.flush()
		case <-h.done:
			return
		}
	}
}

func (h *BatchHandler) flush() {
	h.bufferMu.Lock()
	if len(h.buffer) == 0 {
		h.bufferMu.Unlock()
		return
	}
	entries := make([]logEntry, len(h.buffer))
	copy(entries, h.buffer)
	h.buffer = h.buffer[:0]
	h.bufferMu.Unlock()

	if err := h.send(entries); err != nil {
		// Report on stderr; logging the failure through slog would loop.
		fmt.Fprintf(os.Stderr, "Failed to ship logs: %v\n", err)
	}
}

func (h *BatchHandler) send(entries []logEntry) error {
	body, err := json.Marshal(map[string]any{"entries": entries})
	if err != nil {
		return fmt.Errorf("marshal log batch: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, h.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create log request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.cfg.Token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("ship log batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("log ingest returned status %d", resp.StatusCode)
	}
	return nil
}

// Close flushes remaining entries and stops the background loop.
func (h *BatchHandler) Close() {
	close(h.done)
	h.ticker.Stop()
	h.wg.Wait()
	h.flush()
}
