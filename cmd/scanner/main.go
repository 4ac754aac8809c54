package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/arbitrage"
	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/feed"
	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/config"
	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/logging"
	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/storage"
)

const defaultConfigPath = "configs/production.yaml"

func main() {
	fmt.Println("Starting Arbitrage Scanner...")

	var configPath string
	var listenAddr string

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.StringVar(&listenAddr, "addr", ":8080", "HTTP listen address (e.g. :8080)")
	flag.Parse()

	fmt.Printf("Loading config from: %s\n", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if _, err := logging.SetupLogger(&cfg.Logging, "scanner"); err != nil {
		log.Printf("Warning: failed to setup logging: %v, continuing with default logger", err)
	} else {
		slog.Info("Logging initialized", "service", "scanner")
	}

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Scanner.TelegramBotToken = token
		slog.Info("Using Telegram bot token from environment")
	}
	if chatIDStr := os.Getenv("TELEGRAM_CHAT_ID"); chatIDStr != "" {
		if chatID, err := strconv.ParseInt(chatIDStr, 10, 64); err == nil {
			cfg.Scanner.TelegramChatID = chatID
			slog.Info("Using Telegram chat ID from environment", "chat_id", chatID)
		}
	}

	postgresDSN := cfg.Postgres.DSN
	if envDSN := os.Getenv("POSTGRES_DSN"); envDSN != "" {
		postgresDSN = envDSN
		slog.Info("Using PostgreSQL DSN from POSTGRES_DSN environment variable")
	}

	var (
		eventStore storage.EventStore
		oppStore   storage.OpportunityStore
	)
	if postgresDSN != "" {
		pgConfig := cfg.Postgres
		pgConfig.DSN = postgresDSN
		pg, err := storage.NewPostgresStorage(&pgConfig)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL storage: %v", err)
		}
		defer func() {
			if err := pg.Close(); err != nil {
				slog.Error("Error closing PostgreSQL storage", "error", err)
			}
		}()
		eventStore = pg
		oppStore = pg
		slog.Info("PostgreSQL storage initialized")
	} else {
		mem := storage.NewMemoryStorage()
		eventStore = mem
		oppStore = mem
		slog.Warn("No PostgreSQL DSN configured, using in-memory storage")
	}

	var redisClient *storage.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient, err = storage.NewRedisClient(&cfg.Redis)
		if err != nil {
			slog.Warn("Redis unavailable, continuing without snapshot cache", "error", err)
		} else {
			defer redisClient.Close()
			slog.Info("Redis snapshot cache initialized", "addr", cfg.Redis.Addr)
		}
	}

	var notifier *arbitrage.TelegramNotifier
	if cfg.Scanner.TelegramBotToken != "" && cfg.Scanner.TelegramChatID != 0 {
		notifier = arbitrage.NewTelegramNotifier(cfg.Scanner.TelegramBotToken, cfg.Scanner.TelegramChatID)
		if notifier != nil {
			defer notifier.Stop()
		}
	} else {
		slog.Info("Telegram alerting disabled (no token or chat id)")
	}

	sources := feed.BuildSources(&cfg.Feed)
	if len(sources) == 0 {
		log.Fatalf("No sources configured: add feed.sources entries or enable the simulator")
	}
	for _, src := range sources {
		slog.Info("Source registered", "name", src.Name())
	}

	scanner := arbitrage.NewScanner(&cfg.Scanner, sources, eventStore, oppStore, redisClient, notifier, cfg.Feed.Timeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, stopping scanner...")
		cancel()
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("pong\n"))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	scanner.RegisterHandlers(mux)

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.Scanner.ReadHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		slog.Info("HTTP server listening", "addr", listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("Starting scan loop", "interval", cfg.Scanner.Interval.String())
	if err := scanner.Start(ctx); err != nil {
		slog.Error("Scanner failed", "error", err)
		log.Fatalf("Scanner failed: %v", err)
	}

	slog.Info("Arbitrage Scanner stopped")
}
