package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Feed     FeedConfig     `yaml:"feed"`
	Scanner  ScannerConfig  `yaml:"scanner"`
}

type LoggingConfig struct {
	Enabled       bool          `yaml:"enabled"`        // ship logs to the HTTP ingest endpoint
	Endpoint      string        `yaml:"endpoint"`       // log ingest URL (empty disables shipping)
	Token         string        `yaml:"token"`          // bearer token (LOG_INGEST_TOKEN env overrides)
	Level         string        `yaml:"level"`          // DEBUG, INFO, WARN, ERROR
	BatchSize     int           `yaml:"batch_size"`     // entries per batch (default 10)
	FlushInterval time.Duration `yaml:"flush_interval"` // batch flush interval (default 5s)
	ServiceLabel  string        `yaml:"service_label"`  // defaults to the service name
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"` // per-source event snapshot TTL (default 1h)
}

type FeedConfig struct {
	UserAgent string         `yaml:"user_agent"`
	Timeout   time.Duration  `yaml:"timeout"`
	Sources   []SourceConfig `yaml:"sources"`

	// Simulator generates demo fixtures with perturbed odds. Strictly a demo
	// data source; never enable it against real money decisions.
	Simulator SimulatorConfig `yaml:"simulator"`
}

type SourceConfig struct {
	Name      string            `yaml:"name"`
	BaseURL   string            `yaml:"base_url"`
	MirrorURL string            `yaml:"mirror_url"` // resolved to the actual base URL at startup
	Headers   map[string]string `yaml:"headers"`
	Retries   int               `yaml:"retries"`
}

type SimulatorConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Sources         []string `yaml:"sources"`           // simulated bookmaker names
	MatchesPerCycle int      `yaml:"matches_per_cycle"` // default 20
	Seed            int64    `yaml:"seed"`              // 0 means time-seeded
}

type ScannerConfig struct {
	Interval          time.Duration `yaml:"interval"`            // refresh cycle period (default 30s)
	Stake             float64       `yaml:"stake"`               // total investment per opportunity (default 100)
	MinProfit         float64       `yaml:"min_profit"`          // ranker threshold, percent; may be negative
	AlertThreshold    float64       `yaml:"alert_threshold"`     // telegram alert threshold, percent
	AlertCooldown     time.Duration `yaml:"alert_cooldown"`      // min gap between repeat alerts (default 1h)
	AlertMinIncrease  float64       `yaml:"alert_min_increase"`  // profit increase that re-alerts within cooldown
	InactiveAfter     time.Duration `yaml:"inactive_after"`      // mark stored opportunities inactive past this age
	SnapshotMaxAge    time.Duration `yaml:"snapshot_max_age"`    // serve cached results up to this age
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"` // HTTP server header timeout
	TelegramBotToken  string        `yaml:"telegram_bot_token"`  // TELEGRAM_BOT_TOKEN env overrides
	TelegramChatID    int64         `yaml:"telegram_chat_id"`    // TELEGRAM_CHAT_ID env overrides
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.BatchSize <= 0 {
		c.Logging.BatchSize = 10
	}
	if c.Logging.FlushInterval <= 0 {
		c.Logging.FlushInterval = 5 * time.Second
	}
	if c.Redis.SnapshotTTL <= 0 {
		c.Redis.SnapshotTTL = time.Hour
	}
	if c.Feed.Timeout <= 0 {
		c.Feed.Timeout = 30 * time.Second
	}
	if c.Feed.Simulator.MatchesPerCycle <= 0 {
		c.Feed.Simulator.MatchesPerCycle = 20
	}
	if c.Scanner.Interval <= 0 {
		c.Scanner.Interval = 30 * time.Second
	}
	if c.Scanner.Stake <= 0 {
		c.Scanner.Stake = 100
	}
	if c.Scanner.AlertCooldown <= 0 {
		c.Scanner.AlertCooldown = time.Hour
	}
	if c.Scanner.AlertMinIncrease <= 0 {
		c.Scanner.AlertMinIncrease = 1.0
	}
	if c.Scanner.InactiveAfter <= 0 {
		c.Scanner.InactiveAfter = 3 * time.Hour
	}
	if c.Scanner.SnapshotMaxAge <= 0 {
		c.Scanner.SnapshotMaxAge = c.Scanner.Interval
	}
	if c.Scanner.ReadHeaderTimeout <= 0 {
		c.Scanner.ReadHeaderTimeout = 5 * time.Second
	}
}
