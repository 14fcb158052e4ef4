// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Rules     RulesConfig     `yaml:"rules"`
	Journal   JournalConfig   `yaml:"journal"`
	Historian HistorianConfig `yaml:"historian"`
	LogLevel  string          `yaml:"log_level" env:"LOG_LEVEL"`
}

// ServerConfig holds the local HTTP surface settings.
type ServerConfig struct {
	Addr              string        `yaml:"addr" env:"DARTKEEPER_ADDR"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"DARTKEEPER_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"DARTKEEPER_SHUTDOWN_TIMEOUT"`
	AllowedOrigins    []string      `yaml:"allowed_origins" env:"DARTKEEPER_ALLOWED_ORIGINS" envSeparator:","`
}

// StorageConfig selects where the session snapshot lives.
type StorageConfig struct {
	Backend string `yaml:"backend" env:"DARTKEEPER_STORAGE"`
	Path    string `yaml:"path" env:"DARTKEEPER_STATE_PATH"`
	Key     string `yaml:"key" env:"DARTKEEPER_STORAGE_KEY"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// PostgresConfig holds the PostgreSQL connection string.
type PostgresConfig struct {
	DSN string `yaml:"dsn" env:"POSTGRES_DSN"`
}

// RulesConfig carries the engine product choices.
type RulesConfig struct {
	EnforceTurnOrder         bool   `yaml:"enforce_turn_order" env:"DARTKEEPER_ENFORCE_TURN_ORDER"`
	AllowDuplicateEnrollment bool   `yaml:"allow_duplicate_enrollment" env:"DARTKEEPER_ALLOW_DUPLICATE_ENROLLMENT"`
	MaxSavedGames            int    `yaml:"max_saved_games" env:"DARTKEEPER_MAX_SAVED_GAMES"`
	AvatarBaseURL            string `yaml:"avatar_base_url" env:"DARTKEEPER_AVATAR_BASE_URL"`
}

// JournalConfig enables publishing match events to Redis.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" env:"DARTKEEPER_JOURNAL_ENABLED"`
	Queue   string `yaml:"queue" env:"HISTORIAN_QUEUE_NAME"`
}

// HistorianConfig tunes the journal consumer.
type HistorianConfig struct {
	BatchSize     int `yaml:"batch_size" env:"HISTORIAN_BATCH_SIZE"`
	FlushMs       int `yaml:"flush_ms" env:"HISTORIAN_FLUSH_MS"`
	InactivitySec int `yaml:"inactivity_sec" env:"MATCH_INACTIVITY_TIMEOUT_SEC"`
}

// Load starts from the defaults, applies the optional YAML file at path, then
// overlays environment variables. An empty path skips the file. Settings absent
// from both keep their defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Rules.EnforceTurnOrder = true

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Expand environment variables
		data = []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = "localhost:8080"
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = 5 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendFile
	}
	if c.Storage.Key == "" {
		c.Storage.Key = "dartKeeperState"
	}
	if c.Storage.Path == "" {
		switch c.Storage.Backend {
		case BackendSQLite:
			c.Storage.Path = "dartkeeper.db"
		default:
			c.Storage.Path = "dartkeeper.json"
		}
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}

	if c.Rules.MaxSavedGames == 0 {
		c.Rules.MaxSavedGames = 10
	}

	if c.Journal.Queue == "" {
		c.Journal.Queue = "dartkeeper_events"
	}

	if c.Historian.BatchSize == 0 {
		c.Historian.BatchSize = 20
	}
	if c.Historian.FlushMs == 0 {
		c.Historian.FlushMs = 500
	}
	if c.Historian.InactivitySec == 0 {
		c.Historian.InactivitySec = 600
	}
}

// Validate rejects combinations that cannot work.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendMemory, BackendSQLite, BackendRedis:
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Rules.MaxSavedGames < 1 {
		return fmt.Errorf("max saved games must be at least 1, got %d", c.Rules.MaxSavedGames)
	}
	return nil
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Rules.EnforceTurnOrder = true
	cfg.applyDefaults()
	return cfg
}
