package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration settings.
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	GitHub        GitHubConfig        `yaml:"github"`
	Chat          ChatConfig          `yaml:"chat"`
	Ingest        IngestConfig        `yaml:"ingest"`
	HTTP          HTTPConfig          `yaml:"http"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// GitHubConfig holds the version-control scrape configuration.
type GitHubConfig struct {
	Token   string   `yaml:"token"`
	Org     string   `yaml:"org"`
	Repos   []string `yaml:"repos"`
	Branch  string   `yaml:"branch"`   // tracked branch for commit activities
	BaseURL string   `yaml:"base_url"` // defaults to https://api.github.com
}

// ChatConfig holds the team-chat scrape configuration.
type ChatConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
	BaseURL   string `yaml:"base_url"`
	// MinMessageLength is the minimum trimmed length a message must have to
	// be staged; shorter messages are treated as noise.
	MinMessageLength int `yaml:"min_message_length"`
}

// IngestConfig holds ingestion tuning knobs.
type IngestConfig struct {
	BatchSize     int      `yaml:"batch_size"`
	ExcludedRoles []string `yaml:"excluded_roles"`
}

// HTTPConfig holds the read API configuration.
type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SchedulerConfig holds the river job scheduler configuration.
type SchedulerConfig struct {
	Enabled         bool          `yaml:"enabled"`
	SyncInterval    time.Duration `yaml:"sync_interval"`
	PromoteInterval time.Duration `yaml:"promote_interval"`
}

// ObservabilityConfig holds logging configuration.
type ObservabilityConfig struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
}

// LoadConfig loads the configuration from a YAML file, overriding individual
// fields from environment variables. A missing file falls back to
// environment-only configuration.
func LoadConfig(filename string) (*Config, error) {
	var cfg Config

	if data, err := os.ReadFile(filename); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHub.Token = v
	}
	if v := os.Getenv("GITHUB_ORG"); v != "" {
		cfg.GitHub.Org = v
	}
	if v := os.Getenv("GITHUB_REPOS"); v != "" {
		cfg.GitHub.Repos = strings.Split(v, ",")
	}
	if v := os.Getenv("GITHUB_BRANCH"); v != "" {
		cfg.GitHub.Branch = v
	}
	if v := os.Getenv("CHAT_TOKEN"); v != "" {
		cfg.Chat.Token = v
	}
	if v := os.Getenv("CHAT_CHANNEL_ID"); v != "" {
		cfg.Chat.ChannelID = v
	}
	if v := os.Getenv("INGEST_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.BatchSize = n
		}
	}
	if v := os.Getenv("EXCLUDED_ROLES"); v != "" {
		cfg.Ingest.ExcludedRoles = strings.Split(v, ",")
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		cfg.Scheduler.Enabled = v == "true"
	}
	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Scheduler.SyncInterval = d
		}
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.GitHub.BaseURL == "" {
		cfg.GitHub.BaseURL = "https://api.github.com"
	}
	if cfg.GitHub.Branch == "" {
		cfg.GitHub.Branch = "main"
	}
	if cfg.Chat.BaseURL == "" {
		cfg.Chat.BaseURL = "https://slack.com/api"
	}
	if cfg.Chat.MinMessageLength == 0 {
		cfg.Chat.MinMessageLength = 4
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 1000
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Scheduler.SyncInterval == 0 {
		cfg.Scheduler.SyncInterval = time.Hour
	}
	if cfg.Scheduler.PromoteInterval == 0 {
		cfg.Scheduler.PromoteInterval = 15 * time.Minute
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
}

// Validate fails fast on configuration the process cannot run without.
// Scrape credentials are checked separately so read-only commands work
// without tokens.
func (cfg *Config) Validate() error {
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("postgres DSN is required (set postgres.dsn or DATABASE_URL)")
	}
	if cfg.Ingest.BatchSize < 1 {
		return fmt.Errorf("ingest batch size must be positive, got %d", cfg.Ingest.BatchSize)
	}
	return nil
}

// ValidateScrape checks the credentials a sync run requires.
func (cfg *Config) ValidateScrape() error {
	if cfg.GitHub.Token == "" {
		return fmt.Errorf("github token is required for sync (set github.token or GITHUB_TOKEN)")
	}
	if cfg.GitHub.Org == "" {
		return fmt.Errorf("github org is required for sync (set github.org or GITHUB_ORG)")
	}
	return nil
}
