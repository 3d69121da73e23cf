// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (WORKLOG_* plus a few well-known names such as
//     DATABASE_URL and GEMINI_API_KEY)
//  2. Config file (~/.worklog/config.yaml or ./config.yaml)
//  3. Default values
//
// Secrets (API keys, database credentials) are only read from the
// environment and are never logged.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation. Check with errors.Is().
var (
	// ErrMissingAPIKey indicates the LLM provider API key is missing.
	ErrMissingAPIKey = errors.New("missing GEMINI_API_KEY")

	// ErrMissingDatabaseURL indicates no PostgreSQL connection URL is configured.
	ErrMissingDatabaseURL = errors.New("missing DATABASE_URL")

	// ErrMissingAuthURL indicates the identity provider base URL is missing.
	ErrMissingAuthURL = errors.New("missing auth provider URL")

	// ErrInvalidToolSteps indicates the tool step budget is out of range.
	ErrInvalidToolSteps = errors.New("invalid max tool steps")

	// ErrInvalidResultLimit indicates a tool result cap is out of range.
	ErrInvalidResultLimit = errors.New("invalid tool result limit")

	// ErrInvalidServerAddr indicates the listen address is malformed.
	ErrInvalidServerAddr = errors.New("invalid server address")
)

// Defaults for the conversational agent. The step budget bounds the
// model's tool-calling loop; the result caps bound tool payload size.
const (
	DefaultMaxToolSteps = 5
	MaxAllowedToolSteps = 20

	DefaultFetchLimit   = 10
	MaxFetchLimit       = 50
	DefaultSummaryLimit = 30
	MaxSummaryLimit     = 100
	DefaultSearchLimit  = 10

	// DefaultSearchThreshold is the minimum cosine similarity for a
	// semantic search hit.
	DefaultSearchThreshold = 0.3
)

// Config stores application configuration.
type Config struct {
	// HTTP server
	ServerAddr  string   `mapstructure:"server_addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy"`
	RateLimit   float64  `mapstructure:"rate_limit"` // tokens per second per IP
	RateBurst   int      `mapstructure:"rate_burst"`

	// Logging
	LogLevelName string `mapstructure:"log_level"`
	LogJSON      bool   `mapstructure:"log_json"`

	// LLM provider
	ModelName     string `mapstructure:"model_name"`
	EmbedderModel string `mapstructure:"embedder_model"`
	GeminiAPIKey  string `mapstructure:"-"` // env only, never from file

	// Agent behavior
	MaxToolSteps    int     `mapstructure:"max_tool_steps"`
	FetchLimit      int     `mapstructure:"fetch_limit"`
	SummaryLimit    int     `mapstructure:"summary_limit"`
	SearchLimit     int     `mapstructure:"search_limit"`
	SearchThreshold float64 `mapstructure:"search_threshold"`

	// PostgreSQL
	DatabaseURL string `mapstructure:"-"` // env only, contains credentials

	// Identity provider (GoTrue-compatible REST surface)
	AuthURL     string `mapstructure:"auth_url"`
	AuthAnonKey string `mapstructure:"-"` // env only
}

// Load reads configuration from file, environment, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server_addr", "127.0.0.1:3001")
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("trust_proxy", false)
	v.SetDefault("rate_limit", 10.0)
	v.SetDefault("rate_burst", 60)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("model_name", "googleai/gemini-2.5-flash")
	v.SetDefault("embedder_model", "text-embedding-004")
	v.SetDefault("max_tool_steps", DefaultMaxToolSteps)
	v.SetDefault("fetch_limit", DefaultFetchLimit)
	v.SetDefault("summary_limit", DefaultSummaryLimit)
	v.SetDefault("search_limit", DefaultSearchLimit)
	v.SetDefault("search_threshold", DefaultSearchThreshold)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".worklog"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("WORKLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine: env and defaults cover everything.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Secrets come straight from the environment.
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.AuthAnonKey = os.Getenv("AUTH_ANON_KEY")
	if u := os.Getenv("AUTH_URL"); u != "" {
		cfg.AuthURL = u
	}

	return &cfg, nil
}

// ValidateServe checks everything the serve command needs at startup.
// Missing provider credentials are a fatal startup condition, not a
// per-request error.
func (c *Config) ValidateServe() error {
	if c == nil {
		return errors.New("configuration is nil")
	}
	if c.GeminiAPIKey == "" {
		return ErrMissingAPIKey
	}
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.AuthURL == "" {
		return ErrMissingAuthURL
	}
	if c.ServerAddr == "" || !strings.Contains(c.ServerAddr, ":") {
		return fmt.Errorf("%w: %q", ErrInvalidServerAddr, c.ServerAddr)
	}
	if c.MaxToolSteps < 1 || c.MaxToolSteps > MaxAllowedToolSteps {
		return fmt.Errorf("%w: %d (allowed 1-%d)", ErrInvalidToolSteps, c.MaxToolSteps, MaxAllowedToolSteps)
	}
	if c.FetchLimit < 1 || c.FetchLimit > MaxFetchLimit {
		return fmt.Errorf("%w: fetch_limit=%d", ErrInvalidResultLimit, c.FetchLimit)
	}
	if c.SummaryLimit < 1 || c.SummaryLimit > MaxSummaryLimit {
		return fmt.Errorf("%w: summary_limit=%d", ErrInvalidResultLimit, c.SummaryLimit)
	}
	if c.SearchLimit < 1 || c.SearchLimit > MaxFetchLimit {
		return fmt.Errorf("%w: search_limit=%d", ErrInvalidResultLimit, c.SearchLimit)
	}
	return nil
}

// LogLevel maps the configured level name to a slog.Level.
// Unknown names fall back to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.LogLevelName) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
