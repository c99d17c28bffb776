// Package config loads service configuration from a YAML file, .env
// files, environment variables, and command line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"igreposter/pkg/logger"
)

// Config holds all configuration options for the repost service.
type Config struct {
	// HTTP server settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Scraper backend settings
	Scraper ScraperConfig `yaml:"scraper" json:"scraper"`

	// Caption paraphrasing settings
	Paraphrase ParaphraseConfig `yaml:"paraphrase" json:"paraphrase"`

	// Instagram Graph API settings
	Graph GraphConfig `yaml:"graph" json:"graph"`

	// Persistence settings
	Store StoreConfig `yaml:"store" json:"store"`

	// Logging configuration
	Logging logger.Config `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	ListenAddr        string        `yaml:"listen_addr" json:"listen_addr"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// ScraperConfig holds scraper backend configuration.
type ScraperConfig struct {
	RapidAPIKey       string        `yaml:"rapidapi_key" json:"rapidapi_key"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	PreviewPostCount  int           `yaml:"preview_post_count" json:"preview_post_count"`
}

// ParaphraseConfig holds language model configuration.
type ParaphraseConfig struct {
	APIKey              string        `yaml:"api_key" json:"api_key"`
	BaseURL             string        `yaml:"base_url" json:"base_url"`
	Model               string        `yaml:"model" json:"model"`
	MaxCompletionTokens int           `yaml:"max_completion_tokens" json:"max_completion_tokens"`
	SampleCaptionLimit  int           `yaml:"sample_caption_limit" json:"sample_caption_limit"`
	RequestTimeout      time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// GraphConfig holds Instagram Graph API configuration.
type GraphConfig struct {
	AppID        string `yaml:"app_id" json:"app_id"`
	AppSecret    string `yaml:"app_secret" json:"app_secret"`
	RedirectBase string `yaml:"redirect_base" json:"redirect_base"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	// Backend is "memory" or "postgres".
	Backend      string `yaml:"backend" json:"backend"`
	SnapshotFile string `yaml:"snapshot_file" json:"snapshot_file"`
	PostgresDSN  string `yaml:"postgres_dsn" json:"postgres_dsn"`
	MaxConns     int    `yaml:"max_conns" json:"max_conns"`
}

// DefaultConfig returns a Config instance with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:        ":5000",
			ShutdownTimeout:   10 * time.Second,
			RequestsPerMinute: 120,
		},
		Scraper: ScraperConfig{
			RequestTimeout:    10 * time.Second,
			MaxRetries:        2,
			RequestsPerMinute: 60,
			PreviewPostCount:  12,
		},
		Paraphrase: ParaphraseConfig{
			BaseURL:             "https://api.openai.com/v1",
			Model:               "gpt-5",
			MaxCompletionTokens: 500,
			SampleCaptionLimit:  10,
			RequestTimeout:      30 * time.Second,
		},
		Store: StoreConfig{
			Backend:  "memory",
			MaxConns: 10,
		},
		Logging: logger.Config{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() error {
	if addr := os.Getenv("IGREPOSTER_LISTEN_ADDR"); addr != "" {
		c.Server.ListenAddr = addr
	}
	if key := os.Getenv("RAPIDAPI_KEY"); key != "" {
		c.Scraper.RapidAPIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Paraphrase.APIKey = key
	}
	if base := os.Getenv("IGREPOSTER_OPENAI_BASE_URL"); base != "" {
		c.Paraphrase.BaseURL = base
	}
	if model := os.Getenv("IGREPOSTER_OPENAI_MODEL"); model != "" {
		c.Paraphrase.Model = model
	}
	if appID := os.Getenv("INSTAGRAM_APP_ID"); appID != "" {
		c.Graph.AppID = appID
	}
	if secret := os.Getenv("INSTAGRAM_APP_SECRET"); secret != "" {
		c.Graph.AppSecret = secret
	}
	if base := os.Getenv("IGREPOSTER_REDIRECT_BASE"); base != "" {
		c.Graph.RedirectBase = base
	}
	if backend := os.Getenv("IGREPOSTER_STORE_BACKEND"); backend != "" {
		c.Store.Backend = backend
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Store.PostgresDSN = dsn
	}
	if snapshot := os.Getenv("IGREPOSTER_SNAPSHOT_FILE"); snapshot != "" {
		c.Store.SnapshotFile = snapshot
	}
	if rpm := os.Getenv("IGREPOSTER_SCRAPER_RPM"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.Scraper.RequestsPerMinute = val
		}
	}
	if logLevel := os.Getenv("IGREPOSTER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // no config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations.
func (c *Config) findConfigFile() string {
	locations := []string{
		".igreposter.yaml",
		".igreposter.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igreposter", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "igreposter", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".igreposter.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Upstream credentials are
// deliberately not required here: the service starts without them and the
// affected operations fail with a configuration-missing error instead.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.ListenAddr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.Server.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("server requests per minute must be positive"))
	}
	if c.Scraper.RequestTimeout <= 0 {
		errs = append(errs, errors.New("scraper request timeout must be positive"))
	}
	if c.Scraper.MaxRetries < 0 {
		errs = append(errs, errors.New("scraper max retries cannot be negative"))
	}
	if c.Scraper.PreviewPostCount <= 0 {
		errs = append(errs, errors.New("preview post count must be positive"))
	}
	if c.Paraphrase.MaxCompletionTokens <= 0 {
		errs = append(errs, errors.New("max completion tokens must be positive"))
	}

	switch strings.ToLower(c.Store.Backend) {
	case "memory":
	case "postgres":
		if c.Store.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres backend requires a DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store backend: %s", c.Store.Backend))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if addr, ok := flags["listen-addr"].(string); ok && addr != "" {
		c.Server.ListenAddr = addr
	}
	if backend, ok := flags["store"].(string); ok && backend != "" {
		c.Store.Backend = backend
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: command line flags > environment variables > .env
// file > config file > defaults.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist).
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igreposter.env"))

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
