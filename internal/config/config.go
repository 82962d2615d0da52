package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

var (
	ErrMissingSupabaseURL = errors.New("SUPABASE_URL is required")
	ErrMissingAnonKey     = errors.New("SUPABASE_ANON_KEY is required")
)

// Config holds all configuration for the console server
type Config struct {
	// Hosted auth/data service
	Supabase SupabaseConfig

	// Local HTTP console
	HTTP HTTPConfig

	// Activity journal
	Journal JournalConfig

	// Logging Configuration
	Logging LoggingConfig
}

// SupabaseConfig holds the hosted service settings
type SupabaseConfig struct {
	URL     string
	AnonKey string
	// SiteURL is the public origin used in verification and recovery links
	SiteURL string
	// RefreshSchedule is a cron expression for the session refresher
	RefreshSchedule string
}

// HTTPConfig holds the console API settings
type HTTPConfig struct {
	Addr        string
	CORSOrigins []string
}

// JournalConfig holds the activity journal settings
type JournalConfig struct {
	Path string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from getenv, applying defaults
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Supabase: SupabaseConfig{
			URL:             strings.TrimRight(get("SUPABASE_URL", ""), "/"),
			AnonKey:         get("SUPABASE_ANON_KEY", ""),
			SiteURL:         strings.TrimRight(get("SITE_URL", "http://localhost:8080"), "/"),
			RefreshSchedule: get("REFRESH_SCHEDULE", "@every 30s"),
		},
		HTTP: HTTPConfig{
			Addr:        get("HTTP_ADDR", ":8080"),
			CORSOrigins: splitList(get("CORS_ORIGINS", "http://localhost:5173")),
		},
		Journal: JournalConfig{
			Path: get("JOURNAL_PATH", "ivalora-journal.sqlite"),
		},
		Logging: LoggingConfig{
			Level:  get("LOG_LEVEL", "info"),
			Format: get("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	if c.Supabase.URL == "" {
		return ErrMissingSupabaseURL
	}
	if _, err := url.ParseRequestURI(c.Supabase.URL); err != nil {
		return fmt.Errorf("invalid SUPABASE_URL: %w", err)
	}
	if c.Supabase.AnonKey == "" {
		return ErrMissingAnonKey
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
