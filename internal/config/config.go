package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
)

// Config holds all application configuration
type Config struct {
	// Store
	StoreBackend        string // sqlite, postgres or bolt
	DatabaseURL         string // PostgreSQL connection URL
	DatabaseFile        string // $CONFIG_DIR/watchtrack.db unless overridden
	StoreConnectTimeout time.Duration
	MaintenanceSchedule string // cron spec, empty disables

	// Server
	ServerPort  string
	CORSOrigins string

	// Statistics cache, 0 disables
	StatsCacheTTL time.Duration

	// Logging
	LogLevel  string
	LogFormat string // text or json

	// Tracing
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	// MAINTENANCE_SCHEDULE= must disable maintenance rather than fall back to the default
	viper.AllowEmptyEnv(true)

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	viper.SetDefault("STORE_BACKEND", BackendSQLite)
	viper.SetDefault("STORE_CONNECT_TIMEOUT", "30s")
	viper.SetDefault("MAINTENANCE_SCHEDULE", "0 4 * * *")
	viper.SetDefault("SERVER_PORT", "8000")
	viper.SetDefault("CORS_ORIGINS", "*")
	viper.SetDefault("STATS_CACHE_TTL", "30s")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("TRACING_SAMPLE_RATE", 1.0)

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "watchtrack")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	databaseFile := viper.GetString("DATABASE_FILE")
	if databaseFile == "" {
		databaseFile = filepath.Join(configDir, "watchtrack.db")
	}

	connectTimeout, err := durationSetting("STORE_CONNECT_TIMEOUT")
	if err != nil {
		return nil, err
	}
	statsTTL, err := durationSetting("STATS_CACHE_TTL")
	if err != nil {
		return nil, err
	}

	config := &Config{
		StoreBackend:        viper.GetString("STORE_BACKEND"),
		DatabaseURL:         viper.GetString("DATABASE_URL"),
		DatabaseFile:        databaseFile,
		StoreConnectTimeout: connectTimeout,
		MaintenanceSchedule: viper.GetString("MAINTENANCE_SCHEDULE"),

		ServerPort:  viper.GetString("SERVER_PORT"),
		CORSOrigins: viper.GetString("CORS_ORIGINS"),

		StatsCacheTTL: statsTTL,

		LogLevel:  viper.GetString("LOG_LEVEL"),
		LogFormat: viper.GetString("LOG_FORMAT"),

		TracingEnabled:    viper.GetBool("TRACING_ENABLED"),
		OTLPEndpoint:      viper.GetString("OTLP_ENDPOINT"),
		TracingSampleRate: viper.GetFloat64("TRACING_SAMPLE_RATE"),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// durationSetting parses key as a Go duration; empty means zero
func durationSetting(key string) (time.Duration, error) {
	raw := viper.GetString(key)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendSQLite, BackendBolt:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is postgres")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of sqlite, postgres, bolt (got %q)", c.StoreBackend)
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}
	if c.StatsCacheTTL < 0 {
		return fmt.Errorf("STATS_CACHE_TTL must not be negative")
	}
	if c.StoreConnectTimeout < 0 {
		return fmt.Errorf("STORE_CONNECT_TIMEOUT must not be negative")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json (got %q)", c.LogFormat)
	}
	if c.MaintenanceSchedule != "" {
		if _, err := cron.ParseStandard(c.MaintenanceSchedule); err != nil {
			return fmt.Errorf("invalid MAINTENANCE_SCHEDULE: %w", err)
		}
	}
	if c.TracingEnabled && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP_ENDPOINT is required when TRACING_ENABLED is true")
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("TRACING_SAMPLE_RATE must be between 0 and 1")
	}
	return nil
}
