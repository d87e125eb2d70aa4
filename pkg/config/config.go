package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Storage       StorageConfig
	Import        ImportConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
	Gemini        GeminiConfig
	Log           LogConfig
}

// GeminiConfig selects the model oracle. Without an API key the rule oracle
// is used.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Enabled reports whether the Gemini oracle is configured.
func (g GeminiConfig) Enabled() bool {
	return g.APIKey != ""
}

type ServerConfig struct {
	Host               string
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
	AllowedOrigins     []string
	MaxUploadBytes     int64
	ShutdownTimeout    time.Duration
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreType selects where client line sets are kept.
type StoreType string

const (
	StoreTypePostgres StoreType = "postgres"
	StoreTypeMemory   StoreType = "memory"
)

type DatabaseConfig struct {
	Store    StoreType
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type StorageConfig struct {
	Path          string
	RetentionDays int
	Schedule      string
}

// Retention returns how long uploads are kept; zero keeps them forever.
func (s StorageConfig) Retention() time.Duration {
	if s.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

type ImportConfig struct {
	SampleRows int
	TextCap    int
	RulesFile  string // extra rule oracle rules, merged over the defaults
}

type ObservabilityConfig struct {
	MetricsEnabled bool
}

type ProfilingConfig struct {
	Enabled bool
	Port    int
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 20),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 40),
			AllowedOrigins:     getEnvAsList("SERVER_ALLOWED_ORIGINS"),
			MaxUploadBytes:     int64(getEnvAsInt("SERVER_MAX_UPLOAD_MB", 32)) << 20,
			ShutdownTimeout:    time.Duration(getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Database: DatabaseConfig{
			Store:    StoreType(strings.ToLower(getEnv("CLIENT_STORE", string(StoreTypePostgres)))),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "balance-sheet"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Storage: StorageConfig{
			Path:          getEnv("STORAGE_PATH", "./uploads"),
			RetentionDays: getEnvAsInt("STORAGE_RETENTION_DAYS", 90),
			Schedule:      getEnv("STORAGE_RETENTION_SCHEDULE", "0 3 * * *"),
		},
		Import: ImportConfig{
			SampleRows: getEnvAsInt("IMPORT_SAMPLE_ROWS", 25),
			TextCap:    getEnvAsInt("IMPORT_TEXT_CAP", 300_000),
			RulesFile:  getEnv("IMPORT_RULES_FILE", ""),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		Profiling: ProfilingConfig{
			Enabled: getEnvAsBool("PPROF_ENABLED", false),
			Port:    getEnvAsInt("PPROF_PORT", 6060),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Store {
	case StoreTypePostgres, StoreTypeMemory:
	default:
		return fmt.Errorf("CLIENT_STORE must be %q or %q, got %q", StoreTypePostgres, StoreTypeMemory, c.Database.Store)
	}
	if c.Import.SampleRows <= 0 {
		return errors.New("IMPORT_SAMPLE_ROWS must be positive")
	}
	if c.Import.TextCap <= 0 {
		return errors.New("IMPORT_TEXT_CAP must be positive")
	}
	if c.Storage.Path == "" {
		return errors.New("STORAGE_PATH is required")
	}
	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
