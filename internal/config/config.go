package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Dataset source kinds.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Config holds all configuration for the analytics service.
type Config struct {
	Server    ServerConfig
	Data      DataConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Metrics   MetricsConfig
	Report    ReportConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

// DataConfig selects and parameterizes the dataset source.
type DataConfig struct {
	// Source is "csv" or "postgres".
	Source string
	// Dir is the data directory holding the CSV exports.
	Dir string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// RedisConfig configures the optional report cache backend.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// ReportConfig configures the generated xlsx management report.
type ReportConfig struct {
	// CacheTTL bounds how long cached report bytes may outlive their
	// snapshot version key.
	CacheTTL time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("IMS_ANALYTICS_HTTP_ADDR", ":8080"),
			Env:             getEnv("IMS_ANALYTICS_ENV", "development"),
			ShutdownTimeout: getDurationEnv("IMS_ANALYTICS_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Data: DataConfig{
			Source: getEnv("IMS_ANALYTICS_DATA_SOURCE", SourceCSV),
			Dir:    getEnv("IMS_ANALYTICS_DATA_DIR", "./data"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("IMS_ANALYTICS_DB_HOST", "localhost"),
			Port:     getIntEnv("IMS_ANALYTICS_DB_PORT", 5432),
			User:     getEnv("IMS_ANALYTICS_DB_USER", "ims"),
			Password: getEnv("IMS_ANALYTICS_DB_PASSWORD", "ims_secret"),
			DBName:   getEnv("IMS_ANALYTICS_DB_NAME", "ims_analytics"),
			SSLMode:  getEnv("IMS_ANALYTICS_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("IMS_ANALYTICS_DB_MAX_CONNS", 10),
			MinConns: getIntEnv("IMS_ANALYTICS_DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("IMS_ANALYTICS_REDIS_ENABLED", false),
			Addr:     getEnv("IMS_ANALYTICS_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("IMS_ANALYTICS_REDIS_PASSWORD", ""),
			DB:       getIntEnv("IMS_ANALYTICS_REDIS_DB", 0),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("IMS_ANALYTICS_AUTH_ENABLED", false),
			MasterKey: getEnv("IMS_ANALYTICS_API_KEY", ""),
			SkipPaths: getSliceEnv("IMS_ANALYTICS_AUTH_SKIP_PATHS", []string{"/health", "/metrics"}),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("IMS_ANALYTICS_RATE_LIMIT_ENABLED", true),
			RPS:     getFloatEnv("IMS_ANALYTICS_RATE_LIMIT_RPS", 100),
			Burst:   getIntEnv("IMS_ANALYTICS_RATE_LIMIT_BURST", 20),
		},
		Log: LogConfig{
			Level:  getEnv("IMS_ANALYTICS_LOG_LEVEL", "info"),
			Format: getEnv("IMS_ANALYTICS_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("IMS_ANALYTICS_METRICS_ENABLED", true),
			Path:    getEnv("IMS_ANALYTICS_METRICS_PATH", "/metrics"),
		},
		Report: ReportConfig{
			CacheTTL: getDurationEnv("IMS_ANALYTICS_REPORT_CACHE_TTL", time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Data.Source != SourceCSV && c.Data.Source != SourcePostgres {
		return fmt.Errorf("IMS_ANALYTICS_DATA_SOURCE must be %q or %q, got %q",
			SourceCSV, SourcePostgres, c.Data.Source)
	}
	if c.Data.Source == SourceCSV && c.Data.Dir == "" {
		return fmt.Errorf("IMS_ANALYTICS_DATA_DIR is required for the csv source")
	}
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("IMS_ANALYTICS_API_KEY is required when auth is enabled")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
