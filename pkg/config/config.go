package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Import        ImportConfig
	Storage       StorageConfig
	Observability ObservabilityConfig
	Cron          CronConfig
	Notify        NotifyConfig
	Log           LogConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
	CORSOrigins        []string
	MaxUploadMB        int
	TrustProxy         bool
}

// DatabaseConfig selects the repository backend. Driver is "postgres",
// "sqlite" or "memory".
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	SQLitePath string
}

type ImportConfig struct {
	HeaderScanRows    int
	BannerColumns     int
	ReferenceMonth    string
	DefaultFiscalYear string
}

type StorageConfig struct {
	LocalPath string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
}

type CronConfig struct {
	Enabled         bool
	SummarySchedule string
}

// NotifyConfig configures the import report e-mail. Empty APIKey disables it.
type NotifyConfig struct {
	ResendAPIKey string
	From         string
	Recipients   []string
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
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 100),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 200),
			CORSOrigins:        getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"http://localhost:3000"}),
			MaxUploadMB:        getEnvAsInt("SERVER_MAX_UPLOAD_MB", 32),
			TrustProxy:         getEnvAsBool("SERVER_TRUST_PROXY", false),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "sqlite"),
			Host:       getEnv("POSTGRES_HOST", "localhost"),
			Port:       getEnvAsInt("POSTGRES_PORT", 5432),
			User:       getEnv("POSTGRES_USER", "postgres"),
			Password:   getEnv("POSTGRES_PASSWORD", "postgres"),
			Database:   getEnv("POSTGRES_DB", "commissioning"),
			SSLMode:    getEnv("POSTGRES_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "./data/commissioning.db"),
		},
		Import: ImportConfig{
			HeaderScanRows:    getEnvAsInt("IMPORT_HEADER_SCAN_ROWS", 100),
			BannerColumns:     getEnvAsInt("IMPORT_BANNER_COLUMNS", 3),
			ReferenceMonth:    getEnv("IMPORT_REFERENCE_MONTH", "oct"),
			DefaultFiscalYear: getEnv("IMPORT_DEFAULT_FISCAL_YEAR", ""),
		},
		Storage: StorageConfig{
			LocalPath: getEnv("STORAGE_LOCAL_PATH", "./uploads"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		Cron: CronConfig{
			Enabled:         getEnvAsBool("CRON_ENABLED", true),
			SummarySchedule: getEnv("CRON_SUMMARY_SCHEDULE", "0 2 * * *"),
		},
		Notify: NotifyConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("NOTIFY_FROM", "tracker@localhost"),
			Recipients:   getEnvAsSlice("NOTIFY_RECIPIENTS", nil),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	switch cfg.Database.Driver {
	case "postgres", "sqlite", "memory":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}

	if cfg.Import.HeaderScanRows <= 0 {
		return nil, errors.New("IMPORT_HEADER_SCAN_ROWS must be positive")
	}

	if cfg.Notify.ResendAPIKey != "" && len(cfg.Notify.Recipients) == 0 {
		return nil, errors.New("NOTIFY_RECIPIENTS is required when RESEND_API_KEY is set")
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Addr returns the HTTP listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
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

// getEnvAsSlice splits a comma-separated value, dropping empty items.
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
