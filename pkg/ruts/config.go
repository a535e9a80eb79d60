package ruts

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// WebConfig holds the settings of a ruts application.
type WebConfig struct {
	// Server
	Adapter         string        // echo|gin|fiber
	Host            string        // bind host, empty for all interfaces
	Port            string        // just the number
	ShutdownTimeout time.Duration // graceful shutdown limit

	// Routing
	WebPackage  string // package segment under which actions live
	Development bool   // verbose boot logging

	// Logging
	LogLevel  string // debug|info|warn|error
	LogPretty bool   // pretty console logs in dev

	// Data access
	SQLCountLimit int    // per-request SQL warning threshold, <= 0 unlimited
	DatabaseDSN   string // optional gorm DSN

	// Observability
	MetricsPath string // empty disables the metrics endpoint
}

// Addr is the listen address.
func (c WebConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// LogConfig derives the logger settings.
func (c WebConfig) LogConfig() LogConfig {
	return LogConfig{Level: c.LogLevel, Pretty: c.LogPretty}
}

// MustLoadWebConfig loads the configuration and panics if validation fails.
func MustLoadWebConfig(envFiles ...string) WebConfig {
	cfg, err := LoadWebConfig(envFiles...)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadWebConfig reads the given .env files (".env" when none is given, a
// missing file is fine), then the environment, applies defaults and validates.
func LoadWebConfig(envFiles ...string) (WebConfig, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return WebConfig{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	cfg := WebConfig{
		Adapter:         strings.ToLower(getenv("RUTS_ADAPTER", "echo")),
		Host:            getenv("RUTS_HOST", ""),
		Port:            getenv("RUTS_PORT", "8080"),
		ShutdownTimeout: getdur("RUTS_SHUTDOWN_TIMEOUT", 30*time.Second),

		WebPackage:  getenv("RUTS_WEB_PACKAGE", "web"),
		Development: getbool("RUTS_DEVELOPMENT", false),

		LogLevel:  strings.ToLower(getenv("RUTS_LOG_LEVEL", "info")),
		LogPretty: getbool("RUTS_LOG_PRETTY", false),

		SQLCountLimit: getint("RUTS_SQL_COUNT_LIMIT", 0),
		DatabaseDSN:   getenv("RUTS_DATABASE_DSN", ""),

		MetricsPath: getenv("RUTS_METRICS_PATH", "/metrics"),
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	switch cfg.Adapter {
	case "echo", "gin", "fiber":
	default:
		return cfg, errors.New("RUTS_ADAPTER must be one of: echo, gin, fiber")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return cfg, errors.New("RUTS_LOG_LEVEL must be one of: debug, info, warn, error")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("RUTS_PORT must not be empty")
	}
	if strings.TrimSpace(cfg.WebPackage) == "" || hasUpperCase(cfg.WebPackage) {
		return cfg, errors.New("RUTS_WEB_PACKAGE must be a lower-case package name")
	}
	if cfg.ShutdownTimeout <= 0 {
		return cfg, errors.New("RUTS_SHUTDOWN_TIMEOUT must be a positive duration")
	}
	if cfg.MetricsPath != "" && !strings.HasPrefix(cfg.MetricsPath, "/") {
		return cfg, errors.New("RUTS_METRICS_PATH must start with '/'")
	}
	return cfg, nil
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
