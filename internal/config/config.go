package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"engdash/internal/core"
	"engdash/internal/report"
)

type Config struct {
	// HTTP Server
	Port             string
	LogLevel         string
	RequestTimeout   time.Duration
	RefreshRateLimit int
	TrustedProxies   string

	// Backend selection
	DataBackend string

	// SQLite
	SQLiteDBPath string

	// Postgres
	PostgresDSN      string
	PostgresMaxConns int
	PostgresMigrate  bool

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthTokenJSON     string

	// Memory
	MemorySeedFile string

	// AMQP refresh events; empty URL disables them
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Classification and aggregation
	ClassificationFile string
	OverheadLabel      string
	OverheadExclude    string
	OtherLabel         string
	DefaultThreshold   float64

	// Snapshot
	SnapshotTTL     time.Duration
	RefreshInterval time.Duration
}

var validBackends = []string{"sqlite", "postgres", "sheets", "memory"}

// LoadEnvFile loads a .env file for local development. A missing file is
// not an error.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RequestTimeout:   getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		RefreshRateLimit: getEnvInt("REFRESH_RATE_LIMIT", 6),
		TrustedProxies:   getEnv("TRUSTED_PROXIES", ""),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/engdash.db"),

		PostgresDSN:      getEnv("POSTGRES_DSN", ""),
		PostgresMaxConns: getEnvInt("POSTGRES_MAX_CONNS", 4),
		PostgresMigrate:  getEnvBool("POSTGRES_MIGRATE", false),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "engineering"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenJSON:     getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),

		MemorySeedFile: getEnv("MEMORY_SEED_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "engdash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "engdash_refresh"),

		ClassificationFile: getEnv("CLASSIFICATION_FILE", ""),
		OverheadLabel:      getEnv("OVERHEAD_LABEL", report.DefaultOverheadLabel),
		OverheadExclude:    getEnv("OVERHEAD_EXCLUDE", report.DefaultExclude),
		OtherLabel:         getEnv("OTHER_LABEL", report.DefaultOtherLabel),
		DefaultThreshold:   getEnvFloat("DEFAULT_THRESHOLD", 0),

		SnapshotTTL:     getEnvDuration("SNAPSHOT_TTL", time.Minute),
		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 0),
	}

	return cfg
}

// Policy returns the configured overhead policy.
func (c *Config) Policy() (report.Policy, error) {
	return report.ParsePolicy(c.OverheadLabel, c.OverheadExclude)
}

// TrustedProxyList splits TRUSTED_PROXIES into trimmed CIDRs.
func (c *Config) TrustedProxyList() []string {
	var out []string
	for _, p := range strings.Split(c.TrustedProxies, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Threshold returns the default bucketing threshold as hours.
func (c *Config) Threshold() core.Hours {
	return decimal.NewFromFloat(c.DefaultThreshold)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RequestTimeout != 0 && (c.RequestTimeout < time.Second || c.RequestTimeout > 5*time.Minute) {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be between 1s and 5m", c.RequestTimeout))
	}
	if c.RefreshRateLimit < 0 || c.RefreshRateLimit > 1000 {
		errors = append(errors, fmt.Sprintf("invalid refresh rate limit %d: must be between 0 and 1000", c.RefreshRateLimit))
	}
	for _, cidr := range c.TrustedProxyList() {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid TRUSTED_PROXIES entry '%s': %v", cidr, err))
		}
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}

	case "postgres":
		if c.PostgresDSN == "" {
			errors = append(errors, "POSTGRES_DSN is required when using postgres backend")
		}
		if c.PostgresMaxConns < 1 || c.PostgresMaxConns > 100 {
			errors = append(errors, fmt.Sprintf("invalid postgres max conns %d: must be between 1 and 100", c.PostgresMaxConns))
		}

	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		hasServiceAccount := c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
		hasClient := c.GoogleOAuthClientJSON != ""
		hasToken := c.GoogleOAuthTokenJSON != ""
		if !hasServiceAccount && !(hasClient && hasToken) {
			errors = append(errors, "sheets backend needs GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or both GOOGLE_OAUTH_CLIENT_JSON and GOOGLE_OAUTH_TOKEN_JSON")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}

	case "memory":
		if c.MemorySeedFile != "" {
			if _, err := os.Stat(c.MemorySeedFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("memory seed file does not exist: %s", c.MemorySeedFile))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ClassificationFile != "" {
		if _, err := os.Stat(c.ClassificationFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("classification file does not exist: %s", c.ClassificationFile))
		}
	}

	if strings.TrimSpace(c.OverheadLabel) == "" {
		errors = append(errors, "OVERHEAD_LABEL cannot be empty")
	}
	if _, err := c.Policy(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid OVERHEAD_EXCLUDE: %v", err))
	}
	if strings.TrimSpace(c.OtherLabel) == "" {
		errors = append(errors, "OTHER_LABEL cannot be empty")
	}
	if c.DefaultThreshold < 0 {
		errors = append(errors, fmt.Sprintf("invalid default threshold %v: must not be negative", c.DefaultThreshold))
	}

	if c.SnapshotTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid snapshot TTL %v: must not be negative", c.SnapshotTTL))
	} else if c.SnapshotTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid snapshot TTL %v: must be at most 24 hours", c.SnapshotTTL))
	}
	if c.RefreshInterval != 0 && c.RefreshInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be 0 or at least 1 second", c.RefreshInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
