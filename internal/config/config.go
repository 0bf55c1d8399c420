package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"balansim/internal/core"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	MetricsEnabled     bool

	// Backend selection
	DataBackend    string
	SQLiteDBPath   string
	DocumentPath   string
	// MemorySeedPath optionally preloads the memory backend from a JSON document.
	MemorySeedPath string

	// Ledger defaults
	DefaultStartingBalance string
	SeedExample            bool
	LedgerTimezone         string

	// AMQP (optional, empty URL disables events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Advice
	AdviceAPIKey   string
	AdviceModel    string
	AdviceDebounce time.Duration
	AdviceTimeout  time.Duration

	LogLevel string
}

var validBackends = []string{"sqlite", "file", "memory"}

// Defaults returns the built-in settings, before the config file and the
// environment are applied.
func Defaults() *Config {
	return &Config{
		Port:               "8081",
		RateLimitPerMinute: 60,
		MetricsEnabled:     true,

		DataBackend:  "sqlite",
		SQLiteDBPath: "./data/balansim.db",
		DocumentPath: "./data/balansim.json",

		DefaultStartingBalance: "10000",
		LedgerTimezone:         "UTC",

		AMQPExchange: "balansim",
		AMQPQueue:    "ledger_events",

		GoogleSheetName: "Transactions",

		AdviceModel:    "gemini-2.0-flash",
		AdviceDebounce: 1500 * time.Millisecond,
		AdviceTimeout:  10 * time.Second,

		LogLevel: "info",
	}
}

// Load reads the environment over the defaults.
func Load() *Config {
	return fromEnv(Defaults())
}

func fromEnv(base *Config) *Config {
	return &Config{
		Port:               getEnv("PORT", base.Port),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", base.RateLimitPerMinute),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", base.MetricsEnabled),

		DataBackend:  getEnv("DATA_BACKEND", base.DataBackend),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", base.SQLiteDBPath),
		DocumentPath: getEnv("DOCUMENT_PATH", base.DocumentPath),

		MemorySeedPath: getEnv("MEMORY_SEED_PATH", base.MemorySeedPath),

		DefaultStartingBalance: getEnv("DEFAULT_STARTING_BALANCE", base.DefaultStartingBalance),
		SeedExample:            getEnvBool("SEED_EXAMPLE", base.SeedExample),
		LedgerTimezone:         getEnv("LEDGER_TIMEZONE", base.LedgerTimezone),

		AMQPURL:      getEnv("AMQP_URL", base.AMQPURL),
		AMQPExchange: getEnv("AMQP_EXCHANGE", base.AMQPExchange),
		AMQPQueue:    getEnv("AMQP_QUEUE", base.AMQPQueue),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", base.GoogleSpreadsheetID),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", base.GoogleSheetName),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", base.GoogleCredentialsFile),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", base.GoogleCredentialsJSON),

		AdviceAPIKey:   getEnv("ADVICE_API_KEY", base.AdviceAPIKey),
		AdviceModel:    getEnv("ADVICE_MODEL", base.AdviceModel),
		AdviceDebounce: getEnvDuration("ADVICE_DEBOUNCE", base.AdviceDebounce),
		AdviceTimeout:  getEnvDuration("ADVICE_TIMEOUT", base.AdviceTimeout),

		LogLevel: getEnv("LOG_LEVEL", base.LogLevel),
	}
}

// Validate validates the configuration and returns an error listing every problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if msg := ensureDir(c.SQLiteDBPath); msg != "" {
			errors = append(errors, msg)
		}
	case "file":
		if c.DocumentPath == "" {
			errors = append(errors, "document path cannot be empty when using file backend")
		} else if msg := ensureDir(c.DocumentPath); msg != "" {
			errors = append(errors, msg)
		}
	}

	if _, err := core.ParseDecimal(c.DefaultStartingBalance); err != nil {
		errors = append(errors, fmt.Sprintf("invalid default starting balance '%s': %v", c.DefaultStartingBalance, err))
	}

	if _, err := time.LoadLocation(c.LedgerTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid ledger timezone '%s': %v", c.LedgerTimezone, err))
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

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.AdviceDebounce < 0 {
		errors = append(errors, fmt.Sprintf("invalid advice debounce %v: must not be negative", c.AdviceDebounce))
	}
	if c.AdviceTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid advice timeout %v: must be at least 1 second", c.AdviceTimeout))
	} else if c.AdviceTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid advice timeout %v: must be at most 5 minutes", c.AdviceTimeout))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateExport checks the extra settings the spreadsheet export worker needs.
func (c *Config) ValidateExport() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required to consume ledger events")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required for the export worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required for the export worker")
	}
	if c.GoogleCredentialsFile != "" {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
		}
	}
	if len(errors) > 0 {
		return fmt.Errorf("export configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// StartingBalance returns the parsed first-run starting balance.
func (c *Config) StartingBalance() core.Money {
	m, err := core.ParseDecimal(c.DefaultStartingBalance)
	if err != nil {
		return core.FromMajor(10000)
	}
	return m
}

// Location returns the time zone used for day bucketing, UTC when unset or invalid.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.LedgerTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func ensureDir(path string) string {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Sprintf("cannot create data directory '%s': %v", dir, err)
		}
	}
	return ""
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
