package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goodsign/monday"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	minSigningKeyLength = 32
	// developmentSigningKey only signs tokens of the throwaway memory backend.
	developmentSigningKey = "wedding-calendar-memory-backend-key"
)

type Config struct {
	// HTTP Server
	Port          string
	PublicBaseURL string

	// Database
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string

	// AMQP; empty URL selects the in-process broker
	AMQPURL      string
	AMQPExchange string

	// Object storage
	ObjectStoreDir    string
	ObjectStoreBucket string
	SignedURLTTL      time.Duration

	// Auth
	SigningKey  string
	SessionTTL  time.Duration
	SessionFile string

	// Calendar
	PlanningYear int
	Locale       string

	// Logging
	LogLevel  string
	LogFormat string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Worker
	ExportDebounce       time.Duration
	ExportResyncInterval time.Duration
	WorkerEmail          string
	WorkerPassword       string
}

func Load() *Config {
	cfg := &Config{
		Port:          getEnv("PORT", "8081"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8081"),

		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/planner.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "planner.changes"),

		ObjectStoreDir:    getEnv("OBJECT_STORE_DIR", "./data/objects"),
		ObjectStoreBucket: getEnv("OBJECT_STORE_BUCKET", "wedding-photos"),
		SignedURLTTL:      getEnvDuration("SIGNED_URL_TTL", time.Hour),

		SigningKey:  getEnv("SIGNING_KEY", ""),
		SessionTTL:  getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		SessionFile: getEnv("SESSION_FILE", defaultSessionFile()),

		PlanningYear: getEnvInt("PLANNING_YEAR", core.PlanningYear),
		Locale:       getEnv("LOCALE", string(monday.LocaleEnUS)),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", applog.FormatText),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		ExportDebounce:       getEnvDuration("EXPORT_DEBOUNCE", 5*time.Second),
		ExportResyncInterval: getEnvDuration("EXPORT_RESYNC_INTERVAL", 15*time.Minute),
		WorkerEmail:          getEnv("WORKER_EMAIL", ""),
		WorkerPassword:       getEnv("WORKER_PASSWORD", ""),
	}

	return cfg
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".planner-session")
	}
	return filepath.Join(dir, "wedding-planner", "session")
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	switch c.DataBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL '%s': scheme must be 'postgres' or 'postgresql'", c.DatabaseURL))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends()))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate object storage
	if c.ObjectStoreDir == "" {
		errors = append(errors, "object store directory cannot be empty")
	}
	if c.ObjectStoreBucket == "" || strings.ContainsAny(c.ObjectStoreBucket, "/\\") {
		errors = append(errors, fmt.Sprintf("invalid object store bucket '%s'", c.ObjectStoreBucket))
	}
	if u, err := url.Parse(c.PublicBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errors = append(errors, fmt.Sprintf("invalid public base URL '%s': must be http or https", c.PublicBaseURL))
	}
	if c.SignedURLTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid signed URL TTL %v: must be at least 1 minute", c.SignedURLTTL))
	}

	// Validate auth
	if c.SigningKey == "" && c.DataBackend != BackendMemory {
		errors = append(errors, "SIGNING_KEY is required for persistent backends")
	} else if c.SigningKey != "" && len(c.SigningKey) < minSigningKeyLength {
		errors = append(errors, fmt.Sprintf("SIGNING_KEY must be at least %d bytes", minSigningKeyLength))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	// Validate calendar
	if c.PlanningYear < 1900 || c.PlanningYear > 9999 {
		errors = append(errors, fmt.Sprintf("invalid planning year %d", c.PlanningYear))
	}
	if !knownLocale(c.Locale) {
		errors = append(errors, fmt.Sprintf("unsupported locale '%s'", c.Locale))
	}

	// Validate logging
	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if _, err := applog.NewHandler(c.LogFormat, 0, nil); err != nil {
		errors = append(errors, err.Error())
	}

	// Validate worker configuration
	if c.ExportDebounce < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid export debounce %v: must be at least 100ms", c.ExportDebounce))
	}
	if c.ExportResyncInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid export resync interval %v: must be at least 1 minute", c.ExportResyncInterval))
	}

	// Validate Google Sheets configuration if export is enabled
	if c.GoogleSpreadsheetID != "" && c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker checks the settings only the export worker needs.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.WorkerEmail == "" {
		errors = append(errors, "WORKER_EMAIL is required")
	}
	if c.WorkerPassword == "" {
		errors = append(errors, "WORKER_PASSWORD is required")
	}
	if len(errors) > 0 {
		return fmt.Errorf("worker configuration invalid:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// SheetsEnabled reports whether exports go to Google Sheets rather than memory.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// SigningKeyBytes returns the HMAC key for session tokens and signed URLs.
// Only the memory backend falls back to a built-in key.
func (c *Config) SigningKeyBytes() []byte {
	if c.SigningKey == "" && c.DataBackend == BackendMemory {
		return []byte(developmentSigningKey)
	}
	return []byte(c.SigningKey)
}

// Calendar builds the date helper for the configured year and locale.
func (c *Config) Calendar() core.Calendar {
	return core.NewCalendar(c.PlanningYear, monday.Locale(c.Locale))
}

// Backends lists the accepted DATA_BACKEND values.
func Backends() []string {
	return []string{BackendMemory, BackendSQLite, BackendPostgres}
}

func knownLocale(s string) bool {
	for _, l := range monday.ListLocales() {
		if string(l) == s {
			return true
		}
	}
	return false
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
