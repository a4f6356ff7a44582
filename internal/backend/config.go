package backend

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jerardpelaez/wedding-calendar/internal/config"
	"github.com/jerardpelaez/wedding-calendar/internal/core"
)

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQL specific
	SQLiteDBPath string
	DatabaseURL  string

	// Change feed; an empty URL selects the in-process broker
	AMQPURL      string
	AMQPExchange string

	// Object storage
	ObjectStoreDir    string
	ObjectStoreBucket string
	PublicBaseURL     string
	SignedURLTTL      time.Duration

	// Auth; an empty SessionFile keeps the session in memory
	SigningKey  []byte
	SessionTTL  time.Duration
	SessionFile string

	Calendar core.Calendar

	// Registry receives the metrics; nil gets a private one
	Registry *prometheus.Registry
	// CacheSweepInterval of the URL cache; 0 disables the background sweep
	CacheSweepInterval time.Duration
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,

		ObjectStoreDir:    appConfig.ObjectStoreDir,
		ObjectStoreBucket: appConfig.ObjectStoreBucket,
		PublicBaseURL:     appConfig.PublicBaseURL,
		SignedURLTTL:      appConfig.SignedURLTTL,

		SigningKey:  appConfig.SigningKeyBytes(),
		SessionTTL:  appConfig.SessionTTL,
		SessionFile: appConfig.SessionFile,

		Calendar:           appConfig.Calendar(),
		CacheSweepInterval: time.Minute,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	case MemoryBackend:
		// Memory backend doesn't require additional validation
	}

	if c.ObjectStoreDir == "" || c.ObjectStoreBucket == "" {
		return fmt.Errorf("object store directory and bucket are required")
	}
	if len(c.SigningKey) == 0 {
		return fmt.Errorf("signing key is required")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
