package backend

import (
	"fmt"

	"balansim/internal/config"
)

// Type selects where the ledger document lives.
type Type string

const (
	SQLite Type = "sqlite"
	File   Type = "file"
	Memory Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLite, File, Memory:
		return true
	default:
		return false
	}
}

// Types returns every supported backend.
func Types() []Type {
	return []Type{SQLite, File, Memory}
}

// Config holds what the factory needs to build storage and the event
// publisher.
type Config struct {
	Type Type

	SQLiteDBPath   string
	DocumentPath   string
	// MemorySeedPath preloads the memory backend. Empty starts it empty.
	MemorySeedPath string

	// Empty URL disables event publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	cfg := Config{
		Type:           Type(appConfig.DataBackend),
		SQLiteDBPath:   appConfig.SQLiteDBPath,
		DocumentPath:   appConfig.DocumentPath,
		MemorySeedPath: appConfig.MemorySeedPath,
		AMQPURL:        appConfig.AMQPURL,
		AMQPExchange:   appConfig.AMQPExchange,
		AMQPQueue:      appConfig.AMQPQueue,
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Type {
	case SQLite:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case File:
		if c.DocumentPath == "" {
			return fmt.Errorf("document path is required for file backend")
		}
	case Memory:
		// MemorySeedPath is optional
	default:
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	return nil
}
