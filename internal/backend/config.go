package backend

import (
	"fmt"

	"finanzas/internal/config"
)

const defaultPostgresMaxConns = 10

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) Config {
	if appConfig == nil {
		return Config{}
	}
	return Config{
		Type:             BackendType(appConfig.DataBackend),
		SQLiteDBPath:     appConfig.SQLiteDBPath,
		PostgresDSN:      appConfig.PostgresDSN,
		PostgresMaxConns: defaultPostgresMaxConns,
		AMQPURL:          appConfig.AMQPURL,
		AMQPExchange:     appConfig.AMQPExchange,
		AMQPQueue:        appConfig.AMQPQueue,
	}
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
		if c.PostgresDSN == "" {
			return fmt.Errorf("Postgres DSN is required for postgres backend")
		}
	case MemoryBackend:
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP URL is set")
	}
	return nil
}
