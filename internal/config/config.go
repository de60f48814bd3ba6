package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string
	PostgresDSN  string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets ledger
	GoogleSpreadsheetID      string
	GoogleLedgerSheetName    string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Auth
	JWTSecret string
	CronToken string

	// Generator
	GeneratorInterval    time.Duration
	GeneratorConcurrency int

	// Ledger export worker
	ExportBatchSize int
	ExportInterval  time.Duration

	RateLimitPerMinute int

	LogLevel  string
	LogFormat string
}

var defaults = map[string]any{
	"PORT":                        "8081",
	"DATA_BACKEND":                "sqlite",
	"SQLITE_DB_PATH":              "./data/finanzas.db",
	"POSTGRES_DSN":                "",
	"AMQP_URL":                    "",
	"AMQP_EXCHANGE":               "finanzas",
	"AMQP_QUEUE":                  "item_events",
	"GOOGLE_SPREADSHEET_ID":       "",
	"GOOGLE_LEDGER_SHEET_NAME":    "Ledger",
	"GOOGLE_SERVICE_ACCOUNT_JSON": "",
	"GOOGLE_SERVICE_ACCOUNT_FILE": "",
	"JWT_SECRET":                  "",
	"CRON_TOKEN":                  "",
	"GENERATOR_INTERVAL":          "1h",
	"GENERATOR_CONCURRENCY":       4,
	"EXPORT_BATCH_SIZE":           10,
	"EXPORT_INTERVAL":             "30s",
	"RATE_LIMIT_PER_MINUTE":       60,
	"LOG_LEVEL":                   "info",
	"LOG_FORMAT":                  "text",
}

// Load reads defaults, then the optional config file, then the environment.
// An empty configFile falls back to FINANZAS_CONFIG.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if configFile == "" {
		configFile = os.Getenv("FINANZAS_CONFIG")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from v. Durations accept Go syntax ("90s").
func FromViper(v *viper.Viper) (*Config, error) {
	genInterval, err := duration(v, "GENERATOR_INTERVAL")
	if err != nil {
		return nil, err
	}
	exportInterval, err := duration(v, "EXPORT_INTERVAL")
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:        v.GetString("PORT"),
		DataBackend: strings.ToLower(v.GetString("DATA_BACKEND")),

		SQLiteDBPath: v.GetString("SQLITE_DB_PATH"),
		PostgresDSN:  v.GetString("POSTGRES_DSN"),

		AMQPURL:      v.GetString("AMQP_URL"),
		AMQPExchange: v.GetString("AMQP_EXCHANGE"),
		AMQPQueue:    v.GetString("AMQP_QUEUE"),

		GoogleSpreadsheetID:      v.GetString("GOOGLE_SPREADSHEET_ID"),
		GoogleLedgerSheetName:    v.GetString("GOOGLE_LEDGER_SHEET_NAME"),
		GoogleServiceAccountJSON: v.GetString("GOOGLE_SERVICE_ACCOUNT_JSON"),
		GoogleServiceAccountFile: v.GetString("GOOGLE_SERVICE_ACCOUNT_FILE"),

		JWTSecret: v.GetString("JWT_SECRET"),
		CronToken: v.GetString("CRON_TOKEN"),

		GeneratorInterval:    genInterval,
		GeneratorConcurrency: v.GetInt("GENERATOR_CONCURRENCY"),

		ExportBatchSize: v.GetInt("EXPORT_BATCH_SIZE"),
		ExportInterval:  exportInterval,

		RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),

		LogLevel:  strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat: strings.ToLower(v.GetString("LOG_FORMAT")),
	}, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", key, raw, err)
	}
	return d, nil
}

// LedgerEnabled reports whether a spreadsheet is configured for export.
func (c *Config) LedgerEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						problems = append(problems, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if c.PostgresDSN == "" {
			problems = append(problems, "POSTGRES_DSN is required when using postgres backend")
		} else if u, err := url.Parse(c.PostgresDSN); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			problems = append(problems, "invalid POSTGRES_DSN: must be a postgres:// URL")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of [memory postgres sqlite]", c.DataBackend))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.LedgerEnabled() {
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				problems = append(problems, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.GeneratorConcurrency < 1 || c.GeneratorConcurrency > 64 {
		problems = append(problems, fmt.Sprintf("invalid generator concurrency %d: must be between 1 and 64", c.GeneratorConcurrency))
	}
	if c.GeneratorInterval < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid generator interval %v: must be at least 1 minute", c.GeneratorInterval))
	}

	if c.ExportBatchSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid export batch size %d: must be at least 1", c.ExportBatchSize))
	} else if c.ExportBatchSize > 1000 {
		problems = append(problems, fmt.Sprintf("invalid export batch size %d: must be at most 1000", c.ExportBatchSize))
	}
	if c.ExportInterval < time.Second {
		problems = append(problems, fmt.Sprintf("invalid export interval %v: must be at least 1 second", c.ExportInterval))
	} else if c.ExportInterval > 24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid export interval %v: must be at most 24 hours", c.ExportInterval))
	}

	if c.RateLimitPerMinute < 0 {
		problems = append(problems, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// RequireJWTSecret is checked by the API server only; workers run without it.
func (c *Config) RequireJWTSecret() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required to serve the API")
	}
	return nil
}
