// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Supported ledger backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP server
	Port string

	// Ledger backend
	LedgerBackend string
	SQLiteDBPath  string

	// AMQP (optional; empty URL disables event publication)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Views
	RecentLimit int

	// Mirror worker
	MirrorSpreadsheetID string

	// Development convenience: owner the session resolves to on startup.
	// Empty means the session starts anonymous until a login arrives.
	InitialOwnerID string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8082"),

		LedgerBackend: getEnv("LEDGER_BACKEND", BackendMemory),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/duit.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "duit"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_events"),

		RecentLimit: getEnvInt("RECENT_LIMIT", 5),

		MirrorSpreadsheetID: getEnv("MIRROR_SPREADSHEET_ID", ""),

		InitialOwnerID: getEnv("INITIAL_OWNER_ID", ""),
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.LedgerBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errs = append(errs, "sqlite backend requires SQLITE_DB_PATH")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid ledger backend '%s': must be one of [memory sqlite]", c.LedgerBackend))
	}

	if c.RecentLimit < 1 {
		errs = append(errs, fmt.Sprintf("invalid recent limit %d: must be at least 1", c.RecentLimit))
	}

	if c.AMQPURL != "" {
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP enabled but AMQP_EXCHANGE is empty")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP enabled but AMQP_QUEUE is empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
