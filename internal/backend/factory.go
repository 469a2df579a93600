package backend

import (
	"fmt"

	"duit/internal/config"
	"duit/internal/ledger"
	"duit/internal/ledger/memory"
	"duit/internal/ledger/sqlite"
	"duit/internal/log"
)

// Result bundles an opened ledger store with its cleanup function.
// Cleanup may be nil when the backend holds no external resources.
type Result struct {
	Store   ledger.Store
	Cleanup func() error
}

// Open creates the ledger store selected by the configuration.
func Open(cfg config.Config, logger *log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.New(log.Config{})
	}

	switch cfg.LedgerBackend {
	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite ledger: %w", err)
		}
		logger.Info("initialized sqlite ledger",
			log.FieldBackend, cfg.LedgerBackend,
			"db_path", cfg.SQLiteDBPath)
		return &Result{Store: store, Cleanup: store.Close}, nil

	case config.BackendMemory:
		store := memory.New()
		logger.Info("initialized memory ledger", log.FieldBackend, cfg.LedgerBackend)
		return &Result{Store: store, Cleanup: store.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported ledger backend: %s", cfg.LedgerBackend)
	}
}
