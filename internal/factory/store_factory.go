package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/header-analyzer/internal/adapters/store"
	"github.com/mikey/header-analyzer/internal/config"
	"github.com/mikey/header-analyzer/internal/ports"
	"go.uber.org/zap"
)

// StoreFactory creates the history and user store based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore creates a store based on the configuration
func (f *StoreFactory) CreateStore() (ports.Store, error) {
	storeCfg := f.cfg.GetStore()
	historyCfg := f.cfg.GetHistory()

	switch storeCfg.Type {
	case "memory":
		return store.NewMemoryStore(f.logger, historyCfg.Retention, historyCfg.CleanupFrequency), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(storeCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return store.NewSQLiteStore(storeCfg.SQLitePath, f.logger, historyCfg.Retention, historyCfg.CleanupFrequency)
	case "mysql":
		return store.NewMySQLStore(storeCfg.MySQLDSN, f.logger, historyCfg.Retention, historyCfg.CleanupFrequency)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}
