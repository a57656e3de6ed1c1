package factory

import (
	"fmt"

	"github.com/mikey/header-analyzer/internal/adapters/dmarc"
	"github.com/mikey/header-analyzer/internal/config"
	"github.com/mikey/header-analyzer/internal/core"
	"go.uber.org/zap"
)

// DMARCFactory selects the DMARC strategy
type DMARCFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewDMARCFactory creates a new DMARC factory
func NewDMARCFactory(cfg *config.Config, logger *zap.Logger) *DMARCFactory {
	return &DMARCFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateResolver returns a DNS resolver for mode "dns" and nil for mode "inline",
// which makes the analyzer read dmarc= from the header text
func (f *DMARCFactory) CreateResolver() (core.DMARCResolver, error) {
	dmarcCfg := f.cfg.GetDMARC()

	switch dmarcCfg.Mode {
	case "inline", "":
		return nil, nil
	case "dns":
		r := dmarc.NewResolver(dmarcCfg.Servers, dmarcCfg.Timeout, f.logger)
		f.logger.Info("Using DNS DMARC lookups", zap.Strings("servers", r.Servers()))
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported dmarc mode: %s", dmarcCfg.Mode)
	}
}
