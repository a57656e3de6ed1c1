package factory

import (
	"github.com/mikey/header-analyzer/internal/adapters/httpapi"
	"github.com/mikey/header-analyzer/internal/adapters/intake"
	"github.com/mikey/header-analyzer/internal/config"
	"github.com/mikey/header-analyzer/internal/core"
	"github.com/mikey/header-analyzer/internal/ports"
	"go.uber.org/zap"
)

// ListenerFactory creates the inbound adapters
type ListenerFactory struct {
	cfg      *config.Config
	logger   *zap.Logger
	analyzer *core.AnalyzerService
	users    *core.UserService
}

// NewListenerFactory creates a new listener factory
func NewListenerFactory(
	cfg *config.Config,
	logger *zap.Logger,
	analyzer *core.AnalyzerService,
	users *core.UserService,
) *ListenerFactory {
	return &ListenerFactory{
		cfg:      cfg,
		logger:   logger,
		analyzer: analyzer,
		users:    users,
	}
}

// CreateListeners returns the HTTP API and, when enabled, the SMTP intake
func (f *ListenerFactory) CreateListeners() []ports.Listener {
	listeners := []ports.Listener{
		httpapi.NewServer(f.analyzer, f.users, f.logger.Named("http"), f.cfg.GetServer()),
	}

	if intakeCfg := f.cfg.GetIntake(); intakeCfg.Enabled {
		listeners = append(listeners, intake.NewSMTPIntake(f.analyzer, f.logger.Named("smtp"), intakeCfg))
	}

	return listeners
}
