package di

import (
	"context"
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/header-analyzer/internal/config"
	"github.com/mikey/header-analyzer/internal/core"
	"github.com/mikey/header-analyzer/internal/factory"
	"github.com/mikey/header-analyzer/internal/logging"
	"github.com/mikey/header-analyzer/internal/ports"
	"github.com/mikey/header-analyzer/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	return BuildContainerWithConfig(func() (*config.Config, error) {
		cfg, err := config.New()
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	})
}

// BuildContainerWithConfig wires the service around the given configuration constructor
func BuildContainerWithConfig(newConfig func() (*config.Config, error)) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(newConfig); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideAnalyzer(container); err != nil {
		return nil, err
	}

	// Register store
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.StoreFactory) (ports.Store, error) {
		return f.CreateStore()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s ports.Store) core.HistoryRepository { return s }); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s ports.Store) core.UserRepository { return s }); err != nil {
		return nil, err
	}

	// Register user service
	if err := container.Provide(factory.CreateTokenIssuer); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		cfg *config.Config,
		users core.UserRepository,
		tokens core.TokenIssuer,
		logger *zap.Logger,
	) (*core.UserService, error) {
		svc := core.NewUserService(users, tokens, logger, cfg.GetAuth().BcryptCost)
		admin := cfg.GetAuth().BootstrapAdmin
		if err := svc.EnsureAdmin(context.Background(), admin.Name, admin.Email, admin.Password); err != nil {
			return nil, fmt.Errorf("failed to bootstrap admin: %w", err)
		}
		return svc, nil
	}); err != nil {
		return nil, err
	}

	// Register listeners
	if err := container.Provide(factory.NewListenerFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.ListenerFactory) []ports.Listener {
		return f.CreateListeners()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideAnalyzer registers the analyzer and its outbound dependencies. The
// history repository must be provided by the caller.
func provideAnalyzer(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewDMARCFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewGeoFactory); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register DMARC resolver and geolocation provider
	if err := container.Provide(func(f *factory.DMARCFactory) (core.DMARCResolver, error) {
		return f.CreateResolver()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.GeoFactory) (core.GeoLocator, error) {
		return f.CreateLocator()
	}); err != nil {
		return err
	}

	// Register analyzer service
	if err := container.Provide(factory.AnalyzerOptions); err != nil {
		return err
	}
	return container.Provide(core.NewAnalyzerService)
}
