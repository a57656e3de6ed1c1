package factory

import (
	"fmt"

	"github.com/mikey/header-analyzer/internal/adapters/geo"
	"github.com/mikey/header-analyzer/internal/config"
	"github.com/mikey/header-analyzer/internal/core"
	"go.uber.org/zap"
)

// GeoFactory creates geolocation providers based on configuration
type GeoFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewGeoFactory creates a new geolocation factory
func NewGeoFactory(cfg *config.Config, logger *zap.Logger) *GeoFactory {
	return &GeoFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateLocator creates the configured provider, wrapped in a TTL cache when
// geo.cache_ttl is positive. Provider "none" returns nil.
func (f *GeoFactory) CreateLocator() (core.GeoLocator, error) {
	geoCfg := f.cfg.GetGeo()

	var locator core.GeoLocator
	switch geoCfg.Provider {
	case "none", "":
		return nil, nil
	case "ipapi":
		locator = geo.NewIPAPILocator(geoCfg.BaseURL, geoCfg.Timeout, f.logger)
	case "ipinfo":
		locator = geo.NewIPInfoLocator(geoCfg.BaseURL, geoCfg.APIKey, geoCfg.Timeout, f.logger)
	default:
		return nil, fmt.Errorf("unsupported geolocation provider: %s", geoCfg.Provider)
	}

	if geoCfg.CacheTTL > 0 {
		return geo.NewCachedLocator(locator, geoCfg.CacheTTL, f.logger), nil
	}
	return locator, nil
}
