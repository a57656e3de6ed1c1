package factory

import (
	"fmt"

	"github.com/mikey/header-analyzer/internal/adapters/token"
	"github.com/mikey/header-analyzer/internal/config"
	"github.com/mikey/header-analyzer/internal/core"
)

// AnalyzerOptions builds the analyzer settings from configuration
func AnalyzerOptions(cfg *config.Config) core.AnalyzerOptions {
	analysis := cfg.GetAnalysis()
	return core.AnalyzerOptions{
		PreferPublicIP: analysis.PreferPublicIP,
		MaxHeaderSize:  analysis.MaxHeaderSize,
		HistoryLimit:   cfg.GetHistory().PageSize,
		DNSTimeout:     cfg.GetDMARC().Timeout,
		GeoTimeout:     cfg.GetGeo().Timeout,
		StoreTimeout:   cfg.GetStore().Timeout,
	}
}

// CreateTokenIssuer creates the JWT issuer from the auth settings
func CreateTokenIssuer(cfg *config.Config) (core.TokenIssuer, error) {
	auth := cfg.GetAuth()
	issuer, err := token.NewJWTIssuer(auth.JWTSecret, auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}
	return issuer, nil
}
