package factory

import (
	"github.com/mikey/header-analyzer/internal/config"
	"github.com/mikey/header-analyzer/internal/utils"
	"go.uber.org/zap"
)

// TextProcessorFactory creates the sanitizer applied to submitted header text
type TextProcessorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTextProcessorFactory creates a new TextProcessorFactory
func NewTextProcessorFactory(cfg *config.Config, logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextProcessor creates a sanitizer logging under "sanitizer"
func (f *TextProcessorFactory) CreateTextProcessor() *utils.TextProcessor {
	f.logger.Debug("Header sanitizer configured",
		zap.Int("max_header_size", f.cfg.GetAnalysis().MaxHeaderSize))
	return utils.NewTextProcessor(f.logger.Named("sanitizer"))
}
