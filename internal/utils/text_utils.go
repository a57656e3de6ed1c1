package utils

import (
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// TextProcessor provides utilities for cleaning submitted header text
type TextProcessor struct {
	logger *zap.Logger
	clean  transform.Transformer
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
		clean: runes.Remove(runes.Predicate(func(r rune) bool {
			if r == '\t' || r == '\n' || r == '\r' {
				return false
			}
			return r == utf8.RuneError || unicode.IsControl(r)
		})),
	}
}

// TruncateText safely truncates text to the specified maximum size in bytes
// and ensures the result is valid UTF-8. The cut is moved back to the last
// line break so no partial header line is kept.
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}
	for i := len(truncated) - 1; i >= 0; i-- {
		if truncated[i] == '\n' {
			truncated = truncated[:i+1]
			break
		}
	}

	tp.logger.Debug("Header text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated
}

// SanitizeUTF8 drops invalid UTF-8 and control characters other than tab, CR and LF
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	sanitized, _, err := transform.String(tp.clean, text)
	if err != nil {
		tp.logger.Warn("Failed to sanitize header text", zap.Error(err))
		return text
	}

	if len(sanitized) != len(text) {
		tp.logger.Debug("Header text sanitized",
			zap.Int("original_size", len(text)),
			zap.Int("sanitized_size", len(sanitized)))
	}

	return sanitized
}

// ProcessText truncates and sanitizes text in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.SanitizeUTF8(tp.TruncateText(text, maxSize))
}
