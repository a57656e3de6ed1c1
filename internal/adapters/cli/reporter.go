package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mikey/header-analyzer/internal/core"
	"go.uber.org/zap"
)

// Reporter analyzes a header read from a file or stdin and prints the result
type Reporter struct {
	service    *core.AnalyzerService
	logger     *zap.Logger
	out        io.Writer
	jsonOutput bool
}

// NewReporter creates a new CLI reporter
func NewReporter(service *core.AnalyzerService, logger *zap.Logger, out io.Writer, jsonOutput bool) *Reporter {
	return &Reporter{
		service:    service,
		logger:     logger,
		out:        out,
		jsonOutput: jsonOutput,
	}
}

// Run reads the whole input as a header block and reports the analysis
func (r *Reporter) Run(ctx context.Context, in io.Reader) (*core.AnalysisResult, error) {
	raw, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	r.logger.Debug("Read header", zap.Int("bytes", len(raw)))

	startTime := time.Now()
	record, err := r.service.Analyze(ctx, string(raw), "")
	if err != nil {
		r.logger.Error("Failed to analyze header", zap.Error(err))
		return nil, err
	}
	duration := time.Since(startTime)

	if r.jsonOutput {
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(record.AnalysisResult); err != nil {
			return nil, fmt.Errorf("failed to encode result: %w", err)
		}
		return &record.AnalysisResult, nil
	}

	res := record.AnalysisResult
	fmt.Fprintf(r.out, "\n=== Header Summary ===\n")
	fmt.Fprintf(r.out, "From: %s\n", res.From)
	fmt.Fprintf(r.out, "To: %s\n", res.To)
	fmt.Fprintf(r.out, "Subject: %s\n", res.Subject)
	fmt.Fprintf(r.out, "Date: %s\n", res.Date)

	fmt.Fprintf(r.out, "\n=== Authentication ===\n")
	fmt.Fprintf(r.out, "SPF: %s\n", res.SPFStatus)
	fmt.Fprintf(r.out, "DKIM: %s\n", res.DKIMStatus)
	fmt.Fprintf(r.out, "DMARC: %s\n", res.DMARCStatus)

	fmt.Fprintf(r.out, "\n=== Origin ===\n")
	fmt.Fprintf(r.out, "Sender IP: %s\n", res.SenderIP)
	fmt.Fprintf(r.out, "Location: %s\n", res.IPLocation)

	fmt.Fprintf(r.out, "\n=== Results ===\n")
	fmt.Fprintf(r.out, "Safe Meter: %s\n", res.SafeMeter)
	fmt.Fprintf(r.out, "Processing time: %v\n", duration)

	return &res, nil
}
