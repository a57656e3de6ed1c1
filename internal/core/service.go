package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/header-analyzer/internal/headers"
	"github.com/mikey/header-analyzer/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AnalyzerOptions tunes the analysis pipeline
type AnalyzerOptions struct {
	// PreferPublicIP skips private Received hops when a public one exists
	PreferPublicIP bool
	// MaxHeaderSize bounds the header text in bytes, 0 means unbounded
	MaxHeaderSize int
	// HistoryLimit caps the number of records returned by History
	HistoryLimit int
	DNSTimeout   time.Duration
	GeoTimeout   time.Duration
	StoreTimeout time.Duration
}

// AnalyzerService is the core service for header analysis
type AnalyzerService struct {
	dmarc         DMARCResolver
	geo           GeoLocator
	history       HistoryRepository
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
	opts          AnalyzerOptions
	now           func() time.Time
}

// NewAnalyzerService creates a new analyzer service. A nil dmarc resolver selects
// inline dmarc= extraction, a nil geo locator disables geolocation and a nil
// history repository disables recording.
func NewAnalyzerService(
	dmarc DMARCResolver,
	geo GeoLocator,
	history HistoryRepository,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
	opts AnalyzerOptions,
) *AnalyzerService {
	return &AnalyzerService{
		dmarc:         dmarc,
		geo:           geo,
		history:       history,
		textProcessor: textProcessor,
		logger:        logger,
		opts:          opts,
		now:           time.Now,
	}
}

// Analyze runs the full pipeline over a raw header block and records the result.
// DNS, geolocation and storage failures degrade to sentinel values or a log line.
// Empty input returns ErrEmptyHeader and a panic in the pipeline ErrAnalysisFailed.
func (s *AnalyzerService) Analyze(ctx context.Context, raw string, owner string) (record *HistoryRecord, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Panic while analyzing header", zap.Any("panic", rec), zap.Stack("stack"))
			record, err = nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, rec)
		}
	}()

	raw = s.textProcessor.ProcessText(raw, s.opts.MaxHeaderSize)
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyHeader
	}

	fields := headers.ExtractFields(raw)
	sender := headers.LocateSenderIP(raw, s.opts.PreferPublicIP)

	result := AnalysisResult{
		From:       fields.From,
		To:         fields.To,
		Subject:    fields.Subject,
		Date:       fields.Date,
		SPFStatus:  headers.SPFStatus(raw),
		DKIMStatus: headers.DKIMStatus(raw),
		SenderIP:   sender.String(),
	}

	// Each lookup owns its field and never returns an error, so one slow
	// dependency cannot cancel the other.
	var g errgroup.Group
	g.Go(func() error {
		defer s.recoverLookup("dmarc", &result.DMARCStatus, headers.StatusLookupFailed)
		result.DMARCStatus = s.resolveDMARC(ctx, raw, fields.From)
		return nil
	})
	g.Go(func() error {
		defer s.recoverLookup("geolocation", &result.IPLocation, LocationLookupFailed)
		result.IPLocation = s.resolveLocation(ctx, sender)
		return nil
	})
	_ = g.Wait()

	result.SafeMeter = string(headers.Score(result.SPFStatus, result.DKIMStatus, result.DMARCStatus))

	record = &HistoryRecord{
		ID:             uuid.NewString(),
		UserID:         owner,
		AnalysisResult: result,
		CreatedAt:      s.now().UTC(),
	}

	s.logger.Info("Analyzed header",
		zap.String("record_id", record.ID),
		zap.String("user_id", owner),
		zap.String("spf", result.SPFStatus),
		zap.String("dkim", result.DKIMStatus),
		zap.String("dmarc", result.DMARCStatus),
		zap.String("sender_ip", result.SenderIP),
		zap.String("safe_meter", result.SafeMeter))

	s.record(ctx, record)
	return record, nil
}

// recoverLookup turns a panicking lookup into its failure sentinel
func (s *AnalyzerService) recoverLookup(lookup string, field *string, sentinel string) {
	if rec := recover(); rec != nil {
		s.logger.Error("Panic during lookup",
			zap.String("lookup", lookup),
			zap.Any("panic", rec),
			zap.Stack("stack"))
		*field = sentinel
	}
}

func (s *AnalyzerService) record(ctx context.Context, record *HistoryRecord) {
	if s.history == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Panic while saving history record",
				zap.Any("panic", rec),
				zap.String("record_id", record.ID))
		}
	}()
	ctx, cancel := withTimeout(context.WithoutCancel(ctx), s.opts.StoreTimeout)
	defer cancel()

	if err := s.history.SaveRecord(ctx, record); err != nil {
		s.logger.Error("Failed to save history record",
			zap.Error(err),
			zap.String("record_id", record.ID))
	}
}

func (s *AnalyzerService) resolveDMARC(ctx context.Context, raw, from string) string {
	if s.dmarc == nil {
		return headers.InlineDMARCStatus(raw)
	}

	domain := headers.SenderDomain(from)
	if domain == "" {
		return headers.StatusNotFound
	}

	ctx, cancel := withTimeout(ctx, s.opts.DNSTimeout)
	defer cancel()

	record, err := s.dmarc.LookupDMARC(ctx, domain)
	switch {
	case errors.Is(err, ErrNoDMARCRecord):
		return headers.StatusNotFound
	case err != nil:
		s.logger.Warn("DMARC lookup failed", zap.String("domain", domain), zap.Error(err))
		return headers.StatusLookupFailed
	}
	return headers.ParseDMARCPolicy(record)
}

func (s *AnalyzerService) resolveLocation(ctx context.Context, sender headers.SenderIP) string {
	switch {
	case !sender.Found():
		return LocationNotApplicable
	case sender.Private:
		return LocationPrivate
	case s.geo == nil:
		return LocationUnknown
	}

	ctx, cancel := withTimeout(ctx, s.opts.GeoTimeout)
	defer cancel()

	loc, err := s.geo.Locate(ctx, sender.Addr)
	if err != nil {
		s.logger.Warn("Geolocation lookup failed", zap.String("ip", sender.Addr), zap.Error(err))
		return LocationLookupFailed
	}
	if loc == nil {
		return LocationUnknown
	}
	if label := loc.String(); label != "" {
		return label
	}
	return LocationUnknown
}

// History returns the records visible to the principal, newest first. Admins see
// every record, other users only their own.
func (s *AnalyzerService) History(ctx context.Context, p Principal, limit int) ([]HistoryRecord, error) {
	if s.history == nil {
		return []HistoryRecord{}, nil
	}
	if limit <= 0 || (s.opts.HistoryLimit > 0 && limit > s.opts.HistoryLimit) {
		limit = s.opts.HistoryLimit
	}

	filter := HistoryFilter{Limit: limit}
	if !p.IsAdmin() {
		filter.UserID = p.UserID
	}
	records, err := s.history.ListRecords(ctx, filter)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []HistoryRecord{}
	}
	return records, nil
}

// ClearHistory deletes all records. Only admins may clear history.
func (s *AnalyzerService) ClearHistory(ctx context.Context, p Principal) (int64, error) {
	if !p.IsAdmin() {
		return 0, ErrForbidden
	}
	if s.history == nil {
		return 0, nil
	}
	deleted, err := s.history.ClearRecords(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("History cleared", zap.String("user_id", p.UserID), zap.Int64("deleted", deleted))
	return deleted, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
