package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/header-analyzer/internal/config"
	"github.com/mikey/header-analyzer/internal/core"
	"go.uber.org/zap"
)

const analyzeTimeout = 30 * time.Second

var errNoHeader = &smtp.SMTPError{
	Code:         554,
	EnhancedCode: smtp.EnhancedCode{5, 6, 0},
	Message:      "No header found in message",
}

var errTemporary = &smtp.SMTPError{
	Code:         451,
	EnhancedCode: smtp.EnhancedCode{4, 3, 0},
	Message:      "Analysis failed, try again later",
}

// SMTPIntake accepts mail over SMTP and records an analysis of each message header.
// Records created here have no owner.
type SMTPIntake struct {
	analyzer *core.AnalyzerService
	logger   *zap.Logger
	cfg      config.IntakeConfig

	mu       sync.Mutex
	server   *smtp.Server
	listener net.Listener
}

// NewSMTPIntake creates a new SMTP intake listener
func NewSMTPIntake(analyzer *core.AnalyzerService, logger *zap.Logger, cfg config.IntakeConfig) *SMTPIntake {
	return &SMTPIntake{
		analyzer: analyzer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Start binds the listen address and serves in the background
func (i *SMTPIntake) Start() error {
	ln, err := net.Listen("tcp", i.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", i.cfg.ListenAddress, err)
	}

	server := smtp.NewServer(&backend{intake: i})
	server.Domain = i.cfg.Domain
	server.ReadTimeout = 30 * time.Second
	server.WriteTimeout = 30 * time.Second
	server.MaxMessageBytes = i.cfg.MaxMessageBytes
	server.MaxRecipients = 50

	i.mu.Lock()
	i.server = server
	i.listener = ln
	i.mu.Unlock()

	i.logger.Info("SMTP intake starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			i.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address once the intake has started
func (i *SMTPIntake) Addr() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.listener == nil {
		return ""
	}
	return i.listener.Addr().String()
}

// Stop stops the SMTP intake
func (i *SMTPIntake) Stop() error {
	i.mu.Lock()
	server := i.server
	i.mu.Unlock()
	if server != nil {
		return server.Close()
	}
	return nil
}

// backend implements the go-smtp Backend interface
type backend struct {
	intake *SMTPIntake
}

// NewSession creates a new SMTP session
func (b *backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	remote := ""
	if addr := c.Conn().RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	return &session{intake: b.intake, remote: remote}, nil
}

// session implements the go-smtp Session interface
type session struct {
	intake     *SMTPIntake
	remote     string
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *session) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the sender address
func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data analyzes the header block of the message
func (s *session) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.intake.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	record, err := s.intake.analyzer.Analyze(ctx, headerBlock(raw), "")
	if err != nil {
		if errors.Is(err, core.ErrEmptyHeader) {
			return errNoHeader
		}
		s.intake.logger.Error("Failed to analyze message",
			zap.Error(err),
			zap.String("sender", s.sender),
			zap.String("remote", s.remote))
		return errTemporary
	}

	s.intake.logger.Info("Processed message",
		zap.String("record_id", record.ID),
		zap.String("sender", s.sender),
		zap.Strings("recipients", s.recipients),
		zap.String("remote", s.remote),
		zap.String("safe_meter", record.SafeMeter))

	return nil
}

// Logout handles SMTP logout
func (s *session) Logout() error {
	return nil
}

// headerBlock returns the message text before the first blank line
func headerBlock(raw []byte) string {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return string(raw[:i+2])
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return string(raw[:i+1])
	}
	return string(raw)
}
