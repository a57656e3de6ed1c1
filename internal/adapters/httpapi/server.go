package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/mikey/header-analyzer/internal/config"
	"github.com/mikey/header-analyzer/internal/core"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const healthText = "✅ Email Header Analyzer API is running"

// Server exposes the analyzer and account operations as a JSON API
type Server struct {
	analyzer *core.AnalyzerService
	users    *core.UserService
	logger   *zap.Logger
	cfg      config.ServerConfig
	handler  http.Handler

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewServer creates a new HTTP API server
func NewServer(
	analyzer *core.AnalyzerService,
	users *core.UserService,
	logger *zap.Logger,
	cfg config.ServerConfig,
) *Server {
	s := &Server{
		analyzer: analyzer,
		users:    users,
		logger:   logger,
		cfg:      cfg,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.handleHome())

	analyze := http.Handler(http.HandlerFunc(s.handleAnalyze))
	if s.cfg.AllowAnonymousAnalyze {
		analyze = s.optionalAuth(analyze)
	} else {
		analyze = s.requireAuth(analyze)
	}
	mux.Handle("POST /analyze", analyze)

	mux.Handle("GET /history", s.requireAuth(http.HandlerFunc(s.handleHistory)))
	mux.Handle("DELETE /history", s.requireAuth(s.requireRole(core.RoleAdmin, http.HandlerFunc(s.handleClearHistory))))

	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	return s.recoverer(s.logRequests(c.Handler(mux)))
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress, err)
	}

	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		ErrorLog:     zap.NewStdLog(s.logger),
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("HTTP API starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address once the server has started
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down, waiting up to the shutdown timeout
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx := context.Background()
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}
