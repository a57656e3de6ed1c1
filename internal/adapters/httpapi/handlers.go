package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/mikey/header-analyzer/internal/core"
	"go.uber.org/zap"
)

type analyzeRequest struct {
	Header string `json:"header"`
}

type analyzeErrorResponse struct {
	core.AnalysisResult
	Error string `json:"error"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Message string     `json:"message"`
	Token   string     `json:"token"`
	Role    core.Role  `json:"role,omitempty"`
	User    *core.User `json:"user,omitempty"`
}

type clearResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

func (s *Server) handleHome() http.HandlerFunc {
	var static http.Handler
	if s.cfg.StaticDir != "" {
		static = http.FileServer(http.Dir(s.cfg.StaticDir))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if static != nil {
			static.ServeHTTP(w, r)
			return
		}
		if r.URL.Path != "/" {
			jsonError(w, http.StatusNotFound, "Not found")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(healthText))
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.logger.Error("Panic while analyzing header", zap.Any("panic", rec), zap.Stack("stack"))
			writeAnalysisFailed(w)
		}
	}()

	var req analyzeRequest
	if err := decodeJSON(w, r, s.cfg.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if strings.TrimSpace(req.Header) == "" {
		jsonError(w, http.StatusBadRequest, "No header provided")
		return
	}

	p, _ := principalFromContext(r.Context())
	record, err := s.analyzer.Analyze(r.Context(), req.Header, p.UserID)
	if err != nil {
		if errors.Is(err, core.ErrEmptyHeader) {
			jsonError(w, http.StatusBadRequest, "No header provided")
			return
		}
		s.logger.Error("Failed to analyze header", zap.Error(err))
		writeAnalysisFailed(w)
		return
	}

	writeJSON(w, http.StatusOK, record.AnalysisResult)
}

func writeAnalysisFailed(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, analyzeErrorResponse{
		AnalysisResult: core.ErrorResult(),
		Error:          "Analysis failed",
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	p, _ := principalFromContext(r.Context())
	records, err := s.analyzer.History(r.Context(), p, limit)
	if err != nil {
		s.logger.Error("Failed to fetch history", zap.Error(err), zap.String("user_id", p.UserID))
		jsonError(w, http.StatusInternalServerError, "Failed to fetch history")
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())
	deleted, err := s.analyzer.ClearHistory(r.Context(), p)
	switch {
	case errors.Is(err, core.ErrForbidden):
		jsonError(w, http.StatusForbidden, "Forbidden")
		return
	case err != nil:
		s.logger.Error("Failed to clear history", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "Failed to clear history")
		return
	}

	writeJSON(w, http.StatusOK, clearResponse{Message: "History cleared", Deleted: deleted})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, s.cfg.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	session, err := s.users.Register(r.Context(), req.Name, req.Email, req.Password)
	switch {
	case errors.Is(err, core.ErrMissingFields):
		jsonError(w, http.StatusBadRequest, "All fields are required")
		return
	case errors.Is(err, core.ErrUserExists):
		jsonError(w, http.StatusBadRequest, "User already exists")
		return
	case errors.Is(err, core.ErrPasswordTooLong):
		jsonError(w, http.StatusBadRequest, "Password must be at most 72 bytes")
		return
	case err != nil:
		s.logger.Error("Failed to register user", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Message: "User registered", Token: session.Token, Role: session.User.Role})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, s.cfg.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	session, err := s.users.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, core.ErrMissingFields):
		jsonError(w, http.StatusBadRequest, "All fields are required")
		return
	case errors.Is(err, core.ErrInvalidCredentials):
		jsonError(w, http.StatusBadRequest, "Invalid credentials")
		return
	case err != nil:
		s.logger.Error("Failed to log in", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Message: "Login successful",
		Token:   session.Token,
		Role:    session.User.Role,
		User:    session.User,
	})
}
