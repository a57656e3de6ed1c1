package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mikey/header-analyzer/internal/adapters/store"
	"github.com/mikey/header-analyzer/internal/adapters/token"
	"github.com/mikey/header-analyzer/internal/config"
	"github.com/mikey/header-analyzer/internal/core"
	"github.com/mikey/header-analyzer/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const sampleHeader = "Received: from mail.example.com ([203.0.113.5])\r\n" +
	"Authentication-Results: mx.example.org; spf=pass; dkim=pass; dmarc=pass\r\n" +
	"From: Alice <alice@example.com>\r\n" +
	"To: bob@example.org\r\n" +
	"Subject: Quarterly report\r\n" +
	"Date: Mon, 6 Oct 2025 09:00:00 +0000\r\n"

type testEnv struct {
	srv   *httptest.Server
	store *store.MemoryStore
	users *core.UserService
}

func newTestEnv(t *testing.T, mutate func(*config.ServerConfig)) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	st := store.NewMemoryStore(logger, 0, 0)
	t.Cleanup(func() { _ = st.Close() })

	issuer, err := token.NewJWTIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	analyzer := core.NewAnalyzerService(nil, nil, st, utils.NewTextProcessor(logger), logger, core.AnalyzerOptions{
		PreferPublicIP: true,
		HistoryLimit:   50,
		StoreTimeout:   time.Second,
	})
	users := core.NewUserService(st, issuer, logger, bcrypt.MinCost)
	require.NoError(t, users.EnsureAdmin(context.Background(), "Admin", "admin@example.com", "admin-pass"))

	cfg := config.ServerConfig{MaxBodyBytes: 1 << 20, CORSOrigins: []string{"*"}}
	if mutate != nil {
		mutate(&cfg)
	}
	srv := httptest.NewServer(NewServer(analyzer, users, logger, cfg).Handler())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, store: st, users: users}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) register(t *testing.T, name, email, password string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/register", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out sessionResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "User registered", out.Message)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/login", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out sessionResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Token
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	msg, _ := out["error"].(string)
	return msg
}

func TestHome(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, healthText, string(body))
}

func TestAnalyzeRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.register(t, "Alice", "alice@example.com", "pw")

	resp, body := env.do(t, http.MethodPost, "/analyze", tok, map[string]string{"header": sampleHeader})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var result core.AnalysisResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, "Alice <alice@example.com>", result.From)
	assert.Equal(t, "Quarterly report", result.Subject)
	assert.Equal(t, "pass", result.SPFStatus)
	assert.Equal(t, "pass", result.DMARCStatus)
	assert.Equal(t, "✅ Safe – All checks passed", result.SafeMeter)
	assert.Equal(t, "203.0.113.5", result.SenderIP)
	assert.Equal(t, core.LocationUnknown, result.IPLocation)

	var keys map[string]any
	require.NoError(t, json.Unmarshal(body, &keys))
	for _, k := range []string{"from", "to", "subject", "date", "spfStatus", "dkimStatus", "dmarcStatus", "safeMeter", "senderIP", "ipLocation"} {
		assert.Contains(t, keys, k)
	}

	resp, body = env.do(t, http.MethodGet, "/history", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var history []core.HistoryRecord
	require.NoError(t, json.Unmarshal(body, &history))
	require.Len(t, history, 1)
	assert.Equal(t, result, history[0].AnalysisResult)
	assert.NotEmpty(t, history[0].ID)
	assert.NotEmpty(t, history[0].UserID)
}

func TestAnalyzeIdempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.register(t, "Alice", "alice@example.com", "pw")

	_, first := env.do(t, http.MethodPost, "/analyze", tok, map[string]string{"header": sampleHeader})
	_, second := env.do(t, http.MethodPost, "/analyze", tok, map[string]string{"header": sampleHeader})
	assert.JSONEq(t, string(first), string(second))

	_, body := env.do(t, http.MethodGet, "/history", tok, nil)
	var history []core.HistoryRecord
	require.NoError(t, json.Unmarshal(body, &history))
	assert.Len(t, history, 2)
}

func TestAnalyzeValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.register(t, "Alice", "alice@example.com", "pw")

	resp, body := env.do(t, http.MethodPost, "/analyze", tok, map[string]string{"header": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No header provided", errorMessage(t, body))

	resp, _ = env.do(t, http.MethodPost, "/analyze", tok, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/analyze", tok, "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	records, err := env.store.ListRecords(context.Background(), core.HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

// explodingHistory is a HistoryRepository whose writes panic
type explodingHistory struct {
	*store.MemoryStore
}

func (explodingHistory) SaveRecord(context.Context, *core.HistoryRecord) error {
	panic("store exploded")
}

func postAnonymousAnalyze(t *testing.T, analyzer *core.AnalyzerService) (*http.Response, []byte) {
	t.Helper()
	srv := httptest.NewServer(NewServer(analyzer, nil, zap.NewNop(), config.ServerConfig{AllowAnonymousAnalyze: true}).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/analyze", "application/json", strings.NewReader(`{"header":"From: a@example.com\nspf=pass"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestAnalyzeStorePanicKeepsResponse(t *testing.T) {
	logger := zap.NewNop()
	st := store.NewMemoryStore(logger, 0, 0)
	t.Cleanup(func() { _ = st.Close() })
	analyzer := core.NewAnalyzerService(nil, nil, explodingHistory{st}, utils.NewTextProcessor(logger), logger, core.AnalyzerOptions{})

	resp, body := postAnonymousAnalyze(t, analyzer)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var result core.AnalysisResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, "a@example.com", result.From)
	assert.Equal(t, "pass", result.SPFStatus)
}

func TestAnalyzeFailureReturnsErrorResult(t *testing.T) {
	// without a text processor the pipeline panics before producing a result
	analyzer := core.NewAnalyzerService(nil, nil, nil, nil, zap.NewNop(), core.AnalyzerOptions{})

	resp, body := postAnonymousAnalyze(t, analyzer)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var out analyzeErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "Analysis failed", out.Error)
	assert.Equal(t, core.ErrorResult(), out.AnalysisResult)
}

func TestAnalyzeBodyTooLarge(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.ServerConfig) { cfg.MaxBodyBytes = 64 })
	tok := env.register(t, "A", "a@example.com", "pw")

	resp, _ := env.do(t, http.MethodPost, "/analyze", tok, map[string]string{"header": strings.Repeat("X", 200)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestAuthErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodPost, "/analyze", "", map[string]string{"header": sampleHeader})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", errorMessage(t, body))

	resp, _ = env.do(t, http.MethodGet, "/history", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/history", "forged.token.value", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Forbidden", errorMessage(t, body))

	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/history", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, raw.StatusCode, "only bearer tokens are accepted")
}

func TestAnonymousAnalyze(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.ServerConfig) { cfg.AllowAnonymousAnalyze = true })

	resp, _ := env.do(t, http.MethodPost, "/analyze", "", map[string]string{"header": sampleHeader})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/analyze", "bad", map[string]string{"header": sampleHeader})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "a presented token must still be valid")

	records, err := env.store.ListRecords(context.Background(), core.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].UserID)
}

func TestHistoryVisibility(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.register(t, "Alice", "alice@example.com", "pw")
	bob := env.register(t, "Bob", "bob@example.com", "pw")
	admin := env.login(t, "admin@example.com", "admin-pass")

	env.do(t, http.MethodPost, "/analyze", alice, map[string]string{"header": sampleHeader})
	env.do(t, http.MethodPost, "/analyze", bob, map[string]string{"header": "From: bob@example.com\nspf=fail"})
	env.do(t, http.MethodPost, "/analyze", bob, map[string]string{"header": "From: bob@example.com\nspf=none"})

	count := func(tok, query string) int {
		resp, body := env.do(t, http.MethodGet, "/history"+query, tok, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var history []core.HistoryRecord
		require.NoError(t, json.Unmarshal(body, &history))
		return len(history)
	}

	assert.Equal(t, 1, count(alice, ""))
	assert.Equal(t, 2, count(bob, ""))
	assert.Equal(t, 1, count(bob, "?limit=1"))
	assert.Equal(t, 3, count(admin, ""))

	resp, _ := env.do(t, http.MethodGet, "/history?limit=abc", bob, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClearHistory(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.register(t, "Alice", "alice@example.com", "pw")
	env.do(t, http.MethodPost, "/analyze", alice, map[string]string{"header": sampleHeader})
	env.do(t, http.MethodPost, "/analyze", alice, map[string]string{"header": sampleHeader})

	resp, body := env.do(t, http.MethodDelete, "/history", alice, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Forbidden", errorMessage(t, body))

	records, err := env.store.ListRecords(context.Background(), core.HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 2, "forbidden clear leaves history intact")

	admin := env.login(t, "admin@example.com", "admin-pass")
	resp, body = env.do(t, http.MethodDelete, "/history", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out clearResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, int64(2), out.Deleted)

	_, body = env.do(t, http.MethodGet, "/history", alice, nil)
	assert.JSONEq(t, `[]`, string(body))
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "Alice", "alice@example.com", "pw")

	resp, body := env.do(t, http.MethodPost, "/register", "", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "other",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "User already exists", errorMessage(t, body))

	resp, body = env.do(t, http.MethodPost, "/register", "", map[string]string{
		"name": "Long", "email": "long@example.com", "password": strings.Repeat("p", 100),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Password must be at most 72 bytes", errorMessage(t, body))

	resp, body = env.do(t, http.MethodPost, "/register", "", map[string]string{"name": "NoMail"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "All fields are required", errorMessage(t, body))

	resp, body = env.do(t, http.MethodPost, "/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", errorMessage(t, body))

	resp, body = env.do(t, http.MethodPost, "/login", "", map[string]string{
		"email": "alice@example.com", "password": "pw",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(body), "passwordHash")
	assert.NotContains(t, string(body), "$2a$")

	var out sessionResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "Login successful", out.Message)
	assert.Equal(t, core.RoleUser, out.Role)
	require.NotNil(t, out.User)
	assert.Equal(t, core.RoleUser, out.User.Role)
}

func TestRecovererReturnsJSON(t *testing.T) {
	s := &Server{logger: zap.NewNop()}
	h := s.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.ServerConfig) { cfg.CORSOrigins = []string{"https://app.example.com"} })

	req, err := http.NewRequest(http.MethodOptions, env.srv.URL+"/analyze", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization,content-type", resp.Header.Get("Access-Control-Allow-Headers"))
}

func TestStartStop(t *testing.T) {
	logger := zap.NewNop()
	s := NewServer(nil, nil, logger, config.ServerConfig{ListenAddress: "127.0.0.1:0", ShutdownTimeout: time.Second})
	require.NoError(t, s.Start())

	resp, err := http.Get("http://" + s.Addr() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop())
}
