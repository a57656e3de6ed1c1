package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	server := cfg.GetServer()
	assert.Equal(t, "0.0.0.0:5000", server.ListenAddress)
	assert.False(t, server.AllowAnonymousAnalyze)
	assert.Equal(t, []string{"*"}, server.CORSOrigins)
	assert.Equal(t, 10*time.Second, server.ShutdownTimeout)

	auth := cfg.GetAuth()
	assert.Equal(t, 168*time.Hour, auth.TokenTTL)
	assert.Equal(t, "Administrator", auth.BootstrapAdmin.Name)

	assert.Equal(t, "memory", cfg.GetStore().Type)
	assert.Equal(t, 50, cfg.GetHistory().PageSize)
	assert.Zero(t, cfg.GetHistory().Retention)
	assert.True(t, cfg.GetAnalysis().PreferPublicIP)
	assert.Equal(t, "inline", cfg.GetDMARC().Mode)
	assert.Empty(t, cfg.GetDMARC().Servers)
	assert.Equal(t, "ipapi", cfg.GetGeo().Provider)
	assert.Equal(t, time.Hour, cfg.GetGeo().CacheTTL)
	assert.False(t, cfg.GetIntake().Enabled)

	assert.ErrorIs(t, cfg.Validate(), ErrMissingJWTSecret)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
auth:
  jwt_secret: from-file
store:
  type: sqlite
dmarc:
  mode: dns
  servers: ["127.0.0.1:53"]
history:
  retention: 720h
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sqlite", cfg.GetStore().Type)
	assert.Equal(t, "dns", cfg.GetDMARC().Mode)
	assert.Equal(t, []string{"127.0.0.1:53"}, cfg.GetDMARC().Servers)
	assert.Equal(t, 720*time.Hour, cfg.GetHistory().Retention)
	assert.Equal(t, 50, cfg.GetHistory().PageSize, "unset keys keep defaults")
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("HEADER_ANALYZER_AUTH_JWT_SECRET", "from-env")
	t.Setenv("HEADER_ANALYZER_GEO_PROVIDER", "none")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "from-env", cfg.GetAuth().JWTSecret)
	assert.Equal(t, "none", cfg.GetGeo().Provider)
	assert.Equal(t, "debug", cfg.GetString("logging.level"))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGetDuration(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	d, err := cfg.GetDuration("dmarc.timeout")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)

	cfg.Set("dmarc.timeout", "soon")
	_, err = cfg.GetDuration("dmarc.timeout")
	assert.Error(t, err)
}

func TestValidateRejectsMalformedDuration(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("auth.jwt_secret", "secret")
	require.NoError(t, cfg.Validate())

	cfg.Set("history.retention", "30 days")
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history.retention")
}
