package config

import "time"

// ServerConfig represents the configuration for the HTTP API
type ServerConfig struct {
	ListenAddress         string
	StaticDir             string
	AllowAnonymousAnalyze bool
	CORSOrigins           []string
	MaxBodyBytes          int64
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	ShutdownTimeout       time.Duration
}

// BootstrapAdminConfig describes the admin account ensured at startup
type BootstrapAdminConfig struct {
	Name     string
	Email    string
	Password string
}

// AuthConfig represents the token and password settings
type AuthConfig struct {
	JWTSecret      string
	TokenTTL       time.Duration
	BcryptCost     int
	BootstrapAdmin BootstrapAdminConfig
}

// StoreConfig represents the configuration for the history and user store
type StoreConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
	Timeout    time.Duration
}

// HistoryConfig represents paging and retention of analysis history
type HistoryConfig struct {
	PageSize         int
	Retention        time.Duration
	CleanupFrequency time.Duration
}

// AnalysisConfig represents the header pipeline settings
type AnalysisConfig struct {
	PreferPublicIP bool
	MaxHeaderSize  int
}

// DMARCConfig represents the DMARC strategy
type DMARCConfig struct {
	Mode    string
	Servers []string
	Timeout time.Duration
}

// GeoConfig represents the geolocation provider
type GeoConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// IntakeConfig represents the SMTP intake listener
type IntakeConfig struct {
	Enabled         bool
	ListenAddress   string
	Domain          string
	MaxMessageBytes int64
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress:         c.GetString("server.listen_address"),
		StaticDir:             c.GetString("server.static_dir"),
		AllowAnonymousAnalyze: c.GetBool("server.allow_anonymous_analyze"),
		CORSOrigins:           c.GetStringSlice("server.cors_origins"),
		MaxBodyBytes:          c.v.GetInt64("server.max_body_bytes"),
		ReadTimeout:           c.v.GetDuration("server.read_timeout"),
		WriteTimeout:          c.v.GetDuration("server.write_timeout"),
		ShutdownTimeout:       c.v.GetDuration("server.shutdown_timeout"),
	}
}

// GetAuth returns the authentication configuration
func (c *Config) GetAuth() AuthConfig {
	return AuthConfig{
		JWTSecret:  c.GetString("auth.jwt_secret"),
		TokenTTL:   c.v.GetDuration("auth.token_ttl"),
		BcryptCost: c.GetInt("auth.bcrypt_cost"),
		BootstrapAdmin: BootstrapAdminConfig{
			Name:     c.GetString("auth.bootstrap_admin.name"),
			Email:    c.GetString("auth.bootstrap_admin.email"),
			Password: c.GetString("auth.bootstrap_admin.password"),
		},
	}
}

// GetStore returns the store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:       c.GetString("store.type"),
		SQLitePath: c.GetString("store.sqlite_path"),
		MySQLDSN:   c.GetString("store.mysql_dsn"),
		Timeout:    c.v.GetDuration("store.timeout"),
	}
}

// GetHistory returns the history configuration
func (c *Config) GetHistory() HistoryConfig {
	return HistoryConfig{
		PageSize:         c.GetInt("history.page_size"),
		Retention:        c.v.GetDuration("history.retention"),
		CleanupFrequency: c.v.GetDuration("history.cleanup_frequency"),
	}
}

// GetAnalysis returns the analysis pipeline configuration
func (c *Config) GetAnalysis() AnalysisConfig {
	return AnalysisConfig{
		PreferPublicIP: c.GetBool("analysis.prefer_public"),
		MaxHeaderSize:  c.GetInt("analysis.max_header_size"),
	}
}

// GetDMARC returns the DMARC configuration
func (c *Config) GetDMARC() DMARCConfig {
	return DMARCConfig{
		Mode:    c.GetString("dmarc.mode"),
		Servers: c.GetStringSlice("dmarc.servers"),
		Timeout: c.v.GetDuration("dmarc.timeout"),
	}
}

// GetGeo returns the geolocation configuration
func (c *Config) GetGeo() GeoConfig {
	return GeoConfig{
		Provider: c.GetString("geo.provider"),
		BaseURL:  c.GetString("geo.base_url"),
		APIKey:   c.GetString("geo.api_key"),
		Timeout:  c.v.GetDuration("geo.timeout"),
		CacheTTL: c.v.GetDuration("geo.cache_ttl"),
	}
}

// GetIntake returns the SMTP intake configuration
func (c *Config) GetIntake() IntakeConfig {
	return IntakeConfig{
		Enabled:         c.GetBool("intake.enabled"),
		ListenAddress:   c.GetString("intake.listen_address"),
		Domain:          c.GetString("intake.domain"),
		MaxMessageBytes: c.v.GetInt64("intake.max_message_bytes"),
	}
}
