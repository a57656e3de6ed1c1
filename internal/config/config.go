package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingJWTSecret is returned by Validate when no signing secret is configured
var ErrMissingJWTSecret = errors.New("auth.jwt_secret must be set")

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	return Load("")
}

// Load reads configuration from path, or from the default search paths when
// path is empty
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/header-analyzer/")
		v.AddConfigPath("$HOME/.header-analyzer")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("HEADER_ANALYZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.listen_address", "0.0.0.0:5000")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.allow_anonymous_analyze", false)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "168h")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.bootstrap_admin.name", "Administrator")
	v.SetDefault("auth.bootstrap_admin.email", "")
	v.SetDefault("auth.bootstrap_admin.password", "")

	// Store defaults
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.sqlite_path", "/data/header_analyzer.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/header_analyzer")
	v.SetDefault("store.timeout", "5s")

	// History defaults
	v.SetDefault("history.page_size", 50)
	v.SetDefault("history.retention", "0s")
	v.SetDefault("history.cleanup_frequency", "1h")

	// Analysis defaults
	v.SetDefault("analysis.prefer_public", true)
	v.SetDefault("analysis.max_header_size", 64*1024)

	// DMARC defaults
	v.SetDefault("dmarc.mode", "inline")
	v.SetDefault("dmarc.servers", []string{})
	v.SetDefault("dmarc.timeout", "5s")

	// Geolocation defaults
	v.SetDefault("geo.provider", "ipapi")
	v.SetDefault("geo.base_url", "")
	v.SetDefault("geo.api_key", "")
	v.SetDefault("geo.timeout", "5s")
	v.SetDefault("geo.cache_ttl", "1h")

	// SMTP intake defaults
	v.SetDefault("intake.enabled", false)
	v.SetDefault("intake.listen_address", "0.0.0.0:10025")
	v.SetDefault("intake.domain", "localhost")
	v.SetDefault("intake.max_message_bytes", 10<<20)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// durationKeys are the settings read as durations by the typed views
var durationKeys = []string{
	"server.read_timeout",
	"server.write_timeout",
	"server.shutdown_timeout",
	"auth.token_ttl",
	"store.timeout",
	"history.retention",
	"history.cleanup_frequency",
	"dmarc.timeout",
	"geo.timeout",
	"geo.cache_ttl",
}

// Validate checks settings the service cannot start without
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GetString("auth.jwt_secret")) == "" {
		return ErrMissingJWTSecret
	}
	for _, key := range durationKeys {
		if _, err := c.GetDuration(key); err != nil {
			return err
		}
	}
	return nil
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// Set overrides a value, used by command line flags
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
