package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Backend BackendConfig `mapstructure:"backend"`
	Auth    AuthConfig    `mapstructure:"auth"`
	XSRF    XSRFConfig    `mapstructure:"xsrf"`
	Audit   AuditConfig   `mapstructure:"audit"`
}

type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	StaticDir string `mapstructure:"static_dir"`
}

type BackendConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

// Timeout returns the backend request timeout as a duration.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

type AuthConfig struct {
	CookieName    string   `mapstructure:"cookie_name"`
	CookieTTLDays int      `mapstructure:"cookie_ttl_days"`
	CookieSecure  bool     `mapstructure:"cookie_secure"`
	LoginPath     string   `mapstructure:"login_path"`
	LandingPath   string   `mapstructure:"landing_path"`
	PublicPaths   []string `mapstructure:"public_paths"`
}

// CookieTTL returns the auth cookie lifetime as a duration.
func (a AuthConfig) CookieTTL() time.Duration {
	return time.Duration(a.CookieTTLDays) * 24 * time.Hour
}

type XSRFConfig struct {
	HashKey  string `mapstructure:"hash_key"`
	BlockKey string `mapstructure:"block_key"`
}

type AuditConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	BufferSize      int  `mapstructure:"buffer_size"`
	FlushIntervalMs int  `mapstructure:"flush_interval_ms"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../..")

	viper.SetDefault("server.port", 3000)
	viper.SetDefault("server.static_dir", "./public")
	viper.SetDefault("backend.base_url", "http://localhost:8080/api")
	viper.SetDefault("backend.timeout_ms", 10000)
	viper.SetDefault("auth.cookie_name", "barberia_token")
	viper.SetDefault("auth.cookie_ttl_days", 7)
	viper.SetDefault("auth.cookie_secure", false)
	viper.SetDefault("auth.login_path", "/login")
	viper.SetDefault("auth.landing_path", "/dashboard")
	viper.SetDefault("auth.public_paths", []string{
		"/", "/login", "/servicios", "/nosotros", "/contacto",
		"/health", "/favicon.ico", "/assets",
	})
	viper.SetDefault("xsrf.hash_key", "changeme-xsrf-hash-key-32-bytes!")
	viper.SetDefault("xsrf.block_key", "changeme-xsrf-block-key-16b!!!!!")
	viper.SetDefault("audit.enabled", true)
	viper.SetDefault("audit.buffer_size", 500)
	viper.SetDefault("audit.flush_interval_ms", 5000)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; defaults plus env cover deployment.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
