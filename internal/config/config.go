// Package config loads the storefront-auth process configuration from the
// environment and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	storeauth "github.com/Arunava9732/Arunava45-sub000"
	"github.com/spf13/viper"
)

// Session backends accepted by SESSION_BACKEND.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds process configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	JWTSecret    string `mapstructure:"JWT_SECRET"`
	CookieSecret string `mapstructure:"COOKIE_SECRET"`
	CookieName   string `mapstructure:"COOKIE_NAME"`
	// TrustProxy honours X-Forwarded-Proto when deciding the Secure flag.
	TrustProxy bool `mapstructure:"TRUST_PROXY"`

	// SessionYears is the customer session window. AdminSessionYears of
	// zero inherits it.
	SessionYears      int           `mapstructure:"SESSION_YEARS"`
	AdminSessionYears int           `mapstructure:"ADMIN_SESSION_YEARS"`
	TouchInterval     time.Duration `mapstructure:"TOUCH_INTERVAL"`

	SessionCacheSize int           `mapstructure:"SESSION_CACHE_SIZE"`
	SessionCacheTTL  time.Duration `mapstructure:"SESSION_CACHE_TTL"`
	JanitorInterval  time.Duration `mapstructure:"JANITOR_INTERVAL"`

	// SessionBackend selects where session records live: file, redis or postgres.
	SessionBackend string `mapstructure:"SESSION_BACKEND"`
	DataDir        string `mapstructure:"DATA_DIR"`
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int    `mapstructure:"REDIS_DB"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`

	MetricsEnabled bool `mapstructure:"METRICS_ENABLED"`
	AuditEnabled   bool `mapstructure:"AUDIT_ENABLED"`
	// OTLPEndpoint enables the OTLP gRPC metric exporter when set.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads .env (if present) from the working directory, then the
// environment. Env vars override .env.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit dotenv path. A missing file is ignored.
func LoadFrom(envFile string) (*Config, error) {
	v := viper.New()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		_ = v.ReadInConfig() // ignore missing file
	}

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("COOKIE_SECRET", "")
	v.SetDefault("COOKIE_NAME", "auth_token")
	v.SetDefault("TRUST_PROXY", true)
	v.SetDefault("SESSION_YEARS", 10)
	v.SetDefault("ADMIN_SESSION_YEARS", 0)
	v.SetDefault("TOUCH_INTERVAL", "5m")
	v.SetDefault("SESSION_CACHE_SIZE", 1000)
	v.SetDefault("SESSION_CACHE_TTL", "60s")
	v.SetDefault("JANITOR_INTERVAL", "1h")
	v.SetDefault("SESSION_BACKEND", BackendFile)
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("AUDIT_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.SessionBackend = strings.ToLower(strings.TrimSpace(cfg.SessionBackend))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("config: JWT_SECRET must be at least 32 bytes")
	}
	if c.CookieSecret == "" {
		return errors.New("config: COOKIE_SECRET must be set")
	}
	if c.SessionYears <= 0 {
		return errors.New("config: SESSION_YEARS must be > 0")
	}
	if c.AdminSessionYears < 0 {
		return errors.New("config: ADMIN_SESSION_YEARS must be >= 0")
	}
	if c.SessionYears > storeauth.MaxSessionYears || c.AdminSessionYears > storeauth.MaxSessionYears {
		return fmt.Errorf("config: session years must be <= %d", storeauth.MaxSessionYears)
	}

	switch c.SessionBackend {
	case BackendFile:
		if c.DataDir == "" {
			return errors.New("config: DATA_DIR must be set for the file backend")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR must be set for the redis backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	return nil
}

// Engine converts the process configuration into a storeauth.Config. The
// result still goes through storeauth's own validation at Build.
func (c *Config) Engine() storeauth.Config {
	cfg := storeauth.DefaultConfig()

	cfg.Token.Secret = []byte(c.JWTSecret)
	cfg.Session.Lifetime = storeauth.SessionYears(c.SessionYears)
	if c.AdminSessionYears > 0 {
		cfg.Session.AdminLifetime = storeauth.SessionYears(c.AdminSessionYears)
	}
	cfg.Session.TouchInterval = c.TouchInterval

	cfg.Cache.Capacity = c.SessionCacheSize
	cfg.Cache.TTL = c.SessionCacheTTL

	cfg.Cookie.Name = c.CookieName
	cfg.Cookie.Secret = c.CookieSecret
	cfg.Cookie.TrustProxy = c.TrustProxy

	cfg.Janitor.Interval = c.JanitorInterval

	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.MetricsEnabled
	cfg.Audit.Enabled = c.AuditEnabled
	return cfg
}
