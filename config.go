package storeauth

import (
	"errors"
	"time"

	"github.com/Arunava9732/Arunava45-sub000/session"
)

// Config is the full Engine configuration. Build it from [DefaultConfig]
// and override fields; the Builder clones it.
type Config struct {
	Token    TokenConfig
	Session  SessionConfig
	Cache    CacheConfig
	Cookie   CookieConfig
	Janitor  JanitorConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig holds the token signing material and per-role token lifetimes.
type TokenConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	// Secret is the HS256 secret, or the Ed25519 private key.
	Secret    []byte
	PublicKey []byte
	Issuer    string
	Leeway    time.Duration
	// CustomerTTL and AdminTTL set the token expiry per role. Zero inherits
	// the matching session lifetime.
	CustomerTTL time.Duration
	AdminTTL    time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig sets the durable session window and sliding-expiration
// throttle.
type SessionConfig struct {
	Lifetime time.Duration
	// AdminLifetime overrides Lifetime for admins. Zero inherits Lifetime.
	AdminLifetime time.Duration
	// TouchInterval is the minimum idle time before a request extends the
	// session. Requests inside the interval cause no store write.
	TouchInterval      time.Duration
	UserAgentMaxLength int
}

// CacheConfig bounds the in-process session cache.
type CacheConfig struct {
	Capacity        int
	TTL             time.Duration
	KeySuffixLength int
}

// CookieConfig describes the transport cookie.
type CookieConfig struct {
	Name       string
	Secret     string
	Domain     string
	TrustProxy bool
}

// JanitorConfig controls the expired-session sweep.
type JanitorConfig struct {
	Enabled  bool
	Interval time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the Argon2id parameters used by Login.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and the latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// MaxSessionYears is the longest session window SessionYears will produce.
const MaxSessionYears = 100

// SessionYears converts a whole number of years to a duration. n is capped
// at MaxSessionYears.
func SessionYears(n int) time.Duration {
	if n > MaxSessionYears {
		n = MaxSessionYears
	}
	return time.Duration(n) * 365 * 24 * time.Hour
}

// DefaultConfig returns the storefront defaults: a ten year session window
// for every role, a five minute touch throttle, a 1000 entry cache with a
// 60 second freshness window and an hourly janitor. Secrets are empty and
// must be supplied.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			SigningMethod: "hs256",
		},
		Session: SessionConfig{
			Lifetime:           SessionYears(10),
			TouchInterval:      5 * time.Minute,
			UserAgentMaxLength: 256,
		},
		Cache: CacheConfig{
			Capacity:        session.DefaultCacheCapacity,
			TTL:             session.DefaultCacheTTL,
			KeySuffixLength: session.DefaultCacheKeySuffix,
		},
		Cookie: CookieConfig{
			Name:       "auth_token",
			TrustProxy: true,
		},
		Janitor: JanitorConfig{
			Enabled:  true,
			Interval: time.Hour,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks cross-field constraints. Signing material is checked
// again by the token codec at Build.
func (c *Config) Validate() error {
	// Token
	if c.Token.SigningMethod != "hs256" && c.Token.SigningMethod != "ed25519" {
		return errors.New("unsupported token signing method")
	}
	if len(c.Token.Secret) == 0 {
		return errors.New("token signing secret is required")
	}
	if c.Token.SigningMethod == "ed25519" && len(c.Token.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("token leeway must be between 0 and 2m")
	}
	if c.Token.CustomerTTL < 0 || c.Token.AdminTTL < 0 {
		return errors.New("token TTLs must be >= 0")
	}

	// Session
	if c.Session.Lifetime <= 0 {
		return errors.New("Session Lifetime must be > 0")
	}
	if c.Session.AdminLifetime < 0 {
		return errors.New("Session AdminLifetime must be >= 0")
	}
	if c.Session.TouchInterval <= 0 {
		return errors.New("Session TouchInterval must be > 0")
	}
	if c.Session.UserAgentMaxLength <= 0 {
		return errors.New("Session UserAgentMaxLength must be > 0")
	}

	// Cache
	if c.Cache.Capacity <= 0 {
		return errors.New("Cache Capacity must be > 0")
	}
	if c.Cache.TTL <= 0 {
		return errors.New("Cache TTL must be > 0")
	}

	// Cookie
	if c.Cookie.Secret == "" {
		return errors.New("cookie signing secret is required")
	}
	if c.Cookie.Name == "" {
		return errors.New("cookie name is required")
	}

	// Janitor
	if c.Janitor.Enabled && c.Janitor.Interval <= 0 {
		return errors.New("Janitor Interval must be > 0 when enabled")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}
	return nil
}

// SessionLifetime returns the session window for role.
func (c *Config) SessionLifetime(role string) time.Duration {
	if role == RoleAdmin && c.Session.AdminLifetime > 0 {
		return c.Session.AdminLifetime
	}
	return c.Session.Lifetime
}

func (c *Config) tokenTTL(role string) time.Duration {
	switch {
	case role == RoleAdmin && c.Token.AdminTTL > 0:
		return c.Token.AdminTTL
	case role != RoleAdmin && c.Token.CustomerTTL > 0:
		return c.Token.CustomerTTL
	default:
		return c.SessionLifetime(role)
	}
}
