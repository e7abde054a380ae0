package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	storeauth "github.com/Arunava9732/Arunava45-sub000"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("COOKIE_SECRET", "cookie-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.SessionYears != 10 || cfg.AdminSessionYears != 0 {
		t.Errorf("session years = %d/%d, want 10/0", cfg.SessionYears, cfg.AdminSessionYears)
	}
	if cfg.SessionBackend != BackendFile || cfg.DataDir != "./data" {
		t.Errorf("backend = %q dir = %q", cfg.SessionBackend, cfg.DataDir)
	}
	if cfg.TouchInterval != 5*time.Minute {
		t.Errorf("TouchInterval = %v, want 5m", cfg.TouchInterval)
	}
	if cfg.SessionCacheSize != 1000 || cfg.SessionCacheTTL != time.Minute {
		t.Errorf("cache = %d/%v, want 1000/1m", cfg.SessionCacheSize, cfg.SessionCacheTTL)
	}
	if cfg.JanitorInterval != time.Hour {
		t.Errorf("JanitorInterval = %v, want 1h", cfg.JanitorInterval)
	}
	if !cfg.TrustProxy || !cfg.MetricsEnabled || cfg.AuditEnabled {
		t.Errorf("unexpected flags: trust=%v metrics=%v audit=%v", cfg.TrustProxy, cfg.MetricsEnabled, cfg.AuditEnabled)
	}
	if cfg.CookieName != "auth_token" {
		t.Errorf("CookieName = %q", cfg.CookieName)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SESSION_YEARS", "2")
	t.Setenv("ADMIN_SESSION_YEARS", "1")
	t.Setenv("SESSION_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("TOUCH_INTERVAL", "90s")

	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.SessionBackend != BackendRedis || cfg.RedisAddr != "cache:6379" || cfg.RedisDB != 3 {
		t.Errorf("redis settings not applied: %+v", cfg)
	}
	if cfg.TouchInterval != 90*time.Second {
		t.Errorf("TouchInterval = %v", cfg.TouchInterval)
	}

	engine := cfg.Engine()
	if engine.Session.Lifetime != storeauth.SessionYears(2) {
		t.Errorf("Lifetime = %v", engine.Session.Lifetime)
	}
	if got := engine.SessionLifetime(storeauth.RoleAdmin); got != storeauth.SessionYears(1) {
		t.Errorf("admin lifetime = %v", got)
	}
	if err := engine.Validate(); err != nil {
		t.Fatalf("engine config must validate: %v", err)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	body := "JWT_SECRET=" + testSecret + "\nCOOKIE_SECRET=from-file\nHTTP_ADDR=:7070\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("JWT_SECRET", "")
	t.Setenv("COOKIE_SECRET", "")
	t.Setenv("HTTP_ADDR", ":6060")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CookieSecret != "from-file" {
		t.Errorf("CookieSecret = %q, want value from .env", cfg.CookieSecret)
	}
	if cfg.HTTPAddr != ":6060" {
		t.Errorf("HTTPAddr = %q, env must override .env", cfg.HTTPAddr)
	}
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"missing jwt secret":   {"JWT_SECRET": "", "COOKIE_SECRET": "c"},
		"short jwt secret":     {"JWT_SECRET": "short", "COOKIE_SECRET": "c"},
		"missing cookie":       {"JWT_SECRET": testSecret, "COOKIE_SECRET": ""},
		"zero years":           {"JWT_SECRET": testSecret, "COOKIE_SECRET": "c", "SESSION_YEARS": "0"},
		"years overflow":       {"JWT_SECRET": testSecret, "COOKIE_SECRET": "c", "SESSION_YEARS": "585"},
		"admin years overflow": {"JWT_SECRET": testSecret, "COOKIE_SECRET": "c", "ADMIN_SESSION_YEARS": "585"},
		"unknown backend":      {"JWT_SECRET": testSecret, "COOKIE_SECRET": "c", "SESSION_BACKEND": "mongo"},
		"postgres without url": {"JWT_SECRET": testSecret, "COOKIE_SECRET": "c", "SESSION_BACKEND": "postgres"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := LoadFrom(""); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
