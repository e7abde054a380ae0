package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	storeauth "github.com/Arunava9732/Arunava45-sub000"
	"github.com/Arunava9732/Arunava45-sub000/internal/config"
	"github.com/Arunava9732/Arunava45-sub000/password"
	"github.com/Arunava9732/Arunava45-sub000/stores/filestore"
)

const shopperPassword = "window-shopping-1"

func newTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()

	h, err := password.NewHasher(password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	hash, err := h.Hash(shopperPassword)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	seed, err := filestore.Open(dir)
	if err != nil {
		t.Fatalf("filestore.Open: %v", err)
	}
	ctx := context.Background()
	for _, u := range []storeauth.User{
		{ID: "u-1", Email: "ada@shop.test", Name: "Ada", Role: storeauth.RoleCustomer, PasswordHash: hash},
		{ID: "a-1", Email: "root@shop.test", Role: storeauth.RoleAdmin, PasswordHash: hash},
	} {
		if err := seed.PutUser(ctx, u); err != nil {
			t.Fatalf("PutUser: %v", err)
		}
	}

	cfg := config.Config{
		HTTPAddr:         "127.0.0.1:0",
		JWTSecret:        "0123456789abcdef0123456789abcdef",
		CookieSecret:     "app-cookie-secret",
		CookieName:       "auth_token",
		TrustProxy:       true,
		SessionYears:     10,
		TouchInterval:    5 * time.Minute,
		SessionCacheSize: 1000,
		SessionCacheTTL:  time.Minute,
		JanitorInterval:  time.Hour,
		SessionBackend:   config.BackendFile,
		DataDir:          dir,
		MetricsEnabled:   true,
	}

	a, err := New(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func loginToken(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/auth/login", "", `{"email":"`+email+`","password":"`+shopperPassword+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	var body loginResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if body.Token == "" || !body.Success {
		t.Fatalf("unexpected login body: %+v", body)
	}

	var cookieSet bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "auth_token" && c.HttpOnly && c.Value != "" {
			cookieSet = true
		}
	}
	if !cookieSet {
		t.Fatal("login must set the http-only session cookie")
	}
	return body.Token
}

func TestLoginMeLogout(t *testing.T) {
	a := newTestApp(t)
	h := a.Handler()

	token := loginToken(t, h, "ada@shop.test")

	rec := do(t, h, http.MethodGet, "/api/auth/me", token, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"userId":"u-1"`) {
		t.Fatalf("me: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/api/auth/logout", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/auth/me", token, "")
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), storeauth.CodeInvalidSession) {
		t.Fatalf("me after logout: %d %s", rec.Code, rec.Body.String())
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	a := newTestApp(t)

	rec := do(t, a.Handler(), http.MethodPost, "/api/auth/login", "", `{"email":"ada@shop.test","password":"nope-nope-nope"}`)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "INVALID_CREDENTIALS") {
		t.Fatalf("expected 401 INVALID_CREDENTIALS, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, a.Handler(), http.MethodPost, "/api/auth/login", "", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestMeWithoutCredential(t *testing.T) {
	a := newTestApp(t)
	rec := do(t, a.Handler(), http.MethodGet, "/api/auth/me", "", "")
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), storeauth.CodeNoToken) {
		t.Fatalf("expected 401 NO_TOKEN, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestAdminPing(t *testing.T) {
	a := newTestApp(t)
	h := a.Handler()

	if rec := do(t, h, http.MethodGet, "/api/admin/ping", loginToken(t, h, "ada@shop.test"), ""); rec.Code != http.StatusForbidden {
		t.Fatalf("customer must get 403, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/admin/ping", loginToken(t, h, "root@shop.test"), ""); rec.Code != http.StatusOK {
		t.Fatalf("admin must get 200, got %d", rec.Code)
	}
}

func TestStatusIsOptional(t *testing.T) {
	a := newTestApp(t)
	h := a.Handler()

	rec := do(t, h, http.MethodGet, "/api/auth/status", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"authenticated":false`) {
		t.Fatalf("anonymous status: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/auth/status", loginToken(t, h, "ada@shop.test"), "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"authenticated":true`) {
		t.Fatalf("authenticated status: %d %s", rec.Code, rec.Body.String())
	}
}

func TestSessionsListAndRevoke(t *testing.T) {
	a := newTestApp(t)
	h := a.Handler()

	first := loginToken(t, h, "ada@shop.test")
	second := loginToken(t, h, "ada@shop.test")

	rec := do(t, h, http.MethodGet, "/api/auth/sessions", second, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	var list struct {
		Sessions []storeauth.SessionInfo `json:"sessions"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list.Sessions))
	}

	rec = do(t, h, http.MethodDelete, "/api/auth/sessions", second, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"removed":1`) {
		t.Fatalf("revoke: %d %s", rec.Code, rec.Body.String())
	}

	if rec := do(t, h, http.MethodGet, "/api/auth/me", first, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked session must be rejected, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/auth/me", second, ""); rec.Code != http.StatusOK {
		t.Fatalf("current session must survive, got %d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	a := newTestApp(t)
	h := a.Handler()
	loginToken(t, h, "ada@shop.test")

	if rec := do(t, h, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "storeauth_login_success_total 1") {
		t.Fatalf("metrics: %d %s", rec.Code, rec.Body.String())
	}
}
