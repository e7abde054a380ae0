package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultName  = "auth_token"
	signedPrefix = "s:"
)

var (
	ErrNoSecret     = errors.New("cookie secret is required")
	ErrBadSignature = errors.New("cookie signature mismatch")
)

// Config describes the transport cookie.
type Config struct {
	Name     string
	Secret   string
	Path     string
	Domain   string
	SameSite http.SameSite
	// TrustProxy honours X-Forwarded-Proto and Forwarded when deciding Secure.
	TrustProxy bool
	// Clock stamps the Expires attribute. Nil uses the real clock.
	Clock clockwork.Clock
}

// Result reports whether a cookie mutation reached the response.
type Result struct {
	Applied bool
	Err     error
}

type Manager struct {
	cfg Config
	key []byte
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, ErrNoSecret
	}
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = http.SameSiteLaxMode
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Manager{cfg: cfg, key: []byte(cfg.Secret)}, nil
}

func (m *Manager) Name() string { return m.cfg.Name }

// Options returns the cookie attributes for r with the given lifetime.
// The value is left empty.
func (m *Manager) Options(r *http.Request, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.Name,
		Path:     m.cfg.Path,
		Domain:   m.cfg.Domain,
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   IsSecure(r, m.cfg.TrustProxy),
		SameSite: m.cfg.SameSite,
	}
}

// Set writes a signed cookie carrying value.
func (m *Manager) Set(w http.ResponseWriter, r *http.Request, value string, maxAge time.Duration) Result {
	if w == nil {
		return Result{Err: errors.New("nil response writer")}
	}
	c := m.Options(r, maxAge)
	c.Value = m.Sign(value)
	if maxAge > 0 {
		c.Expires = m.cfg.Clock.Now().Add(maxAge).UTC()
	}
	if err := c.Valid(); err != nil {
		return Result{Err: err}
	}
	http.SetCookie(w, c)
	return Result{Applied: true}
}

// Clear expires the cookie on the client. Calling it repeatedly is harmless.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) Result {
	if w == nil {
		return Result{Err: errors.New("nil response writer")}
	}
	c := m.Options(r, 0)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0).UTC()
	http.SetCookie(w, c)
	return Result{Applied: true}
}

// Read returns the unsigned cookie value. A missing cookie or one whose
// signature does not verify reads as absent.
func (m *Manager) Read(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.cfg.Name)
	if err != nil || c.Value == "" {
		return "", false
	}
	value, err := m.Unsign(c.Value)
	if err != nil {
		return "", false
	}
	return value, true
}

// Sign renders value as "s:<value>.<mac>", query-escaped for the cookie jar.
func (m *Manager) Sign(value string) string {
	return url.QueryEscape(signedPrefix + value + "." + m.mac(value))
}

func (m *Manager) Unsign(raw string) (string, error) {
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return "", ErrBadSignature
	}
	if !strings.HasPrefix(decoded, signedPrefix) {
		return "", ErrBadSignature
	}
	body := decoded[len(signedPrefix):]
	dot := strings.LastIndexByte(body, '.')
	if dot <= 0 {
		return "", ErrBadSignature
	}
	value, sig := body[:dot], body[dot+1:]
	if !hmac.Equal([]byte(sig), []byte(m.mac(value))) {
		return "", ErrBadSignature
	}
	return value, nil
}

func (m *Manager) mac(value string) string {
	h := hmac.New(sha256.New, m.key)
	h.Write([]byte(value))
	return base64.RawStdEncoding.EncodeToString(h.Sum(nil))
}

// IsSecure reports whether r reached us over TLS. With trustProxy the
// first X-Forwarded-Proto hop, or a Forwarded proto=https element, counts.
func IsSecure(r *http.Request, trustProxy bool) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	if !trustProxy {
		return false
	}
	if xfp := r.Header.Get("X-Forwarded-Proto"); xfp != "" {
		first, _, _ := strings.Cut(xfp, ",")
		return strings.EqualFold(strings.TrimSpace(first), "https")
	}
	if fwd := r.Header.Get("Forwarded"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		for _, pair := range strings.Split(first, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if ok && strings.EqualFold(k, "proto") {
				return strings.EqualFold(strings.Trim(v, `"`), "https")
			}
		}
	}
	return false
}
