package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs tokens with a shared server secret. This is the default.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs tokens with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

const minHS256SecretBytes = 16

var (
	// ErrMalformed reports a token that cannot be decoded as a signed token.
	ErrMalformed = errors.New("token malformed")
	// ErrInvalidSignature reports a token whose signature does not verify.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrExpired reports a correctly signed token whose expiry has passed.
	ErrExpired = errors.New("token expired")
	// ErrInvalidClaims reports a correctly signed token with unusable claims.
	ErrInvalidClaims = errors.New("token claims invalid")
)

// Config holds the signing material and per-role lifetimes of a Manager.
type Config struct {
	SigningMethod SigningMethod
	// PrivateKey is the HS256 secret or the Ed25519 private key (raw or PEM).
	PrivateKey []byte
	// PublicKey is the Ed25519 public key (raw or PEM). Unused for HS256.
	PublicKey []byte
	// DefaultTTL applies to any role without an entry in RoleTTL.
	DefaultTTL time.Duration
	RoleTTL    map[string]time.Duration
	Issuer     string
	Leeway     time.Duration
	// MaxFutureIAT bounds how far in the future an iat claim may be. Zero means 10 minutes.
	MaxFutureIAT time.Duration
	Clock        clockwork.Clock
}

// Subject is the identity a token is issued for.
type Subject struct {
	UserID string
	Email  string
	Role   string
	Name   string
}

// Claims are the signed identity assertion carried by every token.
// The registered ID claim (jti) is a random UUID so two tokens issued for
// the same subject within the same second never share bytes.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// ExpiredAt reports whether the claims are past their expiry at now.
// A token is expired from the exp second onwards.
func (c *Claims) ExpiredAt(now time.Time) bool {
	if c == nil || c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Time)
}

// VerifyOptions tune Verify.
type VerifyOptions struct {
	// AllowExpired returns the claims of a correctly signed, time-expired
	// token instead of ErrExpired. The signature is always checked.
	AllowExpired bool
}

// Manager issues and verifies signed tokens. It is safe for concurrent use.
type Manager struct {
	config Config
	clock  clockwork.Clock
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	if cfg.DefaultTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	for role, ttl := range cfg.RoleTTL {
		if ttl <= 0 {
			return nil, fmt.Errorf("invalid TTL for role %q", role)
		}
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < minHS256SecretBytes {
			return nil, fmt.Errorf("hs256 requires a secret of at least %d bytes", minHS256SecretBytes)
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	cfg.Clock = nil

	return &Manager{config: cfg, clock: clock}, nil
}

// TTL returns the token lifetime for role.
func (m *Manager) TTL(role string) time.Duration {
	if ttl, ok := m.config.RoleTTL[role]; ok {
		return ttl
	}
	return m.config.DefaultTTL
}

// Issue signs a fresh token for sub with the lifetime of its role.
func (m *Manager) Issue(sub Subject) (string, *Claims, error) {
	if strings.TrimSpace(sub.UserID) == "" {
		return "", nil, errors.New("subject user id is required")
	}

	now := m.clock.Now()
	claims := &Claims{
		UserID: sub.UserID,
		Email:  sub.Email,
		Role:   sub.Role,
		Name:   sub.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.TTL(sub.Role))),
			Issuer:    m.config.Issuer,
		},
	}

	signKey, err := m.signKey()
	if err != nil {
		return "", nil, err
	}
	token, err := jwt.NewWithClaims(m.method(), claims).SignedString(signKey)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Verify checks the signature of tokenStr and returns its claims.
//
// The returned error wraps exactly one of ErrMalformed, ErrInvalidSignature,
// ErrExpired or ErrInvalidClaims. ErrExpired is only reported for tokens
// whose signature verified.
func (m *Manager) Verify(tokenStr string, opts VerifyOptions) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithTimeFunc(m.clock.Now),
		jwt.WithStrictDecoding(),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if opts.AllowExpired {
		options = append(options, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey()
	})
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid {
		return nil, ErrInvalidClaims
	}

	if opts.AllowExpired {
		// Claims validation was skipped; keep the checks that do not involve expiry.
		if claims.ExpiresAt == nil {
			return nil, fmt.Errorf("%w: missing exp", ErrInvalidClaims)
		}
		if m.config.Issuer != "" && claims.Issuer != m.config.Issuer {
			return nil, fmt.Errorf("%w: issuer mismatch", ErrInvalidClaims)
		}
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing userId", ErrInvalidClaims)
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(m.clock.Now().Add(m.config.MaxFutureIAT)) {
		return nil, fmt.Errorf("%w: iat too far in the future", ErrInvalidClaims)
	}

	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return jwt.SigningMethodEdDSA
	default:
		return jwt.SigningMethodHS256
	}
}

func (m *Manager) signKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return parseEdPrivateKey(m.config.PrivateKey)
	default:
		return m.config.PrivateKey, nil
	}
}

func (m *Manager) verifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return parseEdPublicKey(m.config.PublicKey)
	default:
		return m.config.PrivateKey, nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
